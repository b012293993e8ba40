package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	QuoteProviderPolygon  = "polygon"
	QuoteProviderYahoo    = "yahoo"
	QuoteProviderLongport = "longport"

	RendererZenRows = "zenrows"
	RendererChrome  = "chrome"
	RendererNone    = "none"

	StoreSQLite    = "sqlite"
	StorePostgREST = "postgrest"
	StoreMemory    = "memory"
)

type Config struct {
	ProjectDir string `json:"project_dir" yaml:"project_dir"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`

	ServerAddr string `json:"server_addr" yaml:"server_addr"`
	Debug      bool   `json:"debug" yaml:"debug"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format"`

	// Quote provider
	QuoteProvider  string `json:"quote_provider" yaml:"quote_provider"`
	PolygonAPIKey  string `json:"polygon_api_key" yaml:"polygon_api_key"`
	PolygonBaseURL string `json:"polygon_base_url" yaml:"polygon_base_url"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key" yaml:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret" yaml:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token" yaml:"longport_access_token"`

	// Scrape target and rendering fallback
	ScrapeBaseURL  string        `json:"scrape_base_url" yaml:"scrape_base_url"`
	ScrapeTimeout  time.Duration `json:"scrape_timeout" yaml:"scrape_timeout"`
	Renderer       string        `json:"renderer" yaml:"renderer"`
	ZenRowsAPIKey  string        `json:"zenrows_api_key" yaml:"zenrows_api_key"`
	ZenRowsBaseURL string        `json:"zenrows_base_url" yaml:"zenrows_base_url"`
	RenderWaitFor  string        `json:"render_wait_for" yaml:"render_wait_for"`
	RenderTimeout  time.Duration `json:"render_timeout" yaml:"render_timeout"`

	// Durable store
	StoreDriver  string        `json:"store_driver" yaml:"store_driver"`
	SQLitePath   string        `json:"sqlite_path" yaml:"sqlite_path"`
	SupabaseURL  string        `json:"supabase_url" yaml:"supabase_url"`
	SupabaseKey  string        `json:"supabase_key" yaml:"supabase_key"`
	StoreTimeout time.Duration `json:"store_timeout" yaml:"store_timeout"`

	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	return &Config{
		ProjectDir: currentDir,
		DataDir:    filepath.Join(currentDir, "data"),

		ServerAddr: "0.0.0.0:8000",
		Debug:      false,
		LogLevel:   "info",
		LogFormat:  "console",

		QuoteProvider:  QuoteProviderPolygon,
		PolygonBaseURL: "https://api.polygon.io",

		ScrapeBaseURL:  "https://www.marketwatch.com",
		ScrapeTimeout:  20 * time.Second,
		Renderer:       RendererZenRows,
		ZenRowsBaseURL: "https://api.zenrows.com",
		RenderWaitFor:  "column--aside",
		RenderTimeout:  60 * time.Second,

		StoreDriver:  StoreSQLite,
		StoreTimeout: 10 * time.Second,

		CacheSize: 100,
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load environment variables from .env file
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "stocksync.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}

	if val := os.Getenv("SERVER_ADDR"); val != "" {
		c.ServerAddr = val
	}
	if val := os.Getenv("STOCKSYNC_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}

	if val := os.Getenv("QUOTE_PROVIDER"); val != "" {
		c.QuoteProvider = val
	}
	if val := os.Getenv("POLYGON_API_KEY"); val != "" {
		c.PolygonAPIKey = val
	}
	if val := os.Getenv("POLYGON_BASE_URL"); val != "" {
		c.PolygonBaseURL = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("SCRAPE_BASE_URL"); val != "" {
		c.ScrapeBaseURL = val
	}
	if val := os.Getenv("SCRAPE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ScrapeTimeout = d
		}
	}
	if val := os.Getenv("RENDERER"); val != "" {
		c.Renderer = val
	}
	if val := os.Getenv("ZENROW_API_KEY"); val != "" {
		c.ZenRowsAPIKey = val
	}
	if val := os.Getenv("ZENROWS_BASE_URL"); val != "" {
		c.ZenRowsBaseURL = val
	}
	if val := os.Getenv("RENDER_WAIT_FOR"); val != "" {
		c.RenderWaitFor = val
	}
	if val := os.Getenv("RENDER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RenderTimeout = d
		}
	}

	if val := os.Getenv("STORE_DRIVER"); val != "" {
		c.StoreDriver = val
	}
	if val := os.Getenv("SQLITE_PATH"); val != "" {
		c.SQLitePath = val
	}
	if val := os.Getenv("SUPABASE_URL"); val != "" {
		c.SupabaseURL = val
	}
	if val := os.Getenv("SUPABASE_KEY"); val != "" {
		c.SupabaseKey = val
	}
	if val := os.Getenv("STORE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.StoreTimeout = d
		}
	}

	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.CacheSize = v
		}
	}
}

// Validate checks enum values and the credentials each selected backend needs.
func (c *Config) Validate() error {
	switch c.QuoteProvider {
	case QuoteProviderPolygon:
		if c.PolygonAPIKey == "" {
			return fmt.Errorf("polygon_api_key is required for quote_provider %q", c.QuoteProvider)
		}
		if c.PolygonBaseURL == "" {
			return fmt.Errorf("polygon_base_url is required")
		}
	case QuoteProviderYahoo:
	case QuoteProviderLongport:
		if c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "" {
			return fmt.Errorf("longport credentials are required for quote_provider %q", c.QuoteProvider)
		}
	default:
		return fmt.Errorf("unknown quote_provider %q", c.QuoteProvider)
	}

	switch c.Renderer {
	case RendererZenRows:
		if c.ZenRowsAPIKey == "" {
			return fmt.Errorf("zenrows_api_key is required for renderer %q", c.Renderer)
		}
	case RendererChrome, RendererNone:
	default:
		return fmt.Errorf("unknown renderer %q", c.Renderer)
	}

	switch c.StoreDriver {
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite_path is required for store_driver %q", c.StoreDriver)
		}
	case StorePostgREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("supabase_url and supabase_key are required for store_driver %q", c.StoreDriver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}

	if c.ScrapeBaseURL == "" {
		return fmt.Errorf("scrape_base_url is required")
	}
	if c.ScrapeTimeout <= 0 || c.RenderTimeout <= 0 || c.StoreTimeout <= 0 {
		return fmt.Errorf("scrape_timeout, render_timeout and store_timeout must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.StoreDriver == StoreSQLite && c.SQLitePath != "" {
		dirs = append(dirs, filepath.Dir(c.SQLitePath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.PolygonAPIKey = mask(c.PolygonAPIKey)
	c.LongportAppKey = mask(c.LongportAppKey)
	c.LongportAppSecret = mask(c.LongportAppSecret)
	c.LongportAccessToken = mask(c.LongportAccessToken)
	c.ZenRowsAPIKey = mask(c.ZenRowsAPIKey)
	c.SupabaseKey = mask(c.SupabaseKey)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
