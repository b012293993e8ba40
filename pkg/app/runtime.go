package app

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/config"
	"github.com/dyike/StockSync/internal/cache"
	"github.com/dyike/StockSync/internal/service"
	"github.com/dyike/StockSync/internal/storage"
	"github.com/dyike/StockSync/internal/storage/postgrest"
	"github.com/dyike/StockSync/internal/storage/sqlite"
	"github.com/dyike/StockSync/pkg/dataflows"
)

type Option func(*Runtime)

// WithStore replaces the store selected by store_driver.
func WithStore(store storage.Store) Option {
	return func(r *Runtime) {
		if store != nil {
			r.Store = store
		}
	}
}

// WithQuoteProvider replaces the provider selected by quote_provider.
func WithQuoteProvider(quotes dataflows.QuoteProvider) Option {
	return func(r *Runtime) {
		if quotes != nil {
			r.Quotes = quotes
		}
	}
}

// WithPageFetcher replaces the direct page fetcher.
func WithPageFetcher(fetcher dataflows.PageFetcher) Option {
	return func(r *Runtime) {
		if fetcher != nil {
			r.fetcher = fetcher
		}
	}
}

// Runtime owns the process-wide collaborators: one store, one quote
// provider, one result cache. It is built once at startup.
type Runtime struct {
	Config    *config.Config
	Store     storage.Store
	Quotes    dataflows.QuoteProvider
	Retriever *dataflows.Retriever
	Results   *cache.ResultCache
	Service   *service.StockService

	fetcher dataflows.PageFetcher
}

func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	rt := &Runtime{Config: cfg}
	for _, opt := range opts {
		opt(rt)
	}

	var err error
	if rt.Store == nil {
		if rt.Store, err = BuildStore(cfg); err != nil {
			return nil, err
		}
	}
	if rt.Quotes == nil {
		if rt.Quotes, err = BuildQuoteProvider(cfg); err != nil {
			rt.Close()
			return nil, err
		}
	}
	if rt.fetcher == nil {
		rt.fetcher = dataflows.NewDirectFetcher(cfg.ScrapeTimeout)
	}

	renderer, err := BuildRenderer(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Retriever = dataflows.NewRetriever(rt.fetcher, renderer, cfg.ScrapeBaseURL, cfg.RenderWaitFor)

	if rt.Results, err = cache.NewResultCache(cfg.CacheSize); err != nil {
		rt.Close()
		return nil, err
	}

	rt.Service = service.NewStockService(
		rt.Quotes,
		rt.Retriever,
		storage.NewStockRepository(rt.Store),
		rt.Results,
		service.WithStoreTimeout(cfg.StoreTimeout),
	)

	log.Debug().
		Str("store", cfg.StoreDriver).
		Str("quotes", cfg.QuoteProvider).
		Str("renderer", cfg.Renderer).
		Int("cache_size", cfg.CacheSize).
		Msg("runtime ready")
	return rt, nil
}

func (r *Runtime) Close() error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

func BuildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StorePostgREST:
		return postgrest.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StoreTimeout), nil
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store_driver %q", cfg.StoreDriver)
	}
}

func BuildQuoteProvider(cfg *config.Config) (dataflows.QuoteProvider, error) {
	switch cfg.QuoteProvider {
	case config.QuoteProviderPolygon:
		return dataflows.NewPolygonClient(cfg.PolygonBaseURL, cfg.PolygonAPIKey, cfg.ScrapeTimeout), nil
	case config.QuoteProviderYahoo:
		return dataflows.NewYahooFinanceClient(), nil
	case config.QuoteProviderLongport:
		client, err := dataflows.NewLongportClient(dataflows.LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("create longport client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown quote_provider %q", cfg.QuoteProvider)
	}
}

// BuildRenderer returns nil for renderer "none": transport failures are then final.
func BuildRenderer(cfg *config.Config) (dataflows.Renderer, error) {
	switch cfg.Renderer {
	case config.RendererZenRows:
		return dataflows.NewZenRowsRenderer(cfg.ZenRowsBaseURL, cfg.ZenRowsAPIKey, cfg.RenderTimeout), nil
	case config.RendererChrome:
		return dataflows.NewChromeRenderer(cfg.RenderTimeout), nil
	case config.RendererNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}
