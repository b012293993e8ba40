package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/StockSync/config"
	"github.com/dyike/StockSync/internal/logging"
	"github.com/dyike/StockSync/internal/server"
	"github.com/dyike/StockSync/internal/service"
	"github.com/dyike/StockSync/internal/utils"
	"github.com/dyike/StockSync/pkg/app"
)

const Version = "v0.1.0"

// options is filled by the persistent flags and PersistentPreRunE.
type options struct {
	configPath string
	debug      bool
	cfg        *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "stocksync",
		Short: "StockSync - stock data acquisition and reconciliation",
		Long: `StockSync combines a daily quote API with a scraped quote page, normalizes
performance windows and competitor market caps, and keeps your purchased
amounts in a durable store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if opts.debug {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			// Ensure directories exist
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newFetchCmd(opts))
	rootCmd.AddCommand(newAdjustCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")

	return rootCmd
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the stock HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.NewRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(rt.Service, opts.cfg.Debug).Run(ctx, opts.cfg.ServerAddr)
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	var asJSON, exportCSV bool

	cmd := &cobra.Command{
		Use:   "fetch [SYMBOL] [DATE]",
		Short: "Fetch and reconcile a stock record",
		Long: `Fetch the quote, performance windows and competitors for a symbol.
DATE defaults to yesterday. Example: stocksync fetch AAPL 2024-05-01`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol, date string
			if len(args) > 0 {
				symbol = args[0]
			} else {
				ticker, err := PromptForTicker()
				if err != nil {
					return err
				}
				symbol = ticker
			}
			if len(args) > 1 {
				date = args[1]
			} else {
				date = service.DefaultDate(time.Now())
			}

			rt, err := app.NewRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.Service.Fetch(commandContext(cmd), symbol, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exportCSV && result.Available() {
				paths, err := utils.NewCSVManager(opts.cfg.DataDir).WriteRecordCSV(result.Record)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(cmd.ErrOrStderr(), "written to: %s\n", p)
				}
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			if result.Available() {
				fmt.Fprintln(out, RenderRecord(result.Record))
			} else {
				fmt.Fprintln(out, RenderNotice(result.Notice))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")
	cmd.Flags().BoolVar(&exportCSV, "csv", false, "Also export performance and competitors as CSV under data_dir")
	return cmd
}

func newAdjustCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "adjust SYMBOL DELTA",
		Short: "Add to or subtract from the purchased amount",
		Long: `Adjust the stored purchased amount of a stock. The result never drops below zero.
Example: stocksync adjust YELP -- -50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.TrimSpace(args[0])
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be a whole number, got %q", args[1])
			}

			if delta < 0 && !yes {
				confirmed, err := PromptConfirmAdjust(symbol, delta)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			rt, err := app.NewRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			holding, err := rt.Service.AdjustQuantity(commandContext(cmd), symbol, delta)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderHolding(holding))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation for negative deltas")
	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.cfg.Redacted().Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockSync %s\n", Version)
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
