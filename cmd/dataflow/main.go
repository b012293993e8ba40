package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/StockSync/config"
	"github.com/dyike/StockSync/internal/logging"
	"github.com/dyike/StockSync/internal/parser"
	"github.com/dyike/StockSync/models"
	"github.com/dyike/StockSync/pkg/app"
	"github.com/dyike/StockSync/pkg/dataflows"
)

// dataflow runs only the page retrieval for a symbol and reports which path
// served it and which sections the parsers found.
func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "dataflow SYMBOL",
		Short:        "Probe the quote page retrieval for one symbol",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}

			renderer, err := app.BuildRenderer(cfg)
			if err != nil {
				return err
			}
			retriever := dataflows.NewRetriever(dataflows.NewDirectFetcher(cfg.ScrapeTimeout), renderer, cfg.ScrapeBaseURL, cfg.RenderWaitFor)

			symbol := args[0]
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ScrapeTimeout+cfg.RenderTimeout)
			defer cancel()

			start := time.Now()
			res := retriever.Retrieve(ctx, symbol)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:     %s\n", res.URL)
			fmt.Fprintf(out, "source:  %s (%s)\n", res.Source, time.Since(start).Round(time.Millisecond))
			if !res.OK() {
				return res.Err
			}

			doc, err := parser.NewDocument(res.HTML)
			if err != nil {
				return err
			}
			page := parser.ParsePage(doc, symbol, time.Now())
			fmt.Fprintf(out, "company: %s\n", page.CompanyName)
			fmt.Fprintf(out, "bytes:   %d\n", len(res.HTML))
			for _, section := range []string{models.SectionPerformance, models.SectionCompetitors} {
				status := "found"
				for _, missing := range page.MissingSections {
					if missing == section {
						status = "missing"
					}
				}
				fmt.Fprintf(out, "%-12s %s\n", section+":", status)
			}
			fmt.Fprintf(out, "peers:   %d\n", len(page.Competitors))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Configuration file path")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
