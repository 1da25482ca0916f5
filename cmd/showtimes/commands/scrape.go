package commands

import (
	"strings"
	"time"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/report"
	"showtimes-backend/internal/scrapers"
	"showtimes-backend/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeSource *string

func init() {
	scrapeSource = scrapeCmd.Flags().String("source", "all", "The source to scrape: bookmyshow, ticketnew or all.")
	rootCmd.AddCommand(scrapeCmd)
}

func renderScrapeResults(results []scrapers.Result) {
	t := report.NewTable(rootCmd.OutOrStdout())
	t.AppendHeader(table.Row{"Source", "Document", "Cities ok", "Cities failed", "Movies", "Showtimes", "Took"})
	for _, r := range results {
		if r.Source == "" {
			continue
		}
		t.AppendRow(table.Row{
			r.Source, r.Path, r.CitiesOK, r.CitiesFailed,
			r.Stats.Movies, r.Stats.Showtimes, r.Duration.Round(time.Second),
		})
	}
	t.Render()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--source bookmyshow|ticketnew|all]",
	Short: "Scrapes the enabled sources and writes one document per source.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()
		telemetry.InstrumentPerfStats(ctx, e.tel)

		var sources []string
		if *scrapeSource != "" && *scrapeSource != "all" {
			sources = strings.Split(*scrapeSource, ",")
		}

		results, err := e.pipeline(true).Scrape(ctx, sources)
		renderScrapeResults(results)
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}
	},
}
