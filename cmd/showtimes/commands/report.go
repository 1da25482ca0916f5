package commands

import (
	"showtimes-backend/internal/db"
	"showtimes-backend/internal/report"
	"showtimes-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var duplicatesThreshold *float64

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "The 'report' subcommand prints read-only views of the dataset.",
}

func init() {
	duplicatesThreshold = reportDuplicatesCmd.Flags().Float64("threshold", report.DefaultThreshold, "The minimum Jaro-Winkler similarity of a reported pair.")
	reportCmd.AddCommand(reportStatsCmd)
	reportCmd.AddCommand(reportDuplicatesCmd)
	rootCmd.AddCommand(reportCmd)
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints theatre, movie and showtime counts per city.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()

		stats, err := report.LoadStats(ctx, db.New(e.database))
		if err != nil {
			serviceutil.Fatal("failed to load stats", err)
		}
		stats.Render(rootCmd.OutOrStdout())
	},
}

var reportDuplicatesCmd = &cobra.Command{
	Use:   "duplicates [--threshold 0.92]",
	Short: "Lists movie titles that probably name the same film, nothing is merged.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()

		movies, err := db.New(e.database).ListMovies(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list movies", err)
		}
		titles := make([]string, len(movies))
		for i, m := range movies {
			titles[i] = m.Title
		}
		report.RenderDuplicates(rootCmd.OutOrStdout(), report.Duplicates(titles, *duplicatesThreshold))
	},
}
