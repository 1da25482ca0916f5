package commands

import (
	"context"
	"fmt"
	"os"

	"showtimes-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	jsonLogs   *bool
)

var rootCmd = &cobra.Command{
	Use:   "showtimes",
	Short: "showtimes scrapes movie showtimes from ticketing sites and merges them into one dataset.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.SetupSlog(os.Stderr, *verbose, *jsonLogs)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, overridden by its .local. variant.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages.")
	jsonLogs = rootCmd.PersistentFlags().Bool("json", false, "Log one JSON object per line.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
