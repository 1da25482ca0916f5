package commands

import (
	"fmt"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the full pipeline once: scrape, merge, reconcile and notify.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()
		telemetry.InstrumentPerfStats(ctx, e.tel)

		summary, err := e.pipeline(true).Run(ctx)
		fmt.Fprint(rootCmd.OutOrStdout(), summary.Text())
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
	},
}
