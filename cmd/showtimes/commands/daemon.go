package commands

import (
	"log/slog"

	"showtimes-backend/internal/components/chrono"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var daemonNow *bool

func init() {
	daemonNow = daemonCmd.Flags().Bool("now", false, "Also run the pipeline once on startup.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--now]",
	Short: "Runs the full pipeline on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()
		telemetry.InstrumentPerfStats(ctx, e.tel)

		p := e.pipeline(true)
		job := func() {
			if ctx.Err() != nil {
				return
			}
			summary, err := p.Run(ctx)
			if err != nil {
				e.tel.ReportBroken("daemon.run", summary.RunID, err)
				return
			}
			slog.Info("run finished", "run", summary.RunID, "documents", summary.Documents)
		}

		scheduler := chrono.NewCronScheduler(e.clock, e.tel)
		err := scheduler.Schedule(e.cfg.Schedule, job)
		if err != nil {
			serviceutil.Fatal("invalid schedule", err)
		}
		slog.Info("daemon started", "schedule", e.cfg.Schedule, "timezone", e.clock.Location().String())

		if *daemonNow {
			scheduler.RunNow()
		}

		<-ctx.Done()
		slog.Info("stopping, waiting for the current run")
		scheduler.Stop()
	},
}
