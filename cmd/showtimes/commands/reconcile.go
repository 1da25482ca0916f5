package commands

import (
	"fmt"

	"showtimes-backend/internal/reconcile"
	"showtimes-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func printReconcileResult(res reconcile.Result) {
	out := rootCmd.OutOrStdout()
	if res.Skipped {
		fmt.Fprintf(out, "run %s merged nothing, reconciliation skipped\n", res.RunID)
		return
	}
	fmt.Fprintf(
		out, "run %s: retired %d movies (%d showtimes), %d theatres, %d posters\n",
		res.RunID, res.MoviesRetired, res.ShowtimesRemoved, res.TheatresRetired, res.PostersRemoved,
	)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Retires movies, theatres and posters the last merge run did not observe.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()

		res, err := e.pipeline(false).Reconcile(ctx)
		if err != nil {
			serviceutil.Fatal("reconcile failed", err)
		}
		printReconcileResult(res)
	},
}
