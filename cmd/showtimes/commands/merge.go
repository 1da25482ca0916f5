package commands

import (
	"fmt"

	"showtimes-backend/internal/pipeline"
	"showtimes-backend/internal/scrapers/bookmyshow"
	"showtimes-backend/internal/scrapers/ticketnew"
	"showtimes-backend/pkg/serviceutil"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var mergeReconcile *bool

func init() {
	mergeReconcile = mergeCmd.Flags().Bool("reconcile", false, "Reconcile the dataset against the merged documents afterwards.")
	rootCmd.AddCommand(mergeCmd)
}

func printMergeResult(res pipeline.MergeResult, reconciled bool) {
	out := rootCmd.OutOrStdout()
	fmt.Fprintf(
		out, "run %s: merged %d documents, %d movies, %d new showtimes, %d entries skipped\n",
		res.Merge.RunID, res.Merge.Documents, res.Merge.Movies, res.Merge.ShowtimesAdded, res.Merge.Skipped,
	)
	if !reconciled {
		return
	}
	printReconcileResult(res.Reconcile)
}

var mergeCmd = &cobra.Command{
	Use:   "merge [documents...] [--reconcile]",
	Short: "Merges documents into the dataset, by default the last document of every enabled source.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := loadEnv(ctx)
		defer e.Close()

		p := e.pipeline(false)
		paths := args
		if len(paths) == 0 {
			for _, source := range enabledSources(e) {
				paths = append(paths, p.DocumentPath(source))
			}
		}

		res, err := p.Merge(ctx, uuid.NewString(), nil, paths, *mergeReconcile)
		if err != nil {
			serviceutil.Fatal("merge failed", err)
		}
		printMergeResult(res, *mergeReconcile)
	},
}

func enabledSources(e *env) []string {
	var out []string
	if e.cfg.Sources.BookMyShow.IsEnabled() {
		out = append(out, bookmyshow.Source)
	}
	if e.cfg.Sources.TicketNew.IsEnabled() {
		out = append(out, ticketnew.Source)
	}
	return out
}
