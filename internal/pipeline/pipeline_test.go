package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"showtimes-backend/internal/components/chrono"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/config"
	"showtimes-backend/internal/db"
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/notify"
	"showtimes-backend/internal/scrapers"
	"showtimes-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	source string
	// titles listed in every city, a nil slice fails every city
	titles []string
}

func (f *fakeAdapter) Source() string {
	return f.source
}

func (f *fakeAdapter) Cities() []string {
	return []string{"chennai", "madurai"}
}

func (f *fakeAdapter) ScrapeCity(ctx context.Context, city string, dates []string) ([]document.Movie, error) {
	if f.titles == nil {
		return nil, fmt.Errorf("listing of %s unavailable", city)
	}
	var movies []document.Movie
	for _, title := range f.titles {
		movies = append(movies, document.Movie{
			Title: title,
			Theatres: []document.Theatre{{
				Name:  "PVR " + city,
				Dates: map[string][]document.Showtime{dates[0]: {{Time: "6:00 PM", Format: "2D"}}},
			}},
		})
	}
	return movies, nil
}

type recordingNotifier struct {
	summaries []notify.Summary
}

func (r *recordingNotifier) Notify(ctx context.Context, summary notify.Summary) error {
	r.summaries = append(r.summaries, summary)
	return nil
}

func newPipeline(t testing.TB, database *sql.DB, notifier notify.Notifier, adapters ...scrapers.Adapter) *Pipeline {
	cfg := config.Config{
		DocumentsDir: t.TempDir(),
		PosterDir:    t.TempDir(),
		Days:         2,
		CityWorkers:  2,
	}
	clock := chrono.FixedImpl{Time: time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)}
	return New(Options{
		Config:   cfg,
		Database: database,
		Adapters: adapters,
		Clock:    clock,
		Notifier: notifier,
	}, telemetry.NewRecorder())
}

func movieTitles(t testing.TB, database *sql.DB) []string {
	movies, err := db.New(database).ListMovies(context.Background())
	require.NoError(t, err)
	out := []string{}
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func TestRunMergesAndRetires(t *testing.T) {
	ctx := context.Background()
	database := testutil.OpenDB(t)
	notifier := &recordingNotifier{}

	bms := &fakeAdapter{source: "bookmyshow", titles: []string{"Old Film", "Test Film"}}
	p := newPipeline(t, database, notifier, bms)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Documents)
	require.Equal(t, int64(4), summary.ShowtimesAdded)
	require.Equal(t, []string{"Old Film", "Test Film"}, movieTitles(t, database))

	bms.titles = []string{"Test Film"}
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.MoviesRetired)
	require.Equal(t, []string{"Test Film"}, movieTitles(t, database))

	require.Len(t, notifier.summaries, 2)
	require.NotEqual(t, notifier.summaries[0].RunID, notifier.summaries[1].RunID)
	require.Equal(t, []notify.SourceSummary{{
		Source:    "bookmyshow",
		Ok:        true,
		CitiesOK:  2,
		Movies:    2,
		Showtimes: 2,
	}}, notifier.summaries[1].Sources)
}

func TestRunSkipsReconcileWhenEverySourceFailed(t *testing.T) {
	ctx := context.Background()
	database := testutil.OpenDB(t)
	notifier := &recordingNotifier{}

	bms := &fakeAdapter{source: "bookmyshow", titles: []string{"Test Film"}}
	p := newPipeline(t, database, notifier, bms)

	_, err := p.Run(ctx)
	require.NoError(t, err)

	bms.titles = nil
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Documents)
	require.True(t, summary.ReconcileSkipped)
	require.False(t, summary.Sources[0].Ok)
	require.Equal(t, []string{"Test Film"}, movieTitles(t, database))
}

func TestRunKeepsDocumentOfFailedSourceOutOfMerge(t *testing.T) {
	ctx := context.Background()
	database := testutil.OpenDB(t)

	bms := &fakeAdapter{source: "bookmyshow", titles: []string{"Test Film"}}
	tn := &fakeAdapter{source: "ticketnew"}
	p := newPipeline(t, database, nil, bms, tn)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Documents)
	require.Len(t, summary.Sources, 2)

	sources, err := db.New(database).ListRunSources(ctx, summary.RunID)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, s := range sources {
		got[s.Source] = s.Ok
	}
	require.Equal(t, map[string]bool{"bookmyshow": true, "ticketnew": false}, got)
}

func TestScrapeThenMergeSeparately(t *testing.T) {
	ctx := context.Background()
	database := testutil.OpenDB(t)

	bms := &fakeAdapter{source: "bookmyshow", titles: []string{"Test Film"}}
	tn := &fakeAdapter{source: "ticketnew", titles: []string{"Other Film"}}
	p := newPipeline(t, database, nil, bms, tn)

	results, err := p.Scrape(ctx, []string{"ticketnew"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, p.DocumentPath("ticketnew"), results[0].Path)

	doc, skipped, err := document.Read(results[0].Path)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Equal(t, "20240601", doc.Date)
	require.Equal(t, 2, doc.Stats().Cities)

	res, err := p.Merge(ctx, "manual", nil, []string{results[0].Path, "/does/not/exist.json"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Merge.Documents)
	require.Equal(t, []string{"Other Film"}, movieTitles(t, database))

	rec, err := p.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, "manual", rec.RunID)
	require.Equal(t, 0, rec.MoviesRetired)

	_, err = p.Scrape(ctx, []string{"unknown"})
	require.Error(t, err)
}

func TestLockSerializesHolders(t *testing.T) {
	lock := NewLock(t.TempDir() + "/merge.lock")

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestAdaptersFollowConfig(t *testing.T) {
	cfg, err := config.Finish(config.Config{DumpDir: t.TempDir()})
	require.NoError(t, err)
	disabled := false
	cfg.Sources.TicketNew.Enabled = &disabled

	adapters, err := Adapters(cfg, telemetry.NewRecorder())
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	require.Equal(t, "bookmyshow", adapters[0].Source())
	require.NotEmpty(t, adapters[0].Cities())
	require.DirExists(t, filepath.Join(cfg.DumpDir, "bookmyshow"))
	require.NoDirExists(t, filepath.Join(cfg.DumpDir, "ticketnew"))
}
