// Package pipeline wires the source adapters, the merge engine and the
// reconciliation pass into one run.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/chrono"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/config"
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/merge"
	"showtimes-backend/internal/notify"
	"showtimes-backend/internal/posters"
	"showtimes-backend/internal/reconcile"
	"showtimes-backend/internal/scrapers"
	"showtimes-backend/internal/scrapers/bookmyshow"
	"showtimes-backend/internal/scrapers/fetch"
	"showtimes-backend/internal/scrapers/ticketnew"
	"showtimes-backend/pkg/restyutil"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	report_pipeline_merge  = "pipeline.merge"
	report_pipeline_notify = "pipeline.notify"
)

// Adapters builds the enabled source adapters from the configuration, each
// with its own fetch client so that rate limits apply per site.
func Adapters(cfg config.Config, tel telemetry.API) ([]scrapers.Adapter, error) {
	var out []scrapers.Adapter

	newClient := func(name string, source config.Source) (*fetch.Client, error) {
		opts := fetch.Options{
			BaseUrl:           source.BaseUrl,
			Timeout:           cfg.RequestTimeout(),
			MinBodyLength:     cfg.MinBodyLength,
			RequestsPerSecond: cfg.RequestsPerSecond,
			DelayMin:          cfg.DelayMin(),
			DelayMax:          cfg.DelayMax(),
		}
		if cfg.DumpDir != "" {
			dump, err := restyutil.NewFilesystemOutput(filepath.Join(cfg.DumpDir, name))
			if err != nil {
				return nil, err
			}
			opts.Dump = dump
		}
		return fetch.NewClient(opts, tel)
	}

	if cfg.Sources.BookMyShow.IsEnabled() {
		client, err := newClient(bookmyshow.Source, cfg.Sources.BookMyShow)
		if err != nil {
			return nil, fmt.Errorf("bookmyshow client: %w", err)
		}
		fetcher := posters.NewFetcher(cfg.PosterDir, client, tel)
		out = append(out, bookmyshow.New(client, fetcher, cfg.Sources.BookMyShow.Cities, tel))
	}
	if cfg.Sources.TicketNew.IsEnabled() {
		client, err := newClient(ticketnew.Source, cfg.Sources.TicketNew)
		if err != nil {
			return nil, fmt.Errorf("ticketnew client: %w", err)
		}
		fetcher := posters.NewFetcher(cfg.PosterDir, client, tel)
		out = append(out, ticketnew.New(client, fetcher, cfg.Sources.TicketNew.Cities, tel))
	}
	return out, nil
}

type Pipeline struct {
	cfg      config.Config
	database *sql.DB
	adapters []scrapers.Adapter
	clock    chrono.API
	notifier notify.Notifier
	lock     *Lock
	runMu    sync.Mutex
	tel      telemetry.API
}

type Options struct {
	Config   config.Config
	Database *sql.DB
	Adapters []scrapers.Adapter
	Clock    chrono.API
	Notifier notify.Notifier
}

func New(opts Options, tel telemetry.API) *Pipeline {
	assert.NotNil(opts.Database)
	assert.NotNil(opts.Clock)
	assert.NotNil(tel)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		cfg:      opts.Config,
		database: opts.Database,
		adapters: opts.Adapters,
		clock:    opts.Clock,
		notifier: notifier,
		lock:     NewLock(filepath.Join(opts.Config.DocumentsDir, "merge.lock")),
		tel:      tel,
	}
}

// DocumentPath is where the document of `source` is written.
func (p *Pipeline) DocumentPath(source string) string {
	return filepath.Join(p.cfg.DocumentsDir, source+".json")
}

func (p *Pipeline) selected(sources []string) []scrapers.Adapter {
	if len(sources) == 0 {
		return p.adapters
	}
	want := map[string]struct{}{}
	for _, s := range sources {
		want[s] = struct{}{}
	}
	var out []scrapers.Adapter
	for _, a := range p.adapters {
		if _, ok := want[a.Source()]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Scrape runs the adapters of `sources` (all of them if empty) concurrently,
// each writing its document in the documents directory. Results are returned
// in adapter order.
func (p *Pipeline) Scrape(ctx context.Context, sources []string) ([]scrapers.Result, error) {
	adapters := p.selected(sources)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("scrape: no enabled source matches %v", sources)
	}

	now := p.clock.Now()
	dates := chrono.DateWindow(now, p.cfg.Days)
	date := now.Format(chrono.DateLayout)

	results := make([]scrapers.Result, len(adapters))
	group, gctx := errgroup.WithContext(ctx)
	for i, adapter := range adapters {
		group.Go(func() error {
			writer, err := document.NewWriter(p.DocumentPath(adapter.Source()), adapter.Source(), date)
			if err != nil {
				return err
			}
			results[i], err = scrapers.Run(gctx, adapter, scrapers.RunOptions{
				Workers: p.cfg.CityWorkers,
				Dates:   dates,
				Writer:  writer,
			}, p.tel)
			return err
		})
	}
	err := group.Wait()
	if err != nil {
		return results, err
	}
	return results, nil
}

type MergeResult struct {
	Merge     merge.Result
	Reconcile reconcile.Result
}

// Merge applies the documents at `paths` under the merge lock and, when
// `thenReconcile` is set, reconciles the dataset against them. Documents that
// cannot be read are skipped with a warning.
func (p *Pipeline) Merge(ctx context.Context, runID string, sources map[string]bool, paths []string, thenReconcile bool) (MergeResult, error) {
	var result MergeResult

	release, err := p.lock.Acquire(ctx)
	if err != nil {
		return result, err
	}
	defer release()

	var docs []document.Document
	skipped := 0
	for _, path := range paths {
		doc, invalid, err := document.Read(path)
		if err != nil {
			p.tel.ReportWarning(report_pipeline_merge, err)
			continue
		}
		for _, entry := range invalid {
			p.tel.ReportWarning(report_pipeline_merge, entry, path)
		}
		skipped += len(invalid)
		docs = append(docs, doc)
	}

	result.Merge, err = merge.NewEngine(p.database, p.tel).Merge(ctx, merge.Run{
		ID:      runID,
		Started: p.clock.Now(),
		Sources: sources,
	}, docs)
	result.Merge.Skipped += skipped
	if err != nil {
		return result, err
	}

	if !thenReconcile {
		return result, nil
	}
	result.Reconcile, err = p.reconcile(ctx, runID)
	return result, err
}

func (p *Pipeline) reconcile(ctx context.Context, runID string) (reconcile.Result, error) {
	return reconcile.New(p.database, p.cfg.PosterDir, p.tel).Reconcile(ctx, runID, p.cfg.Scope())
}

// Reconcile reconciles the dataset against the last finished merge run.
func (p *Pipeline) Reconcile(ctx context.Context) (reconcile.Result, error) {
	release, err := p.lock.Acquire(ctx)
	if err != nil {
		return reconcile.Result{}, err
	}
	defer release()

	runID, err := reconcile.New(p.database, p.cfg.PosterDir, p.tel).Latest(ctx)
	if err != nil {
		return reconcile.Result{}, err
	}
	return p.reconcile(ctx, runID)
}

// Run is the full pipeline: scrape every enabled source, merge the documents
// of the sources that produced anything, reconcile and send a summary.
func (p *Pipeline) Run(ctx context.Context) (notify.Summary, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	summary := notify.Summary{
		RunID:   uuid.NewString(),
		Started: p.clock.Now(),
	}
	p.tel.ReportDebug("run started", summary.RunID)

	err := p.run(ctx, &summary)
	summary.Err = err
	summary.Finished = p.clock.Now()

	notifyErr := p.notifier.Notify(context.WithoutCancel(ctx), summary)
	if notifyErr != nil {
		p.tel.ReportWarning(report_pipeline_notify, notifyErr)
	}
	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary *notify.Summary) error {
	results, err := p.Scrape(ctx, nil)
	for _, res := range results {
		if res.Source == "" {
			continue
		}
		summary.Sources = append(summary.Sources, notify.SourceSummary{
			Source:       res.Source,
			Ok:           res.Succeeded(),
			CitiesOK:     res.CitiesOK,
			CitiesFailed: res.CitiesFailed,
			Movies:       res.Stats.Movies,
			Showtimes:    res.Stats.Showtimes,
		})
	}
	if err != nil {
		return err
	}

	sources := map[string]bool{}
	var paths []string
	for _, res := range results {
		sources[res.Source] = res.Succeeded()
		if res.Succeeded() {
			paths = append(paths, res.Path)
		}
	}

	result, err := p.Merge(ctx, summary.RunID, sources, paths, true)
	summary.Documents = result.Merge.Documents
	summary.MoviesMerged = result.Merge.Movies
	summary.ShowtimesAdded = result.Merge.ShowtimesAdded
	summary.EntriesSkipped = result.Merge.Skipped
	summary.MoviesRetired = result.Reconcile.MoviesRetired
	summary.TheatresRetired = result.Reconcile.TheatresRetired
	summary.PostersRemoved = result.Reconcile.PostersRemoved
	summary.ReconcileSkipped = result.Reconcile.Skipped
	if err != nil {
		return err
	}

	p.tel.ReportDebug(
		"run finished", summary.RunID,
		"documents", result.Merge.Documents,
		"added", result.Merge.ShowtimesAdded,
		"retired", result.Reconcile.MoviesRetired,
		"took", p.clock.Now().Sub(summary.Started).Round(time.Second),
	)
	return nil
}
