// Package scrapers runs source adapters city by city and checkpoints their
// output into unified documents.
package scrapers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/document"

	"golang.org/x/sync/errgroup"
)

const (
	report_scrapers_city = "scrapers.city"
	report_scrapers_run  = "scrapers.run"
)

// Adapter is the fetch-and-normalize logic of one ticketing site.
//
// ScrapeCity must normalize titles with identity.Title, theatre/date failures
// inside a city are the adapter's to log and skip. An error means the city as a
// whole yielded nothing (ex. the listing page could not be fetched).
type Adapter interface {
	Source() string
	Cities() []string
	ScrapeCity(ctx context.Context, city string, dates []string) ([]document.Movie, error)
}

type RunOptions struct {
	// Workers is the number of cities scraped concurrently, defaults to 1.
	Workers int
	Dates   []string
	Writer  *document.Writer
}

type Result struct {
	Source       string
	Path         string
	CitiesOK     int
	CitiesFailed int
	Stats        document.Stats
	Duration     time.Duration
}

// Succeeded reports whether the run produced anything at all, a source that
// failed every city is treated as down.
func (r Result) Succeeded() bool {
	return r.CitiesOK > 0
}

// Run scrapes every city of the adapter with a bounded worker pool, flushing
// the document after each city. City failures are logged and skipped, only a
// failure to write the document or a cancelled context aborts the run.
func Run(ctx context.Context, adapter Adapter, opts RunOptions, tel telemetry.API) (Result, error) {
	assert.NotNil(adapter)
	assert.NotNil(opts.Writer)
	assert.NotNil(tel)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	result := Result{
		Source: adapter.Source(),
		Path:   opts.Writer.Path(),
	}
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, city := range adapter.Cities() {
		if gctx.Err() != nil {
			break
		}

		group.Go(func() error {
			movies, err := adapter.ScrapeCity(gctx, city, opts.Dates)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				tel.ReportWarning(report_scrapers_city, fmt.Errorf("%s: %s: %w", adapter.Source(), city, err))
				mu.Lock()
				result.CitiesFailed++
				mu.Unlock()
				return nil
			}

			err = opts.Writer.PutCity(city, movies)
			if err != nil {
				return err
			}

			mu.Lock()
			result.CitiesOK++
			mu.Unlock()
			tel.ReportDebug("city scraped", adapter.Source(), city, len(movies))
			return nil
		})
	}

	err := group.Wait()
	result.Duration = time.Since(start)
	result.Stats = opts.Writer.Document().Stats()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			tel.ReportBroken(report_scrapers_run, adapter.Source(), err)
		}
		return result, fmt.Errorf("scrape %s: %w", adapter.Source(), err)
	}

	tel.ReportCount(fmt.Sprintf("scrapers.%s.movies", adapter.Source()), int64(result.Stats.Movies))
	tel.ReportCount(fmt.Sprintf("scrapers.%s.showtimes", adapter.Source()), int64(result.Stats.Showtimes))
	return result, nil
}

var certificateRegex = regexp.MustCompile(`^(U|UA|UA\d{1,2}\+|A|S)$`)

var tokenSeparators = regexp.MustCompile(`[\s•|,/()]+`)

// Certificate returns the first token of `text` that is a censor board
// certificate (U, UA, UA13+, A, S).
func Certificate(text string) *string {
	for _, token := range tokenSeparators.Split(text, -1) {
		token = strings.TrimSpace(token)
		if certificateRegex.MatchString(token) {
			return document.Ptr(token)
		}
	}
	return nil
}

// IsCertificate reports whether the whole of `text` is a certificate.
func IsCertificate(text string) bool {
	return certificateRegex.MatchString(strings.TrimSpace(text))
}
