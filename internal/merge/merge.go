// Package merge applies unified documents to the persistent dataset.
//
// Every operation is an upsert or an insert that ignores duplicates, so
// documents can be merged in any order and any number of times. The only
// ordering effect is that the last document wins the fields of a movie.
package merge

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/db"
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/identity"
)

const (
	report_merge_movie    = "engine.movie"
	report_merge_document = "engine.document"
)

type Engine struct {
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
}

func NewEngine(database *sql.DB, tel telemetry.API) Engine {
	assert.NotNil(database)
	assert.NotNil(tel)
	return Engine{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		tel:    telemetry.NewScopedAPI("merge", tel),
	}
}

// Run identifies one merge in the run bookkeeping tables.
type Run struct {
	ID      string
	Started time.Time
	// Sources is the outcome of every adapter that ran, sources that only
	// appear as documents are recorded as successful.
	Sources map[string]bool
}

type Result struct {
	RunID          string
	Documents      int
	Movies         int
	Theatres       int
	ShowtimesAdded int64
	// Skipped counts the entries dropped because they were malformed.
	Skipped int
}

// Merge applies `docs` in order. Each movie is applied in its own transaction,
// a failure to write the dataset aborts the merge with an error while
// malformed entries are skipped with a warning.
func (e Engine) Merge(ctx context.Context, run Run, docs []document.Document) (Result, error) {
	assert.NotEmptyStr(run.ID)

	result := Result{RunID: run.ID}

	err := e.qry.CreateRun(ctx, db.CreateRunParams{
		ID:        run.ID,
		StartedAt: run.Started.Unix(),
	})
	if err != nil {
		return result, fmt.Errorf("merge: create run: %w", err)
	}

	sources := map[string]bool{}
	for source, ok := range run.Sources {
		sources[source] = ok
	}
	for _, doc := range docs {
		if _, known := sources[doc.Source]; !known {
			sources[doc.Source] = true
		}
	}
	for source, ok := range sources {
		err := e.qry.SetRunSource(ctx, db.SetRunSourceParams{
			RunID:  run.ID,
			Source: source,
			Ok:     ok,
		})
		if err != nil {
			return result, fmt.Errorf("merge: note source: %w", err)
		}
	}

	for _, doc := range docs {
		err := e.mergeDocument(ctx, run.ID, doc, &result)
		if err != nil {
			return result, err
		}
		result.Documents++
	}

	err = e.qry.FinishRun(ctx, db.FinishRunParams{
		ID:              run.ID,
		FinishedAt:      sql.NullInt64{Int64: time.Now().Unix(), Valid: true},
		MergedDocuments: int64(result.Documents),
	})
	if err != nil {
		return result, fmt.Errorf("merge: finish run: %w", err)
	}

	e.tel.ReportCount("engine.showtimes-added", result.ShowtimesAdded)
	e.tel.ReportCount("engine.skipped", int64(result.Skipped))
	return result, nil
}

func (e Engine) mergeDocument(ctx context.Context, runID string, doc document.Document, result *Result) error {
	// cities are applied in a stable order so that last-write-wins is
	// deterministic for a movie listed in several cities of one document
	cities := make([]string, 0, len(doc.Cities))
	for name := range doc.Cities {
		cities = append(cities, name)
	}
	sort.Strings(cities)

	for _, cityName := range cities {
		city := identity.City(cityName)
		if city == "" {
			e.tel.ReportWarning(report_merge_document, document.ErrInvalidEntry, "empty city", doc.Source)
			result.Skipped++
			continue
		}
		for _, movie := range doc.Cities[cityName].Movies {
			err := ctx.Err()
			if err != nil {
				return err
			}
			err = e.mergeMovie(ctx, runID, doc.Source, city, movie, result)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil || strings.TrimSpace(*s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (e Engine) mergeMovie(ctx context.Context, runID, source, city string, movie document.Movie, result *Result) error {
	title := identity.Title(movie.Title)
	if title == "" {
		e.tel.ReportWarning(report_merge_movie, document.ErrInvalidEntry, "title normalizes to nothing", movie.Title)
		result.Skipped++
		return nil
	}

	txqry, discard, commit, err := e.makeTx(ctx)
	if err != nil {
		return fmt.Errorf("merge: begin: %w", err)
	}
	defer discard()

	movieId, err := txqry.UpsertMovie(ctx, db.UpsertMovieParams{
		Title:       title,
		Image:       nullable(movie.Image),
		Duration:    nullable(movie.Details.Duration),
		Genres:      strings.Join(movie.Details.Genres, ","),
		Certificate: nullable(movie.Details.Certificate),
	})
	if err != nil {
		return fmt.Errorf("merge: upsert movie %s: %w", title, err)
	}
	err = txqry.AddMovieSource(ctx, db.AddMovieSourceParams{MovieID: movieId, Source: source})
	if err != nil {
		return fmt.Errorf("merge: movie source %s: %w", title, err)
	}
	err = txqry.NoteSeen(ctx, db.NoteSeenParams{RunID: runID, Title: title, Source: source})
	if err != nil {
		return fmt.Errorf("merge: note seen %s: %w", title, err)
	}

	var theatres int
	var added int64
	for _, theatre := range movie.Theatres {
		name := identity.Theatre(theatre.Name)
		if name == "" {
			e.tel.ReportWarning(report_merge_movie, document.ErrInvalidEntry, "theatre without name", title)
			result.Skipped++
			continue
		}
		theatreId, err := txqry.UpsertTheatre(ctx, db.UpsertTheatreParams{Name: name, City: city})
		if err != nil {
			return fmt.Errorf("merge: upsert theatre %s: %w", name, err)
		}
		theatres++

		for date, shows := range theatre.Dates {
			if !document.ValidDate(date) {
				e.tel.ReportWarning(report_merge_movie, document.ErrInvalidEntry, "invalid date", title, date)
				result.Skipped++
				continue
			}
			for _, show := range shows {
				showTime := strings.TrimSpace(show.Time)
				if showTime == "" {
					result.Skipped++
					continue
				}
				format := strings.TrimSpace(show.Format)
				if format == "" {
					format = document.DefaultFormat
				}
				n, err := txqry.InsertShowtime(ctx, db.InsertShowtimeParams{
					MovieID:   movieId,
					TheatreID: theatreId,
					ShowTime:  showTime,
					Format:    format,
					Date:      date,
				})
				if err != nil {
					return fmt.Errorf("merge: insert showtime %s: %w", title, err)
				}
				added += n
			}
		}
	}

	err = commit()
	if err != nil {
		return fmt.Errorf("merge: commit %s: %w", title, err)
	}
	result.Movies++
	result.Theatres += theatres
	result.ShowtimesAdded += added
	return nil
}
