// Package reconcile is the destructive phase of a run: it retires the movies
// a merge run did not observe, the theatres left without showtimes and the
// poster files nothing references anymore.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/db"
	"showtimes-backend/internal/posters"
)

const (
	report_reconcile_run     = "reconciler.run"
	report_reconcile_posters = "reconciler.posters"
)

// Scope decides which observations a movie needs to survive.
type Scope string

const (
	// ScopeGlobal retires every movie that no source observed in the run.
	ScopeGlobal Scope = "global"
	// ScopePerSource only retires a movie when every source that listed it
	// before completed the run without listing it again.
	ScopePerSource Scope = "per_source"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopePerSource:
		return ScopePerSource, nil
	}
	return "", fmt.Errorf("unknown reconcile scope %q", s)
}

var ErrRunNotFinished = errors.New("run has not finished merging")

type Result struct {
	RunID string
	// Skipped is set when the run merged no documents, there is nothing to
	// compare the dataset against.
	Skipped          bool
	MoviesRetired    int
	ShowtimesRemoved int64
	TheatresRetired  int64
	PostersRemoved   int
}

type Reconciler struct {
	qry       *db.Queries
	makeTx    db.MakeTx
	posterDir string
	tel       telemetry.API
}

func New(database *sql.DB, posterDir string, tel telemetry.API) Reconciler {
	assert.NotNil(database)
	assert.NotNil(tel)
	return Reconciler{
		qry:       db.New(database),
		makeTx:    db.NewMakeTx(database),
		posterDir: posterDir,
		tel:       telemetry.NewScopedAPI("reconcile", tel),
	}
}

// Latest returns the id of the last run that finished merging.
func (r Reconciler) Latest(ctx context.Context) (string, error) {
	run, err := r.qry.GetLatestRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reconcile: no merge run recorded")
	}
	if err != nil {
		return "", fmt.Errorf("reconcile: latest run: %w", err)
	}
	return run.ID, nil
}

// seenSet maps a title to the sources that observed it.
type seenSet map[string]map[string]struct{}

func (s seenSet) by(title, source string) bool {
	_, ok := s[title][source]
	return ok
}

func (r Reconciler) Reconcile(ctx context.Context, runID string, scope Scope) (Result, error) {
	result := Result{RunID: runID}

	run, err := r.qry.GetRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return result, fmt.Errorf("reconcile: unknown run %s", runID)
	}
	if err != nil {
		return result, fmt.Errorf("reconcile: get run: %w", err)
	}
	if !run.FinishedAt.Valid {
		return result, fmt.Errorf("reconcile %s: %w", runID, ErrRunNotFinished)
	}
	if run.MergedDocuments == 0 {
		r.tel.ReportWarning(report_reconcile_run, "run merged no documents, skipping", runID)
		result.Skipped = true
		return result, nil
	}

	seenRows, err := r.qry.ListSeen(ctx, runID)
	if err != nil {
		return result, fmt.Errorf("reconcile: list seen: %w", err)
	}
	seen := seenSet{}
	for _, row := range seenRows {
		if seen[row.Title] == nil {
			seen[row.Title] = map[string]struct{}{}
		}
		seen[row.Title][row.Source] = struct{}{}
	}

	sourceRows, err := r.qry.ListRunSources(ctx, runID)
	if err != nil {
		return result, fmt.Errorf("reconcile: list run sources: %w", err)
	}
	completed := map[string]bool{}
	for _, row := range sourceRows {
		completed[row.Source] = row.Ok
	}

	movies, err := r.qry.ListMovies(ctx)
	if err != nil {
		return result, fmt.Errorf("reconcile: list movies: %w", err)
	}

	for _, movie := range movies {
		err := ctx.Err()
		if err != nil {
			return result, err
		}

		if len(seen[movie.Title]) > 0 && scope == ScopeGlobal {
			continue
		}

		var retire bool
		var dropped []string
		switch scope {
		case ScopePerSource:
			retire, dropped, err = r.judgePerSource(ctx, movie, seen, completed)
			if err != nil {
				return result, err
			}
		default:
			retire = true
		}

		if retire {
			removed, err := r.retire(ctx, movie)
			if err != nil {
				return result, err
			}
			r.tel.ReportDebug("retired movie", movie.Title, removed)
			result.MoviesRetired++
			result.ShowtimesRemoved += removed
			continue
		}
		for _, source := range dropped {
			err := r.qry.DeleteMovieSource(ctx, db.DeleteMovieSourceParams{MovieID: movie.ID, Source: source})
			if err != nil {
				return result, fmt.Errorf("reconcile: drop source of %s: %w", movie.Title, err)
			}
		}
	}

	result.TheatresRetired, err = r.qry.DeleteOrphanTheatres(ctx)
	if err != nil {
		return result, fmt.Errorf("reconcile: delete orphan theatres: %w", err)
	}

	result.PostersRemoved, err = r.sweepPosters(ctx)
	if err != nil {
		return result, err
	}

	r.tel.ReportCount("reconciler.movies-retired", int64(result.MoviesRetired))
	r.tel.ReportCount("reconciler.theatres-retired", result.TheatresRetired)
	r.tel.ReportCount("reconciler.posters-removed", int64(result.PostersRemoved))
	return result, nil
}

// judgePerSource decides whether a movie is retired under ScopePerSource. A
// source only vouches against a movie when it completed the run and did not
// observe it, the sources that did so are returned as `dropped`.
func (r Reconciler) judgePerSource(
	ctx context.Context,
	movie db.Movie,
	seen seenSet,
	completed map[string]bool,
) (retire bool, dropped []string, err error) {
	sources, err := r.qry.ListMovieSources(ctx, movie.ID)
	if err != nil {
		return false, nil, fmt.Errorf("reconcile: list sources of %s: %w", movie.Title, err)
	}
	if len(sources) == 0 {
		// nothing is known about who listed the movie, fall back to the
		// global rule
		return len(seen[movie.Title]) == 0, nil, nil
	}

	remaining := 0
	for _, source := range sources {
		if completed[source] && !seen.by(movie.Title, source) {
			dropped = append(dropped, source)
			continue
		}
		remaining++
	}
	return remaining == 0, dropped, nil
}

func (r Reconciler) retire(ctx context.Context, movie db.Movie) (int64, error) {
	txqry, discard, commit, err := r.makeTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: begin: %w", err)
	}
	defer discard()

	removed, err := txqry.DeleteMovieShowtimes(ctx, movie.ID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: delete showtimes of %s: %w", movie.Title, err)
	}
	err = txqry.DeleteMovieSources(ctx, movie.ID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: delete sources of %s: %w", movie.Title, err)
	}
	err = txqry.DeleteMovie(ctx, movie.ID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: delete %s: %w", movie.Title, err)
	}

	err = commit()
	if err != nil {
		return 0, fmt.Errorf("reconcile: commit %s: %w", movie.Title, err)
	}
	return removed, nil
}

// sweepPosters deletes every poster file no surviving movie references.
// Files still being written by a poster fetcher are left alone.
func (r Reconciler) sweepPosters(ctx context.Context) (int, error) {
	if r.posterDir == "" {
		return 0, nil
	}

	refs, err := r.qry.ListPosterRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: list poster refs: %w", err)
	}
	referenced := map[string]struct{}{}
	for _, ref := range refs {
		referenced[posters.Filename(ref)] = struct{}{}
	}

	entries, err := os.ReadDir(r.posterDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		r.tel.ReportWarning(report_reconcile_posters, err, r.posterDir)
		return 0, nil
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}
		err := os.Remove(filepath.Join(r.posterDir, name))
		if err != nil {
			r.tel.ReportWarning(report_reconcile_posters, err, name)
			continue
		}
		removed++
	}
	return removed, nil
}
