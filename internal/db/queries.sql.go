package db

import (
	"context"
	"database/sql"
)

const upsertMovie = `-- name: UpsertMovie :one
insert into movies (title, image, duration, genres, certificate)
values (?, ?, ?, ?, ?)
on conflict (title) do update set
    image = excluded.image,
    duration = excluded.duration,
    genres = excluded.genres,
    certificate = excluded.certificate
returning id
`

type UpsertMovieParams struct {
	Title       string
	Image       sql.NullString
	Duration    sql.NullString
	Genres      string
	Certificate sql.NullString
}

func (q *Queries) UpsertMovie(ctx context.Context, arg UpsertMovieParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertMovie,
		arg.Title,
		arg.Image,
		arg.Duration,
		arg.Genres,
		arg.Certificate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getMovieByTitle = `-- name: GetMovieByTitle :one
select id, title, image, duration, genres, certificate from movies
where title = ?
`

func (q *Queries) GetMovieByTitle(ctx context.Context, title string) (Movie, error) {
	row := q.db.QueryRowContext(ctx, getMovieByTitle, title)
	var i Movie
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Image,
		&i.Duration,
		&i.Genres,
		&i.Certificate,
	)
	return i, err
}

const listMovies = `-- name: ListMovies :many
select id, title, image, duration, genres, certificate from movies
order by title
`

func (q *Queries) ListMovies(ctx context.Context) ([]Movie, error) {
	rows, err := q.db.QueryContext(ctx, listMovies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Movie
	for rows.Next() {
		var i Movie
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Image,
			&i.Duration,
			&i.Genres,
			&i.Certificate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMovie = `-- name: DeleteMovie :exec
delete from movies where id = ?
`

func (q *Queries) DeleteMovie(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteMovie, id)
	return err
}

const upsertTheatre = `-- name: UpsertTheatre :one
insert into theatres (name, city)
values (?, ?)
on conflict (name, city) do update set name = theatres.name
returning id
`

type UpsertTheatreParams struct {
	Name string
	City string
}

func (q *Queries) UpsertTheatre(ctx context.Context, arg UpsertTheatreParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertTheatre, arg.Name, arg.City)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteOrphanTheatres = `-- name: DeleteOrphanTheatres :execrows
delete from theatres
where id not in (select distinct theatre_id from showtimes)
`

func (q *Queries) DeleteOrphanTheatres(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOrphanTheatres)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertShowtime = `-- name: InsertShowtime :execrows
insert into showtimes (movie_id, theatre_id, show_time, format, date)
values (?, ?, ?, ?, ?)
on conflict do nothing
`

type InsertShowtimeParams struct {
	MovieID   int64
	TheatreID int64
	ShowTime  string
	Format    string
	Date      string
}

func (q *Queries) InsertShowtime(ctx context.Context, arg InsertShowtimeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertShowtime,
		arg.MovieID,
		arg.TheatreID,
		arg.ShowTime,
		arg.Format,
		arg.Date,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteMovieShowtimes = `-- name: DeleteMovieShowtimes :execrows
delete from showtimes where movie_id = ?
`

func (q *Queries) DeleteMovieShowtimes(ctx context.Context, movieID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMovieShowtimes, movieID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const addMovieSource = `-- name: AddMovieSource :exec
insert into movie_sources (movie_id, source)
values (?, ?)
on conflict do nothing
`

type AddMovieSourceParams struct {
	MovieID int64
	Source  string
}

func (q *Queries) AddMovieSource(ctx context.Context, arg AddMovieSourceParams) error {
	_, err := q.db.ExecContext(ctx, addMovieSource, arg.MovieID, arg.Source)
	return err
}

const listMovieSources = `-- name: ListMovieSources :many
select source from movie_sources
where movie_id = ?
order by source
`

func (q *Queries) ListMovieSources(ctx context.Context, movieID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listMovieSources, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		items = append(items, source)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMovieSource = `-- name: DeleteMovieSource :exec
delete from movie_sources where movie_id = ? and source = ?
`

type DeleteMovieSourceParams struct {
	MovieID int64
	Source  string
}

func (q *Queries) DeleteMovieSource(ctx context.Context, arg DeleteMovieSourceParams) error {
	_, err := q.db.ExecContext(ctx, deleteMovieSource, arg.MovieID, arg.Source)
	return err
}

const deleteMovieSources = `-- name: DeleteMovieSources :exec
delete from movie_sources where movie_id = ?
`

func (q *Queries) DeleteMovieSources(ctx context.Context, movieID int64) error {
	_, err := q.db.ExecContext(ctx, deleteMovieSources, movieID)
	return err
}

const listPosterRefs = `-- name: ListPosterRefs :many
select image from movies
where image is not null and image != ''
`

func (q *Queries) ListPosterRefs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPosterRefs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var image string
		if err := rows.Scan(&image); err != nil {
			return nil, err
		}
		items = append(items, image)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRun = `-- name: CreateRun :exec
insert into runs (id, started_at) values (?, ?)
`

type CreateRunParams struct {
	ID        string
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.ID, arg.StartedAt)
	return err
}

const finishRun = `-- name: FinishRun :exec
update runs set finished_at = ?, merged_documents = ?
where id = ?
`

type FinishRunParams struct {
	FinishedAt      sql.NullInt64
	MergedDocuments int64
	ID              string
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun, arg.FinishedAt, arg.MergedDocuments, arg.ID)
	return err
}

const getLatestRun = `-- name: GetLatestRun :one
select id, started_at, finished_at, merged_documents from runs
where finished_at is not null
order by finished_at desc, rowid desc
limit 1
`

func (q *Queries) GetLatestRun(ctx context.Context) (Run, error) {
	row := q.db.QueryRowContext(ctx, getLatestRun)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.MergedDocuments,
	)
	return i, err
}

const getRun = `-- name: GetRun :one
select id, started_at, finished_at, merged_documents from runs
where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.MergedDocuments,
	)
	return i, err
}

const setRunSource = `-- name: SetRunSource :exec
insert into run_sources (run_id, source, ok)
values (?, ?, ?)
on conflict (run_id, source) do update set ok = excluded.ok
`

type SetRunSourceParams struct {
	RunID  string
	Source string
	Ok     bool
}

func (q *Queries) SetRunSource(ctx context.Context, arg SetRunSourceParams) error {
	_, err := q.db.ExecContext(ctx, setRunSource, arg.RunID, arg.Source, arg.Ok)
	return err
}

const listRunSources = `-- name: ListRunSources :many
select run_id, source, ok from run_sources
where run_id = ?
order by source
`

func (q *Queries) ListRunSources(ctx context.Context, runID string) ([]RunSource, error) {
	rows, err := q.db.QueryContext(ctx, listRunSources, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RunSource
	for rows.Next() {
		var i RunSource
		if err := rows.Scan(&i.RunID, &i.Source, &i.Ok); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const noteSeen = `-- name: NoteSeen :exec
insert into run_seen (run_id, title, source)
values (?, ?, ?)
on conflict do nothing
`

type NoteSeenParams struct {
	RunID  string
	Title  string
	Source string
}

func (q *Queries) NoteSeen(ctx context.Context, arg NoteSeenParams) error {
	_, err := q.db.ExecContext(ctx, noteSeen, arg.RunID, arg.Title, arg.Source)
	return err
}

const listSeen = `-- name: ListSeen :many
select run_id, title, source from run_seen
where run_id = ?
order by title, source
`

func (q *Queries) ListSeen(ctx context.Context, runID string) ([]RunSeen, error) {
	rows, err := q.db.QueryContext(ctx, listSeen, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RunSeen
	for rows.Next() {
		var i RunSeen
		if err := rows.Scan(&i.RunID, &i.Title, &i.Source); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRows = `-- name: CountRows :one
select
    (select count(*) from movies),
    (select count(*) from theatres),
    (select count(*) from showtimes)
`

type CountRowsRow struct {
	Movies    int64
	Theatres  int64
	Showtimes int64
}

func (q *Queries) CountRows(ctx context.Context) (CountRowsRow, error) {
	row := q.db.QueryRowContext(ctx, countRows)
	var i CountRowsRow
	err := row.Scan(&i.Movies, &i.Theatres, &i.Showtimes)
	return i, err
}

const cityStats = `-- name: CityStats :many
select
    t.city,
    count(distinct t.id),
    count(distinct s.movie_id),
    count(s.id)
from theatres t
left join showtimes s on s.theatre_id = t.id
group by t.city
order by t.city
`

type CityStatsRow struct {
	City      string
	Theatres  int64
	Movies    int64
	Showtimes int64
}

func (q *Queries) CityStats(ctx context.Context) ([]CityStatsRow, error) {
	rows, err := q.db.QueryContext(ctx, cityStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CityStatsRow
	for rows.Next() {
		var i CityStatsRow
		if err := rows.Scan(&i.City, &i.Theatres, &i.Movies, &i.Showtimes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
