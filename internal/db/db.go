package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

type Movie struct {
	ID          int64
	Title       string
	Image       sql.NullString
	Duration    sql.NullString
	Genres      string
	Certificate sql.NullString
}

type Theatre struct {
	ID   int64
	Name string
	City string
}

type Showtime struct {
	ID        int64
	MovieID   int64
	TheatreID int64
	ShowTime  string
	Format    string
	Date      string
}

type Run struct {
	ID              string
	StartedAt       int64
	FinishedAt      sql.NullInt64
	MergedDocuments int64
}

type RunSource struct {
	RunID  string
	Source string
	Ok     bool
}

type RunSeen struct {
	RunID  string
	Title  string
	Source string
}
