// Package testutil sets up the collaborators shared by tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"showtimes-backend/internal/db"
	"showtimes-backend/pkg/migrations"

	_ "modernc.org/sqlite"
)

// OpenDB opens an in-memory database with the dataset schema applied, it is
// closed when the test ends.
func OpenDB(t testing.TB) *sql.DB {
	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a distinct database
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	err = migrations.Migrate(context.Background(), database, db.Schema)
	if err != nil {
		t.Fatal(err)
	}
	return database
}
