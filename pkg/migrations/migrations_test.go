package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `
-- a comment
create table if not exists a (
    id integer primary key, -- inline is kept
    name text not null
);

create table if not exists b (id integer primary key);
`

func TestStatements(t *testing.T) {
	stmts := Statements(testSchema)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "create table if not exists a")
	require.Equal(t, "create table if not exists b (id integer primary key)", stmts[1])
}

func TestOpenAndMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	ctx := context.Background()

	db, err := OpenAndMigrateDB(ctx, testSchema, path)
	require.NoError(t, err)
	_, err = db.Exec("insert into a (name) values ('x')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenAndMigrateDB(ctx, testSchema, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("select count(*) from a").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
