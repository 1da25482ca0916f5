package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenLocal(t *testing.T) {
	_, err := Struct{}.OpenDB()
	require.Error(t, err)

	db, err := Struct{File: filepath.Join(t.TempDir(), "data", "showtimes.db")}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
}

func TestRemote(t *testing.T) {
	require.True(t, Struct{Url: "libsql://example.turso.io"}.Remote())
	require.False(t, Struct{File: "x.db"}.Remote())
}
