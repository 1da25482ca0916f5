package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"showtimes-backend/internal/reconcile"
	"showtimes-backend/internal/scrapers/ticketnew"

	"github.com/stretchr/testify/require"
)

func writeFile(t testing.TB, path, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// a week ahead
		days: 7,
		reconcile_scope: "per_source",
		sources: {
			ticketnew: { enabled: false },
		},
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ city_workers: 4 }`)

	cfg, err := Load(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)

	require.Equal(t, 7, cfg.Days)
	require.Equal(t, 4, cfg.CityWorkers)
	require.Equal(t, 400*time.Millisecond, cfg.DelayMin())
	require.Equal(t, 800*time.Millisecond, cfg.DelayMax())
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())
	require.Equal(t, reconcile.ScopePerSource, cfg.Scope())
	require.Equal(t, "data/showtimes.db", cfg.Database.File)

	require.True(t, cfg.Sources.BookMyShow.IsEnabled())
	require.False(t, cfg.Sources.TicketNew.IsEnabled())
	require.Equal(t, ticketnew.DefaultBaseUrl, cfg.Sources.TicketNew.BaseUrl)
	require.Equal(t, ticketnew.DefaultCities, cfg.Sources.TicketNew.Cities)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Days)
	require.Equal(t, "0 5 * * *", cfg.Schedule)
	require.Equal(t, reconcile.ScopeGlobal, cfg.Scope())
	require.False(t, cfg.Smtp.Enabled())
}

func TestLoadDelayMinimumOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, path, `{ delay_min_ms: 1000 }`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.DelayMin())
	require.Equal(t, time.Second, cfg.DelayMax())

	writeFile(t, path, `{ delay_min_ms: 0, delay_max_ms: 0 }`)
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 400*time.Millisecond, cfg.DelayMin())
	require.Equal(t, 800*time.Millisecond, cfg.DelayMax())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	writeFile(t, path, `{ days: -1 }`)
	_, err := Load(path)
	require.Error(t, err)

	writeFile(t, path, `{ delay_min_ms: 900, delay_max_ms: 100 }`)
	_, err = Load(path)
	require.Error(t, err)

	writeFile(t, path, `{ reconcile_scope: "sometimes" }`)
	_, err = Load(path)
	require.Error(t, err)

	writeFile(t, path, `{ days: `)
	_, err = Load(path)
	require.Error(t, err)
}
