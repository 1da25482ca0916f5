package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Database string   `json:"database"`
	Days     int      `json:"days"`
	Cities   []string `json:"cities"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments and trailing commas are fine
		database: "showtimes.db",
		days: 3,
		cities: ["chennai"],
	}`), 0666)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{days: 5}`), 0666)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Database: "showtimes.db",
		Days:     5,
		Cities:   []string{"chennai"},
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestSplitExt(t *testing.T) {
	name, ext := splitExt("config.json5")
	require.Equal(t, "config", name)
	require.Equal(t, "json5", ext)
}
