package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPIPrefixesIds(t *testing.T) {
	rec := NewRecorder()
	tel := NewScopedAPI("bookmyshow", rec)

	tel.ReportWarning("fetch-showtimes", "timeout")
	tel.ReportBroken("list-movies")
	tel.ReportCount("movies", 12)

	warnings := rec.Reports("warning", "fetch-showtimes")
	require.Len(t, warnings, 1)
	require.Equal(t, "bookmyshow: fetch-showtimes", warnings[0].Id)
	require.Equal(t, []any{"timeout"}, warnings[0].Params)
	require.Len(t, rec.Reports("broken", "bookmyshow"), 1)

	n, ok := rec.Count("bookmyshow: movies")
	require.True(t, ok)
	require.Equal(t, int64(12), n)
}

func TestSlogAPIWritesJson(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var out bytes.Buffer
	SetupSlog(&out, false, true)

	tel := SlogAPI{}
	tel.ReportWarning("posters.write", "disk full")
	tel.ReportDebug("hidden unless verbose")

	require.Contains(t, out.String(), `"id":"posters.write"`)
	require.Contains(t, out.String(), `"params.0":"disk full"`)
	require.NotContains(t, out.String(), "hidden unless verbose")
}
