package scrapers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/document"

	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	cities  []string
	failing map[string]bool
	active  atomic.Int32
	peak    atomic.Int32
}

func (a *fakeAdapter) Source() string {
	return "fake"
}

func (a *fakeAdapter) Cities() []string {
	return a.cities
}

func (a *fakeAdapter) ScrapeCity(ctx context.Context, city string, dates []string) ([]document.Movie, error) {
	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		peak := a.peak.Load()
		if n <= peak || a.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if a.failing[city] {
		return nil, fmt.Errorf("listing unavailable")
	}
	theatre := document.Theatre{Name: "PVR", Dates: map[string][]document.Showtime{}}
	for _, date := range dates {
		theatre.Dates[date] = []document.Showtime{{Time: "6:00 PM", Format: "2D"}}
	}
	return []document.Movie{{
		Title:    "Test Film",
		Details:  document.Details{Genres: []string{}},
		Theatres: []document.Theatre{theatre},
	}}, nil
}

func TestRunSkipsFailedCities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.json")
	writer, err := document.NewWriter(path, "fake", "20240601")
	require.NoError(t, err)

	adapter := &fakeAdapter{
		cities:  []string{"chennai", "madurai", "salem", "trichy"},
		failing: map[string]bool{"salem": true},
	}
	tel := telemetry.NewRecorder()

	result, err := Run(context.Background(), adapter, RunOptions{
		Workers: 2,
		Dates:   []string{"20240601", "20240602"},
		Writer:  writer,
	}, tel)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Equal(t, 3, result.CitiesOK)
	require.Equal(t, 1, result.CitiesFailed)
	require.Equal(t, document.Stats{Cities: 3, Movies: 3, Theatres: 3, Showtimes: 6}, result.Stats)
	require.LessOrEqual(t, adapter.peak.Load(), int32(2))
	require.Len(t, tel.Reports("warning", report_scrapers_city), 1)

	doc, _, err := document.Read(path)
	require.NoError(t, err)
	require.NotContains(t, doc.Cities, "salem")
	require.Contains(t, doc.Cities, "trichy")
}

func TestRunStopsOnCancel(t *testing.T) {
	writer, err := document.NewWriter(filepath.Join(t.TempDir(), "fake.json"), "fake", "20240601")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, &fakeAdapter{cities: []string{"chennai"}}, RunOptions{Writer: writer}, telemetry.NewRecorder())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCertificate(t *testing.T) {
	cases := []struct {
		text     string
		expected string
	}{
		{text: "2 hr 30 min • UA13+ • Tamil", expected: "UA13+"},
		{text: "UA | Action", expected: "UA"},
		{text: "(A) Thriller", expected: "A"},
		{text: "Tamil, Telugu", expected: ""},
	}
	for _, c := range cases {
		got := Certificate(c.text)
		if c.expected == "" {
			require.Nil(t, got, c.text)
			continue
		}
		require.NotNil(t, got, c.text)
		require.Equal(t, c.expected, *got)
	}

	require.True(t, IsCertificate(" U "))
	require.False(t, IsCertificate("UA Drama"))
}
