package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/pkg/restyutil"

	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseUrl:           srv.URL,
		Timeout:           time.Second * 5,
		MinBodyLength:     100,
		RequestsPerSecond: 100,
		DisableBypass:     true,
	}, telemetry.NewRecorder())
	require.NoError(t, err)
	return client
}

func TestPageAcceptance(t *testing.T) {
	page := "<html><body><h1>listing</h1>" + strings.Repeat("<p>movie</p>", 20) + "</body></html>"

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>challenge</html>"))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(page))
	})
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("bmsAgeGatePassed")
		if err != nil || c.Value != "true" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(page))
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	doc, err := client.Page(ctx, "/ok")
	require.NoError(t, err)
	require.Equal(t, "listing", doc.Find("h1").Text())

	_, err = client.Page(ctx, "/short")
	require.True(t, errors.Is(err, ErrTransient), err)

	_, err = client.Page(ctx, "/forbidden")
	require.True(t, errors.Is(err, ErrTransient), err)

	_, err = client.Body(ctx, "/cookie")
	require.True(t, errors.Is(err, ErrTransient), err)
	_, err = client.Body(ctx, "/cookie", &http.Cookie{Name: "bmsAgeGatePassed", Value: "true"})
	require.NoError(t, err)
}

func TestDownloadAcceptsSmallBodies(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))

	body, err := client.Download(context.Background(), client.Resolve("/poster.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, body)

	_, err = client.Download(context.Background(), client.Resolve("/missing.jpg"))
	require.True(t, errors.Is(err, ErrTransient), err)
}

func TestPauseStopsOnCancel(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	client.delayMin = time.Hour
	client.delayMax = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := client.Pause(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestResolve(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	require.Equal(t, client.BaseUrl.String()+"/movies/chennai", client.Resolve("/movies/chennai"))
	require.Equal(t, "https://cdn.example.com/a.jpg", client.Resolve("https://cdn.example.com/a.jpg"))
}

func TestPageWithDumpDir(t *testing.T) {
	page := "<html><body><h1>listing</h1>" + strings.Repeat("<p>movie</p>", 20) + "</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	dir := filepath.Join(t.TempDir(), "bookmyshow")
	dump, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)

	client, err := NewClient(Options{
		BaseUrl:           srv.URL,
		MinBodyLength:     100,
		RequestsPerSecond: 100,
		DisableBypass:     true,
		Dump:              dump,
	}, telemetry.NewRecorder())
	require.NoError(t, err)

	doc, err := client.Page(context.Background(), "/movies/chennai")
	require.NoError(t, err)
	require.Equal(t, "listing", doc.Find("h1").Text())

	exchange, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(exchange), "GET "+srv.URL+"/movies/chennai")
	require.Contains(t, string(exchange), "<h1>listing</h1>")
}
