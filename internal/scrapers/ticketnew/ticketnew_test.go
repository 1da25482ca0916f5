package ticketnew

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/posters"
	"showtimes-backend/internal/scrapers/fetch"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const listingPage = `<html><body>
	<div class="item-cards"><a href="/movies/leo/movie-detail/1"><h5> Leo (2023) </h5></a></div>
	<div class="item-cards"><a href="/movies/leo/movie-detail/1"><h5>Leo (2023)</h5></a></div>
	<div class="item-cards"><a href="/movies/soon/movie-detail/2"><h5>Coming Film</h5><span class="coming-soon">Coming Soon</span></a></div>
	<div class="item-cards"><a href="/movies/quiet/movie-detail/3"><h5>Quiet Film</h5></a></div>
	<div class="item-cards"><a href="/movies/broken/movie-detail/4"><h5>Broken Film</h5></a></div>
	<div class="item-cards"><a href="/offers/1"><h5>Not a movie</h5></a></div>
</body></html>`

const detailPage = `<html><body>
	<div class="MovieDetailWidget_textImgCon__x1"><img src="/img/leo.png?v=2"></div>
	<div class="MovieDetailWidget_subHeading__x2">2 hr 49 min | UA13+ | Tamil</div>
	<div class="DatesMobileV2_cinemaDatesDiv__d8LsL"><div>Sat 01</div></div>
</body></html>`

const sessionsPage = `<html><body><ul>
	<li class="MovieSessionsListing_movieSessions__a1">
		<div class="MovieSessionsListing_titleFlex__b2"><a href="/cinema/pvr">PVR  Grand Mall</a></div>
		<div class="greenCol">10:00 AM</div>
		<div class="greenCol">1:00 PM <span>4DX</span></div>
	</li>
	<li class="MovieSessionsListing_movieSessions__a1">
		<div class="MovieSessionsListing_titleFlex__b2"><a href="/cinema/pvr">PVR Grand Mall</a></div>
		<div class="greenCol">10:00 AM</div>
	</li>
	<li class="MovieSessionsListing_movieSessions__a1">
		<div class="greenCol">11:00 AM</div>
	</li>
</ul></body></html>`

func newFixtureServer(t testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/movies/chennai", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	})
	mux.HandleFunc("/movies/leo/movie-detail/1", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("date") {
		case "":
			w.Write([]byte(detailPage))
		case "20240601":
			w.Write([]byte(sessionsPage))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/movies/quiet/movie-detail/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailPage))
	})
	mux.HandleFunc("/movies/broken/movie-detail/4", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/img/leo.png", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("leo-poster"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeCity(t *testing.T) {
	srv := newFixtureServer(t)
	tel := telemetry.NewRecorder()

	client, err := fetch.NewClient(fetch.Options{
		BaseUrl:           srv.URL,
		Timeout:           time.Second * 5,
		MinBodyLength:     10,
		RequestsPerSecond: 1000,
		DisableBypass:     true,
	}, tel)
	require.NoError(t, err)

	posterDir := t.TempDir()
	adapter := New(client, posters.NewFetcher(posterDir, client, tel), []string{"chennai"}, tel)

	movies, err := adapter.ScrapeCity(context.Background(), "chennai", []string{"20240601", "20240602"})
	require.NoError(t, err)

	expected := []document.Movie{{
		Title: "Leo",
		Image: document.Ptr("posters/leo.png"),
		Details: document.Details{
			Duration:    document.Ptr("2 hr 49 min"),
			Genres:      []string{},
			Certificate: document.Ptr("UA13+"),
		},
		Theatres: []document.Theatre{{
			Name: "PVR Grand Mall",
			Dates: map[string][]document.Showtime{
				"20240601": {
					{Time: "10:00 AM", Format: "2D"},
					{Time: "1:00 PM", Format: "4DX"},
				},
			},
		}},
	}}
	diff := cmp.Diff(expected, movies)
	if diff != "" {
		t.Fatal(diff)
	}

	poster, err := os.ReadFile(filepath.Join(posterDir, "leo.png"))
	require.NoError(t, err)
	require.Equal(t, "leo-poster", string(poster))

	require.Len(t, tel.Reports("warning", report_ticketnew_movie_details), 1)
}

func TestWithDate(t *testing.T) {
	require.Equal(
		t,
		"https://ticketnew.com/movies/leo/movie-detail/1?date=20240601&frmtid=x",
		withDate("https://ticketnew.com/movies/leo/movie-detail/1?frmtid=x", "20240601"),
	)
	require.Equal(t, "https://ticketnew.com/a.jpg", withoutQuery("https://ticketnew.com/a.jpg?w=1#f"))
}
