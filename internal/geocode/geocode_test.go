package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"showtimes-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const predictions = `{"predictions": [
	{"description": "Coimbatore, Tamil Nadu, India", "structured_formatting": {"main_text": "Coimbatore"}},
	{"description": "Coimbatore Junction, Tamil Nadu, India", "structured_formatting": {"main_text": "Coimbatore Junction"}},
	{"description": "Coimbatore, Tamil Nadu, India", "structured_formatting": {"main_text": "COIMBATORE"}},
	{"description": "Coimbatore Road, Kerala, India", "structured_formatting": {"main_text": "Coimbatore"}},
	{"description": "Cuddalore, Tamil Nadu, India", "structured_formatting": {"main_text": "Cuddalore"}},
	{"description": "Somewhere, Tamil Nadu, India", "structured_formatting": {"main_text": ""}}
]}`

func TestAutocomplete(t *testing.T) {
	var gotKey, gotInput, gotComponents string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/places/v1/autocomplete", r.URL.Path)
		gotKey = r.Header.Get("X-API-Key")
		gotInput = r.URL.Query().Get("input")
		gotComponents = r.URL.Query().Get("components")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(predictions))
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseUrl = srv.URL
	config.ApiKey = "test-key"
	client := NewClient(config, telemetry.NewRecorder())

	places := client.Autocomplete(context.Background(), " co ")
	require.Equal(t, []string{"coimbatore", "cuddalore"}, places)
	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "co", gotInput)
	require.Equal(t, "country:IN", gotComponents)
}

func TestAutocompleteShortQuery(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseUrl = srv.URL
	client := NewClient(config, telemetry.NewRecorder())

	require.Empty(t, client.Autocomplete(context.Background(), "c"))
	require.False(t, called)
}

func TestAutocompleteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseUrl = srv.URL
	tel := telemetry.NewRecorder()
	client := NewClient(config, tel)

	require.Equal(t, []string{}, client.Autocomplete(context.Background(), "chennai"))
	require.Len(t, tel.Reports("warning", report_geocode_autocomplete), 1)
}
