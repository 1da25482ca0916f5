package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "Inception (2010)", expected: "Inception"},
		{input: "INCEPTION:", expected: "Inception"},
		{input: "  the   dark knight ", expected: "The Dark Knight"},
		{input: "Spider-Man: No Way Home", expected: "Spider Man No Way Home"},
		{input: "Kalki 2898 AD (2024)", expected: "Kalki 2898 Ad"},
		{input: "Amaran – Tamil", expected: "Amaran Tamil"},
		{input: "Leo — Bloody Sweet!", expected: "Leo Bloody Sweet"},
		{input: "Coolie (Tamil)", expected: "Coolie Tamil"},
		{input: "", expected: ""},
		{input: "(2024)", expected: ""},
		{input: "!!!", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Title(row.input), row.input)
	}
}

func TestTitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"Inception (2010)",
		"Spider-Man: No Way Home",
		"the dark knight",
		"Test Film",
	}
	for _, input := range inputs {
		once := Title(input)
		require.Equal(t, once, Title(once), input)
	}
}

func TestTitleCollapsesAcrossSources(t *testing.T) {
	require.Equal(t, Title("Inception (2010)"), Title("INCEPTION:"))
	require.Equal(t, Title("Mission: Impossible"), Title("MISSION - IMPOSSIBLE"))
}

func TestTheatreAndCity(t *testing.T) {
	require.Equal(t, "PVR: Grand Galada", Theatre("  PVR:  Grand\tGalada "))
	require.Equal(t, "pvr: grand galada", TheatreKey("PVR:  Grand Galada"))
	require.Equal(t, "chennai", City(" Chennai "))
	require.Equal(t, "new delhi", City("New   Delhi"))
}

func TestPosterFilename(t *testing.T) {
	table := []struct {
		identifier string
		url        string
		expected   string
	}{
		{identifier: "ET00376583", url: "https://assets.example.com/poster.jpg", expected: "et00376583.jpg"},
		{identifier: "Test Film", url: "https://cdn.example.com/img/abc.PNG?w=300", expected: "test_film.png"},
		{identifier: "Leo (1)", url: "https://cdn.example.com/img/abc", expected: "leo.jpg"},
		{identifier: "Amaran", url: "https://cdn.example.com/img/abc.php", expected: "amaran.jpg"},
		{identifier: "  ", url: "https://cdn.example.com/a.jpg", expected: ""},
	}
	for _, row := range table {
		require.Equal(t, row.expected, PosterFilename(row.identifier, row.url), row.identifier)
	}
}
