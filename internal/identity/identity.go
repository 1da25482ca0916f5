// Package identity holds the natural keys of the dataset. Adapters and the
// merge engine both derive movie, theatre and city identity through these
// functions and nowhere else, two spellings of a key that normalize
// differently become two rows.
package identity

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	yearRegex       = regexp.MustCompile(`\(\d{4}\)`)
	separatorRegex  = regexp.MustCompile(`[:\-–—]`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	numberedSuffixRegex = regexp.MustCompile(`\(\d+\)`)
	filenameRegex       = regexp.MustCompile(`[^a-z0-9]+`)
)

// Title returns the canonical movie title. It lowercases, drops parenthesized
// years, turns colons and dashes into spaces, removes everything that is not
// an ascii letter, digit or space, collapses whitespace and title-cases the
// result. Title is idempotent.
//
// ex. "Inception (2010)" and "INCEPTION:" both become "Inception".
func Title(raw string) string {
	t := strings.ToLower(raw)
	t = yearRegex.ReplaceAllString(t, "")
	t = separatorRegex.ReplaceAllString(t, " ")
	t = nonAlnumRegex.ReplaceAllString(t, "")
	t = strings.TrimSpace(whitespaceRegex.ReplaceAllString(t, " "))
	if t == "" {
		return ""
	}
	// casers are stateful, adapters normalize from several goroutines
	return cases.Title(language.Und).String(t)
}

// City returns the partition key for a city.
func City(raw string) string {
	return strings.ToLower(collapse(raw))
}

// Theatre returns the display form of a theatre name, whitespace is collapsed
// but case is kept. Theatres are unique per (TheatreKey(name), City(city)).
func Theatre(raw string) string {
	return collapse(raw)
}

// TheatreKey is the case-folded form of Theatre used for equality.
func TheatreKey(raw string) string {
	return strings.ToLower(collapse(raw))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

var posterExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

// PosterFilename derives the content-addressed poster filename for a movie from
// its stable identifier (a site-native code if there is one, otherwise the
// canonical title) and the extension of the poster url. It returns "" when the
// identifier has nothing usable in it.
func PosterFilename(identifier, posterUrl string) string {
	name := strings.ToLower(identifier)
	name = numberedSuffixRegex.ReplaceAllString(name, "")
	name = filenameRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return ""
	}

	ext := ".jpg"
	if parsed, err := url.Parse(posterUrl); err == nil {
		candidate := strings.ToLower(path.Ext(parsed.Path))
		if posterExtensions[candidate] {
			ext = candidate
		}
	}
	return name + ext
}
