// Package document defines the unified document, the source-agnostic hand-off
// between adapters and the merge engine.
//
//	{ "date": "YYYYMMDD", "source": "bookmyshow", "cities": { "<city>": { "movies": [ ... ] } } }
//
// Adapters never write to the dataset, they only produce documents.
package document

import (
	"errors"
	"regexp"
)

// DefaultFormat is the format of a showtime whose listing did not carry one.
const DefaultFormat = "2D"

// ErrInvalidEntry marks a document entry that was skipped while parsing.
var ErrInvalidEntry = errors.New("invalid document entry")

var dateRegex = regexp.MustCompile(`^\d{8}$`)

// ValidDate reports whether s is an 8-digit calendar day.
func ValidDate(s string) bool {
	return dateRegex.MatchString(s)
}

type Showtime struct {
	Time   string `json:"time"`
	Format string `json:"format"`
}

// Key is the identity of a showtime within a (movie, theatre, date).
func (s Showtime) Key() [2]string {
	return [2]string{s.Time, s.Format}
}

type Details struct {
	Duration    *string  `json:"duration"`
	Genres      []string `json:"genres"`
	Certificate *string  `json:"certificate"`
}

type Theatre struct {
	Name  string                `json:"name"`
	Dates map[string][]Showtime `json:"dates"`
}

type Movie struct {
	Title    string    `json:"title"`
	Image    *string   `json:"image"`
	Details  Details   `json:"details"`
	Theatres []Theatre `json:"theatres"`
}

type City struct {
	Movies []Movie `json:"movies"`
}

type Document struct {
	Date string `json:"date"`
	// Source names the adapter that produced the document, it is used to scope
	// reconciliation per source. Documents without one are attributed to the
	// file they were read from.
	Source string          `json:"source,omitempty"`
	Cities map[string]City `json:"cities"`
}

// New creates an empty document for a run of `source` on `date`.
func New(source, date string) Document {
	return Document{
		Date:   date,
		Source: source,
		Cities: map[string]City{},
	}
}

// Stats counts the entries of a document.
type Stats struct {
	Cities    int
	Movies    int
	Theatres  int
	Showtimes int
}

func (d Document) Stats() Stats {
	var s Stats
	for _, city := range d.Cities {
		s.Cities++
		for _, movie := range city.Movies {
			s.Movies++
			for _, theatre := range movie.Theatres {
				s.Theatres++
				for _, shows := range theatre.Dates {
					s.Showtimes += len(shows)
				}
			}
		}
	}
	return s
}

// Ptr returns a pointer to s, or nil if s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
