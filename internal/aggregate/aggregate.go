// Package aggregate merges showtime fragments of one movie within one city.
//
// The same theatre is routinely observed several times in a single run: once
// per date fetch, once per "buy tickets" sub-page and sometimes in several
// containers of the same page. Theatres collapses all of those into exactly one
// entry per theatre with the showtimes of each date unioned.
package aggregate

import (
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/identity"
)

type theatre struct {
	name  string
	dates map[string][]document.Showtime
	seen  map[string]map[[2]string]struct{}
}

// Theatres is the per-movie theatre -> date -> showtimes aggregation. The zero
// value is not usable, use New.
type Theatres struct {
	order []string
	byKey map[string]*theatre
}

func New() *Theatres {
	return &Theatres{byKey: map[string]*theatre{}}
}

func (t *Theatres) get(name string) *theatre {
	key := identity.TheatreKey(name)
	th, ok := t.byKey[key]
	if ok {
		return th
	}
	th = &theatre{
		name:  identity.Theatre(name),
		dates: map[string][]document.Showtime{},
		seen:  map[string]map[[2]string]struct{}{},
	}
	t.byKey[key] = th
	t.order = append(t.order, key)
	return th
}

// Add appends the showtimes of a theatre on a date, entries whose (time, format)
// was already recorded for that theatre and date are dropped. Showtimes without
// a format are recorded as document.DefaultFormat. It returns the number of
// showtimes actually added.
func (t *Theatres) Add(name, date string, shows []document.Showtime) int {
	if identity.TheatreKey(name) == "" {
		return 0
	}

	var added int
	for _, show := range shows {
		if show.Time == "" {
			continue
		}
		if show.Format == "" {
			show.Format = document.DefaultFormat
		}

		th := t.get(name)
		seen, ok := th.seen[date]
		if !ok {
			seen = map[[2]string]struct{}{}
			th.seen[date] = seen
		}
		_, dup := seen[show.Key()]
		if dup {
			continue
		}
		seen[show.Key()] = struct{}{}
		th.dates[date] = append(th.dates[date], show)
		added++
	}
	return added
}

// Merge unions the theatres of a document into the aggregation.
func (t *Theatres) Merge(theatres []document.Theatre) {
	for _, th := range theatres {
		for date, shows := range th.Dates {
			t.Add(th.Name, date, shows)
		}
	}
}

// Len returns the number of distinct theatres.
func (t *Theatres) Len() int {
	return len(t.order)
}

// List returns one entry per theatre in first-seen order. Theatres that never
// received a showtime are omitted.
func (t *Theatres) List() []document.Theatre {
	out := make([]document.Theatre, 0, len(t.order))
	for _, key := range t.order {
		th := t.byKey[key]
		if len(th.dates) == 0 {
			continue
		}
		dates := make(map[string][]document.Showtime, len(th.dates))
		for date, shows := range th.dates {
			dates[date] = append([]document.Showtime(nil), shows...)
		}
		out = append(out, document.Theatre{
			Name:  th.name,
			Dates: dates,
		})
	}
	return out
}

// Collapse returns the theatres with duplicate names folded into one entry.
func Collapse(theatres []document.Theatre) []document.Theatre {
	agg := New()
	agg.Merge(theatres)
	return agg.List()
}
