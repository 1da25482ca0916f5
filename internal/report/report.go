// Package report renders read-only views of the dataset.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"showtimes-backend/internal/db"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

// DefaultThreshold is the Jaro-Winkler similarity above which two titles are
// reported as a likely duplicate.
const DefaultThreshold = 0.92

func NewTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

type Stats struct {
	Cities []db.CityStatsRow
	Total  db.CountRowsRow
}

func LoadStats(ctx context.Context, qry *db.Queries) (Stats, error) {
	cities, err := qry.CityStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("city stats: %w", err)
	}
	total, err := qry.CountRows(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return Stats{Cities: cities, Total: total}, nil
}

func (s Stats) Render(out io.Writer) {
	t := NewTable(out)
	t.AppendHeader(table.Row{"City", "Theatres", "Movies", "Showtimes"})
	for _, c := range s.Cities {
		t.AppendRow(table.Row{c.City, c.Theatres, c.Movies, c.Showtimes})
	}
	t.AppendFooter(table.Row{"Total", s.Total.Theatres, s.Total.Movies, s.Total.Showtimes})
	t.Render()
}

// Duplicate is a pair of distinct titles that probably name the same film.
type Duplicate struct {
	Left       string
	Right      string
	Similarity float64
}

// Duplicates compares every pair of titles and returns the pairs at least as
// similar as `threshold`, most similar first. Nothing is merged, the pairs are
// only listed for a human to look at.
func Duplicates(titles []string, threshold float64) []Duplicate {
	sorted := make([]string, len(titles))
	copy(sorted, titles)
	sort.Strings(sorted)

	var result []Duplicate
	for i, left := range sorted {
		for _, right := range sorted[i+1:] {
			if left == right {
				continue
			}
			similarity := matchr.JaroWinkler(strings.ToLower(left), strings.ToLower(right), false)
			if similarity < threshold {
				continue
			}
			result = append(result, Duplicate{
				Left:       left,
				Right:      right,
				Similarity: similarity,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Similarity > result[j].Similarity
	})
	return result
}

func RenderDuplicates(out io.Writer, duplicates []Duplicate) {
	t := NewTable(out)
	t.AppendHeader(table.Row{"Title", "Similar title", "Similarity"})
	for _, d := range duplicates {
		t.AppendRow(table.Row{d.Left, d.Right, fmt.Sprintf("%.3f", d.Similarity)})
	}
	t.Render()
}
