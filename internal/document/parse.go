package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawDocument struct {
	Date   string                     `json:"date"`
	Source string                     `json:"source"`
	Cities map[string]json.RawMessage `json:"cities"`
}

type rawCity struct {
	Movies []json.RawMessage `json:"movies"`
}

type rawMovie struct {
	Title    *string           `json:"title"`
	Image    *string           `json:"image"`
	Details  json.RawMessage   `json:"details"`
	Theatres []json.RawMessage `json:"theatres"`
}

type rawDetails struct {
	Duration    *string  `json:"duration"`
	Genres      []string `json:"genres"`
	Certificate *string  `json:"certificate"`
}

type rawTheatre struct {
	Name  *string                      `json:"name"`
	Dates map[string][]json.RawMessage `json:"dates"`
}

type rawShowtime struct {
	Time   *string `json:"time"`
	Format *string `json:"format"`
}

func invalid(path, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidEntry, path, reason)
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// Parse decodes a unified document. Entries that are malformed at any depth
// are dropped and returned as `skipped` (each wraps ErrInvalidEntry), the rest
// of the document is kept. An error is only returned when the document itself
// cannot be decoded.
func Parse(data []byte) (doc Document, skipped []error, err error) {
	var raw rawDocument
	err = json.Unmarshal(data, &raw)
	if err != nil {
		return Document{}, nil, fmt.Errorf("decode document: %w", err)
	}
	if raw.Cities == nil {
		return Document{}, nil, fmt.Errorf("decode document: missing cities")
	}

	doc = New(raw.Source, raw.Date)
	for cityName, cityRaw := range raw.Cities {
		path := fmt.Sprintf("cities.%s", cityName)
		if strings.TrimSpace(cityName) == "" {
			skipped = append(skipped, invalid(path, "empty city name"))
			continue
		}

		var city rawCity
		err := json.Unmarshal(cityRaw, &city)
		if err != nil {
			skipped = append(skipped, invalid(path, err.Error()))
			continue
		}

		movies := make([]Movie, 0, len(city.Movies))
		for i, movieRaw := range city.Movies {
			movie, movieSkipped, ok := parseMovie(fmt.Sprintf("%s.movies[%d]", path, i), movieRaw)
			skipped = append(skipped, movieSkipped...)
			if ok {
				movies = append(movies, movie)
			}
		}
		doc.Cities[cityName] = City{Movies: movies}
	}

	return doc, skipped, nil
}

func parseMovie(path string, data json.RawMessage) (Movie, []error, bool) {
	var raw rawMovie
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return Movie{}, []error{invalid(path, err.Error())}, false
	}
	if raw.Title == nil || strings.TrimSpace(*raw.Title) == "" {
		return Movie{}, []error{invalid(path, "missing title")}, false
	}

	var skipped []error
	movie := Movie{
		Title:    *raw.Title,
		Image:    raw.Image,
		Details:  Details{Genres: []string{}},
		Theatres: []Theatre{},
	}
	if movie.Image != nil && *movie.Image == "" {
		movie.Image = nil
	}

	if !isNull(raw.Details) {
		var details rawDetails
		err := json.Unmarshal(raw.Details, &details)
		if err != nil {
			// details are optional, the movie itself is still usable
			skipped = append(skipped, invalid(path+".details", err.Error()))
		} else {
			movie.Details.Duration = details.Duration
			movie.Details.Certificate = details.Certificate
			for _, genre := range details.Genres {
				genre = strings.TrimSpace(genre)
				if genre != "" {
					movie.Details.Genres = append(movie.Details.Genres, genre)
				}
			}
		}
	}

	for i, theatreRaw := range raw.Theatres {
		theatre, theatreSkipped, ok := parseTheatre(fmt.Sprintf("%s.theatres[%d]", path, i), theatreRaw)
		skipped = append(skipped, theatreSkipped...)
		if ok {
			movie.Theatres = append(movie.Theatres, theatre)
		}
	}

	return movie, skipped, true
}

func parseTheatre(path string, data json.RawMessage) (Theatre, []error, bool) {
	var raw rawTheatre
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return Theatre{}, []error{invalid(path, err.Error())}, false
	}
	if raw.Name == nil || strings.TrimSpace(*raw.Name) == "" {
		return Theatre{}, []error{invalid(path, "missing name")}, false
	}

	var skipped []error
	theatre := Theatre{
		Name:  *raw.Name,
		Dates: map[string][]Showtime{},
	}
	for date, showsRaw := range raw.Dates {
		datePath := fmt.Sprintf("%s.dates.%s", path, date)
		if !ValidDate(date) {
			skipped = append(skipped, invalid(datePath, "date is not YYYYMMDD"))
			continue
		}

		shows := make([]Showtime, 0, len(showsRaw))
		for i, showRaw := range showsRaw {
			showPath := fmt.Sprintf("%s[%d]", datePath, i)

			var st rawShowtime
			err := json.Unmarshal(showRaw, &st)
			if err != nil {
				skipped = append(skipped, invalid(showPath, err.Error()))
				continue
			}
			if st.Time == nil || strings.TrimSpace(*st.Time) == "" {
				skipped = append(skipped, invalid(showPath, "missing time"))
				continue
			}

			format := DefaultFormat
			if st.Format != nil && strings.TrimSpace(*st.Format) != "" {
				format = strings.TrimSpace(*st.Format)
			}
			shows = append(shows, Showtime{
				Time:   strings.TrimSpace(*st.Time),
				Format: format,
			})
		}
		theatre.Dates[date] = shows
	}

	return theatre, skipped, true
}
