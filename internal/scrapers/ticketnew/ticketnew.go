// Package ticketnew scrapes city listings and per-date sessions from TicketNew.
package ticketnew

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"showtimes-backend/internal/aggregate"
	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/document"
	"showtimes-backend/internal/identity"
	"showtimes-backend/internal/posters"
	"showtimes-backend/internal/scrapers"
	"showtimes-backend/internal/scrapers/fetch"
	"showtimes-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const Source = "ticketnew"

const DefaultBaseUrl = "https://ticketnew.com"

var DefaultCities = []string{
	"chennai", "coimbatore", "madurai", "salem", "tirupur", "trichy", "vellore",
	"tirunelveli", "erode", "rajapalayam", "kanchipuram", "villupuram", "karur",
	"nagercoil", "thanjavur", "hosur", "dindigul", "pudukkottai", "pollachi",
	"panruti", "cuddalore", "dharmapuri", "kallakurichi", "kovilpatti",
	"krishnagiri", "kumbakonam", "namakkal", "ramanathapuram", "ranipet",
	"sathyamangalam", "sivakasi", "tindivanam", "tiruchengode", "tuticorin",
	"udumalpet", "ambur", "arakkonam", "devakottai", "gobichettipalayam",
	"mettupalayam", "palladam", "sankarankovil", "thiruvannamalai",
	"pallipalayam", "sankagiri",
}

const (
	report_ticketnew_list_movies   = "adapter.list-movies"
	report_ticketnew_movie_details = "adapter.movie-details"
	report_ticketnew_sessions      = "adapter.sessions"
)

const (
	selectMovieCard   = "div.item-cards a[href*='movie-detail']"
	selectComingSoon  = "span.coming-soon"
	selectPoster      = "div[class*='MovieDetailWidget_textImgCon'] img"
	selectMeta        = "div[class*='MovieDetailWidget_subHeading']"
	selectDates       = "div[class*='DatesMobileV2_cinemaDatesDiv']"
	selectSession     = "li[class*='MovieSessionsListing_movieSessions']"
	selectTheatreName = "div[class*='MovieSessionsListing_titleFlex'] a"
	selectShowtime    = "div.greenCol"
)

type Adapter struct {
	client  *fetch.Client
	posters posters.Fetcher
	cities  []string
	tel     telemetry.API
}

func New(client *fetch.Client, fetcher posters.Fetcher, cities []string, tel telemetry.API) *Adapter {
	assert.NotNil(client)
	assert.NotNil(tel)
	if len(cities) == 0 {
		cities = DefaultCities
	}
	return &Adapter{
		client:  client,
		posters: fetcher,
		cities:  cities,
		tel:     telemetry.NewScopedAPI(Source, tel),
	}
}

func (a *Adapter) Source() string {
	return Source
}

func (a *Adapter) Cities() []string {
	return a.cities
}

type card struct {
	Name string
	Url  string
}

func (a *Adapter) parseCards(doc *goquery.Document) []card {
	var out []card
	seen := map[string]struct{}{}
	doc.Find(selectMovieCard).Each(func(_ int, s *goquery.Selection) {
		name := htmlutil.Clean(s.Find("h5").First().Text())
		if name == "" {
			return
		}
		if s.Find(selectComingSoon).Length() > 0 {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, card{
			Name: name,
			Url:  a.client.Resolve(s.AttrOr("href", "")),
		})
	})
	return out
}

func (a *Adapter) ScrapeCity(ctx context.Context, city string, dates []string) ([]document.Movie, error) {
	doc, err := a.client.Page(ctx, fmt.Sprintf("/movies/%s", url.PathEscape(city)))
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	cards := a.parseCards(doc)
	if len(cards) == 0 {
		a.tel.ReportWarning(report_ticketnew_list_movies, fmt.Errorf("%w: no released movies", fetch.ErrParse), city)
	}

	movies := []document.Movie{}
	for _, c := range cards {
		err := a.client.Pause(ctx)
		if err != nil {
			return nil, err
		}

		movie, ok := a.scrapeMovie(ctx, c, dates)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ok {
			movies = append(movies, movie)
		}
	}
	return movies, nil
}

var durationRegex = regexp.MustCompile(`(?i)\d+\s*hr.*?\d*\s*min?`)

func withDate(rawUrl, date string) string {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return rawUrl
	}
	query := parsed.Query()
	query.Set("date", date)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func withoutQuery(rawUrl string) string {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return rawUrl
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// scrapeMovie returns false for movies that could not be fetched or that have
// no sessions in the date window.
func (a *Adapter) scrapeMovie(ctx context.Context, c card, dates []string) (document.Movie, bool) {
	title := identity.Title(c.Name)
	if title == "" {
		a.tel.ReportWarning(report_ticketnew_list_movies, "title normalizes to nothing", c.Name)
		return document.Movie{}, false
	}

	page, err := a.client.Page(ctx, c.Url)
	if err != nil {
		a.tel.ReportWarning(report_ticketnew_movie_details, err, title)
		return document.Movie{}, false
	}
	if page.Find(selectDates).Length() == 0 {
		a.tel.ReportDebug("movie has no date selector", title)
		return document.Movie{}, false
	}

	details := document.Details{Genres: []string{}}
	meta := htmlutil.Clean(page.Find(selectMeta).First().Text())
	if duration := durationRegex.FindString(meta); duration != "" {
		details.Duration = document.Ptr(duration)
	}
	details.Certificate = scrapers.Certificate(meta)

	theatres := aggregate.New()
	for _, date := range dates {
		err := a.client.Pause(ctx)
		if err != nil {
			break
		}
		sessions, err := a.client.Page(ctx, withDate(c.Url, date))
		if err != nil {
			a.tel.ReportWarning(report_ticketnew_sessions, err, title, date)
			continue
		}
		addSessions(sessions, date, theatres)
	}
	if theatres.Len() == 0 {
		a.tel.ReportDebug("movie has no sessions", title)
		return document.Movie{}, false
	}

	movie := document.Movie{
		Title:    title,
		Details:  details,
		Theatres: theatres.List(),
	}
	posterSrc := page.Find(selectPoster).First().AttrOr("src", "")
	if posterSrc != "" {
		movie.Image = a.posters.Fetch(ctx, withoutQuery(a.client.Resolve(posterSrc)), title)
	}
	return movie, true
}

func addSessions(page *goquery.Document, date string, theatres *aggregate.Theatres) {
	page.Find(selectSession).Each(func(_ int, block *goquery.Selection) {
		name := htmlutil.Clean(block.Find(selectTheatreName).First().Text())
		if name == "" {
			return
		}

		var shows []document.Showtime
		block.Find(selectShowtime).Each(func(_ int, st *goquery.Selection) {
			show := document.Showtime{
				Time:   htmlutil.OwnText(st),
				Format: htmlutil.Clean(st.Find("span").First().Text()),
			}
			if show.Time == "" {
				return
			}
			if show.Format == "" {
				show.Format = document.DefaultFormat
			}
			shows = append(shows, show)
		})
		theatres.Add(name, date, shows)
	})
}
