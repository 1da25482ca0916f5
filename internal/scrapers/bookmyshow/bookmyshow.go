// Package bookmyshow scrapes city listings and per-date showtimes from
// BookMyShow.
//
// A city's explore page lists its movies as an ld+json ItemList. Each movie
// page carries the poster and a details box, and each date has a "buy tickets"
// page which either lists the theatres directly or links to several sub-pages
// that do.
package bookmyshow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

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

const Source = "bookmyshow"

const DefaultBaseUrl = "https://in.bookmyshow.com"

var DefaultCities = []string{
	"chennai", "coimbatore", "madurai", "salem", "tirupur", "trichy", "vellore",
	"tirunelveli", "erode", "rajapalayam", "chengalpattu", "kanchipuram", "ooty",
	"pondicherry", "villupuram", "karur", "nagercoil", "thanjavur", "hosur",
	"dindigul", "pudukkottai", "pollachi", "panruti",
}

const (
	report_bookmyshow_list_movies    = "adapter.list-movies"
	report_bookmyshow_movie_page     = "adapter.movie-page"
	report_bookmyshow_fetch_showtime = "adapter.fetch-showtimes"
)

// markup of the site, these are generated class names and are the first thing
// to check when a city suddenly yields no theatres
const (
	selectPoster       = "img.sc-echj48-5.hXdwek"
	selectDetails      = "div.sc-2k6tnd-1.dGsSXW"
	selectBuyLinks     = "div.sc-5v6xxo-11.ifgIyO a[href]"
	selectTheatreList  = "div.sc-tk4ce6-2.jroiZB"
	selectTheatre      = "div.sc-e8nk8f-3.kJBeM"
	selectTheatreName  = "span.sc-1qdowf4-0.eXSbEM"
	selectShowtimeList = "div.sc-1vhizuf-0.cmhoRs"
	selectShowtime     = "div.sc-1vhizuf-2.euWjeN"
)

var ageGate = &http.Cookie{Name: "bmsAgeGatePassed", Value: "true"}

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

type listing struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

// Code is the site-native movie code, the last path segment of its url
// (ex. ET00012345).
func (l listing) Code() string {
	parsed, err := url.Parse(l.Url)
	if err != nil {
		return ""
	}
	code := path.Base(strings.TrimRight(parsed.Path, "/"))
	if code == "." || code == "/" {
		return ""
	}
	return code
}

func parseListings(doc *goquery.Document) []listing {
	var out []listing
	seen := map[string]struct{}{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data struct {
			Type     string    `json:"@type"`
			Elements []listing `json:"itemListElement"`
		}
		err := json.Unmarshal([]byte(s.Text()), &data)
		if err != nil || data.Type != "ItemList" {
			return
		}
		for _, l := range data.Elements {
			code := l.Code()
			if l.Name == "" || code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, l)
		}
	})
	return out
}

func (a *Adapter) ScrapeCity(ctx context.Context, city string, dates []string) ([]document.Movie, error) {
	explore := fmt.Sprintf("/explore/movies-%s?cat=MT", url.PathEscape(city))
	doc, err := a.client.Page(ctx, explore)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	listings := parseListings(doc)
	if len(listings) == 0 {
		a.tel.ReportWarning(report_bookmyshow_list_movies, fmt.Errorf("%w: no ItemList", fetch.ErrParse), city)
	}

	movies := []document.Movie{}
	for _, l := range listings {
		err := a.client.Pause(ctx)
		if err != nil {
			return nil, err
		}

		movie, ok := a.scrapeMovie(ctx, city, l, dates)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ok {
			movies = append(movies, movie)
		}
	}
	return movies, nil
}

var durationRegex = regexp.MustCompile(`\d+h\s*\d+m`)

func parseDetails(doc *goquery.Document) document.Details {
	details := document.Details{Genres: []string{}}
	box := doc.Find(selectDetails).First()
	if box.Length() == 0 {
		return details
	}

	for _, part := range strings.Split(htmlutil.JoinedText(box, " "), "•") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case details.Duration == nil && durationRegex.MatchString(part):
			details.Duration = document.Ptr(part)
		case details.Certificate == nil && scrapers.IsCertificate(part):
			details.Certificate = document.Ptr(part)
		}
	}
	box.Find("a").Each(func(_ int, s *goquery.Selection) {
		genre := htmlutil.Clean(s.Text())
		if genre != "" {
			details.Genres = append(details.Genres, genre)
		}
	})
	return details
}

func (a *Adapter) scrapeMovie(ctx context.Context, city string, l listing, dates []string) (document.Movie, bool) {
	title := identity.Title(l.Name)
	if title == "" {
		a.tel.ReportWarning(report_bookmyshow_list_movies, "title normalizes to nothing", l.Name)
		return document.Movie{}, false
	}
	code := l.Code()

	movie := document.Movie{
		Title:   title,
		Details: document.Details{Genres: []string{}},
	}

	page, err := a.client.Page(ctx, l.Url)
	if err != nil {
		a.tel.ReportWarning(report_bookmyshow_movie_page, err, title)
	} else {
		movie.Details = parseDetails(page)
		posterUrl := page.Find(selectPoster).First().AttrOr("src", "")
		if posterUrl != "" {
			movie.Image = a.posters.Fetch(ctx, a.client.Resolve(posterUrl), code)
		}
	}

	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	theatres := aggregate.New()
	for _, date := range dates {
		if ctx.Err() != nil {
			break
		}
		buy := fmt.Sprintf("/movies/%s/%s/buytickets/%s/%s", city, slug, code, date)
		a.scrapeDate(ctx, buy, date, theatres)
	}

	movie.Theatres = theatres.List()
	return movie, true
}

func (a *Adapter) scrapeDate(ctx context.Context, buy, date string, theatres *aggregate.Theatres) {
	page, err := a.client.Page(ctx, buy, ageGate)
	if err != nil {
		a.tel.ReportWarning(report_bookmyshow_fetch_showtime, err)
		return
	}

	subpages := a.buyLinks(ctx, page)
	if len(subpages) == 0 {
		a.addTheatres(page, buy, date, theatres)
		return
	}

	for _, sub := range subpages {
		err := a.client.Pause(ctx)
		if err != nil {
			return
		}
		subpage, err := a.client.Page(ctx, sub, ageGate)
		if err != nil {
			a.tel.ReportWarning(report_bookmyshow_fetch_showtime, err)
			continue
		}
		a.addTheatres(subpage, sub, date, theatres)
	}
}

func (a *Adapter) buyLinks(ctx context.Context, page *goquery.Document) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, anchor := range htmlutil.GetAnchors(ctx, page.Find(selectBuyLinks)) {
		if !strings.Contains(anchor.Href, "/buytickets/") {
			continue
		}
		resolved := a.client.Resolve(anchor.Href)
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out
}

func (a *Adapter) addTheatres(page *goquery.Document, source, date string, theatres *aggregate.Theatres) {
	container := page.Find(selectTheatreList).First()
	if container.Length() == 0 {
		a.tel.ReportWarning(report_bookmyshow_fetch_showtime, fmt.Errorf("%w: no theatre list", fetch.ErrParse), source)
		return
	}

	container.Find(selectTheatre).Each(func(_ int, th *goquery.Selection) {
		name := htmlutil.Clean(th.Find(selectTheatreName).First().Text())
		if name == "" {
			a.tel.ReportDebug("theatre without a name", source)
			return
		}

		var shows []document.Showtime
		showtimeList(th).Find(selectShowtime).Each(func(_ int, st *goquery.Selection) {
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

// showtimeList finds the showtimes of a theatre block, they are either nested
// in it or in the element that follows it.
func showtimeList(th *goquery.Selection) *goquery.Selection {
	nested := th.Find(selectShowtimeList).First()
	if nested.Length() > 0 {
		return nested
	}
	for next := th.Next(); next.Length() > 0; next = next.Next() {
		if next.Is(selectTheatre) {
			break
		}
		if next.Is(selectShowtimeList) {
			return next
		}
		inner := next.Find(selectShowtimeList).First()
		if inner.Length() > 0 {
			return inner
		}
	}
	return th.Find(selectShowtimeList)
}
