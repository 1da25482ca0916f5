// Package geocode is the place-name autocomplete collaborator, it suggests
// city names for a partial query using the Ola Maps places API.
package geocode

import (
	"context"
	"strings"
	"time"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_geocode_autocomplete = "geocode.autocomplete"

type Config struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	// Region is the text a prediction's description must contain.
	Region string `json:"region"`
	// Exclude drops predictions that name something other than a place.
	Exclude []string `json:"exclude"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl: "https://api.olamaps.io",
		Region:  "Tamil Nadu",
		Exclude: []string{
			"junction", "station", "airport", "market",
			"hospital", "terminal", "school", "district",
			"bus stand", "busstand", "street", "main", "govt",
			"road",
		},
	}
}

type Client struct {
	http    *resty.Client
	region  string
	exclude []string
	tel     telemetry.API
}

func NewClient(config Config, tel telemetry.API) Client {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.BaseUrl)

	client := resty.New()
	client.SetBaseURL(config.BaseUrl)
	client.SetHeader("X-API-Key", config.ApiKey)
	client.SetTimeout(time.Second * 5)
	telemetry.InstrumentResty(client, tel)

	exclude := make([]string, len(config.Exclude))
	for i, e := range config.Exclude {
		exclude[i] = strings.ToLower(e)
	}
	return Client{
		http:    client,
		region:  config.Region,
		exclude: exclude,
		tel:     tel,
	}
}

type prediction struct {
	Description          string `json:"description"`
	StructuredFormatting struct {
		MainText string `json:"main_text"`
	} `json:"structured_formatting"`
}

type autocompleteResponse struct {
	Predictions []prediction `json:"predictions"`
}

func (c Client) excluded(text string) bool {
	for _, e := range c.exclude {
		if strings.Contains(text, e) {
			return true
		}
	}
	return false
}

// Autocomplete returns lowercased place names matching `query` in the
// configured region, deduplicated in the order the service ranked them.
// Queries shorter than 2 characters and any failure yield an empty list.
func (c Client) Autocomplete(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []string{}
	}

	var body autocompleteResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("input", query).
		SetQueryParam("components", "country:IN").
		SetResult(&body).
		Get("/places/v1/autocomplete")
	if err != nil {
		c.tel.ReportWarning(report_geocode_autocomplete, err)
		return []string{}
	}
	if res.IsError() {
		c.tel.ReportWarning(report_geocode_autocomplete, "unexpected status", res.Status())
		return []string{}
	}

	out := []string{}
	seen := map[string]struct{}{}
	for _, p := range body.Predictions {
		main := p.StructuredFormatting.MainText
		if c.region != "" && !strings.Contains(p.Description, c.region) {
			continue
		}
		if c.excluded(strings.ToLower(main + " " + p.Description)) {
			continue
		}
		if main == "" {
			continue
		}
		name := strings.ToLower(main)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
