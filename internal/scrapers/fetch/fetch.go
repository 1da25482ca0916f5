// Package fetch is the HTTP client shared by the source adapters. It applies the
// acceptance rules of ticketing pages (status 200, a body long enough to be a
// real page rather than a bot challenge) and the politeness policy of the
// pipeline (a rate limit plus a randomized pause between page fetches).
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/pkg/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var (
	// ErrTransient is a failed fetch: timeout, non-200 status or a body too
	// short to be a real page. The unit of work is skipped, never retried.
	ErrTransient = errors.New("transient fetch error")
	// ErrParse is a page that was fetched but lacks an expected container.
	ErrParse = errors.New("parse error")
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl string
	// Timeout bounds every request, defaults to 30 seconds.
	Timeout time.Duration
	// MinBodyLength is the shortest body accepted as a page, defaults to 800.
	MinBodyLength int
	// RequestsPerSecond is the sustained request rate, defaults to 2.
	RequestsPerSecond float64
	// DelayMin and DelayMax bound the pause taken by Pause.
	DelayMin time.Duration
	DelayMax time.Duration
	// DisableBypass leaves the default transport in place, used against local
	// test servers.
	DisableBypass bool
	// Dump receives every exchange when set.
	Dump restyutil.InstrumentOutput
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	minBodyLength int
	delayMin      time.Duration
	delayMax      time.Duration
	tel           telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MinBodyLength <= 0 {
		opts.MinBodyLength = 800
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if !opts.DisableBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", UserAgent)
	client.SetHeader("accept-language", "en-IN,en;q=0.9")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(opts.Timeout)

	// burst >= 1 just means that no requests will be dropped
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, otel.Tracer("showtimes.fetch"), opts.Dump)

	return &Client{
		BaseUrl:       baseUrl,
		Http:          client,
		minBodyLength: opts.MinBodyLength,
		delayMin:      opts.DelayMin,
		delayMax:      opts.DelayMax,
		tel:           tel,
	}, nil
}

// Body fetches `path` (relative to the base url, or absolute) and returns the
// raw body when the response is acceptable.
func (c *Client) Body(ctx context.Context, path string, cookies ...*http.Cookie) ([]byte, error) {
	req := c.Http.R().SetContext(ctx)
	if len(cookies) > 0 {
		req.SetCookies(cookies)
	}
	res, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrTransient, path, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: get %s: status %d", ErrTransient, path, res.StatusCode())
	}
	body := res.Body()
	if len(body) < c.minBodyLength {
		return nil, fmt.Errorf(
			"%w: get %s: body of %d bytes is shorter than %d",
			ErrTransient, path, len(body), c.minBodyLength,
		)
	}
	return body, nil
}

// Page is Body parsed as an html document.
func (c *Client) Page(ctx context.Context, path string, cookies ...*http.Cookie) (*goquery.Document, error) {
	body, err := c.Body(ctx, path, cookies...)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return doc, nil
}

// Download fetches a binary resource (posters). Only the status is checked,
// small images are legitimate.
func (c *Client) Download(ctx context.Context, rawUrl string) ([]byte, error) {
	res, err := c.Http.R().SetContext(ctx).Get(rawUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", ErrTransient, rawUrl, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: download %s: status %d", ErrTransient, rawUrl, res.StatusCode())
	}
	if len(res.Body()) == 0 {
		return nil, fmt.Errorf("%w: download %s: empty body", ErrTransient, rawUrl)
	}
	return res.Body(), nil
}

// Resolve turns a link found on a page into an absolute url.
func (c *Client) Resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.BaseUrl.ResolveReference(ref).String()
}

// Pause sleeps a random duration in [DelayMin, DelayMax], returning early with
// the context's error if it is cancelled.
func (c *Client) Pause(ctx context.Context) error {
	delay := c.delayMin
	if spread := c.delayMax - c.delayMin; spread > 0 {
		delay += rand.N(spread)
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
