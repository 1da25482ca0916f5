// Package config is the configuration of the showtimes pipeline, read from
// config.json5 (plus config.local.json5 overrides) with defaults for every
// field that is left out.
package config

import (
	"fmt"
	"os"
	"time"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/geocode"
	"showtimes-backend/internal/notify"
	"showtimes-backend/internal/reconcile"
	"showtimes-backend/internal/scrapers/bookmyshow"
	"showtimes-backend/internal/scrapers/ticketnew"
	"showtimes-backend/pkg/configutil"
	configlibsql "showtimes-backend/pkg/configutil/libsql"
)

type Source struct {
	// Enabled defaults to true.
	Enabled *bool    `json:"enabled"`
	BaseUrl string   `json:"base_url"`
	Cities  []string `json:"cities"`
}

func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type Sources struct {
	BookMyShow Source `json:"bookmyshow"`
	TicketNew  Source `json:"ticketnew"`
}

type Config struct {
	Database     configlibsql.Struct `json:"database"`
	PosterDir    string              `json:"poster_dir"`
	DocumentsDir string              `json:"documents_dir"`
	Timezone     string              `json:"timezone"`

	// Numeric settings left at 0 take their default, a zero delay cannot be
	// configured.

	// Days is the size of the date window, today included.
	Days                  int     `json:"days"`
	DelayMinMs            int     `json:"delay_min_ms"`
	DelayMaxMs            int     `json:"delay_max_ms"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
	MinBodyLength         int     `json:"min_body_length"`
	CityWorkers           int     `json:"city_workers"`
	RequestsPerSecond     float64 `json:"requests_per_second"`
	ReconcileScope        string  `json:"reconcile_scope"`

	Sources Sources        `json:"sources"`
	Geocode geocode.Config `json:"geocode"`
	// Schedule is the cron spec of the daemon.
	Schedule string      `json:"schedule"`
	Smtp     notify.Smtp `json:"smtp"`

	Otlp    telemetry.OtlpConfig `json:"otlp"`
	LogJson bool                 `json:"log_json"`
	// DumpDir receives every http exchange of the adapters, one directory
	// per source. Empty disables dumping.
	DumpDir string `json:"dump_dir"`
}

func Defaults() Config {
	return Config{
		Database:              configlibsql.Struct{File: "data/showtimes.db"},
		PosterDir:             "static/posters",
		DocumentsDir:          "data/documents",
		Timezone:              "Asia/Kolkata",
		Days:                  3,
		DelayMinMs:            400,
		DelayMaxMs:            800,
		RequestTimeoutSeconds: 30,
		MinBodyLength:         800,
		CityWorkers:           2,
		RequestsPerSecond:     2,
		ReconcileScope:        string(reconcile.ScopeGlobal),
		Sources: Sources{
			BookMyShow: Source{
				BaseUrl: bookmyshow.DefaultBaseUrl,
				Cities:  bookmyshow.DefaultCities,
			},
			TicketNew: Source{
				BaseUrl: ticketnew.DefaultBaseUrl,
				Cities:  ticketnew.DefaultCities,
			},
		},
		Geocode:  geocode.DefaultConfig(),
		Schedule: "0 5 * * *",
	}
}

// Load reads the configuration at `path`. A missing file is not an error, the
// defaults are used as they are.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Finish(cfg)
}

// Finish applies the defaults to a partially filled configuration and
// validates it.
func Finish(cfg Config) (Config, error) {
	defaults := Defaults()
	// a minimum above the default maximum lifts the maximum with it
	if cfg.DelayMaxMs == 0 && cfg.DelayMinMs > defaults.DelayMaxMs {
		cfg.DelayMaxMs = cfg.DelayMinMs
	}
	cfg, err := configutil.WithDefaults(cfg, defaults)
	if err != nil {
		return Config{}, fmt.Errorf("apply config defaults: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("config: days must be positive, got %d", c.Days)
	}
	if c.DelayMinMs < 0 || c.DelayMaxMs < c.DelayMinMs {
		return fmt.Errorf("config: invalid delay range [%d, %d]", c.DelayMinMs, c.DelayMaxMs)
	}
	if c.CityWorkers <= 0 {
		return fmt.Errorf("config: city_workers must be positive, got %d", c.CityWorkers)
	}
	_, err := reconcile.ParseScope(c.ReconcileScope)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) DelayMin() time.Duration {
	return time.Duration(c.DelayMinMs) * time.Millisecond
}

func (c Config) DelayMax() time.Duration {
	return time.Duration(c.DelayMaxMs) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) Scope() reconcile.Scope {
	scope, _ := reconcile.ParseScope(c.ReconcileScope)
	return scope
}
