package commands

import (
	"context"
	"database/sql"
	"os"

	"showtimes-backend/internal/components/chrono"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/config"
	"showtimes-backend/internal/db"
	"showtimes-backend/internal/notify"
	"showtimes-backend/internal/pipeline"
	"showtimes-backend/pkg/migrations"
	"showtimes-backend/pkg/serviceutil"
)

// env is everything a command needs, built from the config file.
type env struct {
	cfg      config.Config
	database *sql.DB
	clock    chrono.API
	otel     telemetry.Telemetry
	tel      telemetry.API
}

func loadConfig() config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.LogJson && !*jsonLogs {
		telemetry.SetupSlog(os.Stderr, *verbose, true)
	}
	return cfg
}

func loadEnv(ctx context.Context) *env {
	cfg := loadConfig()

	otel, err := telemetry.Setup(ctx, "showtimes", telemetry.Config{Otlp: cfg.Otlp})
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	tel := otel.API()

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}

	database, err := cfg.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	err = migrations.Migrate(ctx, database, db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to migrate database", err)
	}

	return &env{
		cfg:      cfg,
		database: database,
		clock:    clock,
		otel:     otel,
		tel:      tel,
	}
}

// pipeline builds a pipeline, adapters are only built when the command
// scrapes.
func (e *env) pipeline(scrape bool) *pipeline.Pipeline {
	opts := pipeline.Options{
		Config:   e.cfg,
		Database: e.database,
		Clock:    e.clock,
		Notifier: notify.New(e.cfg.Smtp),
	}
	if scrape {
		adapters, err := pipeline.Adapters(e.cfg, e.tel)
		if err != nil {
			serviceutil.Fatal("failed to create source adapters", err)
		}
		opts.Adapters = adapters
	}
	return pipeline.New(opts, e.tel)
}

func (e *env) Close() {
	e.database.Close()
	e.otel.Shutdown(context.Background())
}
