package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"showtimes-backend/pkg/migrations"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Struct selects the persistent dataset: a local sqlite file, or a remote
// libsql database when `url` is set.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) Remote() bool {
	return config.Url != ""
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("a path was not specified")
		}
		return migrations.OpenDB(config.File)
	}

	dsn, err := url.Parse(config.Url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if config.AuthToken != "" {
		query := dsn.Query()
		query.Set("authToken", config.AuthToken)
		dsn.RawQuery = query.Encode()
	}

	db, err := sql.Open("libsql", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// merges and reconciliation assume a single writer
	db.SetMaxOpenConns(1)
	return db, nil
}
