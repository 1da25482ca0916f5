package db

import _ "embed"

// Schema creates the movies, theatres, showtimes and run bookkeeping tables
// if they do not exist yet.
//
//go:embed schema.sql
var Schema string
