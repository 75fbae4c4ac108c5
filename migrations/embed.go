// Package migrations embeds the schema for each storage driver.
package migrations

import "embed"

// FS holds postgres/*.sql (golang-migrate naming) and sqlite/*.sql (applied in name order).
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Postgres and SQLite name the driver subdirectories of FS.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)
