// Package db embeds the database schema so binaries can migrate on startup
// without shipping loose SQL files.
package db

import _ "embed"

// Schema holds the DDL for every table the engine uses.
//
//go:embed migrations/001_schema.sql
var Schema string
