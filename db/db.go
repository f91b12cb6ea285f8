package db

import "embed"

// Migrations holds the goose migrations, one directory per SQL dialect.
//
//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var Migrations embed.FS
