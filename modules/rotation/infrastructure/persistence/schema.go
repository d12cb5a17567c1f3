package persistence

import "embed"

// Migrations holds the goose migrations of the rotation schema.
//
//go:embed schema/*.sql
var Migrations embed.FS

const MigrationsDir = "schema"
