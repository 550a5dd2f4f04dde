package db

import (
	"embed"
	"path"
)

//go:embed migrations
var Migrations embed.FS

//go:embed seed/*.json
var SeedFiles embed.FS

// SeedDir is the directory of attribute schema seeds inside SeedFiles.
const SeedDir = "seed"

// MigrationDir returns the migrations directory for a driver ("postgres",
// "sqlite") and a store group ("current", "legacy").
func MigrationDir(driver, group string) string {
	return path.Join("migrations", driver, group)
}
