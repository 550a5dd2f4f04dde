package db

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Migrate applies the SQL files found in dir of migrationFS that have not yet
// been recorded. It creates a `schema_migrations` table to track applied
// migrations; files run in lexical order and the file name (without
// extension) is the migration version.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, dir string) error {
	// ensure migrations table exists
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied BIGINT NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// collect .sql files and sort
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		// no arguments: the statement text is sent as-is, so '?' inside the
		// DDL is never rewritten
		if _, err := d.conn.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, ?)`, version, time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", "version", version)
	}

	return nil
}

// SeedSchemas upserts the attribute JSON Schemas found in seedFS under dir.
// File names follow <name>.<version>.json. Seeding is idempotent.
func SeedSchemas(ctx context.Context, d *DB, seedFS fs.FS, dir string) error {
	entries, err := fs.ReadDir(seedFS, dir)
	if err != nil {
		return fmt.Errorf("read seed dir: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	touched, touchArgs, err := Touch("attribute_schemas.updated_at", now).ToSql()
	if err != nil {
		return fmt.Errorf("build seed statement: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".json")
		name, version, ok := strings.Cut(base, ".")
		if !ok || name == "" || version == "" {
			return fmt.Errorf("seed %s: expected <name>.<version>.json", e.Name())
		}

		b, err := fs.ReadFile(seedFS, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", e.Name(), err)
		}

		args := append([]any{name, version, "seeded " + e.Name(), string(b), now, now}, touchArgs...)
		if _, err := d.Exec(ctx, `INSERT INTO attribute_schemas (name, version, description, schema_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET version = excluded.version, schema_json = excluded.schema_json, updated_at = `+touched,
			args...); err != nil {
			return fmt.Errorf("seed schema %s: %w", name, err)
		}
	}
	return nil
}
