package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrBackupUnsupported is returned for stores whose snapshots are taken with
// the server's own tooling.
var ErrBackupUnsupported = errors.New("backup: only sqlite stores can be snapshotted")

// Backup writes a consistent snapshot of a SQLite store to dst. dst must not
// exist.
func Backup(ctx context.Context, d *DB, dst string) error {
	if d.driver != DriverSQLite {
		return ErrBackupUnsupported
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup: %s already exists", dst)
	}
	start := time.Now()
	_, err := d.conn.ExecContext(ctx, "VACUUM INTO ?", dst)
	d.observe("backup", start, err)
	if err != nil {
		return fmt.Errorf("backup %s store: %w", d.name, err)
	}
	d.logger.Info("backup written", "path", dst)
	return nil
}

// Restore copies the snapshot at src over the SQLite file named by dsn. The
// store must not be open while it runs.
func Restore(src, dsn string) error {
	dst := SQLitePath(dsn)
	if dst == "" || dst == ":memory:" {
		return fmt.Errorf("restore: %q is not a file database", dsn)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return dstFile.Sync()
}

// SQLitePath strips the "file:" scheme and query parameters from a SQLite DSN.
func SQLitePath(dsn string) string {
	p, _, _ := strings.Cut(dsn, "?")
	return strings.TrimPrefix(p, "file:")
}
