package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"
)

// Driver identifies the SQL dialect behind a DB.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Valid reports whether d is a supported driver.
func (d Driver) Valid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

func (d Driver) sqlName() string {
	if d == DriverPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Options configures one relational store.
type Options struct {
	// Name labels logs and metrics ("current", "legacy").
	Name            string
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Metrics         *Metrics
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// DB wraps the sql.DB for connection management of one store.
type DB struct {
	conn    *sql.DB
	name    string
	driver  Driver
	format  sq.PlaceholderFormat
	metrics *Metrics
	logger  *slog.Logger
}

// New opens and pings a connection pool. SQLite pools are limited to a single
// connection so that writers never contend for the file lock.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if !opts.Driver.Valid() {
		return nil, fmt.Errorf("unknown driver %q", opts.Driver)
	}
	if opts.Name == "" {
		opts.Name = string(opts.Driver)
	}

	dsn := opts.DSN
	format := sq.PlaceholderFormat(sq.Dollar)
	if opts.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
		format = sq.Question
	}

	conn, err := sql.Open(opts.Driver.sqlName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if opts.Driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &DB{
		conn:    conn,
		name:    opts.Name,
		driver:  opts.Driver,
		format:  format,
		metrics: opts.Metrics,
		logger:  logger.With(slog.String("store", opts.Name)),
	}, nil
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN already
// sets them.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "cdd.db"
	}
	var params []string
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Name returns the store name used in logs and metrics.
func (db *DB) Name() string { return db.name }

// Driver returns the dialect of the store.
func (db *DB) Driver() Driver { return db.driver }

// Logger returns the store-scoped logger.
func (db *DB) Logger() *slog.Logger { return db.logger }

// Builder returns a statement builder using the store's placeholder format.
func (db *DB) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(db.format)
}

// Rebind rewrites '?' placeholders into the store's format.
func (db *DB) Rebind(query string) string {
	out, err := db.format.ReplacePlaceholders(query)
	if err != nil {
		return query
	}
	return out
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	start := time.Now()
	err := db.conn.PingContext(ctx)
	db.observe("ping", start, err)
	return err
}

// Exec executes a query written with '?' placeholders.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, db.Rebind(query), args...)
	db.observe("exec", start, err)
	return res, err
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, db.Rebind(query), args...)
	db.observe("query_row", start, row.Err())
	return row
}

// QueryRows executes a query returning rows; callers must close them.
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, db.Rebind(query), args...)
	db.observe("query", start, err)
	return rows, err
}

// ExecBuilder renders and executes a built statement.
func (db *DB) ExecBuilder(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	db.observe("exec", start, err)
	return res, err
}

// QueryRowBuilder renders a built query expected to return at most one row.
// A build failure is reported by Scan.
func (db *DB) QueryRowBuilder(ctx context.Context, b sq.Sqlizer) Scanner {
	query, args, err := b.ToSql()
	if err != nil {
		return errRow{fmt.Errorf("build query: %w", err)}
	}
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, args...)
	db.observe("query_row", start, row.Err())
	return row
}

// QueryBuilder renders a built query returning rows; callers must close them.
func (db *DB) QueryBuilder(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	db.observe("query", start, err)
	return rows, err
}

// BeginTx starts a transaction. Raw statements run inside it must go
// through Rebind.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, opts)
}

// GetConn returns the underlying sql.DB
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

func (db *DB) observe(op string, start time.Time, err error) {
	if db.metrics == nil {
		return
	}
	db.metrics.observe(db.name, op, time.Since(start), err)
}

// Touch is the updated_at assignment of a write at now: now, or one
// millisecond past the stored value in column when the clock has not
// advanced, so every write strictly increases it.
func Touch(column string, now int64) sq.Sqlizer {
	return sq.Expr("CASE WHEN CAST(? AS BIGINT) > "+column+" THEN CAST(? AS BIGINT) ELSE "+column+" + 1 END", now, now)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
