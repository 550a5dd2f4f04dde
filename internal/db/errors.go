package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// Translate maps a driver error onto the repository error taxonomy and logs
// it once. Errors that already belong to the taxonomy pass through.
func (db *DB) Translate(op, entity, key string, err error) error {
	if err == nil {
		return nil
	}
	if passthrough(err) {
		return err
	}

	if IsUniqueViolation(err) {
		db.logger.Warn("unique constraint violated",
			slog.String("op", op),
			slog.String("entity", entity),
			slog.String("key", key),
		)
		return &repository.UniquenessError{Entity: entity, Key: key, Err: err}
	}

	se := &repository.StorageError{Op: op, Entity: entity, Key: key, Kind: Classify(err), Err: err}
	db.logger.Error("storage failure",
		slog.String("op", op),
		slog.String("entity", entity),
		slog.String("key", key),
		slog.String("kind", string(se.Kind)),
		slog.Any("err", err),
	)
	return se
}

func passthrough(err error) bool {
	return errors.Is(err, jsoncol.ErrSerialization) ||
		errors.Is(err, repository.ErrValidation) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrUniquenessViolation) ||
		errors.Is(err, repository.ErrStorage)
}

// IsUniqueViolation reports whether err is a unique or primary key collision
// on either supported driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Classify assigns a StorageKind to a driver error.
func Classify(err error) repository.StorageKind {
	switch {
	case errors.Is(err, context.Canceled):
		return repository.KindUnknown
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return repository.KindTimeout
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return repository.KindConnectivity
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return repository.KindConnectivity
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014": // query_canceled, raised by statement_timeout
			return repository.KindTimeout
		case strings.HasPrefix(pgErr.Code, "23"):
			return repository.KindConstraint
		case strings.HasPrefix(pgErr.Code, "08"):
			return repository.KindConnectivity
		}
		return repository.KindUnknown
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return repository.KindConstraint
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return repository.KindTimeout
		case sqlite3.SQLITE_CANTOPEN:
			return repository.KindConnectivity
		}
		return repository.KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return repository.KindTimeout
		}
		return repository.KindConnectivity
	}

	return repository.KindUnknown
}
