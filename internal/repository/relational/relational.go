// Package relational implements the repository contracts over the current and
// legacy relational stores. Queries are composed with squirrel and run through
// the internal DB wrapper, which renders the placeholder format of the store
// (Postgres or SQLite) and translates driver errors.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/routing"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// Validator checks a structured attribute against a named schema before it
// is written.
type Validator interface {
	ValidateAttribute(ctx context.Context, name, entity, field string, value any) error
}

// Repo implements the repository interfaces of the current store.
type Repo struct {
	conn      *db.DB
	logger    *slog.Logger
	validator Validator
}

// Ensure Repo implements the public interfaces.
var (
	_ repository.CaregiverRepo    = (*Repo)(nil)
	_ repository.ChildRepo        = (*Repo)(nil)
	_ repository.TestRepo         = (*Repo)(nil)
	_ repository.QuestionRepo     = (*Repo)(nil)
	_ repository.InterventionRepo = (*Repo)(nil)
	_ repository.CollaboratorRepo = (*Repo)(nil)
	_ repository.BookRepo         = (*Repo)(nil)
	_ repository.ResultRepo       = (*Repo)(nil)
	_ repository.SchemaRepo       = (*Repo)(nil)
)

type Option func(*Repo)

// WithValidator enables schema validation of structured attributes.
func WithValidator(v Validator) Option {
	return func(r *Repo) { r.validator = v }
}

func New(conn *db.DB, logger *slog.Logger, opts ...Option) *Repo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r := &Repo{conn: conn, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewCurrent binds a Repo to the current store of the registry.
func NewCurrent(reg *routing.Registry, logger *slog.Logger, opts ...Option) (*Repo, error) {
	conn, err := reg.Relational(routing.GroupCurrent)
	if err != nil {
		return nil, err
	}
	return New(conn, logger, opts...), nil
}

func (r *Repo) validate(ctx context.Context, schema, entity, field string, value any) error {
	if r.validator == nil {
		return nil
	}
	return r.validator.ValidateAttribute(ctx, schema, entity, field, value)
}

// Codecs for the JSON columns.
var (
	textCodec    jsoncol.Codec[models.LocalizedText]
	attrCodec    jsoncol.Codec[models.Attributes]
	optionsCodec jsoncol.Codec[[]models.QuestionOption]
)

type scanFunc[T any] func(db.Scanner) (T, error)

// getOne runs q and returns nil when no row matches.
func getOne[T any](ctx context.Context, conn *db.DB, q sq.SelectBuilder, scan scanFunc[T], entity, key string) (*T, error) {
	v, err := scan(conn.QueryRowBuilder(ctx, q))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, conn.Translate("get", entity, key, err)
	}
	return &v, nil
}

// list runs q and scans every row. An empty result is an empty slice.
func list[T any](ctx context.Context, conn *db.DB, q sq.SelectBuilder, scan scanFunc[T], entity string) ([]T, error) {
	rows, err := conn.QueryBuilder(ctx, q)
	if err != nil {
		return nil, conn.Translate("list", entity, "", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, conn.Translate("list", entity, "", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, conn.Translate("list", entity, "", err)
	}
	return out, nil
}

// page counts the rows matched by base and fetches the requested slice of
// them. base must carry FROM and WHERE but no columns.
func page[T any](ctx context.Context, conn *db.DB, base sq.SelectBuilder, columns []string, orderBy string, p repository.PageRequest, scan scanFunc[T], entity string) (repository.Page[T], error) {
	if err := p.Validate(); err != nil {
		return repository.Page[T]{}, err
	}

	var total int64
	if err := conn.QueryRowBuilder(ctx, base.Columns("COUNT(*)")).Scan(&total); err != nil {
		return repository.Page[T]{}, conn.Translate("search", entity, "", err)
	}

	items := []T{}
	if p.Offset() < total {
		q := base.Columns(columns...).OrderBy(orderBy).Limit(uint64(p.Size)).Offset(uint64(p.Offset()))
		var err error
		if items, err = list(ctx, conn, q, scan, entity); err != nil {
			return repository.Page[T]{}, err
		}
	}
	return repository.NewPage(items, p, total), nil
}

// exists reports whether any row of table matches where.
func exists(ctx context.Context, conn *db.DB, table string, where sq.Sqlizer, entity, key string) (bool, error) {
	var one int
	err := conn.QueryRowBuilder(ctx, conn.Builder().Select("1").From(table).Where(where).Limit(1)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, conn.Translate("exists", entity, key, err)
	}
	return true, nil
}

// count returns the number of rows of table matching where.
func count(ctx context.Context, conn *db.DB, table string, where sq.Sqlizer, entity, key string) (int64, error) {
	var n int64
	q := conn.Builder().Select("COUNT(*)").From(table)
	if where != nil {
		q = q.Where(where)
	}
	if err := conn.QueryRowBuilder(ctx, q).Scan(&n); err != nil {
		return 0, conn.Translate("count", entity, key, err)
	}
	return n, nil
}

// countBy groups the rows of table by column.
func countBy[K ~string](ctx context.Context, conn *db.DB, table, column string, where sq.Sqlizer, entity string) (map[K]int64, error) {
	q := conn.Builder().Select(column, "COUNT(*)").From(table).GroupBy(column)
	if where != nil {
		q = q.Where(where)
	}
	rows, err := conn.QueryBuilder(ctx, q)
	if err != nil {
		return nil, conn.Translate("count", entity, "", err)
	}
	defer rows.Close()

	out := make(map[K]int64)
	for rows.Next() {
		var (
			k string
			n int64
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, conn.Translate("count", entity, "", err)
		}
		out[K(k)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, conn.Translate("count", entity, "", err)
	}
	return out, nil
}

// insertReturningID runs an insert that returns the generated numeric key.
func insertReturningID(ctx context.Context, conn *db.DB, q sq.InsertBuilder, entity, key string) (int64, error) {
	var id int64
	if err := conn.QueryRowBuilder(ctx, q.Suffix("RETURNING id")).Scan(&id); err != nil {
		return 0, conn.Translate("create", entity, key, err)
	}
	return id, nil
}

// updateReturningTouch runs an update that advances updated_at and returns
// the stored value. No matching row is ErrNotFound.
func updateReturningTouch(ctx context.Context, conn *db.DB, q sq.UpdateBuilder, entity, key string) (int64, error) {
	var updated int64
	err := conn.QueryRowBuilder(ctx, q.Set("updated_at", touch(models.NowMillis())).Suffix("RETURNING updated_at")).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("update %s %q: %w", entity, key, repository.ErrNotFound)
	}
	if err != nil {
		return 0, conn.Translate("update", entity, key, err)
	}
	return updated, nil
}

// deleteWhere removes the rows of table matching where. No matching row is
// ErrNotFound.
func deleteWhere(ctx context.Context, conn *db.DB, table string, where sq.Sqlizer, entity, key string) error {
	res, err := conn.ExecBuilder(ctx, conn.Builder().Delete(table).Where(where))
	if err != nil {
		return conn.Translate("delete", entity, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return conn.Translate("delete", entity, key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %q: %w", entity, key, repository.ErrNotFound)
	}
	return nil
}

func touch(now int64) sq.Sqlizer {
	return db.Touch("updated_at", now)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// keyword matches kw case-insensitively as a substring of any of columns.
// JSON columns are matched against their stored text.
func keyword(kw string, columns ...string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.Expr("LOWER(CAST("+c+" AS TEXT)) LIKE ? ESCAPE '\\'", pattern))
	}
	return or
}

// ageWithin keeps rows whose [min, max] age range contains months.
func ageWithin(months int) sq.Sqlizer {
	return sq.And{sq.LtOrEq{"age_min_months": months}, sq.GtOrEq{"age_max_months": months}}
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}
