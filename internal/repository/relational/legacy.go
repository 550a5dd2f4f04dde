package relational

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/routing"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// LegacyRepo implements the repositories of the legacy store. Its entities
// are never synchronized with the current store.
type LegacyRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

var (
	_ repository.LegacyChildRepo  = (*LegacyRepo)(nil)
	_ repository.LegacyRecordRepo = (*LegacyRepo)(nil)
)

func NewLegacy(conn *db.DB, logger *slog.Logger) *LegacyRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LegacyRepo{conn: conn, logger: logger}
}

// NewLegacyFromRegistry binds a LegacyRepo to the legacy store of the
// registry.
func NewLegacyFromRegistry(reg *routing.Registry, logger *slog.Logger) (*LegacyRepo, error) {
	conn, err := reg.Relational(routing.GroupLegacy)
	if err != nil {
		return nil, err
	}
	return NewLegacy(conn, logger), nil
}

var legacyChildColumns = []string{"id", "name", "birth_date", "parent_name", "parent_phone", "extra", "created_at", "updated_at"}

func scanLegacyChild(s db.Scanner) (models.LegacyChild, error) {
	var c models.LegacyChild
	err := s.Scan(&c.ID, &c.Name, &c.BirthDate, &c.ParentName, &c.ParentPhone, jsoncol.Col(&c.Extra), &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *LegacyRepo) CreateLegacyChild(ctx context.Context, c *models.LegacyChild) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("legacy child is nil")
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	extra, err := attrCodec.Encode(c.Extra)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("legacy_children").Columns(legacyChildColumns[1:]...).
		Values(c.Name, c.BirthDate, c.ParentName, c.ParentPhone, extra, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "legacy_child", c.Name)
	if err != nil {
		return 0, err
	}

	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return id, nil
}

func (r *LegacyRepo) GetLegacyChild(ctx context.Context, id int64) (*models.LegacyChild, error) {
	q := r.conn.Builder().Select(legacyChildColumns...).From("legacy_children").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanLegacyChild, "legacy_child", strconv.FormatInt(id, 10))
}

func (r *LegacyRepo) UpdateLegacyChild(ctx context.Context, c *models.LegacyChild) error {
	if c == nil {
		return fmt.Errorf("legacy child is nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	extra, err := attrCodec.Encode(c.Extra)
	if err != nil {
		return err
	}

	q := r.conn.Builder().Update("legacy_children").
		Set("name", c.Name).
		Set("birth_date", c.BirthDate).
		Set("parent_name", c.ParentName).
		Set("parent_phone", c.ParentPhone).
		Set("extra", extra).
		Where(sq.Eq{"id": c.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "legacy_child", strconv.FormatInt(c.ID, 10))
	if err != nil {
		return err
	}
	c.UpdatedAt = updated
	return nil
}

// DeleteLegacyChild fails with a constraint StorageError while test records
// reference the child.
func (r *LegacyRepo) DeleteLegacyChild(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "legacy_children", sq.Eq{"id": id}, "legacy_child", strconv.FormatInt(id, 10))
}

func (r *LegacyRepo) SearchLegacyChildren(ctx context.Context, f repository.LegacyChildFilter, p repository.PageRequest) (repository.Page[models.LegacyChild], error) {
	where := sq.And{}
	if f.ParentPhone != "" {
		where = append(where, sq.Eq{"parent_phone": f.ParentPhone})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "name", "parent_name", "parent_phone", "extra"))
	}

	base := r.conn.Builder().Select().From("legacy_children").Where(where)
	return page(ctx, r.conn, base, legacyChildColumns, "id", p, scanLegacyChild, "legacy_child")
}

var legacyRecordColumns = []string{"id", "child_id", "test_code", "score", "result", "taken_at", "created_at", "updated_at"}

func scanLegacyRecord(s db.Scanner) (models.LegacyTestRecord, error) {
	var (
		rec   models.LegacyTestRecord
		score sql.NullFloat64
	)
	err := s.Scan(&rec.ID, &rec.ChildID, &rec.TestCode, &score, jsoncol.Col(&rec.Result), &rec.TakenAt, &rec.CreatedAt, &rec.UpdatedAt)
	if score.Valid {
		v := score.Float64
		rec.Score = &v
	}
	return rec, err
}

func (r *LegacyRepo) CreateLegacyRecord(ctx context.Context, rec *models.LegacyTestRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("legacy test record is nil")
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	result, err := attrCodec.Encode(rec.Result)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	if rec.TakenAt == 0 {
		rec.TakenAt = now
	}
	q := r.conn.Builder().Insert("legacy_test_records").Columns(legacyRecordColumns[1:]...).
		Values(rec.ChildID, rec.TestCode, rec.Score, result, rec.TakenAt, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "legacy_test_record", rec.TestCode)
	if err != nil {
		return 0, err
	}

	rec.ID, rec.CreatedAt, rec.UpdatedAt = id, now, now
	return id, nil
}

func (r *LegacyRepo) GetLegacyRecord(ctx context.Context, id int64) (*models.LegacyTestRecord, error) {
	q := r.conn.Builder().Select(legacyRecordColumns...).From("legacy_test_records").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanLegacyRecord, "legacy_test_record", strconv.FormatInt(id, 10))
}

// ListLegacyRecordsByChild returns the records of a child, most recent first.
func (r *LegacyRepo) ListLegacyRecordsByChild(ctx context.Context, childID int64) ([]models.LegacyTestRecord, error) {
	q := r.conn.Builder().Select(legacyRecordColumns...).From("legacy_test_records").
		Where(sq.Eq{"child_id": childID}).
		OrderBy("taken_at DESC", "id DESC")
	return list(ctx, r.conn, q, scanLegacyRecord, "legacy_test_record")
}

func (r *LegacyRepo) CountLegacyRecordsByTestCode(ctx context.Context, code string) (int64, error) {
	return count(ctx, r.conn, "legacy_test_records", sq.Eq{"test_code": code}, "legacy_test_record", code)
}
