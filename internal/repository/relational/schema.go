package relational

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
)

var schemaColumns = []string{"id", "name", "version", "description", "schema_json", "created_at", "updated_at"}

func scanSchema(s db.Scanner) (models.AttributeSchema, error) {
	var a models.AttributeSchema
	err := s.Scan(&a.ID, &a.Name, &a.Version, &a.Description, jsoncol.Col(&a.SchemaJSON), &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// UpsertSchema inserts or replaces a schema by name.
func (r *Repo) UpsertSchema(ctx context.Context, s *models.AttributeSchema) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("schema is nil")
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}

	now := models.NowMillis()
	touched, touchArgs, err := db.Touch("attribute_schemas.updated_at", now).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build schema upsert: %w", err)
	}
	q := r.conn.Builder().Insert("attribute_schemas").Columns(schemaColumns[1:]...).
		Values(s.Name, s.Version, s.Description, string(s.SchemaJSON), now, now).
		Suffix("ON CONFLICT (name) DO UPDATE SET version = excluded.version, description = excluded.description, "+
			"schema_json = excluded.schema_json, updated_at = "+touched+" RETURNING id, created_at, updated_at", touchArgs...)

	var id, created, updated int64
	if err := r.conn.QueryRowBuilder(ctx, q).Scan(&id, &created, &updated); err != nil {
		return 0, r.conn.Translate("upsert", "attribute_schema", s.Name, err)
	}
	s.ID, s.CreatedAt, s.UpdatedAt = id, created, updated
	if err := r.reloadSchemas(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// reloadSchemas refreshes a validator that caches schemas so writes through
// this repository take effect immediately.
func (r *Repo) reloadSchemas(ctx context.Context) error {
	rl, ok := r.validator.(interface{ Reload(context.Context) error })
	if !ok {
		return nil
	}
	if err := rl.Reload(ctx); err != nil {
		return fmt.Errorf("reload attribute schemas: %w", err)
	}
	return nil
}

func (r *Repo) GetSchema(ctx context.Context, name string) (*models.AttributeSchema, error) {
	q := r.conn.Builder().Select(schemaColumns...).From("attribute_schemas").Where(sq.Eq{"name": name})
	return getOne(ctx, r.conn, q, scanSchema, "attribute_schema", name)
}

func (r *Repo) ListSchemas(ctx context.Context) ([]models.AttributeSchema, error) {
	q := r.conn.Builder().Select(schemaColumns...).From("attribute_schemas").OrderBy("name")
	return list(ctx, r.conn, q, scanSchema, "attribute_schema")
}

func (r *Repo) DeleteSchema(ctx context.Context, name string) error {
	if err := deleteWhere(ctx, r.conn, "attribute_schemas", sq.Eq{"name": name}, "attribute_schema", name); err != nil {
		return err
	}
	return r.reloadSchemas(ctx)
}
