package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/schemas"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var childColumns = []string{"id", "caregiver_id", "full_name", "nickname", "birth_date", "gender", "notes", "attributes", "deleted_at", "created_at", "updated_at"}

// live excludes soft-deleted children.
var live = sq.Eq{"deleted_at": nil}

func scanChild(s db.Scanner) (models.Child, error) {
	var (
		c         models.Child
		caregiver uuid.NullUUID
		deleted   sql.NullInt64
		gender    string
	)
	err := s.Scan(&c.ID, &caregiver, &c.FullName, &c.Nickname, &c.BirthDate, &gender, &c.Notes,
		jsoncol.Col(&c.Attributes), &deleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Gender = models.Gender(gender)
	if caregiver.Valid {
		id := caregiver.UUID
		c.CaregiverID = &id
	}
	if deleted.Valid {
		v := deleted.Int64
		c.DeletedAt = &v
	}
	return c, nil
}

func (r *Repo) CreateChild(ctx context.Context, c *models.Child) (uuid.UUID, error) {
	if c == nil {
		return uuid.Nil, fmt.Errorf("child is nil")
	}
	if err := c.Validate(); err != nil {
		return uuid.Nil, err
	}
	if err := r.validate(ctx, schemas.ChildAttributes, "child", "attributes", c.Attributes); err != nil {
		return uuid.Nil, err
	}
	attrs, err := attrCodec.Encode(c.Attributes)
	if err != nil {
		return uuid.Nil, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV7())
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("children").Columns(childColumns...).
		Values(c.ID, c.CaregiverID, c.FullName, c.Nickname, c.BirthDate, string(c.Gender), c.Notes, attrs, nil, now, now)
	if _, err := r.conn.ExecBuilder(ctx, q); err != nil {
		return uuid.Nil, r.conn.Translate("create", "child", c.ID.String(), err)
	}

	c.CreatedAt, c.UpdatedAt, c.DeletedAt = now, now, nil
	return c.ID, nil
}

// GetChild returns nil for unknown and soft-deleted children.
func (r *Repo) GetChild(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	q := r.conn.Builder().Select(childColumns...).From("children").Where(sq.And{sq.Eq{"id": id}, live})
	return getOne(ctx, r.conn, q, scanChild, "child", id.String())
}

func (r *Repo) UpdateChild(ctx context.Context, c *models.Child) error {
	if c == nil {
		return fmt.Errorf("child is nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := r.validate(ctx, schemas.ChildAttributes, "child", "attributes", c.Attributes); err != nil {
		return err
	}
	attrs, err := attrCodec.Encode(c.Attributes)
	if err != nil {
		return err
	}

	q := r.conn.Builder().Update("children").
		Set("caregiver_id", c.CaregiverID).
		Set("full_name", c.FullName).
		Set("nickname", c.Nickname).
		Set("birth_date", c.BirthDate).
		Set("gender", string(c.Gender)).
		Set("notes", c.Notes).
		Set("attributes", attrs).
		Where(sq.And{sq.Eq{"id": c.ID}, live})
	updated, err := updateReturningTouch(ctx, r.conn, q, "child", c.ID.String())
	if err != nil {
		return err
	}
	c.UpdatedAt = updated
	return nil
}

// PatchChild writes only the fields set in p and returns the stored child.
func (r *Repo) PatchChild(ctx context.Context, id uuid.UUID, p models.ChildPatch) (*models.Child, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		c, err := r.GetChild(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("patch child %q: %w", id, repository.ErrNotFound)
		}
		return c, nil
	}

	q := r.conn.Builder().Update("children").Where(sq.And{sq.Eq{"id": id}, live})
	if p.CaregiverID != nil {
		q = q.Set("caregiver_id", *p.CaregiverID)
	}
	if p.FullName != nil {
		q = q.Set("full_name", *p.FullName)
	}
	if p.Nickname != nil {
		q = q.Set("nickname", *p.Nickname)
	}
	if p.BirthDate != nil {
		q = q.Set("birth_date", *p.BirthDate)
	}
	if p.Gender != nil {
		q = q.Set("gender", string(*p.Gender))
	}
	if p.Notes != nil {
		q = q.Set("notes", *p.Notes)
	}
	if p.Attributes != nil {
		if err := r.validate(ctx, schemas.ChildAttributes, "child", "attributes", *p.Attributes); err != nil {
			return nil, err
		}
		attrs, err := attrCodec.Encode(*p.Attributes)
		if err != nil {
			return nil, err
		}
		q = q.Set("attributes", attrs)
	}

	if _, err := updateReturningTouch(ctx, r.conn, q, "child", id.String()); err != nil {
		return nil, err
	}
	return r.GetChild(ctx, id)
}

// DeleteChild marks the child deleted. The row and its results are kept.
func (r *Repo) DeleteChild(ctx context.Context, id uuid.UUID) error {
	q := r.conn.Builder().Update("children").
		Set("deleted_at", models.NowMillis()).
		Where(sq.And{sq.Eq{"id": id}, live})
	_, err := updateReturningTouch(ctx, r.conn, q, "child", id.String())
	return err
}

func (r *Repo) SearchChildren(ctx context.Context, f repository.ChildFilter, p repository.PageRequest) (repository.Page[models.Child], error) {
	where := sq.And{live}
	if f.CaregiverID != nil {
		where = append(where, sq.Eq{"caregiver_id": *f.CaregiverID})
	}
	if f.Gender != nil {
		where = append(where, sq.Eq{"gender": string(*f.Gender)})
	}
	if f.BornAfter != "" {
		if _, err := time.Parse(models.DateLayout, f.BornAfter); err != nil {
			return repository.Page[models.Child]{}, &repository.ValidationError{Entity: "child_filter", Field: "born_after", Reason: "must be a YYYY-MM-DD date"}
		}
		where = append(where, sq.GtOrEq{"birth_date": f.BornAfter})
	}
	if f.BornBefore != "" {
		if _, err := time.Parse(models.DateLayout, f.BornBefore); err != nil {
			return repository.Page[models.Child]{}, &repository.ValidationError{Entity: "child_filter", Field: "born_before", Reason: "must be a YYYY-MM-DD date"}
		}
		where = append(where, sq.LtOrEq{"birth_date": f.BornBefore})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "full_name", "nickname", "attributes"))
	}

	base := r.conn.Builder().Select().From("children").Where(where)
	return page(ctx, r.conn, base, childColumns, "id", p, scanChild, "child")
}

func (r *Repo) ListChildrenByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]models.Child, error) {
	q := r.conn.Builder().Select(childColumns...).From("children").
		Where(sq.And{sq.Eq{"caregiver_id": caregiverID}, live}).
		OrderBy("birth_date", "id")
	return list(ctx, r.conn, q, scanChild, "child")
}

func (r *Repo) CountChildrenByGender(ctx context.Context) (map[models.Gender]int64, error) {
	return countBy[models.Gender](ctx, r.conn, "children", "gender", live, "child")
}
