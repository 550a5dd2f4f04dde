package relational

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var caregiverColumns = []string{"id", "full_name", "email", "phone", "relationship", "address", "created_at", "updated_at"}

func scanCaregiver(s db.Scanner) (models.Caregiver, error) {
	var c models.Caregiver
	err := s.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Relationship, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repo) CreateCaregiver(ctx context.Context, c *models.Caregiver) (uuid.UUID, error) {
	if c == nil {
		return uuid.Nil, fmt.Errorf("caregiver is nil")
	}
	if err := c.Validate(); err != nil {
		return uuid.Nil, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV7())
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("caregivers").Columns(caregiverColumns...).
		Values(c.ID, c.FullName, c.Email, c.Phone, c.Relationship, c.Address, now, now)
	if _, err := r.conn.ExecBuilder(ctx, q); err != nil {
		return uuid.Nil, r.conn.Translate("create", "caregiver", c.Email, err)
	}

	c.CreatedAt, c.UpdatedAt = now, now
	return c.ID, nil
}

func (r *Repo) GetCaregiver(ctx context.Context, id uuid.UUID) (*models.Caregiver, error) {
	q := r.conn.Builder().Select(caregiverColumns...).From("caregivers").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanCaregiver, "caregiver", id.String())
}

func (r *Repo) GetCaregiverByEmail(ctx context.Context, email string) (*models.Caregiver, error) {
	q := r.conn.Builder().Select(caregiverColumns...).From("caregivers").Where(sq.Eq{"email": email})
	return getOne(ctx, r.conn, q, scanCaregiver, "caregiver", email)
}

func (r *Repo) ExistsCaregiverByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.conn, "caregivers", sq.Eq{"email": email}, "caregiver", email)
}

func (r *Repo) UpdateCaregiver(ctx context.Context, c *models.Caregiver) error {
	if c == nil {
		return fmt.Errorf("caregiver is nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	q := r.conn.Builder().Update("caregivers").
		Set("full_name", c.FullName).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Set("relationship", c.Relationship).
		Set("address", c.Address).
		Where(sq.Eq{"id": c.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "caregiver", c.ID.String())
	if err != nil {
		return err
	}
	c.UpdatedAt = updated
	return nil
}

// DeleteCaregiver fails with a constraint StorageError while children still
// reference the caregiver.
func (r *Repo) DeleteCaregiver(ctx context.Context, id uuid.UUID) error {
	return deleteWhere(ctx, r.conn, "caregivers", sq.Eq{"id": id}, "caregiver", id.String())
}

func (r *Repo) SearchCaregivers(ctx context.Context, f repository.CaregiverFilter, p repository.PageRequest) (repository.Page[models.Caregiver], error) {
	where := sq.And{}
	if f.Relationship != "" {
		where = append(where, sq.Eq{"relationship": f.Relationship})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "full_name", "email", "phone"))
	}

	base := r.conn.Builder().Select().From("caregivers").Where(where)
	return page(ctx, r.conn, base, caregiverColumns, "id", p, scanCaregiver, "caregiver")
}
