package relational

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/schemas"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var collaboratorColumns = []string{"id", "full_name", "email", "phone", "organization", "specialty", "bio", "certifications", "status", "created_at", "updated_at"}

func scanCollaborator(s db.Scanner) (models.Collaborator, error) {
	var (
		c      models.Collaborator
		status string
	)
	err := s.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Organization, &c.Specialty, &c.Bio,
		jsoncol.Col(&c.Certifications), &status, &c.CreatedAt, &c.UpdatedAt)
	c.Status = models.CollaboratorStatus(status)
	return c, err
}

func (r *Repo) collaboratorArgs(ctx context.Context, c *models.Collaborator) (*string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := r.validate(ctx, schemas.Certifications, "collaborator", "certifications", c.Certifications); err != nil {
		return nil, err
	}
	return attrCodec.Encode(c.Certifications)
}

func (r *Repo) CreateCollaborator(ctx context.Context, c *models.Collaborator) (uuid.UUID, error) {
	if c == nil {
		return uuid.Nil, fmt.Errorf("collaborator is nil")
	}
	certs, err := r.collaboratorArgs(ctx, c)
	if err != nil {
		return uuid.Nil, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV7())
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("collaborators").Columns(collaboratorColumns...).
		Values(c.ID, c.FullName, c.Email, c.Phone, c.Organization, c.Specialty, c.Bio, certs, string(c.Status), now, now)
	if _, err := r.conn.ExecBuilder(ctx, q); err != nil {
		return uuid.Nil, r.conn.Translate("create", "collaborator", c.Email, err)
	}

	c.CreatedAt, c.UpdatedAt = now, now
	return c.ID, nil
}

func (r *Repo) GetCollaborator(ctx context.Context, id uuid.UUID) (*models.Collaborator, error) {
	q := r.conn.Builder().Select(collaboratorColumns...).From("collaborators").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanCollaborator, "collaborator", id.String())
}

func (r *Repo) GetCollaboratorByEmail(ctx context.Context, email string) (*models.Collaborator, error) {
	q := r.conn.Builder().Select(collaboratorColumns...).From("collaborators").Where(sq.Eq{"email": email})
	return getOne(ctx, r.conn, q, scanCollaborator, "collaborator", email)
}

func (r *Repo) ExistsCollaboratorByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.conn, "collaborators", sq.Eq{"email": email}, "collaborator", email)
}

func (r *Repo) UpdateCollaborator(ctx context.Context, c *models.Collaborator) error {
	if c == nil {
		return fmt.Errorf("collaborator is nil")
	}
	certs, err := r.collaboratorArgs(ctx, c)
	if err != nil {
		return err
	}

	q := r.conn.Builder().Update("collaborators").
		Set("full_name", c.FullName).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Set("organization", c.Organization).
		Set("specialty", c.Specialty).
		Set("bio", c.Bio).
		Set("certifications", certs).
		Set("status", string(c.Status)).
		Where(sq.Eq{"id": c.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "collaborator", c.ID.String())
	if err != nil {
		return err
	}
	c.UpdatedAt = updated
	return nil
}

// DeleteCollaborator removes the collaborator and its assignments.
func (r *Repo) DeleteCollaborator(ctx context.Context, id uuid.UUID) error {
	return deleteWhere(ctx, r.conn, "collaborators", sq.Eq{"id": id}, "collaborator", id.String())
}

func (r *Repo) SearchCollaborators(ctx context.Context, f repository.CollaboratorFilter, p repository.PageRequest) (repository.Page[models.Collaborator], error) {
	where := sq.And{}
	if f.Organization != "" {
		where = append(where, sq.Eq{"organization": f.Organization})
	}
	if f.Specialty != "" {
		where = append(where, sq.Eq{"specialty": f.Specialty})
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": string(*f.Status)})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "full_name", "email", "organization", "specialty", "bio"))
	}

	base := r.conn.Builder().Select().From("collaborators").Where(where)
	return page(ctx, r.conn, base, collaboratorColumns, "id", p, scanCollaborator, "collaborator")
}

// AssignCollaborator links a collaborator to a child. Assigning the same pair
// twice is a UniquenessError.
func (r *Repo) AssignCollaborator(ctx context.Context, childID, collaboratorID uuid.UUID) error {
	key := childID.String() + "/" + collaboratorID.String()
	q := r.conn.Builder().Insert("child_collaborators").
		Columns("child_id", "collaborator_id", "created_at").
		Values(childID, collaboratorID, models.NowMillis())
	if _, err := r.conn.ExecBuilder(ctx, q); err != nil {
		return r.conn.Translate("assign", "child_collaborator", key, err)
	}
	return nil
}

func (r *Repo) UnassignCollaborator(ctx context.Context, childID, collaboratorID uuid.UUID) error {
	return deleteWhere(ctx, r.conn, "child_collaborators",
		sq.Eq{"child_id": childID, "collaborator_id": collaboratorID},
		"child_collaborator", childID.String()+"/"+collaboratorID.String())
}

func (r *Repo) ListCollaboratorsForChild(ctx context.Context, childID uuid.UUID) ([]models.Collaborator, error) {
	q := r.conn.Builder().Select(prefixed("c", collaboratorColumns)...).
		From("collaborators c").
		Join("child_collaborators cc ON cc.collaborator_id = c.id").
		Where(sq.Eq{"cc.child_id": childID}).
		OrderBy("c.id")
	return list(ctx, r.conn, q, scanCollaborator, "collaborator")
}

// ListChildrenForCollaborator skips soft-deleted children.
func (r *Repo) ListChildrenForCollaborator(ctx context.Context, collaboratorID uuid.UUID) ([]models.Child, error) {
	q := r.conn.Builder().Select(prefixed("ch", childColumns)...).
		From("children ch").
		Join("child_collaborators cc ON cc.child_id = ch.id").
		Where(sq.And{sq.Eq{"cc.collaborator_id": collaboratorID}, sq.Eq{"ch.deleted_at": nil}}).
		OrderBy("ch.id")
	return list(ctx, r.conn, q, scanChild, "child")
}
