package relational

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var interventionColumns = []string{"id", "slug", "title", "content", "category", "keywords", "status", "age_min_months", "age_max_months", "created_at", "updated_at"}

func scanIntervention(s db.Scanner) (models.Intervention, error) {
	var (
		i      models.Intervention
		status string
	)
	err := s.Scan(&i.ID, &i.Slug, jsoncol.Col(&i.Title), jsoncol.Col(&i.Content), &i.Category, &i.Keywords, &status,
		&i.AgeMinMonths, &i.AgeMaxMonths, &i.CreatedAt, &i.UpdatedAt)
	i.Status = models.Status(status)
	return i, err
}

func interventionArgs(i *models.Intervention) (title, content *string, err error) {
	if err = i.Validate(); err != nil {
		return
	}
	if title, err = textCodec.Encode(i.Title); err != nil {
		return
	}
	content, err = textCodec.Encode(i.Content)
	return
}

func (r *Repo) CreateIntervention(ctx context.Context, i *models.Intervention) (int64, error) {
	if i == nil {
		return 0, fmt.Errorf("intervention is nil")
	}
	title, content, err := interventionArgs(i)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("interventions").Columns(interventionColumns[1:]...).
		Values(i.Slug, title, content, i.Category, i.Keywords, string(i.Status), i.AgeMinMonths, i.AgeMaxMonths, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "intervention", i.Slug)
	if err != nil {
		return 0, err
	}

	i.ID, i.CreatedAt, i.UpdatedAt = id, now, now
	return id, nil
}

func (r *Repo) GetIntervention(ctx context.Context, id int64) (*models.Intervention, error) {
	q := r.conn.Builder().Select(interventionColumns...).From("interventions").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanIntervention, "intervention", strconv.FormatInt(id, 10))
}

func (r *Repo) GetInterventionBySlug(ctx context.Context, slug string) (*models.Intervention, error) {
	q := r.conn.Builder().Select(interventionColumns...).From("interventions").Where(sq.Eq{"slug": slug})
	return getOne(ctx, r.conn, q, scanIntervention, "intervention", slug)
}

func (r *Repo) UpdateIntervention(ctx context.Context, i *models.Intervention) error {
	if i == nil {
		return fmt.Errorf("intervention is nil")
	}
	title, content, err := interventionArgs(i)
	if err != nil {
		return err
	}

	q := r.conn.Builder().Update("interventions").
		Set("slug", i.Slug).
		Set("title", title).
		Set("content", content).
		Set("category", i.Category).
		Set("keywords", i.Keywords).
		Set("status", string(i.Status)).
		Set("age_min_months", i.AgeMinMonths).
		Set("age_max_months", i.AgeMaxMonths).
		Where(sq.Eq{"id": i.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "intervention", strconv.FormatInt(i.ID, 10))
	if err != nil {
		return err
	}
	i.UpdatedAt = updated
	return nil
}

func (r *Repo) DeleteIntervention(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "interventions", sq.Eq{"id": id}, "intervention", strconv.FormatInt(id, 10))
}

func (r *Repo) SearchInterventions(ctx context.Context, f repository.InterventionFilter, p repository.PageRequest) (repository.Page[models.Intervention], error) {
	where := sq.And{}
	if f.Category != "" {
		where = append(where, sq.Eq{"category": f.Category})
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": string(*f.Status)})
	}
	if f.AgeMonths != nil {
		where = append(where, ageWithin(*f.AgeMonths))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "slug", "title", "content", "keywords"))
	}

	base := r.conn.Builder().Select().From("interventions").Where(where)
	return page(ctx, r.conn, base, interventionColumns, "id", p, scanIntervention, "intervention")
}
