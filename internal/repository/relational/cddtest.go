package relational

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/schemas"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var testColumns = []string{"id", "code", "name", "description", "category", "status", "age_min_months", "age_max_months", "duration_minutes", "scoring_criteria", "created_at", "updated_at"}

func scanTest(s db.Scanner) (models.CDDTest, error) {
	var (
		t      models.CDDTest
		status string
	)
	err := s.Scan(&t.ID, &t.Code, jsoncol.Col(&t.Name), jsoncol.Col(&t.Description), &t.Category, &status,
		&t.AgeMinMonths, &t.AgeMaxMonths, &t.DurationMinutes, jsoncol.Col(&t.ScoringCriteria), &t.CreatedAt, &t.UpdatedAt)
	t.Status = models.Status(status)
	return t, err
}

// testArgs encodes the JSON columns of t in column order.
func testArgs(t *models.CDDTest) (name, description, criteria *string, err error) {
	if name, err = textCodec.Encode(t.Name); err != nil {
		return
	}
	if description, err = textCodec.Encode(t.Description); err != nil {
		return
	}
	criteria, err = attrCodec.Encode(t.ScoringCriteria)
	return
}

func (r *Repo) CreateTest(ctx context.Context, t *models.CDDTest) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("cdd test is nil")
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if err := r.validate(ctx, schemas.ScoringCriteria, "cdd_test", "scoring_criteria", t.ScoringCriteria); err != nil {
		return 0, err
	}
	name, description, criteria, err := testArgs(t)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	q := r.conn.Builder().Insert("cdd_tests").Columns(testColumns[1:]...).
		Values(t.Code, name, description, t.Category, string(t.Status), t.AgeMinMonths, t.AgeMaxMonths, t.DurationMinutes, criteria, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "cdd_test", t.Code)
	if err != nil {
		return 0, err
	}

	t.ID, t.CreatedAt, t.UpdatedAt = id, now, now
	return id, nil
}

func (r *Repo) GetTest(ctx context.Context, id int64) (*models.CDDTest, error) {
	q := r.conn.Builder().Select(testColumns...).From("cdd_tests").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanTest, "cdd_test", strconv.FormatInt(id, 10))
}

func (r *Repo) GetTestByCode(ctx context.Context, code string) (*models.CDDTest, error) {
	q := r.conn.Builder().Select(testColumns...).From("cdd_tests").Where(sq.Eq{"code": code})
	return getOne(ctx, r.conn, q, scanTest, "cdd_test", code)
}

func (r *Repo) ExistsTestByCode(ctx context.Context, code string) (bool, error) {
	return exists(ctx, r.conn, "cdd_tests", sq.Eq{"code": code}, "cdd_test", code)
}

func (r *Repo) UpdateTest(ctx context.Context, t *models.CDDTest) error {
	if t == nil {
		return fmt.Errorf("cdd test is nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.validate(ctx, schemas.ScoringCriteria, "cdd_test", "scoring_criteria", t.ScoringCriteria); err != nil {
		return err
	}
	name, description, criteria, err := testArgs(t)
	if err != nil {
		return err
	}

	q := r.conn.Builder().Update("cdd_tests").
		Set("code", t.Code).
		Set("name", name).
		Set("description", description).
		Set("category", t.Category).
		Set("status", string(t.Status)).
		Set("age_min_months", t.AgeMinMonths).
		Set("age_max_months", t.AgeMaxMonths).
		Set("duration_minutes", t.DurationMinutes).
		Set("scoring_criteria", criteria).
		Where(sq.Eq{"id": t.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "cdd_test", strconv.FormatInt(t.ID, 10))
	if err != nil {
		return err
	}
	t.UpdatedAt = updated
	return nil
}

// DeleteTest fails with a constraint StorageError while results or questions
// reference the test.
func (r *Repo) DeleteTest(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "cdd_tests", sq.Eq{"id": id}, "cdd_test", strconv.FormatInt(id, 10))
}

func (r *Repo) SearchTests(ctx context.Context, f repository.TestFilter, p repository.PageRequest) (repository.Page[models.CDDTest], error) {
	where := sq.And{}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": string(*f.Status)})
	}
	if f.Category != "" {
		where = append(where, sq.Eq{"category": f.Category})
	}
	if f.AgeMonths != nil {
		where = append(where, ageWithin(*f.AgeMonths))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "code", "name", "description"))
	}

	base := r.conn.Builder().Select().From("cdd_tests").Where(where)
	return page(ctx, r.conn, base, testColumns, "id", p, scanTest, "cdd_test")
}

func (r *Repo) CountTestsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	return countBy[models.Status](ctx, r.conn, "cdd_tests", "status", nil, "cdd_test")
}
