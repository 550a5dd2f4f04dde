package relational

import (
	"context"
	"database/sql"
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

var questionColumns = []string{"id", "test_id", "code", "domain", "question", "options", "age_months", "position", "created_at", "updated_at"}

func scanQuestion(s db.Scanner) (models.TrackingQuestion, error) {
	var (
		q      models.TrackingQuestion
		testID sql.NullInt64
		domain string
	)
	err := s.Scan(&q.ID, &testID, &q.Code, &domain, jsoncol.Col(&q.Question), jsoncol.Col(&q.Options),
		&q.AgeMonths, &q.Position, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	q.Domain = models.QuestionDomain(domain)
	if testID.Valid {
		v := testID.Int64
		q.TestID = &v
	}
	return q, nil
}

func (r *Repo) questionArgs(ctx context.Context, q *models.TrackingQuestion) (question, options *string, err error) {
	if err = q.Validate(); err != nil {
		return
	}
	if err = r.validate(ctx, schemas.QuestionOptions, "tracking_question", "options", q.Options); err != nil {
		return
	}
	if question, err = textCodec.Encode(q.Question); err != nil {
		return
	}
	options, err = optionsCodec.Encode(q.Options)
	return
}

func (r *Repo) CreateQuestion(ctx context.Context, q *models.TrackingQuestion) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("tracking question is nil")
	}
	question, options, err := r.questionArgs(ctx, q)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	ins := r.conn.Builder().Insert("tracking_questions").Columns(questionColumns[1:]...).
		Values(q.TestID, q.Code, string(q.Domain), question, options, q.AgeMonths, q.Position, now, now)
	id, err := insertReturningID(ctx, r.conn, ins, "tracking_question", q.Code)
	if err != nil {
		return 0, err
	}

	q.ID, q.CreatedAt, q.UpdatedAt = id, now, now
	return id, nil
}

func (r *Repo) GetQuestion(ctx context.Context, id int64) (*models.TrackingQuestion, error) {
	q := r.conn.Builder().Select(questionColumns...).From("tracking_questions").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanQuestion, "tracking_question", strconv.FormatInt(id, 10))
}

func (r *Repo) GetQuestionByCode(ctx context.Context, code string) (*models.TrackingQuestion, error) {
	q := r.conn.Builder().Select(questionColumns...).From("tracking_questions").Where(sq.Eq{"code": code})
	return getOne(ctx, r.conn, q, scanQuestion, "tracking_question", code)
}

func (r *Repo) UpdateQuestion(ctx context.Context, q *models.TrackingQuestion) error {
	if q == nil {
		return fmt.Errorf("tracking question is nil")
	}
	question, options, err := r.questionArgs(ctx, q)
	if err != nil {
		return err
	}

	upd := r.conn.Builder().Update("tracking_questions").
		Set("test_id", q.TestID).
		Set("code", q.Code).
		Set("domain", string(q.Domain)).
		Set("question", question).
		Set("options", options).
		Set("age_months", q.AgeMonths).
		Set("position", q.Position).
		Where(sq.Eq{"id": q.ID})
	updated, err := updateReturningTouch(ctx, r.conn, upd, "tracking_question", strconv.FormatInt(q.ID, 10))
	if err != nil {
		return err
	}
	q.UpdatedAt = updated
	return nil
}

func (r *Repo) DeleteQuestion(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "tracking_questions", sq.Eq{"id": id}, "tracking_question", strconv.FormatInt(id, 10))
}

// ListQuestionsByTest returns the questions of a test in display order.
func (r *Repo) ListQuestionsByTest(ctx context.Context, testID int64) ([]models.TrackingQuestion, error) {
	q := r.conn.Builder().Select(questionColumns...).From("tracking_questions").
		Where(sq.Eq{"test_id": testID}).
		OrderBy("position", "id")
	return list(ctx, r.conn, q, scanQuestion, "tracking_question")
}

func (r *Repo) SearchQuestions(ctx context.Context, f repository.QuestionFilter, p repository.PageRequest) (repository.Page[models.TrackingQuestion], error) {
	where := sq.And{}
	if f.TestID != nil {
		where = append(where, sq.Eq{"test_id": *f.TestID})
	}
	if f.Domain != nil {
		where = append(where, sq.Eq{"domain": string(*f.Domain)})
	}
	if f.AgeMonths != nil {
		where = append(where, sq.Eq{"age_months": *f.AgeMonths})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "code", "question"))
	}

	base := r.conn.Builder().Select().From("tracking_questions").Where(where)
	return page(ctx, r.conn, base, questionColumns, "id", p, scanQuestion, "tracking_question")
}
