package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var resultColumns = []string{"id", "child_id", "test_id", "score", "risk_level", "answers", "notes", "assessed_at", "created_at", "updated_at"}

func scanResult(s db.Scanner) (models.TestResult, error) {
	var (
		res  models.TestResult
		risk string
	)
	err := s.Scan(&res.ID, &res.ChildID, &res.TestID, &res.Score, &risk, jsoncol.Col(&res.Answers),
		&res.Notes, &res.AssessedAt, &res.CreatedAt, &res.UpdatedAt)
	res.RiskLevel = models.RiskLevel(risk)
	return res, err
}

// CreateResult defaults AssessedAt to the creation time. The child and the
// test must exist.
func (r *Repo) CreateResult(ctx context.Context, res *models.TestResult) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("test result is nil")
	}
	if err := res.Validate(); err != nil {
		return 0, err
	}
	answers, err := attrCodec.Encode(res.Answers)
	if err != nil {
		return 0, err
	}

	now := models.NowMillis()
	if res.AssessedAt == 0 {
		res.AssessedAt = now
	}
	q := r.conn.Builder().Insert("test_results").Columns(resultColumns[1:]...).
		Values(res.ChildID, res.TestID, res.Score, string(res.RiskLevel), answers, res.Notes, res.AssessedAt, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "test_result", res.ChildID.String())
	if err != nil {
		return 0, err
	}

	res.ID, res.CreatedAt, res.UpdatedAt = id, now, now
	return id, nil
}

func (r *Repo) GetResult(ctx context.Context, id int64) (*models.TestResult, error) {
	q := r.conn.Builder().Select(resultColumns...).From("test_results").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanResult, "test_result", strconv.FormatInt(id, 10))
}

func (r *Repo) DeleteResult(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "test_results", sq.Eq{"id": id}, "test_result", strconv.FormatInt(id, 10))
}

// ListResultsByChild pages the results of a child, newest assessment first.
func (r *Repo) ListResultsByChild(ctx context.Context, childID uuid.UUID, p repository.PageRequest) (repository.Page[models.TestResult], error) {
	base := r.conn.Builder().Select().From("test_results").Where(sq.Eq{"child_id": childID})
	return page(ctx, r.conn, base, resultColumns, "assessed_at DESC, id DESC", p, scanResult, "test_result")
}

func (r *Repo) CountResultsByTest(ctx context.Context, testID int64) (int64, error) {
	return count(ctx, r.conn, "test_results", sq.Eq{"test_id": testID}, "test_result", strconv.FormatInt(testID, 10))
}

func (r *Repo) AverageScoreByTest(ctx context.Context, testID int64) (*float64, error) {
	var avg sql.NullFloat64
	q := r.conn.Builder().Select("AVG(score)").From("test_results").Where(sq.Eq{"test_id": testID})
	if err := r.conn.QueryRowBuilder(ctx, q).Scan(&avg); err != nil {
		return nil, r.conn.Translate("average", "test_result", strconv.FormatInt(testID, 10), err)
	}
	if !avg.Valid {
		return nil, nil
	}
	v := avg.Float64
	return &v, nil
}

func (r *Repo) CountResultsByRiskLevel(ctx context.Context, testID *int64) (map[models.RiskLevel]int64, error) {
	var where sq.Sqlizer
	if testID != nil {
		where = sq.Eq{"test_id": *testID}
	}
	return countBy[models.RiskLevel](ctx, r.conn, "test_results", "risk_level", where, "test_result")
}
