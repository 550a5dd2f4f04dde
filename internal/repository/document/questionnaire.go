package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/garnizeh/cddrecords/pkg/models"
)

func (r *Repo) CreateQuestionnaire(ctx context.Context, q *models.DisorderQuestionnaire) (string, error) {
	if q == nil {
		return "", fmt.Errorf("disorder questionnaire is nil")
	}
	if err := q.Validate(); err != nil {
		return "", err
	}
	if q.ID == "" {
		q.ID = newID()
	}
	now := models.NowMillis()
	q.CreatedAt, q.UpdatedAt = now, now

	if _, err := r.db.Collection(questionnairesColl).InsertOne(ctx, q); err != nil {
		return "", r.translate("create", "disorder_questionnaire", q.DisorderCode, err)
	}
	return q.ID, nil
}

func (r *Repo) GetQuestionnaire(ctx context.Context, id string) (*models.DisorderQuestionnaire, error) {
	return findOne[models.DisorderQuestionnaire](ctx, r, questionnairesColl, bson.D{{Key: "_id", Value: id}}, "disorder_questionnaire", id)
}

func (r *Repo) GetQuestionnaireByDisorderCode(ctx context.Context, code string) (*models.DisorderQuestionnaire, error) {
	return findOne[models.DisorderQuestionnaire](ctx, r, questionnairesColl, bson.D{{Key: "disorder_code", Value: code}}, "disorder_questionnaire", code)
}

func (r *Repo) UpdateQuestionnaire(ctx context.Context, q *models.DisorderQuestionnaire) error {
	if q == nil {
		return fmt.Errorf("disorder questionnaire is nil")
	}
	if err := q.Validate(); err != nil {
		return err
	}
	audit, err := r.replace(ctx, questionnairesColl, q.ID, q, "disorder_questionnaire", q.ID)
	if err != nil {
		return err
	}
	q.Audit = audit
	return nil
}

func (r *Repo) DeleteQuestionnaire(ctx context.Context, id string) error {
	return r.deleteByID(ctx, questionnairesColl, id, "disorder_questionnaire")
}

// ListQuestionnaires returns every questionnaire, or those in status, ordered
// by disorder code.
func (r *Repo) ListQuestionnaires(ctx context.Context, status *models.Status) ([]models.DisorderQuestionnaire, error) {
	filter := bson.D{}
	if status != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*status)})
	}
	opts := options.Find().SetSort(bson.D{{Key: "disorder_code", Value: 1}})
	return findAll[models.DisorderQuestionnaire](ctx, r, questionnairesColl, filter, "disorder_questionnaire", opts)
}
