package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func (r *Repo) CreateAssessment(ctx context.Context, a *models.Assessment) (string, error) {
	if a == nil {
		return "", fmt.Errorf("assessment is nil")
	}
	if err := a.Validate(); err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = newID()
	}
	now := models.NowMillis()
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := r.db.Collection(assessmentsColl).InsertOne(ctx, a); err != nil {
		return "", r.translate("create", "assessment", a.Code, err)
	}
	return a.ID, nil
}

func (r *Repo) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	return findOne[models.Assessment](ctx, r, assessmentsColl, bson.D{{Key: "_id", Value: id}}, "assessment", id)
}

func (r *Repo) GetAssessmentByCode(ctx context.Context, code string) (*models.Assessment, error) {
	return findOne[models.Assessment](ctx, r, assessmentsColl, bson.D{{Key: "code", Value: code}}, "assessment", code)
}

func (r *Repo) ExistsAssessmentByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, assessmentsColl, bson.D{{Key: "code", Value: code}}, "assessment", code)
}

// UpdateAssessment replaces the stored document, sections included.
func (r *Repo) UpdateAssessment(ctx context.Context, a *models.Assessment) error {
	if a == nil {
		return fmt.Errorf("assessment is nil")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	audit, err := r.replace(ctx, assessmentsColl, a.ID, a, "assessment", a.ID)
	if err != nil {
		return err
	}
	a.Audit = audit
	return nil
}

func (r *Repo) DeleteAssessment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, assessmentsColl, id, "assessment")
}

func (r *Repo) SearchAssessments(ctx context.Context, f repository.AssessmentFilter, p repository.PageRequest) (repository.Page[models.Assessment], error) {
	filter := bson.D{}
	if f.Status != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*f.Status)})
	}
	if f.AgeMonths != nil {
		filter = append(filter, ageWithin(*f.AgeMonths)...)
	}
	if f.Keyword != "" {
		filter = append(filter, keyword(f.Keyword, []string{"code"}, []string{"title", "description"}))
	}
	return page[models.Assessment](ctx, r, assessmentsColl, filter, bson.D{{Key: "_id", Value: 1}}, p, "assessment")
}
