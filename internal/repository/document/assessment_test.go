package document_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func assessmentDoc(id, code string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "code", Value: code},
		{Key: "title", Value: bson.D{{Key: "en", Value: "Early Start Denver Model"}, {Key: "vi", Value: "Mô hình Denver"}}},
		{Key: "status", Value: "ACTIVE"},
		{Key: "age_min_months", Value: int32(12)},
		{Key: "age_max_months", Value: int32(48)},
		{Key: "sections", Value: bson.A{
			bson.D{
				{Key: "key", Value: "communication"},
				{Key: "title", Value: bson.D{{Key: "en", Value: "Communication"}}},
				{Key: "items", Value: bson.A{
					bson.D{{Key: "key", Value: "c1"}, {Key: "kind", Value: "choice"}, {Key: "prompt", Value: bson.D{{Key: "en", Value: "Points"}}}},
					bson.D{{Key: "key", Value: "c2"}, {Key: "kind", Value: "choice"}, {Key: "prompt", Value: bson.D{{Key: "en", Value: "Waves"}}}},
				}},
			},
		}},
		{Key: "created_at", Value: int64(1_700_000_000_000)},
		{Key: "updated_at", Value: int64(1_700_000_000_000)},
	}
}

func TestAssessmentCRUD(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("create assigns id and audit", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		a := &models.Assessment{Code: "ESDM", Title: models.LocalizedText{"en": "ESDM"}, Status: models.StatusDraft, AgeMaxMonths: 48}
		id, err := repoFor(mt).CreateAssessment(ctx, a)
		require.NoError(mt, err)
		parsed, err := uuid.Parse(id)
		require.NoError(mt, err)
		assert.Equal(mt, uuid.Version(7), parsed.Version())
		assert.Equal(mt, a.CreatedAt, a.UpdatedAt)
		assert.NotZero(mt, a.CreatedAt)
	})

	mt.Run("get by code decodes the tree", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch, assessmentDoc("a1", "ESDM")))
		got, err := repoFor(mt).GetAssessmentByCode(ctx, "ESDM")
		require.NoError(mt, err)
		require.NotNil(mt, got)
		assert.Equal(mt, "a1", got.ID)
		assert.Equal(mt, "Mô hình Denver", got.Title.Get("vi"))
		assert.Equal(mt, 2, got.ItemCount())
		assert.Equal(mt, models.StatusActive, got.Status)
	})

	mt.Run("missing lookup is nil", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch))
		got, err := repoFor(mt).GetAssessment(ctx, "nope")
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("exists by code", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch, bson.D{{Key: "n", Value: int64(1)}}),
			mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch),
		)
		r := repoFor(mt)
		ok, err := r.ExistsAssessmentByCode(ctx, "ESDM")
		require.NoError(mt, err)
		assert.True(mt, ok)
		ok, err = r.ExistsAssessmentByCode(ctx, "OTHER")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("update returns stored audit", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "created_at", Value: int64(100)},
			{Key: "updated_at", Value: int64(201)},
		}}))
		a := &models.Assessment{ID: "a1", Code: "ESDM", Title: models.LocalizedText{"en": "ESDM v2"}, Status: models.StatusActive, AgeMaxMonths: 48,
			Audit: models.Audit{CreatedAt: 100, UpdatedAt: 200}}
		require.NoError(mt, repoFor(mt).UpdateAssessment(ctx, a))
		assert.Equal(mt, int64(100), a.CreatedAt)
		assert.Equal(mt, int64(201), a.UpdatedAt)
	})

	mt.Run("update of a missing document is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		a := &models.Assessment{ID: "gone", Code: "X", Title: models.LocalizedText{"en": "X"}, Status: models.StatusActive}
		assert.ErrorIs(mt, repoFor(mt).UpdateAssessment(ctx, a), repository.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}),
		)
		r := repoFor(mt)
		require.NoError(mt, r.DeleteAssessment(ctx, "a1"))
		assert.ErrorIs(mt, r.DeleteAssessment(ctx, "a1"), repository.ErrNotFound)
	})
}

func TestSearchAssessments(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("second page", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch, bson.D{{Key: "n", Value: int64(3)}}),
			mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch, assessmentDoc("a3", "M-CHAT")),
		)
		active := models.StatusActive
		months := 24
		p, err := repoFor(mt).SearchAssessments(ctx, repository.AssessmentFilter{Status: &active, AgeMonths: &months, Keyword: "denver (v2)"},
			repository.PageRequest{Number: 1, Size: 2})
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), p.TotalElements)
		assert.Equal(mt, 2, p.TotalPages)
		assert.True(mt, p.IsLast())
		require.Len(mt, p.Items, 1)
		assert.Equal(mt, "M-CHAT", p.Items[0].Code)
	})

	mt.Run("past the end skips the fetch", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "assessments"), mtest.FirstBatch, bson.D{{Key: "n", Value: int64(1)}}))
		p, err := repoFor(mt).SearchAssessments(ctx, repository.AssessmentFilter{}, repository.PageRequest{Number: 4, Size: 10})
		require.NoError(mt, err)
		assert.Empty(mt, p.Items)
		assert.Equal(mt, int64(1), p.TotalElements)
	})

	mt.Run("invalid page", func(mt *mtest.T) {
		_, err := repoFor(mt).SearchAssessments(ctx, repository.AssessmentFilter{}, repository.PageRequest{Size: -1})
		assert.ErrorIs(mt, err, repository.ErrValidation)
	})
}
