package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// Reports are listed newest first.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *Repo) CreateReport(ctx context.Context, rep *models.ProgressReport) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("progress report is nil")
	}
	if err := rep.Validate(); err != nil {
		return "", err
	}
	if rep.ID == "" {
		rep.ID = newID()
	}
	now := models.NowMillis()
	rep.CreatedAt, rep.UpdatedAt = now, now

	if _, err := r.db.Collection(reportsColl).InsertOne(ctx, rep); err != nil {
		return "", r.translate("create", "progress_report", rep.ID, err)
	}
	return rep.ID, nil
}

func (r *Repo) GetReport(ctx context.Context, id string) (*models.ProgressReport, error) {
	return findOne[models.ProgressReport](ctx, r, reportsColl, bson.D{{Key: "_id", Value: id}}, "progress_report", id)
}

func (r *Repo) DeleteReport(ctx context.Context, id string) error {
	return r.deleteByID(ctx, reportsColl, id, "progress_report")
}

func (r *Repo) ListReportsByChild(ctx context.Context, childID string, p repository.PageRequest) (repository.Page[models.ProgressReport], error) {
	filter := bson.D{{Key: "child_id", Value: childID}}
	return page[models.ProgressReport](ctx, r, reportsColl, filter, newestFirst, p, "progress_report")
}

func (r *Repo) LatestReportForChild(ctx context.Context, childID string) (*models.ProgressReport, error) {
	return findOne[models.ProgressReport](ctx, r, reportsColl, bson.D{{Key: "child_id", Value: childID}},
		"progress_report", childID, options.FindOne().SetSort(newestFirst))
}

func (r *Repo) AverageScoreForChild(ctx context.Context, childID string) (*float64, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "child_id", Value: childID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$overall_score"}}},
		}}},
	}
	cur, err := r.db.Collection(reportsColl).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, r.translate("average", "progress_report", childID, err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, r.translate("average", "progress_report", childID, err)
		}
		return nil, nil
	}
	var out struct {
		Avg *float64 `bson:"avg"`
	}
	if err := cur.Decode(&out); err != nil {
		return nil, r.translate("average", "progress_report", childID, err)
	}
	return out.Avg, nil
}
