// Package document implements the repository contracts of the document store
// on MongoDB. Documents keep their nested shape; ids are UUIDv7 strings and
// audit fields are Unix milliseconds, like the relational stores.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/garnizeh/cddrecords/internal/routing"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

const (
	assessmentsColl    = "assessments"
	reportsColl        = "progress_reports"
	questionnairesColl = "disorder_questionnaires"
)

// Languages whose translations are searched by keyword.
var keywordLanguages = []string{"vi", "en"}

type Repo struct {
	db     *mongo.Database
	logger *slog.Logger
}

var (
	_ repository.AssessmentRepo     = (*Repo)(nil)
	_ repository.ProgressReportRepo = (*Repo)(nil)
	_ repository.QuestionnaireRepo  = (*Repo)(nil)
)

// New binds a Repo to the document store of the registry. It fails with
// routing.ErrDocumentStoreDisabled when the store is switched off.
func New(reg *routing.Registry, logger *slog.Logger) (*Repo, error) {
	d, err := reg.Document()
	if err != nil {
		return nil, err
	}
	return NewWithDatabase(d, logger), nil
}

func NewWithDatabase(d *mongo.Database, logger *slog.Logger) *Repo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Repo{db: d, logger: logger.With(slog.String("store", string(routing.GroupDocument)))}
}

// EnsureIndexes creates the unique natural-key indexes and the lookup index
// on report owners. It is idempotent.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{assessmentsColl, mongo.IndexModel{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_code")}},
		{questionnairesColl, mongo.IndexModel{Keys: bson.D{{Key: "disorder_code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_disorder_code")}},
		{reportsColl, mongo.IndexModel{Keys: bson.D{{Key: "child_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("child_created")}},
	}
	for _, s := range specs {
		if _, err := r.db.Collection(s.coll).Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("ensure index on %s: %w", s.coll, err)
		}
	}
	r.logger.Info("document indexes ensured")
	return nil
}

// translate maps a driver error onto the repository error taxonomy and logs
// it once.
func (r *Repo) translate(op, entity, key string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		r.logger.Warn("unique index violated",
			slog.String("op", op),
			slog.String("entity", entity),
			slog.String("key", key),
		)
		return &repository.UniquenessError{Entity: entity, Key: key, Err: err}
	}

	se := &repository.StorageError{Op: op, Entity: entity, Key: key, Kind: Classify(err), Err: err}
	r.logger.Error("storage failure",
		slog.String("op", op),
		slog.String("entity", entity),
		slog.String("key", key),
		slog.String("kind", string(se.Kind)),
		slog.Any("err", err),
	)
	return se
}

// Classify assigns a StorageKind to a driver error. A canceled context is
// not a timeout.
func Classify(err error) repository.StorageKind {
	switch {
	case errors.Is(err, context.Canceled):
		return repository.KindUnknown
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return repository.KindTimeout
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return repository.KindConnectivity
	}
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		return repository.KindConstraint
	}
	return repository.KindUnknown
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// findOne decodes the first document matching filter into a new T, or
// returns nil when none matches.
func findOne[T any](ctx context.Context, r *Repo, coll string, filter any, entity, key string, opts ...*options.FindOneOptions) (*T, error) {
	var v T
	err := r.db.Collection(coll).FindOne(ctx, filter, opts...).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, r.translate("get", entity, key, err)
	}
	return &v, nil
}

// findAll decodes every document matching filter. An empty result is an
// empty slice.
func findAll[T any](ctx context.Context, r *Repo, coll string, filter any, entity string, opts ...*options.FindOptions) ([]T, error) {
	cur, err := r.db.Collection(coll).Find(ctx, filter, opts...)
	if err != nil {
		return nil, r.translate("list", entity, "", err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.translate("list", entity, "", err)
	}
	return out, nil
}

// page counts the documents matching filter and fetches the requested slice
// of them in sort order.
func page[T any](ctx context.Context, r *Repo, coll string, filter bson.D, sort bson.D, p repository.PageRequest, entity string) (repository.Page[T], error) {
	if err := p.Validate(); err != nil {
		return repository.Page[T]{}, err
	}

	total, err := r.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		return repository.Page[T]{}, r.translate("search", entity, "", err)
	}

	items := []T{}
	if p.Offset() < total {
		opts := options.Find().SetSort(sort).SetSkip(p.Offset()).SetLimit(int64(p.Size))
		if items, err = findAll[T](ctx, r, coll, filter, entity, opts); err != nil {
			return repository.Page[T]{}, err
		}
	}
	return repository.NewPage(items, p, total), nil
}

func (r *Repo) exists(ctx context.Context, coll string, filter bson.D, entity, key string) (bool, error) {
	n, err := r.db.Collection(coll).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, r.translate("exists", entity, key, err)
	}
	return n > 0, nil
}

func (r *Repo) deleteByID(ctx context.Context, coll, id, entity string) error {
	res, err := r.db.Collection(coll).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return r.translate("delete", entity, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s %q: %w", entity, id, repository.ErrNotFound)
	}
	return nil
}

// replace stores doc over the document with the same id, keeping its
// created_at and moving updated_at strictly forward. It returns the stored
// audit fields. No matching document is ErrNotFound.
func (r *Repo) replace(ctx context.Context, coll, id string, doc any, entity, key string) (models.Audit, error) {
	now := models.NowMillis()
	pipeline := mongo.Pipeline{
		{{Key: "$replaceWith", Value: bson.D{{Key: "$mergeObjects", Value: bson.A{
			bson.D{{Key: "$literal", Value: doc}},
			bson.D{
				{Key: "created_at", Value: "$created_at"},
				{Key: "updated_at", Value: touch(now)},
			},
		}}}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "created_at", Value: 1}, {Key: "updated_at", Value: 1}})

	var audit models.Audit
	err := r.db.Collection(coll).FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, pipeline, opts).Decode(&audit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return audit, fmt.Errorf("update %s %q: %w", entity, key, repository.ErrNotFound)
	}
	if err != nil {
		return audit, r.translate("update", entity, key, err)
	}
	return audit, nil
}

// touch is now, or one past the stored updated_at when the clock has not
// advanced.
func touch(now int64) bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$gt", Value: bson.A{now, "$updated_at"}}},
		now,
		bson.D{{Key: "$add", Value: bson.A{"$updated_at", 1}}},
	}}}
}

// keyword matches kw case-insensitively as a literal substring of any of
// fields. LocalizedText fields are expanded to their searched translations.
func keyword(kw string, plain []string, localized []string) bson.E {
	re := ciRegex(kw)
	or := bson.A{}
	for _, f := range plain {
		or = append(or, bson.D{{Key: f, Value: re}})
	}
	for _, f := range localized {
		for _, lang := range keywordLanguages {
			or = append(or, bson.D{{Key: f + "." + lang, Value: re}})
		}
	}
	return bson.E{Key: "$or", Value: or}
}

func ciRegex(kw string) bson.D {
	return bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(strings.TrimSpace(kw))},
		{Key: "$options", Value: "i"},
	}
}

// ageWithin keeps documents whose [min, max] age range contains months.
func ageWithin(months int) bson.D {
	return bson.D{
		{Key: "age_min_months", Value: bson.D{{Key: "$lte", Value: months}}},
		{Key: "age_max_months", Value: bson.D{{Key: "$gte", Value: months}}},
	}
}
