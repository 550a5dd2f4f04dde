// Package routing binds each store group to its connection once at startup.
// Repositories receive the Registry explicitly; nothing is registered
// globally and there is no failover between groups.
package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	dbfs "github.com/garnizeh/cddrecords/db"
	"github.com/garnizeh/cddrecords/internal/config"
	"github.com/garnizeh/cddrecords/internal/db"
)

// Group names a family of entities that share one physical store.
type Group string

const (
	GroupCurrent  Group = config.GroupCurrent
	GroupLegacy   Group = config.GroupLegacy
	GroupDocument Group = "document"
)

var (
	// ErrGroupUnbound is returned when a group is not part of the active profile.
	ErrGroupUnbound = errors.New("routing: store group is not bound")
	// ErrDocumentStoreDisabled is returned by every attempt to reach the
	// document store while it is disabled.
	ErrDocumentStoreDisabled = errors.New("routing: document store is disabled")
)

type Registry struct {
	primary    Group
	relational map[Group]*db.DB
	client     *mongo.Client
	document   *mongo.Database
	logger     *slog.Logger
}

// NewRegistry returns an empty registry whose primary store is the given
// relational group. Bind stores with BindRelational and BindDocument.
func NewRegistry(primary Group, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		primary:    primary,
		relational: make(map[Group]*db.DB),
		logger:     logger,
	}
}

// BindRelational attaches a relational store to a group.
func (r *Registry) BindRelational(g Group, d *db.DB) {
	r.relational[g] = d
	r.logger.Info("store bound", slog.String("group", string(g)), slog.String("driver", string(d.Driver())))
}

// BindDocument attaches the document database. client may be nil when the
// caller keeps ownership of the connection.
func (r *Registry) BindDocument(client *mongo.Client, database *mongo.Database) {
	r.client = client
	r.document = database
	r.logger.Info("store bound", slog.String("group", string(GroupDocument)), slog.String("database", database.Name()))
}

// Open connects every store the configuration binds and pings it. A store
// that cannot be reached fails startup with an error naming its group.
func Open(ctx context.Context, cfg *config.Config, metrics *db.Metrics, logger *slog.Logger) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := NewRegistry(Group(cfg.Primary), logger)

	groups := []struct {
		group Group
		store config.DBConfig
	}{{GroupCurrent, cfg.Stores.Current}}
	if cfg.LegacyBound() {
		groups = append(groups, struct {
			group Group
			store config.DBConfig
		}{GroupLegacy, cfg.Stores.Legacy})
	}

	for _, g := range groups {
		d, err := db.New(ctx, db.Options{
			Name:            string(g.group),
			Driver:          db.Driver(g.store.Driver),
			DSN:             g.store.DSN,
			MaxOpenConns:    g.store.MaxOpenConns,
			MaxIdleConns:    g.store.MaxIdleConns,
			ConnMaxLifetime: g.store.ConnMaxLifetime,
			Metrics:         metrics,
		}, r.logger)
		if err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("open %s store: %w", g.group, err)
		}
		r.BindRelational(g.group, d)
	}

	if !cfg.DocumentEnabled() {
		r.logger.Info("document store disabled")
		return r, nil
	}

	doc := cfg.Stores.Document
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(doc.URI).SetTimeout(doc.Timeout))
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("open %s store: %w", GroupDocument, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		_ = r.Close(ctx)
		return nil, fmt.Errorf("ping %s store: %w", GroupDocument, err)
	}
	r.BindDocument(client, client.Database(doc.Database))

	return r, nil
}

// Relational returns the store bound to g.
func (r *Registry) Relational(g Group) (*db.DB, error) {
	d, ok := r.relational[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupUnbound, g)
	}
	return d, nil
}

// Document returns the document database or ErrDocumentStoreDisabled.
func (r *Registry) Document() (*mongo.Database, error) {
	if r.document == nil {
		return nil, ErrDocumentStoreDisabled
	}
	return r.document, nil
}

// DocumentEnabled reports whether a document database is bound.
func (r *Registry) DocumentEnabled() bool { return r.document != nil }

// Primary returns the primary relational store.
func (r *Registry) Primary() (*db.DB, error) {
	return r.Relational(r.primary)
}

// PrimaryGroup returns the group configured as primary.
func (r *Registry) PrimaryGroup() Group { return r.primary }

// Groups lists the bound groups in a stable order.
func (r *Registry) Groups() []Group {
	out := make([]Group, 0, len(r.relational)+1)
	for g := range r.relational {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if r.document != nil {
		out = append(out, GroupDocument)
	}
	return out
}

// PingPrimary checks the primary relational store.
func (r *Registry) PingPrimary(ctx context.Context) error {
	d, err := r.Primary()
	if err != nil {
		return err
	}
	return d.Ping(ctx)
}

// Ping checks every bound group independently. The result maps each group to
// its ping error, nil when reachable.
func (r *Registry) Ping(ctx context.Context) map[Group]error {
	out := make(map[Group]error, len(r.relational)+1)
	for g, d := range r.relational {
		out[g] = d.Ping(ctx)
	}
	if r.document != nil {
		out[GroupDocument] = r.document.Client().Ping(ctx, readpref.Primary())
	}
	return out
}

// Migrate applies the embedded migrations of each bound relational group and
// seeds the attribute schemas into the current store.
func (r *Registry) Migrate(ctx context.Context) error {
	for _, g := range r.Groups() {
		d, ok := r.relational[g]
		if !ok {
			continue
		}
		if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.MigrationDir(string(d.Driver()), string(g))); err != nil {
			return fmt.Errorf("migrate %s store: %w", g, err)
		}
		if g == GroupCurrent {
			if err := db.SeedSchemas(ctx, d, dbfs.SeedFiles, dbfs.SeedDir); err != nil {
				return fmt.Errorf("seed %s store: %w", g, err)
			}
		}
	}
	return nil
}

// Close releases every connection the registry owns.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for g, d := range r.relational {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", g, err))
		}
	}
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", GroupDocument, err))
		}
	}
	return errors.Join(errs...)
}
