// Package app assembles every repository over a routing registry so that a
// missing or disabled store fails the process at startup.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/cddrecords/internal/repository/document"
	"github.com/garnizeh/cddrecords/internal/repository/relational"
	"github.com/garnizeh/cddrecords/internal/routing"
	"github.com/garnizeh/cddrecords/internal/schemas"
)

// Repositories holds the store-bound implementations of the repository
// contracts. Legacy and Document are nil when their group is not part of the
// deployment.
type Repositories struct {
	Current  *relational.Repo
	Legacy   *relational.LegacyRepo
	Document *document.Repo
	Schemas  *schemas.Loader
}

// Options selects which store families the process needs.
type Options struct {
	Legacy    bool
	Documents bool
}

// Build constructs the repositories named by opts. A requested family whose
// store is unbound or disabled is an error.
func Build(ctx context.Context, reg *routing.Registry, opts Options, logger *slog.Logger) (*Repositories, error) {
	plain, err := relational.NewCurrent(reg, logger)
	if err != nil {
		return nil, fmt.Errorf("current repositories: %w", err)
	}
	loader, err := schemas.NewLoader(ctx, plain)
	if err != nil {
		return nil, fmt.Errorf("attribute schemas: %w", err)
	}
	current, err := relational.NewCurrent(reg, logger, relational.WithValidator(loader))
	if err != nil {
		return nil, fmt.Errorf("current repositories: %w", err)
	}

	out := &Repositories{Current: current, Schemas: loader}

	if opts.Legacy {
		if out.Legacy, err = relational.NewLegacyFromRegistry(reg, logger); err != nil {
			return nil, fmt.Errorf("legacy repositories: %w", err)
		}
	}
	if opts.Documents {
		if out.Document, err = document.New(reg, logger); err != nil {
			return nil, fmt.Errorf("document repositories: %w", err)
		}
	}

	if logger != nil {
		logger.Info("repositories ready",
			slog.Bool("legacy", out.Legacy != nil),
			slog.Bool("documents", out.Document != nil),
		)
	}
	return out, nil
}
