// Package schemas validates structured attributes against the JSON Schemas
// stored in the attribute_schemas table.
package schemas

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// Schema names bound to structured attribute fields.
const (
	ChildAttributes = "child_attributes"
	ScoringCriteria = "scoring_criteria"
	QuestionOptions = "question_options"
	Certifications  = "certifications"
)

// Loader loads and caches compiled JSON schemas from the repository.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	// initial load
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns the compiled schema registered under name.
func (l *Loader) GetSchema(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()

	return s, ok
}

// Reload loads all schemas from the store and compiles them.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(r.SchemaJSON, rs); err != nil {
			return fmt.Errorf("compile schema %s@%s: %w", r.Name, r.Version, err)
		}

		newCache[r.Name] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// ValidateAttribute checks value against the schema registered under name.
// Nil values and names without a registered schema are accepted. The first
// schema violation is reported as a ValidationError on entity.field; a value
// that cannot be encoded is a SerializationError.
func (l *Loader) ValidateAttribute(ctx context.Context, name, entity, field string, value any) error {
	if value == nil {
		return nil
	}
	s, ok := l.GetSchema(name)
	if !ok {
		return nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return &jsoncol.SerializationError{Op: "encode", Type: fmt.Sprintf("%T", value), Err: err}
	}
	if string(b) == "null" {
		return nil
	}

	keyErrs, err := s.ValidateBytes(ctx, b)
	if err != nil {
		return &models.ValidationError{Entity: entity, Field: field, Reason: err.Error()}
	}
	if len(keyErrs) > 0 {
		reason := keyErrs[0].Message
		if p := keyErrs[0].PropertyPath; p != "" && p != "/" {
			reason = p + ": " + reason
		}
		return &models.ValidationError{Entity: entity, Field: field, Reason: reason}
	}
	return nil
}
