// Package mock provides in-memory repository doubles for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Schemas *SchemaRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Schemas: NewSchemaRepo(),
	}
}

// SchemaRepo keeps attribute schemas in memory. ListErr, when set, is
// returned by ListSchemas.
type SchemaRepo struct {
	mu      sync.Mutex
	nextID  int64
	schemas map[string]models.AttributeSchema
	ListErr error
}

var _ repository.SchemaRepo = (*SchemaRepo)(nil)

func NewSchemaRepo() *SchemaRepo {
	return &SchemaRepo{schemas: make(map[string]models.AttributeSchema)}
}

func (m *SchemaRepo) UpsertSchema(ctx context.Context, s *models.AttributeSchema) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := models.NowMillis()
	if prev, ok := m.schemas[s.Name]; ok {
		s.ID, s.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		m.nextID++
		s.ID, s.CreatedAt = m.nextID, now
	}
	s.UpdatedAt = now
	m.schemas[s.Name] = *s
	return s.ID, nil
}

func (m *SchemaRepo) GetSchema(ctx context.Context, name string) (*models.AttributeSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schemas[name]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *SchemaRepo) ListSchemas(ctx context.Context) ([]models.AttributeSchema, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AttributeSchema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *SchemaRepo) DeleteSchema(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[name]; !ok {
		return fmt.Errorf("delete attribute_schema %q: %w", name, repository.ErrNotFound)
	}
	delete(m.schemas, name)
	return nil
}
