package relational_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	dbfs "github.com/garnizeh/cddrecords/db"
	dbpkg "github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/repository/relational"
	"github.com/garnizeh/cddrecords/internal/schemas"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func TestSchemaUpsert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	s := &models.AttributeSchema{Name: "custom", Version: "v1", SchemaJSON: json.RawMessage(`{"type":"object"}`)}
	id, err := repo.UpsertSchema(ctx, s)
	if err != nil {
		t.Fatalf("UpsertSchema error: %v", err)
	}

	s2 := &models.AttributeSchema{Name: "custom", Version: "v2", Description: "stricter", SchemaJSON: json.RawMessage(`{"type":"object","required":["a"]}`)}
	id2, err := repo.UpsertSchema(ctx, s2)
	if err != nil {
		t.Fatalf("second UpsertSchema error: %v", err)
	}
	if id2 != id {
		t.Fatalf("upsert must keep the row id, got %d then %d", id, id2)
	}
	if s2.CreatedAt != s.CreatedAt || s2.UpdatedAt <= s2.CreatedAt {
		t.Fatalf("upsert must keep created_at and advance updated_at: first %+v, second %+v", s.Audit, s2.Audit)
	}

	got, err := repo.GetSchema(ctx, "custom")
	if err != nil || got == nil {
		t.Fatalf("GetSchema: %#v, %v", got, err)
	}
	if got.Version != "v2" || got.Description != "stricter" || !strings.Contains(string(got.SchemaJSON), "required") {
		t.Fatalf("unexpected stored schema %#v", got)
	}
	if got.UpdatedAt != s2.UpdatedAt || got.UpdatedAt <= got.CreatedAt {
		t.Fatalf("stored audit %+v does not match upsert result %+v", got.Audit, s2.Audit)
	}

	all, err := repo.ListSchemas(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListSchemas: %d, %v", len(all), err)
	}

	bad := &models.AttributeSchema{Name: "broken", Version: "v1", SchemaJSON: json.RawMessage(`{not json`)}
	if _, err := repo.UpsertSchema(ctx, bad); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for invalid JSON, got %v", err)
	}

	if err := repo.DeleteSchema(ctx, "custom"); err != nil {
		t.Fatalf("DeleteSchema error: %v", err)
	}
	if err := repo.DeleteSchema(ctx, "custom"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestValidatorRejectsBadAttributes(t *testing.T) {
	ctx := context.Background()
	conn := openStore(t, "current")
	if err := dbpkg.SeedSchemas(ctx, conn, dbfs.SeedFiles, dbfs.SeedDir); err != nil {
		t.Fatalf("SeedSchemas error: %v", err)
	}

	loader, err := schemas.NewLoader(ctx, relational.New(conn, nil))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	repo := relational.New(conn, nil, relational.WithValidator(loader))

	good := &models.Child{FullName: "Lan", BirthDate: "2021-05-01", Gender: models.GenderFemale,
		Attributes: models.Attributes{"premature": true, "languages": []any{"vi"}}}
	if _, err := repo.CreateChild(ctx, good); err != nil {
		t.Fatalf("CreateChild with valid attributes: %v", err)
	}

	bad := &models.Child{FullName: "Tuan", BirthDate: "2021-05-01", Gender: models.GenderMale,
		Attributes: models.Attributes{"birth_weight_grams": -5}}
	_, err = repo.CreateChild(ctx, bad)
	var ve *repository.ValidationError
	if !errors.As(err, &ve) || ve.Field != "attributes" {
		t.Fatalf("expected attributes ValidationError, got %v", err)
	}

	inf := &models.Child{FullName: "Minh", BirthDate: "2021-05-01", Gender: models.GenderMale,
		Attributes: models.Attributes{"birth_weight_grams": math.Inf(1)}}
	_, err = repo.CreateChild(ctx, inf)
	if !errors.Is(err, jsoncol.ErrSerialization) || errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected serialization error for +Inf attribute, got %v", err)
	}

	c := &models.Collaborator{FullName: "Dr. Hoa", Email: "hoa@example.com", Status: models.CollaboratorApproved,
		Certifications: models.Attributes{"aba": map[string]any{"year": 2015}}}
	if _, err := repo.CreateCollaborator(ctx, c); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected certification without issuer to fail, got %v", err)
	}
}

func TestValidatorFollowsSchemaWrites(t *testing.T) {
	ctx := context.Background()
	conn := openStore(t, "current")
	if err := dbpkg.SeedSchemas(ctx, conn, dbfs.SeedFiles, dbfs.SeedDir); err != nil {
		t.Fatalf("SeedSchemas error: %v", err)
	}
	loader, err := schemas.NewLoader(ctx, relational.New(conn, nil))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	repo := relational.New(conn, nil, relational.WithValidator(loader))

	strict := &models.AttributeSchema{Name: schemas.ChildAttributes, Version: "v2",
		SchemaJSON: json.RawMessage(`{"type":"object","required":["premature"]}`)}
	if _, err := repo.UpsertSchema(ctx, strict); err != nil {
		t.Fatalf("UpsertSchema error: %v", err)
	}

	child := func(attrs models.Attributes) *models.Child {
		return &models.Child{FullName: "Lan", BirthDate: "2021-05-01", Gender: models.GenderFemale, Attributes: attrs}
	}
	if _, err := repo.CreateChild(ctx, child(models.Attributes{"languages": []any{"vi"}})); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected the upserted schema to apply without a reload, got %v", err)
	}

	if err := repo.DeleteSchema(ctx, schemas.ChildAttributes); err != nil {
		t.Fatalf("DeleteSchema error: %v", err)
	}
	if _, ok := loader.GetSchema(schemas.ChildAttributes); ok {
		t.Fatalf("expected deleted schema to leave the cache")
	}
	if _, err := repo.CreateChild(ctx, child(models.Attributes{"birth_weight_grams": -5})); err != nil {
		t.Fatalf("expected attributes to be accepted once the schema is gone, got %v", err)
	}
}
