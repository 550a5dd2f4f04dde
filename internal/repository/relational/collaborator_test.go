package relational_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func newChild(t *testing.T, repo interface {
	CreateChild(context.Context, *models.Child) (uuid.UUID, error)
}, name string) uuid.UUID {
	t.Helper()
	id, err := repo.CreateChild(context.Background(), &models.Child{FullName: name, BirthDate: "2021-03-04", Gender: models.GenderOther})
	if err != nil {
		t.Fatalf("CreateChild error: %v", err)
	}
	return id
}

func TestCollaboratorLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	c := &models.Collaborator{
		FullName:       "Nguyen Thi Hoa",
		Email:          "hoa@clinic.vn",
		Organization:   "Clinic A",
		Specialty:      "speech",
		Status:         models.CollaboratorPending,
		Certifications: models.Attributes{"aba": map[string]any{"issuer": "BACB", "year": float64(2018)}},
	}
	id, err := repo.CreateCollaborator(ctx, c)
	if err != nil {
		t.Fatalf("CreateCollaborator error: %v", err)
	}
	if id.Version() != 7 {
		t.Fatalf("expected UUIDv7, got version %d", id.Version())
	}

	got, err := repo.GetCollaboratorByEmail(ctx, "hoa@clinic.vn")
	if err != nil || got == nil || got.ID != id {
		t.Fatalf("GetCollaboratorByEmail: %#v, %v", got, err)
	}
	if got.Certifications["aba"].(map[string]any)["issuer"] != "BACB" {
		t.Fatalf("certifications lost: %#v", got.Certifications)
	}

	dup := &models.Collaborator{FullName: "Other", Email: "hoa@clinic.vn", Status: models.CollaboratorPending}
	if _, err := repo.CreateCollaborator(ctx, dup); !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
	if _, err := repo.CreateCollaborator(ctx, &models.Collaborator{FullName: "X", Email: "x@y.z", Status: "BOGUS"}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}

	got.Status = models.CollaboratorApproved
	before := got.UpdatedAt
	if err := repo.UpdateCollaborator(ctx, got); err != nil {
		t.Fatalf("UpdateCollaborator error: %v", err)
	}
	if got.UpdatedAt <= before {
		t.Fatalf("updated_at must increase: %d -> %d", before, got.UpdatedAt)
	}

	approved, err := repo.SearchCollaborators(ctx, repository.CollaboratorFilter{Status: ptr(models.CollaboratorApproved), Keyword: "SPEECH"}, repository.PageRequest{Size: 10})
	if err != nil || approved.TotalElements != 1 {
		t.Fatalf("expected one approved speech collaborator, got %d, %v", approved.TotalElements, err)
	}
	ok, err := repo.ExistsCollaboratorByEmail(ctx, "nobody@clinic.vn")
	if err != nil || ok {
		t.Fatalf("expected no collaborator, got %v, %v", ok, err)
	}
}

func TestCollaboratorAssignments(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	collab := &models.Collaborator{FullName: "Tran Van Nam", Email: "nam@school.vn", Status: models.CollaboratorApproved}
	collabID, err := repo.CreateCollaborator(ctx, collab)
	if err != nil {
		t.Fatalf("CreateCollaborator error: %v", err)
	}
	a := newChild(t, repo, "An")
	b := newChild(t, repo, "Binh")

	for _, child := range []uuid.UUID{a, b} {
		if err := repo.AssignCollaborator(ctx, child, collabID); err != nil {
			t.Fatalf("AssignCollaborator error: %v", err)
		}
	}
	if err := repo.AssignCollaborator(ctx, a, collabID); !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected duplicate assignment to fail, got %v", err)
	}
	err = repo.AssignCollaborator(ctx, uuid.Must(uuid.NewV7()), collabID)
	var se *repository.StorageError
	if !errors.As(err, &se) || se.Kind != repository.KindConstraint {
		t.Fatalf("expected constraint StorageError for unknown child, got %v", err)
	}

	children, err := repo.ListChildrenForCollaborator(ctx, collabID)
	if err != nil || len(children) != 2 {
		t.Fatalf("ListChildrenForCollaborator: %d, %v", len(children), err)
	}
	collabs, err := repo.ListCollaboratorsForChild(ctx, a)
	if err != nil || len(collabs) != 1 || collabs[0].ID != collabID {
		t.Fatalf("ListCollaboratorsForChild: %+v, %v", collabs, err)
	}

	// soft-deleted children drop out of the listing
	if err := repo.DeleteChild(ctx, b); err != nil {
		t.Fatalf("DeleteChild error: %v", err)
	}
	children, _ = repo.ListChildrenForCollaborator(ctx, collabID)
	if len(children) != 1 || children[0].ID != a {
		t.Fatalf("expected only the live child, got %+v", children)
	}

	if err := repo.UnassignCollaborator(ctx, a, collabID); err != nil {
		t.Fatalf("UnassignCollaborator error: %v", err)
	}
	if err := repo.UnassignCollaborator(ctx, a, collabID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound unassigning twice, got %v", err)
	}

	if err := repo.AssignCollaborator(ctx, a, collabID); err != nil {
		t.Fatalf("reassign error: %v", err)
	}
	if err := repo.DeleteCollaborator(ctx, collabID); err != nil {
		t.Fatalf("DeleteCollaborator error: %v", err)
	}
	collabs, err = repo.ListCollaboratorsForChild(ctx, a)
	if err != nil || len(collabs) != 0 {
		t.Fatalf("assignments must cascade on delete, got %+v, %v", collabs, err)
	}
	if err := repo.DeleteCollaborator(ctx, collabID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}
