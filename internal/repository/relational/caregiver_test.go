package relational_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func TestCaregiverCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// nil caregiver should error
	if _, err := repo.CreateCaregiver(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil caregiver")
	}

	// Non-existing ID should return nil, nil
	got, err := repo.GetCaregiver(ctx, uuid.New())
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown id, got %#v, %v", got, err)
	}

	c := &models.Caregiver{FullName: "Nguyen Thi Lan", Email: "lan@example.com", Phone: "0901234567", Relationship: "mother"}
	id, err := repo.CreateCaregiver(ctx, c)
	if err != nil {
		t.Fatalf("CreateCaregiver error: %v", err)
	}
	if id == uuid.Nil || c.ID != id {
		t.Fatalf("expected generated id, got %s", id)
	}
	if id.Version() != 7 {
		t.Fatalf("expected UUIDv7, got version %d", id.Version())
	}

	got, err = repo.GetCaregiver(ctx, id)
	if err != nil {
		t.Fatalf("GetCaregiver error: %v", err)
	}
	if got == nil || got.Email != c.Email || got.Relationship != "mother" {
		t.Fatalf("GetCaregiver wrong result: %#v", got)
	}
	if got.CreatedAt == 0 || got.CreatedAt != got.UpdatedAt {
		t.Fatalf("expected created_at == updated_at after create, got %d / %d", got.CreatedAt, got.UpdatedAt)
	}

	byEmail, err := repo.GetCaregiverByEmail(ctx, c.Email)
	if err != nil || byEmail == nil || byEmail.ID != id {
		t.Fatalf("GetCaregiverByEmail wrong result: %#v, %v", byEmail, err)
	}

	ok, err := repo.ExistsCaregiverByEmail(ctx, c.Email)
	if err != nil || !ok {
		t.Fatalf("expected caregiver to exist, got %v, %v", ok, err)
	}
	ok, err = repo.ExistsCaregiverByEmail(ctx, "nobody@example.com")
	if err != nil || ok {
		t.Fatalf("expected caregiver to be absent, got %v, %v", ok, err)
	}

	// update advances updated_at strictly, even within one millisecond
	got.Address = "Hanoi"
	if err := repo.UpdateCaregiver(ctx, got); err != nil {
		t.Fatalf("UpdateCaregiver error: %v", err)
	}
	again, err := repo.GetCaregiver(ctx, id)
	if err != nil {
		t.Fatalf("GetCaregiver error: %v", err)
	}
	if again.Address != "Hanoi" {
		t.Fatalf("update not stored: %#v", again)
	}
	if again.UpdatedAt <= again.CreatedAt {
		t.Fatalf("expected updated_at > created_at, got %d <= %d", again.UpdatedAt, again.CreatedAt)
	}
	if again.UpdatedAt != got.UpdatedAt {
		t.Fatalf("UpdateCaregiver must report the stored updated_at")
	}

	// delete
	if err := repo.DeleteCaregiver(ctx, id); err != nil {
		t.Fatalf("DeleteCaregiver error: %v", err)
	}
	after, err := repo.GetCaregiver(ctx, id)
	if err != nil || after != nil {
		t.Fatalf("expected nil after delete, got %#v, %v", after, err)
	}
	if err := repo.DeleteCaregiver(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := repo.UpdateCaregiver(ctx, got); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted caregiver, got %v", err)
	}
}

func TestCaregiverValidationAndUniqueness(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateCaregiver(ctx, &models.Caregiver{FullName: "A", Email: "not-an-email"})
	var ve *repository.ValidationError
	if !errors.As(err, &ve) || ve.Field != "email" {
		t.Fatalf("expected ValidationError on email, got %v", err)
	}

	if _, err := repo.CreateCaregiver(ctx, &models.Caregiver{FullName: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateCaregiver error: %v", err)
	}

	// check-then-insert loses against the unique constraint
	ok, err := repo.ExistsCaregiverByEmail(ctx, "a@example.com")
	if err != nil || !ok {
		t.Fatalf("expected existing caregiver")
	}
	_, err = repo.CreateCaregiver(ctx, &models.Caregiver{FullName: "B", Email: "a@example.com"})
	if !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected ErrUniquenessViolation, got %v", err)
	}
	var ue *repository.UniquenessError
	if !errors.As(err, &ue) || ue.Entity != "caregiver" || ue.Key != "a@example.com" {
		t.Fatalf("unexpected uniqueness error: %#v", err)
	}
}

func TestSearchCaregivers(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rel := "mother"
		if i%2 == 1 {
			rel = "father"
		}
		c := &models.Caregiver{FullName: fmt.Sprintf("Parent %d", i), Email: fmt.Sprintf("p%d@example.com", i), Relationship: rel}
		if _, err := repo.CreateCaregiver(ctx, c); err != nil {
			t.Fatalf("CreateCaregiver error: %v", err)
		}
	}
	if _, err := repo.CreateCaregiver(ctx, &models.Caregiver{FullName: "Tran 100%_Sure", Email: "tran@example.com"}); err != nil {
		t.Fatalf("CreateCaregiver error: %v", err)
	}

	all, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{}, repository.PageRequest{Size: 50})
	if err != nil {
		t.Fatalf("SearchCaregivers error: %v", err)
	}
	if all.TotalElements != 7 || len(all.Items) != 7 {
		t.Fatalf("empty filter must match everything, got %d", all.TotalElements)
	}

	fathers, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{Relationship: "father"}, repository.PageRequest{Size: 50})
	if err != nil || fathers.TotalElements != 3 {
		t.Fatalf("expected 3 fathers, got %d, %v", fathers.TotalElements, err)
	}

	byKeyword, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{Keyword: "PARENT 3"}, repository.PageRequest{Size: 50})
	if err != nil || byKeyword.TotalElements != 1 {
		t.Fatalf("expected case-insensitive keyword match, got %d, %v", byKeyword.TotalElements, err)
	}

	// LIKE wildcards in the keyword are literal
	wild, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{Keyword: "%_"}, repository.PageRequest{Size: 50})
	if err != nil || wild.TotalElements != 1 || wild.Items[0].Email != "tran@example.com" {
		t.Fatalf("expected only the literal %%_ match, got %+v, %v", wild, err)
	}

	if _, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{}, repository.PageRequest{Size: 0}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for size 0, got %v", err)
	}
	if _, err := repo.SearchCaregivers(ctx, repository.CaregiverFilter{}, repository.PageRequest{Number: -1, Size: 10}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative page, got %v", err)
	}
}
