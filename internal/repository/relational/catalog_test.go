package relational_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

func esdm() *models.CDDTest {
	return &models.CDDTest{
		Code:         "ESDM",
		Name:         models.LocalizedText{"en": "Early Start Denver Model", "vi": "Mô hình can thiệp sớm Denver"},
		Description:  models.LocalizedText{"en": "Curriculum checklist"},
		Category:     "autism",
		Status:       models.StatusActive,
		AgeMinMonths: 12,
		AgeMaxMonths: 48,
		ScoringCriteria: models.Attributes{
			"max_score":  float64(100),
			"thresholds": map[string]any{"monitor": float64(40), "refer": float64(25)},
		},
	}
}

func TestESDMCatalogScenario(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.CreateTest(ctx, esdm())
	if err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}

	got, err := repo.GetTestByCode(ctx, "ESDM")
	if err != nil {
		t.Fatalf("GetTestByCode error: %v", err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("expected the ESDM entry, got %#v", got)
	}
	if got.Name.Get("vi") != "Mô hình can thiệp sớm Denver" {
		t.Fatalf("localized name lost: %#v", got.Name)
	}
	if !reflect.DeepEqual(got.ScoringCriteria, esdm().ScoringCriteria) {
		t.Fatalf("scoring criteria mismatch: %#v", got.ScoringCriteria)
	}

	_, err = repo.CreateTest(ctx, esdm())
	if !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected ErrUniquenessViolation on second ESDM, got %v", err)
	}

	if err := repo.DeleteTest(ctx, id); err != nil {
		t.Fatalf("DeleteTest error: %v", err)
	}
	got, err = repo.GetTestByCode(ctx, "ESDM")
	if err != nil || got != nil {
		t.Fatalf("expected not found after delete, got %#v, %v", got, err)
	}
	ok, err := repo.ExistsTestByCode(ctx, "ESDM")
	if err != nil || ok {
		t.Fatalf("expected ESDM to be gone, got %v, %v", ok, err)
	}
}

func TestPagingScenario(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		tst := &models.CDDTest{
			Code:         fmt.Sprintf("T%02d", i),
			Name:         models.LocalizedText{"en": fmt.Sprintf("Screening %d", i)},
			Status:       models.StatusActive,
			AgeMinMonths: 0,
			AgeMaxMonths: 72,
		}
		if _, err := repo.CreateTest(ctx, tst); err != nil {
			t.Fatalf("CreateTest error: %v", err)
		}
	}
	// a non-matching row must not show up in any page
	draft := &models.CDDTest{Code: "DRAFT", Name: models.LocalizedText{"en": "Draft"}, Status: models.StatusDraft, AgeMaxMonths: 72}
	if _, err := repo.CreateTest(ctx, draft); err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}

	filter := repository.TestFilter{Status: ptr(models.StatusActive)}
	wantSizes := []int{10, 10, 5}
	wantNext := []bool{true, true, false}
	wantLast := []bool{false, false, true}

	seen := map[string]bool{}
	req := repository.PageRequest{Number: 0, Size: 10}
	for i := 0; i < 3; i++ {
		p, err := repo.SearchTests(ctx, filter, req)
		if err != nil {
			t.Fatalf("SearchTests page %d error: %v", i, err)
		}
		if p.TotalElements != 25 || p.TotalPages != 3 {
			t.Fatalf("page %d: unexpected totals %d/%d", i, p.TotalElements, p.TotalPages)
		}
		if len(p.Items) != wantSizes[i] || p.HasNext() != wantNext[i] || p.IsLast() != wantLast[i] {
			t.Fatalf("page %d: size=%d hasNext=%v isLast=%v", i, len(p.Items), p.HasNext(), p.IsLast())
		}
		for _, it := range p.Items {
			if seen[it.Code] {
				t.Fatalf("duplicate %s across pages", it.Code)
			}
			seen[it.Code] = true
		}
		req = p.Next()
	}
	if len(seen) != 25 {
		t.Fatalf("pages must cover all 25 rows, got %d", len(seen))
	}

	// past the end is an empty page with the same totals
	p, err := repo.SearchTests(ctx, filter, repository.PageRequest{Number: 5, Size: 10})
	if err != nil || len(p.Items) != 0 || p.TotalElements != 25 {
		t.Fatalf("unexpected page past the end: %+v, %v", p, err)
	}
}

func TestTestSearchAndCounts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateTest(ctx, esdm()); err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}
	asq := &models.CDDTest{Code: "ASQ-3", Name: models.LocalizedText{"en": "Ages and Stages"}, Category: "general", Status: models.StatusDraft, AgeMinMonths: 1, AgeMaxMonths: 66}
	if _, err := repo.CreateTest(ctx, asq); err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}

	byAge, err := repo.SearchTests(ctx, repository.TestFilter{AgeMonths: ptr(6)}, repository.PageRequest{Size: 10})
	if err != nil || byAge.TotalElements != 1 || byAge.Items[0].Code != "ASQ-3" {
		t.Fatalf("expected only ASQ-3 at 6 months, got %+v, %v", byAge, err)
	}

	// keyword matches translations stored in the JSON name column
	vi, err := repo.SearchTests(ctx, repository.TestFilter{Keyword: "denver"}, repository.PageRequest{Size: 10})
	if err != nil || vi.TotalElements != 1 {
		t.Fatalf("expected keyword match on name, got %d, %v", vi.TotalElements, err)
	}

	cat, err := repo.SearchTests(ctx, repository.TestFilter{Category: "general"}, repository.PageRequest{Size: 10})
	if err != nil || cat.TotalElements != 1 {
		t.Fatalf("expected one general test, got %d, %v", cat.TotalElements, err)
	}

	counts, err := repo.CountTestsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountTestsByStatus error: %v", err)
	}
	if counts[models.StatusActive] != 1 || counts[models.StatusDraft] != 1 || counts[models.StatusArchived] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	// update and validation
	asq.Status = models.StatusActive
	if err := repo.UpdateTest(ctx, asq); err != nil {
		t.Fatalf("UpdateTest error: %v", err)
	}
	asq.AgeMinMonths = 80
	if err := repo.UpdateTest(ctx, asq); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for min > max, got %v", err)
	}
	missing := esdm()
	missing.ID = 9999
	if err := repo.UpdateTest(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating unknown test, got %v", err)
	}
}

func TestQuestions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	testID, err := repo.CreateTest(ctx, esdm())
	if err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}

	opts := []models.QuestionOption{
		{Value: "yes", Label: models.LocalizedText{"en": "Yes", "vi": "Có"}, Score: 2},
		{Value: "no", Label: models.LocalizedText{"en": "No", "vi": "Không"}, Score: 0},
	}
	for i, code := range []string{"Q3", "Q1", "Q2"} {
		q := &models.TrackingQuestion{
			TestID:    &testID,
			Code:      code,
			Domain:    models.DomainLanguage,
			Question:  models.LocalizedText{"en": "Says a word " + code},
			Options:   opts,
			AgeMonths: 12,
			Position:  3 - i,
		}
		if _, err := repo.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion error: %v", err)
		}
	}
	orphan := &models.TrackingQuestion{Code: "FREE", Domain: models.DomainMotor, Question: models.LocalizedText{"en": "Walks"}, AgeMonths: 14}
	if _, err := repo.CreateQuestion(ctx, orphan); err != nil {
		t.Fatalf("CreateQuestion error: %v", err)
	}

	ordered, err := repo.ListQuestionsByTest(ctx, testID)
	if err != nil || len(ordered) != 3 {
		t.Fatalf("ListQuestionsByTest: %d, %v", len(ordered), err)
	}
	if ordered[0].Position != 1 || ordered[2].Position != 3 {
		t.Fatalf("questions must be ordered by position: %+v", ordered)
	}
	if !reflect.DeepEqual(ordered[0].Options, opts) {
		t.Fatalf("options round trip mismatch: %#v", ordered[0].Options)
	}

	q, err := repo.GetQuestionByCode(ctx, "FREE")
	if err != nil || q == nil || q.TestID != nil || q.Options != nil {
		t.Fatalf("unexpected orphan question: %#v, %v", q, err)
	}

	// a question still references the test
	err = repo.DeleteTest(ctx, testID)
	var se *repository.StorageError
	if !errors.As(err, &se) || se.Kind != repository.KindConstraint {
		t.Fatalf("expected constraint StorageError, got %v", err)
	}

	motor, err := repo.SearchQuestions(ctx, repository.QuestionFilter{Domain: ptr(models.DomainMotor)}, repository.PageRequest{Size: 10})
	if err != nil || motor.TotalElements != 1 {
		t.Fatalf("expected one motor question, got %d, %v", motor.TotalElements, err)
	}
	kw, err := repo.SearchQuestions(ctx, repository.QuestionFilter{TestID: &testID, Keyword: "q2"}, repository.PageRequest{Size: 10})
	if err != nil || kw.TotalElements != 1 {
		t.Fatalf("expected one keyword match, got %d, %v", kw.TotalElements, err)
	}

	q.Position = 9
	if err := repo.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("UpdateQuestion error: %v", err)
	}
	if err := repo.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuestion error: %v", err)
	}
	if got, _ := repo.GetQuestion(ctx, q.ID); got != nil {
		t.Fatalf("expected question to be deleted")
	}
}

func TestInterventions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	i := &models.Intervention{
		Slug:         "read-aloud",
		Title:        models.LocalizedText{"en": "Read aloud daily", "vi": "Đọc to mỗi ngày"},
		Content:      models.LocalizedText{"en": "Pick picture books."},
		Category:     "language",
		Keywords:     "books,reading",
		Status:       models.StatusActive,
		AgeMinMonths: 6,
		AgeMaxMonths: 60,
	}
	id, err := repo.CreateIntervention(ctx, i)
	if err != nil {
		t.Fatalf("CreateIntervention error: %v", err)
	}

	got, err := repo.GetInterventionBySlug(ctx, "read-aloud")
	if err != nil || got == nil || got.ID != id || got.Title.Get("vi") != "Đọc to mỗi ngày" {
		t.Fatalf("GetInterventionBySlug: %#v, %v", got, err)
	}

	if _, err := repo.CreateIntervention(ctx, i); !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected duplicate slug to fail, got %v", err)
	}

	found, err := repo.SearchInterventions(ctx, repository.InterventionFilter{Keyword: "picture", AgeMonths: ptr(12)}, repository.PageRequest{Size: 5})
	if err != nil || found.TotalElements != 1 {
		t.Fatalf("expected keyword match on content, got %d, %v", found.TotalElements, err)
	}
	none, err := repo.SearchInterventions(ctx, repository.InterventionFilter{AgeMonths: ptr(72)}, repository.PageRequest{Size: 5})
	if err != nil || none.TotalElements != 0 {
		t.Fatalf("expected no match at 72 months, got %d, %v", none.TotalElements, err)
	}

	got.Status = models.StatusArchived
	if err := repo.UpdateIntervention(ctx, got); err != nil {
		t.Fatalf("UpdateIntervention error: %v", err)
	}
	archived, _ := repo.SearchInterventions(ctx, repository.InterventionFilter{Status: ptr(models.StatusArchived), Category: "language"}, repository.PageRequest{Size: 5})
	if archived.TotalElements != 1 {
		t.Fatalf("expected archived intervention")
	}

	if err := repo.DeleteIntervention(ctx, id); err != nil {
		t.Fatalf("DeleteIntervention error: %v", err)
	}
	if got, _ := repo.GetIntervention(ctx, id); got != nil {
		t.Fatalf("expected intervention to be deleted")
	}
}

func TestBooks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	b := &models.Book{ISBN: "978-0-13-468599-1", Title: models.LocalizedText{"en": "Playful Learning"}, Author: "Le Van", Language: "en", PublishedYear: 2020}
	book, created, err := repo.FindOrCreateBookByISBN(ctx, b)
	if err != nil || !created {
		t.Fatalf("expected book to be created, got %v, %v", created, err)
	}
	if book.ISBN != "9780134685991" {
		t.Fatalf("expected normalized ISBN, got %q", book.ISBN)
	}

	again, created, err := repo.FindOrCreateBookByISBN(ctx, &models.Book{ISBN: "9780134685991", Title: models.LocalizedText{"en": "Other"}})
	if err != nil || created || again.ID != book.ID || again.Title.Get("en") != "Playful Learning" {
		t.Fatalf("expected the stored book, got %#v, %v, %v", again, created, err)
	}

	ok, err := repo.ExistsBookByISBN(ctx, "978 0 13 468599 1")
	if err != nil || !ok {
		t.Fatalf("expected ISBN to exist regardless of separators, got %v, %v", ok, err)
	}

	if _, err := repo.CreateBook(ctx, &models.Book{ISBN: "9780134685991", Title: models.LocalizedText{"en": "Dup"}}); !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected duplicate ISBN to fail, got %v", err)
	}
	if _, err := repo.CreateBook(ctx, &models.Book{ISBN: "123", Title: models.LocalizedText{"en": "Short"}}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation for short ISBN, got %v", err)
	}

	second := &models.Book{ISBN: "0-306-40615-2", Title: models.LocalizedText{"vi": "Nuôi dạy trẻ"}, Author: "Pham Thi", Language: "vi"}
	if _, err := repo.CreateBook(ctx, second); err != nil {
		t.Fatalf("CreateBook error: %v", err)
	}
	vi, err := repo.SearchBooks(ctx, repository.BookFilter{Language: "vi"}, repository.PageRequest{Size: 10})
	if err != nil || vi.TotalElements != 1 {
		t.Fatalf("expected one vi book, got %d, %v", vi.TotalElements, err)
	}
	kw, err := repo.SearchBooks(ctx, repository.BookFilter{Keyword: "playful"}, repository.PageRequest{Size: 10})
	if err != nil || kw.TotalElements != 1 {
		t.Fatalf("expected keyword match on title, got %d, %v", kw.TotalElements, err)
	}

	book.Publisher = "Kim Dong"
	if err := repo.UpdateBook(ctx, book); err != nil {
		t.Fatalf("UpdateBook error: %v", err)
	}
	got, _ := repo.GetBook(ctx, book.ID)
	if got.Publisher != "Kim Dong" {
		t.Fatalf("update not stored")
	}
	if err := repo.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("DeleteBook error: %v", err)
	}
	if got, _ := repo.GetBookByISBN(ctx, "9780134685991"); got != nil {
		t.Fatalf("expected book to be deleted")
	}
}

func TestFindOrCreateBookConcurrent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[int64]bool{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &models.Book{ISBN: "978-0-13-468599-1", Title: models.LocalizedText{"en": fmt.Sprintf("Copy %d", i)}}
			book, ok, err := repo.FindOrCreateBookByISBN(ctx, b)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				created++
			}
			ids[book.ID] = true
		}(i)
	}
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if created != 1 {
		t.Fatalf("expected exactly one caller to create the book, got %d", created)
	}
	if len(ids) != 1 {
		t.Fatalf("expected every caller to see the same row, got ids %v", ids)
	}
}

func TestExistsThenInsertCollision(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// both writers check before either inserts
	ok, err := repo.ExistsBookByISBN(ctx, "0-306-40615-2")
	if err != nil || ok {
		t.Fatalf("expected ISBN to be free, got %v, %v", ok, err)
	}

	if _, err := repo.CreateBook(ctx, &models.Book{ISBN: "0-306-40615-2", Title: models.LocalizedText{"en": "First"}}); err != nil {
		t.Fatalf("first insert error: %v", err)
	}

	_, err = repo.CreateBook(ctx, &models.Book{ISBN: "0306406152", Title: models.LocalizedText{"en": "Second"}})
	var ue *repository.UniquenessError
	if !errors.As(err, &ue) || ue.Entity != "book" {
		t.Fatalf("expected book UniquenessError for the late insert, got %v", err)
	}
	if !errors.Is(err, repository.ErrUniquenessViolation) {
		t.Fatalf("expected ErrUniquenessViolation match, got %v", err)
	}
}
