package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// CDDTest is a catalog entry for a child-development screening test,
// identified externally by its Code (for example "ESDM").
type CDDTest struct {
	ID              int64         `json:"id" db:"id"`
	Code            string        `json:"code" db:"code"`
	Name            LocalizedText `json:"name" db:"name"`
	Description     LocalizedText `json:"description,omitempty" db:"description"`
	Category        string        `json:"category,omitempty" db:"category"`
	Status          Status        `json:"status" db:"status"`
	AgeMinMonths    int           `json:"age_min_months" db:"age_min_months"`
	AgeMaxMonths    int           `json:"age_max_months" db:"age_max_months"`
	DurationMinutes int           `json:"duration_minutes,omitempty" db:"duration_minutes"`
	ScoringCriteria Attributes    `json:"scoring_criteria,omitempty" db:"scoring_criteria"`
	Audit
}

func (t *CDDTest) Validate() error {
	if err := required("cdd_test", "code", t.Code); err != nil {
		return err
	}
	if err := requiredText("cdd_test", "name", t.Name); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return invalid("cdd_test", "status", "unknown value "+string(t.Status))
	}
	if t.DurationMinutes < 0 {
		return invalid("cdd_test", "duration_minutes", "must not be negative")
	}
	return ageRange("cdd_test", t.AgeMinMonths, t.AgeMaxMonths)
}

// QuestionOption is one selectable answer of a question.
type QuestionOption struct {
	Value string        `json:"value" bson:"value"`
	Label LocalizedText `json:"label" bson:"label"`
	Score float64       `json:"score" bson:"score"`
}

type TrackingQuestion struct {
	ID        int64            `json:"id" db:"id"`
	TestID    *int64           `json:"test_id,omitempty" db:"test_id"`
	Code      string           `json:"code" db:"code"`
	Domain    QuestionDomain   `json:"domain" db:"domain"`
	Question  LocalizedText    `json:"question" db:"question"`
	Options   []QuestionOption `json:"options,omitempty" db:"options"`
	AgeMonths int              `json:"age_months" db:"age_months"`
	Position  int              `json:"position" db:"position"`
	Audit
}

func (q *TrackingQuestion) Validate() error {
	if err := required("tracking_question", "code", q.Code); err != nil {
		return err
	}
	if !q.Domain.Valid() {
		return invalid("tracking_question", "domain", "unknown value "+string(q.Domain))
	}
	if err := requiredText("tracking_question", "question", q.Question); err != nil {
		return err
	}
	if q.AgeMonths < 0 || q.AgeMonths > MaxAgeMonths {
		return invalid("tracking_question", "age_months", "out of range")
	}
	if q.Position < 0 {
		return invalid("tracking_question", "position", "must not be negative")
	}
	return nil
}

// Intervention is guidance content published for caregivers.
type Intervention struct {
	ID           int64         `json:"id" db:"id"`
	Slug         string        `json:"slug" db:"slug"`
	Title        LocalizedText `json:"title" db:"title"`
	Content      LocalizedText `json:"content" db:"content"`
	Category     string        `json:"category,omitempty" db:"category"`
	Keywords     string        `json:"keywords,omitempty" db:"keywords"`
	Status       Status        `json:"status" db:"status"`
	AgeMinMonths int           `json:"age_min_months" db:"age_min_months"`
	AgeMaxMonths int           `json:"age_max_months" db:"age_max_months"`
	Audit
}

func (i *Intervention) Validate() error {
	if err := required("intervention", "slug", i.Slug); err != nil {
		return err
	}
	if err := requiredText("intervention", "title", i.Title); err != nil {
		return err
	}
	if !i.Status.Valid() {
		return invalid("intervention", "status", "unknown value "+string(i.Status))
	}
	return ageRange("intervention", i.AgeMinMonths, i.AgeMaxMonths)
}

// Book is reference literature keyed by ISBN.
type Book struct {
	ID            int64         `json:"id" db:"id"`
	ISBN          string        `json:"isbn" db:"isbn"`
	Title         LocalizedText `json:"title" db:"title"`
	Author        string        `json:"author,omitempty" db:"author"`
	Publisher     string        `json:"publisher,omitempty" db:"publisher"`
	Language      string        `json:"language,omitempty" db:"language"`
	PublishedYear int           `json:"published_year,omitempty" db:"published_year"`
	Description   string        `json:"description,omitempty" db:"description"`
	Audit
}

// NormalizeISBN strips hyphens and spaces.
func NormalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
}

func (b *Book) Validate() error {
	isbn := NormalizeISBN(b.ISBN)
	if len(isbn) != 10 && len(isbn) != 13 {
		return invalid("book", "isbn", "must have 10 or 13 characters")
	}
	for i, r := range isbn {
		if r >= '0' && r <= '9' {
			continue
		}
		if len(isbn) == 10 && i == 9 && (r == 'X' || r == 'x') {
			continue
		}
		return invalid("book", "isbn", "must be numeric")
	}
	if err := requiredText("book", "title", b.Title); err != nil {
		return err
	}
	if b.PublishedYear < 0 {
		return invalid("book", "published_year", "must not be negative")
	}
	return nil
}

type TestResult struct {
	ID         int64      `json:"id" db:"id"`
	ChildID    uuid.UUID  `json:"child_id" db:"child_id"`
	TestID     int64      `json:"test_id" db:"test_id"`
	Score      float64    `json:"score" db:"score"`
	RiskLevel  RiskLevel  `json:"risk_level" db:"risk_level"`
	Answers    Attributes `json:"answers,omitempty" db:"answers"`
	Notes      string     `json:"notes,omitempty" db:"notes"`
	AssessedAt int64      `json:"assessed_at" db:"assessed_at"`
	Audit
}

func (r *TestResult) Validate() error {
	if r.ChildID == uuid.Nil {
		return invalid("test_result", "child_id", "is required")
	}
	if r.TestID <= 0 {
		return invalid("test_result", "test_id", "is required")
	}
	if r.Score < 0 {
		return invalid("test_result", "score", "must not be negative")
	}
	if !r.RiskLevel.Valid() {
		return invalid("test_result", "risk_level", "unknown value "+string(r.RiskLevel))
	}
	return nil
}

// AttributeSchema is a JSON Schema used to validate one kind of structured
// attribute before it is written.
type AttributeSchema struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Version     string          `json:"version" db:"version"`
	Description string          `json:"description,omitempty" db:"description"`
	SchemaJSON  json.RawMessage `json:"schema_json" db:"schema_json"`
	Audit
}

func (s *AttributeSchema) Validate() error {
	if err := required("attribute_schema", "name", s.Name); err != nil {
		return err
	}
	if err := required("attribute_schema", "version", s.Version); err != nil {
		return err
	}
	if !json.Valid(s.SchemaJSON) {
		return invalid("attribute_schema", "schema_json", "is not valid JSON")
	}
	return nil
}
