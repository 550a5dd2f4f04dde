package repository

import (
	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/pkg/models"
)

// Filters implement the search-form pattern: every field is optional and
// independent, a nil pointer or empty string skips the predicate, and an all
// empty filter matches the whole collection. Keyword is a case-insensitive
// substring match over the entity's text fields; for JSON-backed fields the
// match runs against the stored JSON text.

type CaregiverFilter struct {
	Relationship string
	Keyword      string
}

type ChildFilter struct {
	CaregiverID *uuid.UUID
	Gender      *models.Gender
	BornAfter   string // inclusive, YYYY-MM-DD
	BornBefore  string // inclusive, YYYY-MM-DD
	Keyword     string
}

type TestFilter struct {
	Status   *models.Status
	Category string
	// AgeMonths keeps tests whose age range contains the value.
	AgeMonths *int
	Keyword   string
}

type QuestionFilter struct {
	TestID    *int64
	Domain    *models.QuestionDomain
	AgeMonths *int
	Keyword   string
}

type InterventionFilter struct {
	Category  string
	Status    *models.Status
	AgeMonths *int
	Keyword   string
}

type CollaboratorFilter struct {
	Organization string
	Specialty    string
	Status       *models.CollaboratorStatus
	Keyword      string
}

type BookFilter struct {
	Author   string
	Language string
	Keyword  string
}

type LegacyChildFilter struct {
	ParentPhone string
	Keyword     string
}

type AssessmentFilter struct {
	Status    *models.Status
	AgeMonths *int
	Keyword   string
}
