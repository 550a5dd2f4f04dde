// Package models holds the persisted entities and documents of the CDD
// record store. Entities are plain data; the only behavior they carry is
// field validation run before any store access.
package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// LocalizedText maps a language code ("vi", "en") to content. It is stored as
// JSON text in a single column.
type LocalizedText map[string]string

// Get returns the text for lang, falling back to any other language when the
// requested one is missing.
func (t LocalizedText) Get(lang string) string {
	if s, ok := t[lang]; ok {
		return s
	}
	for _, s := range t {
		return s
	}
	return ""
}

// Attributes is free-form structured metadata stored as a JSON object.
type Attributes map[string]any

// Audit carries the write timestamps every persisted record has, in Unix
// milliseconds (UTC).
type Audit struct {
	CreatedAt int64 `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Created returns CreatedAt as a time.
func (a Audit) Created() time.Time { return time.UnixMilli(a.CreatedAt).UTC() }

// Updated returns UpdatedAt as a time.
func (a Audit) Updated() time.Time { return time.UnixMilli(a.UpdatedAt).UTC() }

// NowMillis is the timestamp source for audit fields.
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// Upper age bound accepted anywhere an age in months is stored (18 years).
const MaxAgeMonths = 216

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports caller-supplied data that violates a field
// constraint. It is raised before any store access.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(entity, field, reason string) error {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}

func required(entity, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(entity, field, "is required")
	}
	return nil
}

func requiredText(entity, field string, t LocalizedText) error {
	for _, s := range t {
		if strings.TrimSpace(s) != "" {
			return nil
		}
	}
	return invalid(entity, field, "needs at least one non-empty translation")
}

func validEmail(entity, field, value string) error {
	if err := required(entity, field, value); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(value); err != nil || !strings.Contains(value, "@") {
		return invalid(entity, field, "is not an e-mail address")
	}
	return nil
}

func ageRange(entity string, minMonths, maxMonths int) error {
	if minMonths < 0 || minMonths > MaxAgeMonths {
		return invalid(entity, "age_min_months", fmt.Sprintf("must be within 0..%d", MaxAgeMonths))
	}
	if maxMonths < 0 || maxMonths > MaxAgeMonths {
		return invalid(entity, "age_max_months", fmt.Sprintf("must be within 0..%d", MaxAgeMonths))
	}
	if minMonths > maxMonths {
		return invalid(entity, "age_min_months", "must not exceed age_max_months")
	}
	return nil
}
