package models

// Legacy entities keep the older child / test-record shape that still lives
// in the legacy relational store. They are not synchronized with Child and
// TestResult.

type LegacyChild struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	BirthDate   string     `json:"birth_date,omitempty" db:"birth_date"`
	ParentName  string     `json:"parent_name,omitempty" db:"parent_name"`
	ParentPhone string     `json:"parent_phone,omitempty" db:"parent_phone"`
	Extra       Attributes `json:"extra,omitempty" db:"extra"`
	Audit
}

func (c *LegacyChild) Validate() error {
	return required("legacy_child", "name", c.Name)
}

type LegacyTestRecord struct {
	ID       int64      `json:"id" db:"id"`
	ChildID  int64      `json:"child_id" db:"child_id"`
	TestCode string     `json:"test_code" db:"test_code"`
	Score    *float64   `json:"score,omitempty" db:"score"`
	Result   Attributes `json:"result,omitempty" db:"result"`
	TakenAt  int64      `json:"taken_at" db:"taken_at"`
	Audit
}

func (r *LegacyTestRecord) Validate() error {
	if r.ChildID <= 0 {
		return invalid("legacy_test_record", "child_id", "is required")
	}
	if err := required("legacy_test_record", "test_code", r.TestCode); err != nil {
		return err
	}
	if r.Score != nil && *r.Score < 0 {
		return invalid("legacy_test_record", "score", "must not be negative")
	}
	return nil
}
