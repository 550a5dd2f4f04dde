package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the storage format of calendar dates.
const DateLayout = "2006-01-02"

type Caregiver struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Relationship string    `json:"relationship,omitempty" db:"relationship"`
	Address      string    `json:"address,omitempty" db:"address"`
	Audit
}

func (c *Caregiver) Validate() error {
	if err := required("caregiver", "full_name", c.FullName); err != nil {
		return err
	}
	return validEmail("caregiver", "email", c.Email)
}

// Child is soft-deleted: DeletedAt is set instead of removing the row.
type Child struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CaregiverID *uuid.UUID `json:"caregiver_id,omitempty" db:"caregiver_id"`
	FullName    string     `json:"full_name" db:"full_name"`
	Nickname    string     `json:"nickname,omitempty" db:"nickname"`
	BirthDate   string     `json:"birth_date" db:"birth_date"`
	Gender      Gender     `json:"gender" db:"gender"`
	Notes       string     `json:"notes,omitempty" db:"notes"`
	Attributes  Attributes `json:"attributes,omitempty" db:"attributes"`
	DeletedAt   *int64     `json:"deleted_at,omitempty" db:"deleted_at"`
	Audit
}

func (c *Child) Validate() error {
	if err := required("child", "full_name", c.FullName); err != nil {
		return err
	}
	if _, err := time.Parse(DateLayout, c.BirthDate); err != nil {
		return invalid("child", "birth_date", "must be a YYYY-MM-DD date")
	}
	if !c.Gender.Valid() {
		return invalid("child", "gender", "unknown value "+string(c.Gender))
	}
	return nil
}

// AgeInMonths returns the completed months between the birth date and at, or
// -1 when the birth date is not parseable.
func (c *Child) AgeInMonths(at time.Time) int {
	born, err := time.Parse(DateLayout, c.BirthDate)
	if err != nil {
		return -1
	}
	months := (at.Year()-born.Year())*12 + int(at.Month()-born.Month())
	if at.Day() < born.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// ChildPatch carries a partial update; nil fields keep their stored value.
type ChildPatch struct {
	CaregiverID *uuid.UUID
	FullName    *string
	Nickname    *string
	BirthDate   *string
	Gender      *Gender
	Notes       *string
	Attributes  *Attributes
}

func (p *ChildPatch) Validate() error {
	if p.FullName != nil {
		if err := required("child", "full_name", *p.FullName); err != nil {
			return err
		}
	}
	if p.BirthDate != nil {
		if _, err := time.Parse(DateLayout, *p.BirthDate); err != nil {
			return invalid("child", "birth_date", "must be a YYYY-MM-DD date")
		}
	}
	if p.Gender != nil && !p.Gender.Valid() {
		return invalid("child", "gender", "unknown value "+string(*p.Gender))
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p *ChildPatch) Empty() bool {
	return p.CaregiverID == nil && p.FullName == nil && p.Nickname == nil && p.BirthDate == nil &&
		p.Gender == nil && p.Notes == nil && p.Attributes == nil
}

// Collaborator is a specialist (therapist, doctor, teacher) who can be
// assigned to many children.
type Collaborator struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	FullName       string             `json:"full_name" db:"full_name"`
	Email          string             `json:"email" db:"email"`
	Phone          string             `json:"phone,omitempty" db:"phone"`
	Organization   string             `json:"organization,omitempty" db:"organization"`
	Specialty      string             `json:"specialty,omitempty" db:"specialty"`
	Bio            string             `json:"bio,omitempty" db:"bio"`
	Certifications Attributes         `json:"certifications,omitempty" db:"certifications"`
	Status         CollaboratorStatus `json:"status" db:"status"`
	Audit
}

func (c *Collaborator) Validate() error {
	if err := required("collaborator", "full_name", c.FullName); err != nil {
		return err
	}
	if err := validEmail("collaborator", "email", c.Email); err != nil {
		return err
	}
	if !c.Status.Valid() {
		return invalid("collaborator", "status", "unknown value "+string(c.Status))
	}
	return nil
}
