package models

// Enumerations are stored by symbolic name, never by ordinal.

// Status is the publication lifecycle shared by tests, interventions,
// assessments and questionnaires.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusArchived Status = "ARCHIVED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive, StatusArchived:
		return true
	}
	return false
}

type CollaboratorStatus string

const (
	CollaboratorPending   CollaboratorStatus = "PENDING"
	CollaboratorApproved  CollaboratorStatus = "APPROVED"
	CollaboratorSuspended CollaboratorStatus = "SUSPENDED"
)

func (s CollaboratorStatus) Valid() bool {
	switch s {
	case CollaboratorPending, CollaboratorApproved, CollaboratorSuspended:
		return true
	}
	return false
}

// RiskLevel is the screening outcome of a test result.
type RiskLevel string

const (
	RiskNormal  RiskLevel = "NORMAL"
	RiskMonitor RiskLevel = "MONITOR"
	RiskRefer   RiskLevel = "REFER"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskNormal, RiskMonitor, RiskRefer:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// QuestionDomain is the developmental area a tracking question observes.
type QuestionDomain string

const (
	DomainMotor     QuestionDomain = "MOTOR"
	DomainLanguage  QuestionDomain = "LANGUAGE"
	DomainCognitive QuestionDomain = "COGNITIVE"
	DomainSocial    QuestionDomain = "SOCIAL"
	DomainSelfCare  QuestionDomain = "SELF_CARE"
)

func (d QuestionDomain) Valid() bool {
	switch d {
	case DomainMotor, DomainLanguage, DomainCognitive, DomainSocial, DomainSelfCare:
		return true
	}
	return false
}
