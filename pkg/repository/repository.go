package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/garnizeh/cddrecords/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups return (nil, nil) when nothing matches.

// Current relational store.

type CaregiverRepo interface {
	CreateCaregiver(ctx context.Context, c *models.Caregiver) (uuid.UUID, error)
	GetCaregiver(ctx context.Context, id uuid.UUID) (*models.Caregiver, error)
	GetCaregiverByEmail(ctx context.Context, email string) (*models.Caregiver, error)
	ExistsCaregiverByEmail(ctx context.Context, email string) (bool, error)
	UpdateCaregiver(ctx context.Context, c *models.Caregiver) error
	DeleteCaregiver(ctx context.Context, id uuid.UUID) error
	SearchCaregivers(ctx context.Context, f CaregiverFilter, p PageRequest) (Page[models.Caregiver], error)
}

type ChildRepo interface {
	CreateChild(ctx context.Context, c *models.Child) (uuid.UUID, error)
	GetChild(ctx context.Context, id uuid.UUID) (*models.Child, error)
	UpdateChild(ctx context.Context, c *models.Child) error
	PatchChild(ctx context.Context, id uuid.UUID, p models.ChildPatch) (*models.Child, error)
	DeleteChild(ctx context.Context, id uuid.UUID) error
	SearchChildren(ctx context.Context, f ChildFilter, p PageRequest) (Page[models.Child], error)
	ListChildrenByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]models.Child, error)
	CountChildrenByGender(ctx context.Context) (map[models.Gender]int64, error)
}

type TestRepo interface {
	CreateTest(ctx context.Context, t *models.CDDTest) (int64, error)
	GetTest(ctx context.Context, id int64) (*models.CDDTest, error)
	GetTestByCode(ctx context.Context, code string) (*models.CDDTest, error)
	ExistsTestByCode(ctx context.Context, code string) (bool, error)
	UpdateTest(ctx context.Context, t *models.CDDTest) error
	DeleteTest(ctx context.Context, id int64) error
	SearchTests(ctx context.Context, f TestFilter, p PageRequest) (Page[models.CDDTest], error)
	CountTestsByStatus(ctx context.Context) (map[models.Status]int64, error)
}

type QuestionRepo interface {
	CreateQuestion(ctx context.Context, q *models.TrackingQuestion) (int64, error)
	GetQuestion(ctx context.Context, id int64) (*models.TrackingQuestion, error)
	GetQuestionByCode(ctx context.Context, code string) (*models.TrackingQuestion, error)
	UpdateQuestion(ctx context.Context, q *models.TrackingQuestion) error
	DeleteQuestion(ctx context.Context, id int64) error
	ListQuestionsByTest(ctx context.Context, testID int64) ([]models.TrackingQuestion, error)
	SearchQuestions(ctx context.Context, f QuestionFilter, p PageRequest) (Page[models.TrackingQuestion], error)
}

type InterventionRepo interface {
	CreateIntervention(ctx context.Context, i *models.Intervention) (int64, error)
	GetIntervention(ctx context.Context, id int64) (*models.Intervention, error)
	GetInterventionBySlug(ctx context.Context, slug string) (*models.Intervention, error)
	UpdateIntervention(ctx context.Context, i *models.Intervention) error
	DeleteIntervention(ctx context.Context, id int64) error
	SearchInterventions(ctx context.Context, f InterventionFilter, p PageRequest) (Page[models.Intervention], error)
}

type CollaboratorRepo interface {
	CreateCollaborator(ctx context.Context, c *models.Collaborator) (uuid.UUID, error)
	GetCollaborator(ctx context.Context, id uuid.UUID) (*models.Collaborator, error)
	GetCollaboratorByEmail(ctx context.Context, email string) (*models.Collaborator, error)
	ExistsCollaboratorByEmail(ctx context.Context, email string) (bool, error)
	UpdateCollaborator(ctx context.Context, c *models.Collaborator) error
	DeleteCollaborator(ctx context.Context, id uuid.UUID) error
	SearchCollaborators(ctx context.Context, f CollaboratorFilter, p PageRequest) (Page[models.Collaborator], error)
	AssignCollaborator(ctx context.Context, childID, collaboratorID uuid.UUID) error
	UnassignCollaborator(ctx context.Context, childID, collaboratorID uuid.UUID) error
	ListCollaboratorsForChild(ctx context.Context, childID uuid.UUID) ([]models.Collaborator, error)
	ListChildrenForCollaborator(ctx context.Context, collaboratorID uuid.UUID) ([]models.Child, error)
}

type BookRepo interface {
	CreateBook(ctx context.Context, b *models.Book) (int64, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*models.Book, error)
	ExistsBookByISBN(ctx context.Context, isbn string) (bool, error)
	// FindOrCreateBookByISBN returns the stored book for b.ISBN, inserting b
	// when absent. created reports whether this call inserted it.
	FindOrCreateBookByISBN(ctx context.Context, b *models.Book) (book *models.Book, created bool, err error)
	UpdateBook(ctx context.Context, b *models.Book) error
	DeleteBook(ctx context.Context, id int64) error
	SearchBooks(ctx context.Context, f BookFilter, p PageRequest) (Page[models.Book], error)
}

type ResultRepo interface {
	CreateResult(ctx context.Context, r *models.TestResult) (int64, error)
	GetResult(ctx context.Context, id int64) (*models.TestResult, error)
	DeleteResult(ctx context.Context, id int64) error
	ListResultsByChild(ctx context.Context, childID uuid.UUID, p PageRequest) (Page[models.TestResult], error)
	CountResultsByTest(ctx context.Context, testID int64) (int64, error)
	// AverageScoreByTest returns nil when the test has no results.
	AverageScoreByTest(ctx context.Context, testID int64) (*float64, error)
	// CountResultsByRiskLevel groups all results, or those of one test when
	// testID is set.
	CountResultsByRiskLevel(ctx context.Context, testID *int64) (map[models.RiskLevel]int64, error)
}

type SchemaRepo interface {
	UpsertSchema(ctx context.Context, s *models.AttributeSchema) (int64, error)
	GetSchema(ctx context.Context, name string) (*models.AttributeSchema, error)
	ListSchemas(ctx context.Context) ([]models.AttributeSchema, error)
	DeleteSchema(ctx context.Context, name string) error
}

// Legacy relational store.

type LegacyChildRepo interface {
	CreateLegacyChild(ctx context.Context, c *models.LegacyChild) (int64, error)
	GetLegacyChild(ctx context.Context, id int64) (*models.LegacyChild, error)
	UpdateLegacyChild(ctx context.Context, c *models.LegacyChild) error
	DeleteLegacyChild(ctx context.Context, id int64) error
	SearchLegacyChildren(ctx context.Context, f LegacyChildFilter, p PageRequest) (Page[models.LegacyChild], error)
}

type LegacyRecordRepo interface {
	CreateLegacyRecord(ctx context.Context, r *models.LegacyTestRecord) (int64, error)
	GetLegacyRecord(ctx context.Context, id int64) (*models.LegacyTestRecord, error)
	ListLegacyRecordsByChild(ctx context.Context, childID int64) ([]models.LegacyTestRecord, error)
	CountLegacyRecordsByTestCode(ctx context.Context, code string) (int64, error)
}

// Document store.

type AssessmentRepo interface {
	CreateAssessment(ctx context.Context, a *models.Assessment) (string, error)
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	GetAssessmentByCode(ctx context.Context, code string) (*models.Assessment, error)
	ExistsAssessmentByCode(ctx context.Context, code string) (bool, error)
	UpdateAssessment(ctx context.Context, a *models.Assessment) error
	DeleteAssessment(ctx context.Context, id string) error
	SearchAssessments(ctx context.Context, f AssessmentFilter, p PageRequest) (Page[models.Assessment], error)
}

type ProgressReportRepo interface {
	CreateReport(ctx context.Context, r *models.ProgressReport) (string, error)
	GetReport(ctx context.Context, id string) (*models.ProgressReport, error)
	DeleteReport(ctx context.Context, id string) error
	ListReportsByChild(ctx context.Context, childID string, p PageRequest) (Page[models.ProgressReport], error)
	LatestReportForChild(ctx context.Context, childID string) (*models.ProgressReport, error)
	// AverageScoreForChild returns nil when the child has no reports.
	AverageScoreForChild(ctx context.Context, childID string) (*float64, error)
}

type QuestionnaireRepo interface {
	CreateQuestionnaire(ctx context.Context, q *models.DisorderQuestionnaire) (string, error)
	GetQuestionnaire(ctx context.Context, id string) (*models.DisorderQuestionnaire, error)
	GetQuestionnaireByDisorderCode(ctx context.Context, code string) (*models.DisorderQuestionnaire, error)
	UpdateQuestionnaire(ctx context.Context, q *models.DisorderQuestionnaire) error
	DeleteQuestionnaire(ctx context.Context, id string) error
	ListQuestionnaires(ctx context.Context, status *models.Status) ([]models.DisorderQuestionnaire, error)
}
