// Package repository is the persistence layer. Manager vends one repository
// per aggregate; GormManager backs them with MySQL or Postgres and
// MemoryManager keeps everything in process for tests and local runs.
package repository

import (
	"context"
	"time"

	"launchpad/internal/models"
)

// OrgFilter narrows the paged organization list. To is exclusive.
type OrgFilter struct {
	Stage  int
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// AuditFilter selects audit rows newest first. AfterID is a cursor: only rows
// with a smaller id are returned.
type AuditFilter struct {
	Query   string
	AfterID int64
	Limit   int
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	Get(ctx context.Context, id int64) (*models.Organization, error)
	// Update writes name, type and country. CreatedOn is never written.
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f OrgFilter) ([]models.Organization, int64, error)
	Search(ctx context.Context, term string) ([]models.Organization, error)
	Names(ctx context.Context) ([]models.Organization, error)
}

type OnboardingRepository interface {
	CreateProgress(ctx context.Context, p *models.OnboardingProgress) error
	CreateSteps(ctx context.Context, steps []models.OnboardingStep) error
	ProgressByOrg(ctx context.Context, orgID int64) (*models.OnboardingProgress, error)
	ProgressByID(ctx context.Context, id int64) (*models.OnboardingProgress, error)
	ProgressForOrgs(ctx context.Context, orgIDs []int64) (map[int64]models.OnboardingProgress, error)
	// AdvanceStep moves the organization from step from to step to only if it
	// is still at from, and resets the progress percentage. It returns
	// apperr.ErrInvalidTransition when the stored step is no longer from.
	AdvanceStep(ctx context.Context, orgID int64, from, to int) error
	SetDueDate(ctx context.Context, progressID int64, due *time.Time) error
	SetProgress(ctx context.Context, orgID int64, percent int) error
	Steps(ctx context.Context, orgID int64) ([]models.OnboardingStep, error)
	Step(ctx context.Context, orgID int64, stepNumber int) (*models.OnboardingStep, error)
	MarkReached(ctx context.Context, orgID int64, stepNumber int, at time.Time) error
	DeleteForOrg(ctx context.Context, orgID int64) error
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id int64) (*models.Document, error)
	// UpdateMeta writes the non-nil fields only.
	UpdateMeta(ctx context.Context, id int64, name *string, docType *models.DocumentType) error
	Delete(ctx context.Context, id int64) error
	ListByOrg(ctx context.Context, orgID int64) ([]models.Document, error)
	ListByOrgs(ctx context.Context, orgIDs []int64) ([]models.Document, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.OrganizationUser) error
	Get(ctx context.Context, id int64) (*models.OrganizationUser, error)
	ByEmail(ctx context.Context, orgID int64, email string) (*models.OrganizationUser, error)
	Update(ctx context.Context, u *models.OrganizationUser) error
	Delete(ctx context.Context, id int64) error
	ListByOrg(ctx context.Context, orgID int64) ([]models.OrganizationUser, error)
	DeleteForOrg(ctx context.Context, orgID int64) error
}

type OperatorRepository interface {
	Create(ctx context.Context, op *models.Operator) error
	Get(ctx context.Context, id int64) (*models.Operator, error)
	ByEmail(ctx context.Context, email string) (*models.Operator, error)
	Count(ctx context.Context) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}

type Manager interface {
	Organizations() OrganizationRepository
	Onboarding() OnboardingRepository
	Documents() DocumentRepository
	Users() UserRepository
	Operators() OperatorRepository
	Audit() AuditRepository

	// WithTx runs fn against a Manager bound to one transaction. fn's error
	// rolls everything back.
	WithTx(ctx context.Context, fn func(tx Manager) error) error
}
