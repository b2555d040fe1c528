package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
)

// GormManager vends gorm-backed repositories bound to one *gorm.DB, which may
// be a transaction.
type GormManager struct {
	db *gorm.DB
}

func NewGormManager(db *gorm.DB) *GormManager {
	return &GormManager{db: db}
}

func (m *GormManager) Organizations() OrganizationRepository { return &gormOrganizations{db: m.db} }
func (m *GormManager) Onboarding() OnboardingRepository      { return &gormOnboarding{db: m.db} }
func (m *GormManager) Documents() DocumentRepository         { return &gormDocuments{db: m.db} }
func (m *GormManager) Users() UserRepository                 { return &gormUsers{db: m.db} }
func (m *GormManager) Operators() OperatorRepository         { return &gormOperators{db: m.db} }
func (m *GormManager) Audit() AuditRepository                { return &gormAudit{db: m.db} }

func (m *GormManager) WithTx(ctx context.Context, fn func(tx Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormManager{db: tx})
	})
}

// dbErr maps driver errors onto the shared sentinels.
func dbErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// organizations

type gormOrganizations struct{ db *gorm.DB }

func (r *gormOrganizations) Create(ctx context.Context, org *models.Organization) error {
	return dbErr(r.db.WithContext(ctx).Create(org).Error)
}

func (r *gormOrganizations) Get(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, dbErr(err)
	}
	return &org, nil
}

func (r *gormOrganizations) Update(ctx context.Context, org *models.Organization) error {
	res := r.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", org.ID).
		Updates(map[string]any{
			"name":    org.Name,
			"type":    org.Type,
			"country": org.Country,
		})
	return dbErr(res.Error)
}

func (r *gormOrganizations) Delete(ctx context.Context, id int64) error {
	return dbErr(r.db.WithContext(ctx).Delete(&models.Organization{}, id).Error)
}

func (r *gormOrganizations) List(ctx context.Context, f OrgFilter) ([]models.Organization, int64, error) {
	if f.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", apperr.ErrValidation)
	}
	q := r.db.WithContext(ctx).Model(&models.Organization{})
	if f.Stage > 0 {
		q = q.Joins("JOIN onboarding_progress ON onboarding_progress.organization_id = organizations.id").
			Where("onboarding_progress.current_step_number = ?", f.Stage)
	}
	if f.From != nil {
		q = q.Where("organizations.created_on >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("organizations.created_on < ?", *f.To)
	}
	base := q.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, dbErr(err)
	}

	var orgs []models.Organization
	err := base.Select("organizations.*").
		Order("organizations.created_on DESC, organizations.id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&orgs).Error
	if err != nil {
		return nil, 0, dbErr(err)
	}
	return orgs, total, nil
}

func (r *gormOrganizations) Search(ctx context.Context, term string) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", likePattern(term)).
		Order("name ASC, id ASC").
		Find(&orgs).Error
	return orgs, dbErr(err)
}

func (r *gormOrganizations) Names(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.WithContext(ctx).Select("id", "name").Order("name ASC, id ASC").Find(&orgs).Error
	return orgs, dbErr(err)
}

// onboarding

type gormOnboarding struct{ db *gorm.DB }

func (r *gormOnboarding) CreateProgress(ctx context.Context, p *models.OnboardingProgress) error {
	return dbErr(r.db.WithContext(ctx).Create(p).Error)
}

func (r *gormOnboarding) CreateSteps(ctx context.Context, steps []models.OnboardingStep) error {
	if len(steps) == 0 {
		return nil
	}
	return dbErr(r.db.WithContext(ctx).Create(&steps).Error)
}

func (r *gormOnboarding) ProgressByOrg(ctx context.Context, orgID int64) (*models.OnboardingProgress, error) {
	var p models.OnboardingProgress
	if err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).First(&p).Error; err != nil {
		return nil, dbErr(err)
	}
	return &p, nil
}

func (r *gormOnboarding) ProgressByID(ctx context.Context, id int64) (*models.OnboardingProgress, error) {
	var p models.OnboardingProgress
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, dbErr(err)
	}
	return &p, nil
}

func (r *gormOnboarding) ProgressForOrgs(ctx context.Context, orgIDs []int64) (map[int64]models.OnboardingProgress, error) {
	out := make(map[int64]models.OnboardingProgress, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	var rows []models.OnboardingProgress
	if err := r.db.WithContext(ctx).Where("organization_id IN ?", orgIDs).Find(&rows).Error; err != nil {
		return nil, dbErr(err)
	}
	for _, p := range rows {
		out[p.OrganizationID] = p
	}
	return out, nil
}

func (r *gormOnboarding) AdvanceStep(ctx context.Context, orgID int64, from, to int) error {
	res := r.db.WithContext(ctx).Model(&models.OnboardingProgress{}).
		Where("organization_id = ? AND current_step_number = ?", orgID, from).
		Updates(map[string]any{
			"current_step_number": to,
			"progress_percent":    0,
		})
	if res.Error != nil {
		return dbErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: organization %d is no longer at step %d", apperr.ErrInvalidTransition, orgID, from)
	}
	return nil
}

func (r *gormOnboarding) SetDueDate(ctx context.Context, progressID int64, due *time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.OnboardingProgress{}).
		Where("id = ?", progressID).
		Update("due_date", due)
	return dbErr(res.Error)
}

func (r *gormOnboarding) SetProgress(ctx context.Context, orgID int64, percent int) error {
	res := r.db.WithContext(ctx).Model(&models.OnboardingProgress{}).
		Where("organization_id = ?", orgID).
		Update("progress_percent", percent)
	return dbErr(res.Error)
}

func (r *gormOnboarding) Steps(ctx context.Context, orgID int64) ([]models.OnboardingStep, error) {
	var steps []models.OnboardingStep
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("step_number ASC").Find(&steps).Error
	return steps, dbErr(err)
}

func (r *gormOnboarding) Step(ctx context.Context, orgID int64, stepNumber int) (*models.OnboardingStep, error) {
	var s models.OnboardingStep
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND step_number = ?", orgID, stepNumber).
		First(&s).Error
	if err != nil {
		return nil, dbErr(err)
	}
	return &s, nil
}

func (r *gormOnboarding) MarkReached(ctx context.Context, orgID int64, stepNumber int, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.OnboardingStep{}).
		Where("organization_id = ? AND step_number = ?", orgID, stepNumber).
		Update("reached_at", at)
	return dbErr(res.Error)
}

func (r *gormOnboarding) DeleteForOrg(ctx context.Context, orgID int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("organization_id = ?", orgID).Delete(&models.OnboardingStep{}).Error; err != nil {
		return dbErr(err)
	}
	return dbErr(db.Where("organization_id = ?", orgID).Delete(&models.OnboardingProgress{}).Error)
}

// documents

type gormDocuments struct{ db *gorm.DB }

func (r *gormDocuments) Create(ctx context.Context, doc *models.Document) error {
	return dbErr(r.db.WithContext(ctx).Create(doc).Error)
}

func (r *gormDocuments) Get(ctx context.Context, id int64) (*models.Document, error) {
	var d models.Document
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, dbErr(err)
	}
	return &d, nil
}

func (r *gormDocuments) UpdateMeta(ctx context.Context, id int64, name *string, docType *models.DocumentType) error {
	fields := map[string]any{}
	if name != nil {
		fields["name"] = *name
	}
	if docType != nil {
		fields["type"] = *docType
	}
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(fields)
	return dbErr(res.Error)
}

func (r *gormDocuments) Delete(ctx context.Context, id int64) error {
	return dbErr(r.db.WithContext(ctx).Delete(&models.Document{}, id).Error)
}

func (r *gormDocuments) ListByOrg(ctx context.Context, orgID int64) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, dbErr(err)
}

func (r *gormDocuments) ListByOrgs(ctx context.Context, orgIDs []int64) ([]models.Document, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("organization_id IN ?", orgIDs).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, dbErr(err)
}

// organization users

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, u *models.OrganizationUser) error {
	return dbErr(r.db.WithContext(ctx).Create(u).Error)
}

func (r *gormUsers) Get(ctx context.Context, id int64) (*models.OrganizationUser, error) {
	var u models.OrganizationUser
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, dbErr(err)
	}
	return &u, nil
}

func (r *gormUsers) ByEmail(ctx context.Context, orgID int64, email string) (*models.OrganizationUser, error) {
	var u models.OrganizationUser
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND email = ?", orgID, email).
		First(&u).Error
	if err != nil {
		return nil, dbErr(err)
	}
	return &u, nil
}

func (r *gormUsers) Update(ctx context.Context, u *models.OrganizationUser) error {
	return dbErr(r.db.WithContext(ctx).Save(u).Error)
}

func (r *gormUsers) Delete(ctx context.Context, id int64) error {
	return dbErr(r.db.WithContext(ctx).Delete(&models.OrganizationUser{}, id).Error)
}

func (r *gormUsers) ListByOrg(ctx context.Context, orgID int64) ([]models.OrganizationUser, error) {
	var users []models.OrganizationUser
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("first_name ASC, last_name ASC, id ASC").
		Find(&users).Error
	return users, dbErr(err)
}

func (r *gormUsers) DeleteForOrg(ctx context.Context, orgID int64) error {
	return dbErr(r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.OrganizationUser{}).Error)
}

// operators

type gormOperators struct{ db *gorm.DB }

func (r *gormOperators) Create(ctx context.Context, op *models.Operator) error {
	return dbErr(r.db.WithContext(ctx).Create(op).Error)
}

func (r *gormOperators) Get(ctx context.Context, id int64) (*models.Operator, error) {
	var op models.Operator
	if err := r.db.WithContext(ctx).First(&op, id).Error; err != nil {
		return nil, dbErr(err)
	}
	return &op, nil
}

func (r *gormOperators) ByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var op models.Operator
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&op).Error; err != nil {
		return nil, dbErr(err)
	}
	return &op, nil
}

func (r *gormOperators) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Operator{}).Count(&n).Error
	return n, dbErr(err)
}

// audit

type gormAudit struct{ db *gorm.DB }

func (r *gormAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	return dbErr(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *gormAudit) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{}).Order("id DESC")
	if f.AfterID > 0 {
		q = q.Where("id < ?", f.AfterID)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("(initiator_name LIKE ? OR action LIKE ? OR resource_type LIKE ? OR ip LIKE ?)",
			like, like, like, like)
	}
	var logs []models.AuditLog
	err := q.Limit(f.Limit).Find(&logs).Error
	return logs, dbErr(err)
}
