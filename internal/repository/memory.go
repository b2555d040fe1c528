package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
)

type memoryTables struct {
	orgs      map[int64]models.Organization
	progress  map[int64]models.OnboardingProgress
	steps     map[int64]models.OnboardingStep
	docs      map[int64]models.Document
	users     map[int64]models.OrganizationUser
	operators map[int64]models.Operator
	audit     map[int64]models.AuditLog
	nextID    int64
}

func (t *memoryTables) clone() memoryTables {
	return memoryTables{
		orgs:      maps.Clone(t.orgs),
		progress:  maps.Clone(t.progress),
		steps:     maps.Clone(t.steps),
		docs:      maps.Clone(t.docs),
		users:     maps.Clone(t.users),
		operators: maps.Clone(t.operators),
		audit:     maps.Clone(t.audit),
		nextID:    t.nextID,
	}
}

// MemoryManager keeps every table in process. Transactions are serialized and
// roll back by restoring a snapshot.
type MemoryManager struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    memoryTables
	now  func() time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		t: memoryTables{
			orgs:      map[int64]models.Organization{},
			progress:  map[int64]models.OnboardingProgress{},
			steps:     map[int64]models.OnboardingStep{},
			docs:      map[int64]models.Document{},
			users:     map[int64]models.OrganizationUser{},
			operators: map[int64]models.Operator{},
			audit:     map[int64]models.AuditLog{},
		},
		now: time.Now,
	}
}

func (m *MemoryManager) Organizations() OrganizationRepository { return memOrganizations{m} }
func (m *MemoryManager) Onboarding() OnboardingRepository      { return memOnboarding{m} }
func (m *MemoryManager) Documents() DocumentRepository         { return memDocuments{m} }
func (m *MemoryManager) Users() UserRepository                 { return memUsers{m} }
func (m *MemoryManager) Operators() OperatorRepository         { return memOperators{m} }
func (m *MemoryManager) Audit() AuditRepository                { return memAudit{m} }

func (m *MemoryManager) WithTx(ctx context.Context, fn func(tx Manager) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.t.clone()
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.t = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryManager) id() int64 {
	m.t.nextID++
	return m.t.nextID
}

func sortedValues[T any](src map[int64]T, keep func(T) bool, less func(a, b T) int) []T {
	out := make([]T, 0, len(src))
	for _, v := range src {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, less)
	return out
}

// organizations

type memOrganizations struct{ m *MemoryManager }

func (r memOrganizations) Create(_ context.Context, org *models.Organization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	org.ID = r.m.id()
	if org.CreatedOn.IsZero() {
		org.CreatedOn = r.m.now()
	}
	org.UpdatedAt = org.CreatedOn
	r.m.t.orgs[org.ID] = *org
	return nil
}

func (r memOrganizations) Get(_ context.Context, id int64) (*models.Organization, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	org, ok := r.m.t.orgs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &org, nil
}

func (r memOrganizations) Update(_ context.Context, org *models.Organization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.t.orgs[org.ID]
	if !ok {
		return nil
	}
	cur.Name, cur.Type, cur.Country = org.Name, org.Type, org.Country
	cur.UpdatedAt = r.m.now()
	r.m.t.orgs[org.ID] = cur
	return nil
}

func (r memOrganizations) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.t.orgs, id)
	return nil
}

func newestFirst(a, b models.Organization) int {
	if c := b.CreatedOn.Compare(a.CreatedOn); c != 0 {
		return c
	}
	return int(b.ID - a.ID)
}

func (r memOrganizations) List(_ context.Context, f OrgFilter) ([]models.Organization, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	stageOf := map[int64]int{}
	for _, p := range r.m.t.progress {
		stageOf[p.OrganizationID] = p.CurrentStepNumber
	}
	all := sortedValues(r.m.t.orgs, func(o models.Organization) bool {
		if f.Stage > 0 && stageOf[o.ID] != f.Stage {
			return false
		}
		if f.From != nil && o.CreatedOn.Before(*f.From) {
			return false
		}
		if f.To != nil && !o.CreatedOn.Before(*f.To) {
			return false
		}
		return true
	}, newestFirst)

	total := int64(len(all))
	if f.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", apperr.ErrValidation)
	}
	if f.Offset >= len(all) {
		return []models.Organization{}, total, nil
	}
	end := len(all)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func byName(a, b models.Organization) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return int(a.ID - b.ID)
}

func (r memOrganizations) Search(_ context.Context, term string) ([]models.Organization, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(term))
	return sortedValues(r.m.t.orgs, func(o models.Organization) bool {
		return strings.Contains(strings.ToLower(o.Name), needle)
	}, byName), nil
}

func (r memOrganizations) Names(_ context.Context) ([]models.Organization, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := sortedValues(r.m.t.orgs, nil, byName)
	for i := range out {
		out[i] = models.Organization{ID: out[i].ID, Name: out[i].Name}
	}
	return out, nil
}

// onboarding

type memOnboarding struct{ m *MemoryManager }

func (r memOnboarding) CreateProgress(_ context.Context, p *models.OnboardingProgress) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, cur := range r.m.t.progress {
		if cur.OrganizationID == p.OrganizationID {
			return fmt.Errorf("%w: progress for organization %d", apperr.ErrConflict, p.OrganizationID)
		}
	}
	p.ID = r.m.id()
	p.CreatedAt = r.m.now()
	p.UpdatedAt = p.CreatedAt
	r.m.t.progress[p.ID] = *p
	return nil
}

func (r memOnboarding) CreateSteps(_ context.Context, steps []models.OnboardingStep) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range steps {
		steps[i].ID = r.m.id()
		steps[i].CreatedAt = r.m.now()
		r.m.t.steps[steps[i].ID] = steps[i]
	}
	return nil
}

// progressFor must be called with mu held.
func (r memOnboarding) progressFor(orgID int64) (models.OnboardingProgress, bool) {
	for _, p := range r.m.t.progress {
		if p.OrganizationID == orgID {
			return p, true
		}
	}
	return models.OnboardingProgress{}, false
}

func (r memOnboarding) ProgressByOrg(_ context.Context, orgID int64) (*models.OnboardingProgress, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.progressFor(orgID)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (r memOnboarding) ProgressByID(_ context.Context, id int64) (*models.OnboardingProgress, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.t.progress[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (r memOnboarding) ProgressForOrgs(_ context.Context, orgIDs []int64) (map[int64]models.OnboardingProgress, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make(map[int64]models.OnboardingProgress, len(orgIDs))
	for _, p := range r.m.t.progress {
		if slices.Contains(orgIDs, p.OrganizationID) {
			out[p.OrganizationID] = p
		}
	}
	return out, nil
}

func (r memOnboarding) AdvanceStep(_ context.Context, orgID int64, from, to int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.progressFor(orgID)
	if !ok || p.CurrentStepNumber != from {
		return fmt.Errorf("%w: organization %d is no longer at step %d", apperr.ErrInvalidTransition, orgID, from)
	}
	p.CurrentStepNumber = to
	p.ProgressPercent = 0
	p.UpdatedAt = r.m.now()
	r.m.t.progress[p.ID] = p
	return nil
}

func (r memOnboarding) SetDueDate(_ context.Context, progressID int64, due *time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.t.progress[progressID]
	if !ok {
		return nil
	}
	p.DueDate = due
	p.UpdatedAt = r.m.now()
	r.m.t.progress[progressID] = p
	return nil
}

func (r memOnboarding) SetProgress(_ context.Context, orgID int64, percent int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.progressFor(orgID)
	if !ok {
		return nil
	}
	p.ProgressPercent = percent
	p.UpdatedAt = r.m.now()
	r.m.t.progress[p.ID] = p
	return nil
}

func (r memOnboarding) Steps(_ context.Context, orgID int64) ([]models.OnboardingStep, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return sortedValues(r.m.t.steps, func(s models.OnboardingStep) bool {
		return s.OrganizationID == orgID
	}, func(a, b models.OnboardingStep) int { return a.StepNumber - b.StepNumber }), nil
}

func (r memOnboarding) Step(_ context.Context, orgID int64, stepNumber int) (*models.OnboardingStep, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.t.steps {
		if s.OrganizationID == orgID && s.StepNumber == stepNumber {
			return &s, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r memOnboarding) MarkReached(_ context.Context, orgID int64, stepNumber int, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, s := range r.m.t.steps {
		if s.OrganizationID == orgID && s.StepNumber == stepNumber {
			s.ReachedAt = &at
			r.m.t.steps[id] = s
		}
	}
	return nil
}

func (r memOnboarding) DeleteForOrg(_ context.Context, orgID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	maps.DeleteFunc(r.m.t.steps, func(_ int64, s models.OnboardingStep) bool { return s.OrganizationID == orgID })
	maps.DeleteFunc(r.m.t.progress, func(_ int64, p models.OnboardingProgress) bool { return p.OrganizationID == orgID })
	return nil
}

// documents

type memDocuments struct{ m *MemoryManager }

func (r memDocuments) Create(_ context.Context, doc *models.Document) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	doc.ID = r.m.id()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.m.now()
	}
	doc.UpdatedAt = doc.CreatedAt
	r.m.t.docs[doc.ID] = *doc
	return nil
}

func (r memDocuments) Get(_ context.Context, id int64) (*models.Document, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	d, ok := r.m.t.docs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &d, nil
}

func (r memDocuments) UpdateMeta(_ context.Context, id int64, name *string, docType *models.DocumentType) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.t.docs[id]
	if !ok {
		return nil
	}
	if name != nil {
		d.Name = *name
	}
	if docType != nil {
		d.Type = *docType
	}
	d.UpdatedAt = r.m.now()
	r.m.t.docs[id] = d
	return nil
}

func (r memDocuments) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.t.docs, id)
	return nil
}

func docsNewestFirst(a, b models.Document) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return int(b.ID - a.ID)
}

func (r memDocuments) ListByOrg(_ context.Context, orgID int64) ([]models.Document, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return sortedValues(r.m.t.docs, func(d models.Document) bool {
		return d.OrganizationID == orgID
	}, docsNewestFirst), nil
}

func (r memDocuments) ListByOrgs(_ context.Context, orgIDs []int64) ([]models.Document, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return sortedValues(r.m.t.docs, func(d models.Document) bool {
		return slices.Contains(orgIDs, d.OrganizationID)
	}, docsNewestFirst), nil
}

// organization users

type memUsers struct{ m *MemoryManager }

// emailTaken must be called with mu held.
func (r memUsers) emailTaken(orgID, exceptID int64, email string) bool {
	for _, u := range r.m.t.users {
		if u.OrganizationID == orgID && u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r memUsers) Create(_ context.Context, u *models.OrganizationUser) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.emailTaken(u.OrganizationID, 0, u.Email) {
		return fmt.Errorf("%w: email %s", apperr.ErrConflict, u.Email)
	}
	u.ID = r.m.id()
	u.CreatedAt = r.m.now()
	u.UpdatedAt = u.CreatedAt
	r.m.t.users[u.ID] = *u
	return nil
}

func (r memUsers) Get(_ context.Context, id int64) (*models.OrganizationUser, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.t.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) ByEmail(_ context.Context, orgID int64, email string) (*models.OrganizationUser, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.t.users {
		if u.OrganizationID == orgID && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r memUsers) Update(_ context.Context, u *models.OrganizationUser) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.t.users[u.ID]; !ok {
		return apperr.ErrNotFound
	}
	if r.emailTaken(u.OrganizationID, u.ID, u.Email) {
		return fmt.Errorf("%w: email %s", apperr.ErrConflict, u.Email)
	}
	u.UpdatedAt = r.m.now()
	r.m.t.users[u.ID] = *u
	return nil
}

func (r memUsers) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.t.users, id)
	return nil
}

func (r memUsers) ListByOrg(_ context.Context, orgID int64) ([]models.OrganizationUser, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return sortedValues(r.m.t.users, func(u models.OrganizationUser) bool {
		return u.OrganizationID == orgID
	}, func(a, b models.OrganizationUser) int {
		if c := strings.Compare(a.FirstName, b.FirstName); c != 0 {
			return c
		}
		if c := strings.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	}), nil
}

func (r memUsers) DeleteForOrg(_ context.Context, orgID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	maps.DeleteFunc(r.m.t.users, func(_ int64, u models.OrganizationUser) bool { return u.OrganizationID == orgID })
	return nil
}

// operators

type memOperators struct{ m *MemoryManager }

func (r memOperators) Create(_ context.Context, op *models.Operator) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, cur := range r.m.t.operators {
		if strings.EqualFold(cur.Email, op.Email) {
			return fmt.Errorf("%w: operator %s", apperr.ErrConflict, op.Email)
		}
	}
	op.ID = r.m.id()
	op.CreatedAt = r.m.now()
	op.UpdatedAt = op.CreatedAt
	r.m.t.operators[op.ID] = *op
	return nil
}

func (r memOperators) Get(_ context.Context, id int64) (*models.Operator, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	op, ok := r.m.t.operators[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &op, nil
}

func (r memOperators) ByEmail(_ context.Context, email string) (*models.Operator, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, op := range r.m.t.operators {
		if strings.EqualFold(op.Email, email) {
			return &op, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r memOperators) Count(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.t.operators)), nil
}

// audit

type memAudit struct{ m *MemoryManager }

func (r memAudit) Create(_ context.Context, entry *models.AuditLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	entry.ID = r.m.id()
	entry.CreatedAt = r.m.now()
	r.m.t.audit[entry.ID] = *entry
	return nil
}

func (r memAudit) List(_ context.Context, f AuditFilter) ([]models.AuditLog, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := sortedValues(r.m.t.audit, func(a models.AuditLog) bool {
		if f.AfterID > 0 && a.ID >= f.AfterID {
			return false
		}
		if q == "" {
			return true
		}
		for _, s := range []string{a.InitiatorName, a.Action, a.ResourceType, a.IP} {
			if strings.Contains(strings.ToLower(s), q) {
				return true
			}
		}
		return false
	}, func(a, b models.AuditLog) int { return int(b.ID - a.ID) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

