package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
)

func seedOrg(t *testing.T, m *MemoryManager, name string, created time.Time, step int) models.Organization {
	t.Helper()
	ctx := context.Background()
	org := models.Organization{Name: name, Type: models.OrgFintech, Country: "Nigeria", CreatedOn: created}
	require.NoError(t, m.Organizations().Create(ctx, &org))
	require.NoError(t, m.Onboarding().CreateProgress(ctx, &models.OnboardingProgress{
		OrganizationID:    org.ID,
		CurrentStepNumber: step,
	}))
	return org
}

func TestMemory_OrganizationList_FiltersAndPages(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2025, 1, d, 10, 0, 0, 0, time.UTC) }

	seedOrg(t, m, "Acme", day(1), 1)
	seedOrg(t, m, "Beta Bank", day(2), 2)
	seedOrg(t, m, "Cobalt", day(3), 2)
	seedOrg(t, m, "Delta", day(4), 5)

	all, total, err := m.Organizations().List(ctx, OrgFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, all, 2)
	assert.Equal(t, "Delta", all[0].Name)
	assert.Equal(t, "Cobalt", all[1].Name)

	page2, _, err := m.Organizations().List(ctx, OrgFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "Acme", page2[1].Name)

	beyond, total, err := m.Organizations().List(ctx, OrgFilter{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
	assert.EqualValues(t, 4, total)

	atTwo, total, err := m.Organizations().List(ctx, OrgFilter{Stage: 2, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, atTwo, 2)

	from, to := day(2), day(4)
	ranged, _, err := m.Organizations().List(ctx, OrgFilter{From: &from, To: &to, Limit: 10})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "Cobalt", ranged[0].Name)
	assert.Equal(t, "Beta Bank", ranged[1].Name)
}

func TestMemory_OrganizationList_RejectsNegativeOffset(t *testing.T) {
	m := NewMemoryManager()
	seedOrg(t, m, "Acme", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), 1)

	_, _, err := m.Organizations().List(context.Background(), OrgFilter{Offset: -20, Limit: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestMemory_OrganizationSearch(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seedOrg(t, m, "Acme Payments", time.Now(), 1)
	seedOrg(t, m, "acme bank", time.Now(), 1)
	seedOrg(t, m, "Zenith", time.Now(), 1)

	got, err := m.Organizations().Search(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acme bank", got[0].Name)

	none, err := m.Organizations().Search(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_AdvanceStepIsConditional(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	org := seedOrg(t, m, "Acme", time.Now(), 1)
	require.NoError(t, m.Onboarding().SetProgress(ctx, org.ID, 60))

	require.NoError(t, m.Onboarding().AdvanceStep(ctx, org.ID, 1, 2))
	p, err := m.Onboarding().ProgressByOrg(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentStepNumber)
	assert.Zero(t, p.ProgressPercent)

	err = m.Onboarding().AdvanceStep(ctx, org.ID, 1, 2)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx Manager) error {
		org := models.Organization{Name: "Ghost", Type: models.OrgBank}
		require.NoError(t, tx.Organizations().Create(ctx, &org))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	names, err := m.Organizations().Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, m.WithTx(ctx, func(tx Manager) error {
		return tx.Organizations().Create(ctx, &models.Organization{Name: "Kept", Type: models.OrgBank})
	}))
	names, err = m.Organizations().Names(ctx)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "Kept", names[0].Name)
}

func TestMemory_UserEmailUniquePerOrganization(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	a := models.OrganizationUser{OrganizationID: 1, FirstName: "Ada", LastName: "L", Email: "ada@acme.io", Role: models.RoleAdmin}
	require.NoError(t, m.Users().Create(ctx, &a))

	dup := models.OrganizationUser{OrganizationID: 1, FirstName: "Ada", LastName: "M", Email: "ADA@acme.io", Role: models.RoleStandard}
	assert.True(t, errors.Is(m.Users().Create(ctx, &dup), apperr.ErrConflict))

	other := models.OrganizationUser{OrganizationID: 2, FirstName: "Ada", LastName: "L", Email: "ada@acme.io", Role: models.RoleAdmin}
	require.NoError(t, m.Users().Create(ctx, &other))
}

func TestMemory_DocumentsScopedByOrganization(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	require.NoError(t, m.Documents().Create(ctx, &models.Document{OrganizationID: 1, Name: "Deck", Type: models.DocSalesPresentation}))
	require.NoError(t, m.Documents().Create(ctx, &models.Document{OrganizationID: 2, Name: "SLA", Type: models.DocCompliance}))

	docs, err := m.Documents().ListByOrg(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Deck", docs[0].Name)

	require.NoError(t, m.Documents().Delete(ctx, 999))
	_, err = m.Documents().Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_AuditCursor(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	for _, action := range []string{"organizations.create", "documents.upload", "onboarding.advance"} {
		require.NoError(t, m.Audit().Create(ctx, &models.AuditLog{Action: action}))
	}

	first, err := m.Audit().List(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "onboarding.advance", first[0].Action)

	rest, err := m.Audit().List(ctx, AuditFilter{AfterID: first[1].ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "organizations.create", rest[0].Action)

	hits, err := m.Audit().List(ctx, AuditFilter{Query: "UPLOAD", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}
