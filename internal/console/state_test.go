package console

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/models"
	"launchpad/internal/onboarding"
)

func TestState_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s := NewState(path)
	s.SetToken("tok")
	s.Select(4)
	s.putOrganization(&onboarding.OrganizationDetail{OrganizationSummary: onboarding.OrganizationSummary{OrganizationID: 4, OrganizationName: "Acme"}})
	s.putRoster(4, []models.OrganizationUser{{ID: 9, Email: "ada@acme.io"}})
	require.NoError(t, s.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"organization-store"`)
	assert.Contains(t, string(raw), `"user-store"`)

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)
	assert.EqualValues(t, 4, loaded.Selected())
	d, ok := loaded.organization(4)
	require.True(t, ok)
	assert.Equal(t, "Acme", d.OrganizationName)
	users, ok := loaded.roster(4)
	require.True(t, ok)
	assert.Len(t, users, 1)
}

func TestLoadState_MissingFile(t *testing.T) {
	s, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Zero(t, s.Selected())
	_, ok := s.organization(1)
	assert.False(t, ok)
}

func TestState_Invalidate(t *testing.T) {
	s := NewState("")
	s.putOrganization(&onboarding.OrganizationDetail{OrganizationSummary: onboarding.OrganizationSummary{OrganizationID: 1}})
	s.setList([]onboarding.OrganizationSummary{{OrganizationID: 1}})
	s.putRoster(1, nil)

	s.InvalidateOrganization(1)
	_, ok := s.organization(1)
	assert.False(t, ok)
	assert.Nil(t, s.Organizations.List)

	s.InvalidateRoster(1)
	_, ok = s.roster(1)
	assert.False(t, ok)
	assert.NoError(t, s.Save())
}
