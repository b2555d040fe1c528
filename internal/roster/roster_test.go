package roster

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/apperr"
	"launchpad/internal/cache"
	"launchpad/internal/models"
	"launchpad/internal/repository"
)

// countingCache remembers rosters by key and counts invalidations.
type countingCache struct {
	cache.Nop
	rosters     map[string][]models.OrganizationUser
	invalidated map[string]int
	// beforeFill runs once, between the database read and the fill.
	beforeFill func()
}

func newCountingCache() *countingCache {
	return &countingCache{rosters: map[string][]models.OrganizationUser{}, invalidated: map[string]int{}}
}

func (c *countingCache) GetJSON(_ context.Context, key string, dest any) error {
	v, ok := c.rosters[key]
	if !ok {
		return cache.ErrMiss
	}
	*(dest.(*[]models.OrganizationUser)) = v
	return nil
}

// Version uses the invalidation count as the key's generation.
func (c *countingCache) Version(_ context.Context, key string) (int64, error) {
	return int64(c.invalidated[key]), nil
}

func (c *countingCache) Fill(_ context.Context, key string, version int64, value any) error {
	if c.beforeFill != nil {
		hook := c.beforeFill
		c.beforeFill = nil
		hook()
	}
	if int64(c.invalidated[key]) != version {
		return nil
	}
	c.rosters[key] = value.([]models.OrganizationUser)
	return nil
}

func (c *countingCache) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.rosters, k)
		c.invalidated[k]++
	}
	return nil
}

func setup(t *testing.T) (*Service, *countingCache, int64) {
	t.Helper()
	repo := repository.NewMemoryManager()
	org := models.Organization{Name: "Acme", Type: models.OrgFintech, Country: "Nigeria"}
	require.NoError(t, repo.Organizations().Create(context.Background(), &org))
	c := newCountingCache()
	svc := NewService(Deps{Repo: repo, Cache: c, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	return svc, c, org.ID
}

func ada() UserInput {
	return UserInput{FirstName: "Ada", LastName: "Lovelace", Email: " Ada@Acme.io ", Role: "admin", Title: "CTO"}
}

func TestAddUser(t *testing.T) {
	svc, c, orgID := setup(t)

	u, err := svc.AddUser(context.Background(), orgID, ada())
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ada@acme.io", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.IsVerified)
	assert.Nil(t, u.FirstLogin)
	assert.Equal(t, 1, c.invalidated[cache.RosterKey(orgID)])
}

func TestAddUser_Validation(t *testing.T) {
	svc, _, orgID := setup(t)
	ctx := context.Background()

	cases := map[string]func(*UserInput){
		"missing first name": func(in *UserInput) { in.FirstName = " " },
		"missing last name":  func(in *UserInput) { in.LastName = "" },
		"missing email":      func(in *UserInput) { in.Email = "" },
		"bad email":          func(in *UserInput) { in.Email = "not-an-email" },
		"display name email": func(in *UserInput) { in.Email = "Ada <ada@acme.io>" },
		"missing role":       func(in *UserInput) { in.Role = "" },
		"unknown role":       func(in *UserInput) { in.Role = "owner" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := ada()
			mutate(&in)
			_, err := svc.AddUser(ctx, orgID, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := svc.AddUser(ctx, 999, ada())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddUser_DuplicateEmailInSameOrganization(t *testing.T) {
	svc, _, orgID := setup(t)
	ctx := context.Background()

	_, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)

	again := ada()
	again.Email = "ADA@acme.io"
	_, err = svc.AddUser(ctx, orgID, again)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestEditUser(t *testing.T) {
	svc, _, orgID := setup(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)
	bob, err := svc.AddUser(ctx, orgID, UserInput{FirstName: "Bob", LastName: "K", Email: "bob@acme.io", Role: "standard"})
	require.NoError(t, err)

	email, dept := "ada.l@acme.io", "Engineering"
	edited, err := svc.EditUser(ctx, u.ID, UserPatch{Email: &email, Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "ada.l@acme.io", edited.Email)
	assert.Equal(t, "Engineering", edited.Department)
	assert.Equal(t, "CTO", edited.Title)

	taken := "BOB@acme.io"
	_, err = svc.EditUser(ctx, u.ID, UserPatch{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	same := "bob@acme.io"
	_, err = svc.EditUser(ctx, bob.ID, UserPatch{Email: &same})
	assert.NoError(t, err)

	role := "superuser"
	_, err = svc.EditUser(ctx, u.ID, UserPatch{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.EditUser(ctx, 12345, UserPatch{Department: &dept})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteUser_Idempotent(t *testing.T) {
	svc, _, orgID := setup(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	require.NoError(t, svc.DeleteUser(ctx, u.ID))

	users, err := svc.ListUsers(ctx, orgID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsers_ReadsThroughCache(t *testing.T) {
	svc, c, orgID := setup(t)
	ctx := context.Background()
	_, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Contains(t, c.rosters, cache.RosterKey(orgID))

	_, err = svc.AddUser(ctx, orgID, UserInput{FirstName: "Bob", LastName: "K", Email: "bob@acme.io", Role: "standard"})
	require.NoError(t, err)
	assert.NotContains(t, c.rosters, cache.RosterKey(orgID))

	users, err = svc.ListUsers(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.ListUsers(ctx, 777)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListUsers_InvalidationDuringLoadIsNotCached(t *testing.T) {
	svc, c, orgID := setup(t)
	ctx := context.Background()
	_, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)

	c.beforeFill = func() {
		_, err := svc.AddUser(ctx, orgID, UserInput{FirstName: "Bob", LastName: "K", Email: "bob@acme.io", Role: "standard"})
		require.NoError(t, err)
	}
	users, err := svc.ListUsers(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.NotContains(t, c.rosters, cache.RosterKey(orgID))

	users, err = svc.ListUsers(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Contains(t, c.rosters, cache.RosterKey(orgID))
}

func TestRecordLogin(t *testing.T) {
	svc, _, orgID := setup(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, orgID, ada())
	require.NoError(t, err)

	first := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(72 * time.Hour)

	got, err := svc.RecordLogin(ctx, u.ID, first)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.FirstLogin)
	assert.True(t, first.Equal(*got.FirstLogin))

	got, err = svc.RecordLogin(ctx, u.ID, second)
	require.NoError(t, err)
	assert.True(t, first.Equal(*got.FirstLogin))
	assert.True(t, second.Equal(*got.LastLogin))

	activity, err := svc.LoginActivity(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "Ada Lovelace", activity[0].FullName)
	assert.True(t, second.Equal(*activity[0].LastLogin))
}

func TestLoginActivity_NeverLoggedIn(t *testing.T) {
	svc, _, orgID := setup(t)
	_, err := svc.AddUser(context.Background(), orgID, ada())
	require.NoError(t, err)

	activity, err := svc.LoginActivity(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Nil(t, activity[0].FirstLogin)
	assert.Nil(t, activity[0].LastLogin)
}

func TestMarkPasswordReset(t *testing.T) {
	svc, _, orgID := setup(t)
	u, err := svc.AddUser(context.Background(), orgID, ada())
	require.NoError(t, err)

	got, err := svc.MarkPasswordReset(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.PasswordReset)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.LastLogin)
}
