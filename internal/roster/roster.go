// Package roster manages the users that belong to a client organization.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/cache"
	"launchpad/internal/models"
	"launchpad/internal/repository"
)

type Deps struct {
	Repo   repository.Manager
	Cache  cache.Cache
	Logger *slog.Logger
}

type Service struct {
	repo  repository.Manager
	cache cache.Cache
	log   *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{repo: d.Repo, cache: d.Cache, log: d.Logger}
}

type UserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Role        string
	Title       string
	Department  string
	LinkedInURL string
}

// UserPatch carries the fields EditUser should change. nil leaves a field
// alone.
type UserPatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Role        *string
	Title       *string
	Department  *string
	LinkedInURL *string
}

// LoginActivity is one row of the login report.
type LoginActivity struct {
	UserID     int64      `json:"user_id"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	FirstLogin *time.Time `json:"first_login"`
	LastLogin  *time.Time `json:"last_login"`
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperr.Required("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Invalid("email", "is not a valid address")
	}
	return email, nil
}

func parseRole(raw string) (models.UserRole, error) {
	r := models.UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if r == "" {
		return "", apperr.Required("role")
	}
	if !r.Valid() {
		return "", apperr.Invalid("role", fmt.Sprintf("must be %q or %q", models.RoleAdmin, models.RoleStandard))
	}
	return r, nil
}

// AddUser puts a new, unverified user on the organization's roster.
func (s *Service) AddUser(ctx context.Context, orgID int64, in UserInput) (*models.OrganizationUser, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		return nil, apperr.Required("first_name")
	}
	if last == "" {
		return nil, apperr.Required("last_name")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Organizations().Get(ctx, orgID); err != nil {
		return nil, fmt.Errorf("organization %d: %w", orgID, err)
	}

	switch _, err := s.repo.Users().ByEmail(ctx, orgID, email); {
	case err == nil:
		return nil, fmt.Errorf("%w: email %s is already on this organization's roster", apperr.ErrConflict, email)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	u := models.OrganizationUser{
		OrganizationID: orgID,
		FirstName:      first,
		LastName:       last,
		Email:          email,
		Role:           role,
		Title:          strings.TrimSpace(in.Title),
		Department:     strings.TrimSpace(in.Department),
		LinkedInURL:    strings.TrimSpace(in.LinkedInURL),
	}
	if err := s.repo.Users().Create(ctx, &u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	s.log.Info("user added", "organization_id", orgID, "user_id", u.ID)
	return &u, nil
}

// EditUser applies patch to the user with the given id. A changed email is
// checked against the rest of the organization's roster.
func (s *Service) EditUser(ctx context.Context, userID int64, patch UserPatch) (*models.OrganizationUser, error) {
	u, err := s.repo.Users().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}

	setName := func(field string, src *string, dst *string) error {
		if src == nil {
			return nil
		}
		v := strings.TrimSpace(*src)
		if v == "" {
			return apperr.Invalid(field, "must not be empty")
		}
		*dst = v
		return nil
	}
	if err := setName("first_name", patch.FirstName, &u.FirstName); err != nil {
		return nil, err
	}
	if err := setName("last_name", patch.LastName, &u.LastName); err != nil {
		return nil, err
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			switch other, err := s.repo.Users().ByEmail(ctx, u.OrganizationID, email); {
			case err == nil && other.ID != u.ID:
				return nil, fmt.Errorf("%w: email %s is already on this organization's roster", apperr.ErrConflict, email)
			case err != nil && !errors.Is(err, apperr.ErrNotFound):
				return nil, err
			}
		}
		u.Email = email
	}
	if patch.Role != nil {
		role, err := parseRole(*patch.Role)
		if err != nil {
			return nil, err
		}
		u.Role = role
	}
	if patch.Title != nil {
		u.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Department != nil {
		u.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.LinkedInURL != nil {
		u.LinkedInURL = strings.TrimSpace(*patch.LinkedInURL)
	}

	if err := s.repo.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.OrganizationID)
	return u, nil
}

// DeleteUser removes the user. Unknown ids succeed.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	u, err := s.repo.Users().Get(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.Users().Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(ctx, u.OrganizationID)
	s.log.Info("user deleted", "organization_id", u.OrganizationID, "user_id", userID)
	return nil
}

// ListUsers reads the roster through the cache.
func (s *Service) ListUsers(ctx context.Context, orgID int64) ([]models.OrganizationUser, error) {
	key := cache.RosterKey(orgID)
	var cached []models.OrganizationUser
	switch err := s.cache.GetJSON(ctx, key, &cached); {
	case err == nil:
		return cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn("cache read failed", "key", key, "error", err)
	}

	gen, genErr := s.cache.Version(ctx, key)
	if _, err := s.repo.Organizations().Get(ctx, orgID); err != nil {
		return nil, fmt.Errorf("organization %d: %w", orgID, err)
	}
	users, err := s.repo.Users().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.OrganizationUser{}
	}
	if genErr != nil {
		s.log.Warn("cache read failed", "key", key, "error", genErr)
		return users, nil
	}
	if err := s.cache.Fill(ctx, key, gen, users); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
	}
	return users, nil
}

func (s *Service) LoginActivity(ctx context.Context, orgID int64) ([]LoginActivity, error) {
	users, err := s.ListUsers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]LoginActivity, 0, len(users))
	for _, u := range users {
		out = append(out, LoginActivity{
			UserID:     u.ID,
			FullName:   u.FullName(),
			Email:      u.Email,
			FirstLogin: u.FirstLogin,
			LastLogin:  u.LastLogin,
		})
	}
	return out, nil
}

// RecordLogin stamps a successful sign-in. The first one also verifies the
// user.
func (s *Service) RecordLogin(ctx context.Context, userID int64, at time.Time) (*models.OrganizationUser, error) {
	u, err := s.repo.Users().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	at = at.UTC()
	if u.FirstLogin == nil {
		u.FirstLogin = &at
	}
	u.LastLogin = &at
	u.IsVerified = true
	if err := s.repo.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.OrganizationID)
	return u, nil
}

// MarkPasswordReset records that the user has set their own password.
func (s *Service) MarkPasswordReset(ctx context.Context, userID int64) (*models.OrganizationUser, error) {
	u, err := s.repo.Users().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	u.PasswordReset = true
	u.IsVerified = true
	if err := s.repo.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.OrganizationID)
	return u, nil
}

func (s *Service) invalidate(ctx context.Context, orgID int64) {
	if err := s.cache.Invalidate(ctx, cache.RosterKey(orgID)); err != nil {
		s.log.Warn("cache invalidate failed", "organization_id", orgID, "error", err)
	}
}
