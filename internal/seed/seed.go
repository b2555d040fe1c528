// Package seed prepares a fresh database for first use.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"launchpad/internal/apperr"
	"launchpad/internal/auth"
	"launchpad/internal/models"
	"launchpad/internal/rbac"
	"launchpad/internal/repository"
)

const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"
)

// EnsureAdmin creates an active admin operator with the given credentials
// unless one with that email already exists. Empty credentials fall back to
// the defaults, which should be changed after first login.
func EnsureAdmin(ctx context.Context, operators repository.OperatorRepository, email, password string, log *slog.Logger) (*models.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = DefaultAdminEmail
	}
	if password == "" {
		password = DefaultAdminPassword
	}

	existing, err := operators.ByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("look up admin operator: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	op := models.Operator{
		Email:        email,
		Name:         "Admin",
		PasswordHash: hash,
		Role:         rbac.RoleAdmin,
		Status:       models.OperatorActive,
	}
	if err := operators.Create(ctx, &op); err != nil {
		return nil, fmt.Errorf("create admin operator: %w", err)
	}

	count, _ := operators.Count(ctx)
	log.Info("seeded admin operator", "email", email, "operators", count)
	if password == DefaultAdminPassword {
		log.Warn("admin operator uses the default password; change it")
	}
	return &op, nil
}
