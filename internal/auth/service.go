package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
	"launchpad/internal/repository"
)

type Service struct {
	operators repository.OperatorRepository
	tokens    *Tokens
}

func NewService(operators repository.OperatorRepository, tokens *Tokens) *Service {
	return &Service{operators: operators, tokens: tokens}
}

// Login checks the operator's password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *models.Operator, error) {
	op, err := s.operators.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", time.Time{}, nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, nil, apperr.ErrUnauthorized
	}
	if op.Status != models.OperatorActive {
		return "", time.Time{}, nil, apperr.ErrUnauthorized
	}
	token, exp, err := s.tokens.Issue(op)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, exp, op, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
