// Package onboarding owns organizations and their progression through the
// launchpad stages.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/cache"
	"launchpad/internal/metrics"
	"launchpad/internal/models"
	"launchpad/internal/notify"
	"launchpad/internal/repository"
	"launchpad/internal/stage"
	"launchpad/internal/storage"
)

const DefaultCountry = "Nigeria"

type Deps struct {
	Repo     repository.Manager
	Cache    cache.Cache
	Notifier notify.Notifier
	Objects  storage.ObjectStore
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// AllowDelete enables DeleteOrganization. Off by default.
	AllowDelete bool
	Now         func() time.Time
}

type Service struct {
	repo        repository.Manager
	cache       cache.Cache
	notifier    notify.Notifier
	objects     storage.ObjectStore
	metrics     *metrics.Metrics
	log         *slog.Logger
	allowDelete bool
	now         func() time.Time
}

func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = notify.LogNotifier{Log: d.Logger}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		repo:        d.Repo,
		cache:       d.Cache,
		notifier:    d.Notifier,
		objects:     d.Objects,
		metrics:     d.Metrics,
		log:         d.Logger,
		allowDelete: d.AllowDelete,
		now:         d.Now,
	}
}

type CreateOrganizationInput struct {
	Name    string
	Type    string
	Country string
}

// CreateOrganization creates the organization at stage 1 together with its
// progress record and all 8 step rows.
func (s *Service) CreateOrganization(ctx context.Context, in CreateOrganizationInput) (*OrganizationDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Required("organization_name")
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, apperr.Required("organization_type")
	}
	orgType, ok := models.ParseOrganizationType(in.Type)
	if !ok {
		return nil, apperr.Invalid("organization_type", fmt.Sprintf("unknown type %q", in.Type))
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = DefaultCountry
	}

	now := s.now().UTC()
	org := models.Organization{Name: name, Type: orgType, Country: country, CreatedOn: now}

	err := s.repo.WithTx(ctx, func(tx repository.Manager) error {
		if err := tx.Organizations().Create(ctx, &org); err != nil {
			return err
		}
		if err := tx.Onboarding().CreateProgress(ctx, &models.OnboardingProgress{
			OrganizationID:    org.ID,
			CurrentStepNumber: stage.First,
		}); err != nil {
			return err
		}
		steps := make([]models.OnboardingStep, 0, stage.Last)
		for _, st := range stage.All() {
			step := models.OnboardingStep{OrganizationID: org.ID, StepNumber: st.Number}
			if st.Number == stage.First {
				step.ReachedAt = &now
			}
			steps = append(steps, step)
		}
		return tx.Onboarding().CreateSteps(ctx, steps)
	})
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	s.log.Info("organization created", "organization_id", org.ID, "name", org.Name)
	return s.GetOrganization(ctx, org.ID)
}

type UpdateOrganizationInput struct {
	Name    *string
	Type    *string
	Country *string
}

// UpdateOrganization changes the given fields. CreatedOn is immutable.
func (s *Service) UpdateOrganization(ctx context.Context, id int64, in UpdateOrganizationInput) (*OrganizationDetail, error) {
	org, err := s.repo.Organizations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("organization %d: %w", id, err)
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" {
			return nil, apperr.Invalid("organization_name", "must not be empty")
		}
		org.Name = n
	}
	if in.Type != nil {
		t, ok := models.ParseOrganizationType(*in.Type)
		if !ok {
			return nil, apperr.Invalid("organization_type", fmt.Sprintf("unknown type %q", *in.Type))
		}
		org.Type = t
	}
	if in.Country != nil {
		org.Country = strings.TrimSpace(*in.Country)
	}
	if err := s.repo.Organizations().Update(ctx, org); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.GetOrganization(ctx, id)
}

// DeleteOrganization removes the organization with its steps, documents,
// stored objects, users and progress. It is refused unless deletion has been
// enabled.
func (s *Service) DeleteOrganization(ctx context.Context, id int64) error {
	if !s.allowDelete {
		return fmt.Errorf("%w: organization deletion is disabled", apperr.ErrOperationDisabled)
	}
	if _, err := s.repo.Organizations().Get(ctx, id); err != nil {
		return fmt.Errorf("organization %d: %w", id, err)
	}

	var keys []string
	err := s.repo.WithTx(ctx, func(tx repository.Manager) error {
		docs, err := tx.Documents().ListByOrg(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := tx.Documents().Delete(ctx, d.ID); err != nil {
				return err
			}
			if d.StorageKey != "" {
				keys = append(keys, d.StorageKey)
			}
		}
		if err := tx.Users().DeleteForOrg(ctx, id); err != nil {
			return err
		}
		if err := tx.Onboarding().DeleteForOrg(ctx, id); err != nil {
			return err
		}
		return tx.Organizations().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete organization %d: %w", id, err)
	}

	if s.objects != nil {
		for _, k := range keys {
			if err := s.objects.Delete(ctx, k); err != nil {
				s.log.Warn("document object not removed", "key", k, "error", err)
			}
		}
	}
	s.invalidate(ctx, id, cache.RosterKey(id))
	s.log.Info("organization deleted", "organization_id", id, "documents", len(keys))
	return nil
}

type AdvanceInput struct {
	// StepNumber is the step the caller believes the organization is at.
	StepNumber int
	// NextStep must be StepNumber+1; zero means StepNumber+1.
	NextStep int
	// NotifyUserIDs restricts the notification to these users. Empty
	// notifies the whole roster.
	NotifyUserIDs []int64
}

// AdvanceStage moves the organization forward by exactly one stage. The
// progress percentage restarts at 0; due date and documents are untouched.
func (s *Service) AdvanceStage(ctx context.Context, orgID int64, in AdvanceInput) (*ProgressView, error) {
	if in.StepNumber == 0 {
		return nil, apperr.Required("step_number")
	}
	if !stage.Valid(in.StepNumber) {
		return nil, apperr.Invalid("step_number", fmt.Sprintf("must be between %d and %d", stage.First, stage.Last))
	}
	org, err := s.repo.Organizations().Get(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("organization %d: %w", orgID, err)
	}
	progress, err := s.repo.Onboarding().ProgressByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("progress of organization %d: %w", orgID, err)
	}

	next, err := stage.Next(in.StepNumber)
	if err != nil {
		return nil, err
	}
	if in.NextStep != 0 && in.NextStep != next {
		return nil, fmt.Errorf("%w: next step must be %d, got %d", apperr.ErrInvalidTransition, next, in.NextStep)
	}
	if progress.CurrentStepNumber != in.StepNumber {
		return nil, fmt.Errorf("%w: organization is at step %d, not %d",
			apperr.ErrInvalidTransition, progress.CurrentStepNumber, in.StepNumber)
	}

	now := s.now().UTC()
	err = s.repo.WithTx(ctx, func(tx repository.Manager) error {
		if err := tx.Onboarding().AdvanceStep(ctx, orgID, in.StepNumber, next); err != nil {
			return err
		}
		return tx.Onboarding().MarkReached(ctx, orgID, next, now)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	s.metrics.StageAdvanced(next)
	s.log.Info("stage advanced", "organization_id", orgID, "from", in.StepNumber, "to", next)

	s.notifyStageChanged(ctx, org, in.StepNumber, next, in.NotifyUserIDs, now)

	updated, err := s.repo.Onboarding().ProgressByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	v := toProgressView(*updated)
	return &v, nil
}

const notifyTimeout = 10 * time.Second

func (s *Service) notifyStageChanged(ctx context.Context, org *models.Organization, from, to int, only []int64, at time.Time) {
	// the stage is already committed; a dropped client must not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	users, err := s.repo.Users().ListByOrg(ctx, org.ID)
	if err != nil {
		s.log.Warn("stage change recipients unavailable", "organization_id", org.ID, "error", err)
		s.metrics.NotificationFailed()
		return
	}
	recipients := make([]notify.Recipient, 0, len(users))
	for _, u := range users {
		if len(only) > 0 && !slices.Contains(only, u.ID) {
			continue
		}
		recipients = append(recipients, notify.Recipient{UserID: u.ID, Email: u.Email, FullName: u.FullName()})
	}
	ev := notify.StageChanged{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		FromStep:         from,
		FromStepName:     stage.Name(from),
		ToStep:           to,
		ToStepName:       stage.Name(to),
		Recipients:       recipients,
		OccurredAt:       at,
	}
	if err := s.notifier.StageChanged(ctx, ev); err != nil {
		s.log.Warn("stage change notification failed", "organization_id", org.ID, "error", err)
		s.metrics.NotificationFailed()
	}
}

// SetDueDate overwrites the due date of the progress record stepID. nil
// clears it. Step number and progress are never touched.
func (s *Service) SetDueDate(ctx context.Context, stepID int64, due *time.Time) (*ProgressView, error) {
	p, err := s.repo.Onboarding().ProgressByID(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", stepID, err)
	}
	if due != nil {
		d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		due = &d
	}
	if err := s.repo.Onboarding().SetDueDate(ctx, stepID, due); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.OrganizationID)

	updated, err := s.repo.Onboarding().ProgressByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	v := toProgressView(*updated)
	return &v, nil
}

// SetProgress records how far along the current stage is, 0 to 100.
func (s *Service) SetProgress(ctx context.Context, orgID int64, percent int) (*ProgressView, error) {
	if percent < 0 || percent > 100 {
		return nil, apperr.Invalid("progress", "must be between 0 and 100")
	}
	if _, err := s.repo.Onboarding().ProgressByOrg(ctx, orgID); err != nil {
		return nil, fmt.Errorf("progress of organization %d: %w", orgID, err)
	}
	if err := s.repo.Onboarding().SetProgress(ctx, orgID, percent); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)

	updated, err := s.repo.Onboarding().ProgressByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	v := toProgressView(*updated)
	return &v, nil
}

// GetOrganization reads through the cache.
func (s *Service) GetOrganization(ctx context.Context, id int64) (*OrganizationDetail, error) {
	key := cache.OrganizationKey(id)
	var cached OrganizationDetail
	switch err := s.cache.GetJSON(ctx, key, &cached); {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn("cache read failed", "key", key, "error", err)
	}

	gen, genErr := s.cache.Version(ctx, key)
	detail, err := s.loadOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		s.log.Warn("cache read failed", "key", key, "error", genErr)
		return detail, nil
	}
	if err := s.cache.Fill(ctx, key, gen, detail); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
	}
	return detail, nil
}

func (s *Service) loadOrganization(ctx context.Context, id int64) (*OrganizationDetail, error) {
	org, err := s.repo.Organizations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("organization %d: %w", id, err)
	}
	progress, err := s.repo.Onboarding().ProgressByOrg(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("progress of organization %d: %w", id, err)
	}
	steps, err := s.repo.Onboarding().Steps(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.Documents().ListByOrg(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrganizationDetail{
		OrganizationSummary: toSummary(*org, *progress, docs),
		UpdatedAt:           org.UpdatedAt,
		Steps:               toStepViews(progress.CurrentStepNumber, steps, docs),
	}, nil
}

// ListSteps returns the 8 steps of the organization with their documents.
func (s *Service) ListSteps(ctx context.Context, orgID int64) ([]StepView, error) {
	detail, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return detail.Steps, nil
}

func (s *Service) invalidate(ctx context.Context, orgID int64, extra ...string) {
	keys := append([]string{cache.OrganizationKey(orgID)}, extra...)
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("cache invalidate failed", "keys", keys, "error", err)
	}
}
