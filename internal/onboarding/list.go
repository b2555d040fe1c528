package onboarding

import (
	"context"
	"math"
	"strings"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/stage"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ListQuery selects a page of organizations. StartDate and EndDate are
// inclusive calendar days on the creation date.
type ListQuery struct {
	Page      int
	PerPage   int
	Stage     int
	StartDate *time.Time
	EndDate   *time.Time
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (q ListQuery) filter() (repository.OrgFilter, int, int, error) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// page*perPage must not overflow
	if page > math.MaxInt/perPage {
		return repository.OrgFilter{}, 0, 0, apperr.Invalid("page", "is too large")
	}
	if q.Stage != 0 && !stage.Valid(q.Stage) {
		return repository.OrgFilter{}, 0, 0, apperr.Invalid("stage", "must be between 1 and 8")
	}

	f := repository.OrgFilter{Stage: q.Stage, Offset: (page - 1) * perPage, Limit: perPage}
	if q.StartDate != nil {
		from := dayStart(*q.StartDate)
		f.From = &from
	}
	if q.EndDate != nil {
		to := dayStart(*q.EndDate).AddDate(0, 0, 1)
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return repository.OrgFilter{}, 0, 0, apperr.Invalid("end_date", "must not be before start_date")
	}
	return f, page, perPage, nil
}

// ListOrganizations returns one page of organizations, newest first.
func (s *Service) ListOrganizations(ctx context.Context, q ListQuery) (*Page, error) {
	f, page, perPage, err := q.filter()
	if err != nil {
		return nil, err
	}
	orgs, total, err := s.repo.Organizations().List(ctx, f)
	if err != nil {
		return nil, err
	}
	items, err := s.summaries(ctx, orgs)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		HasNext: int64(page*perPage) < total,
		HasPrev: page > 1,
	}, nil
}

// SearchOrganizations matches term against organization names,
// case-insensitively. The result is not paged; no match is an empty list.
func (s *Service) SearchOrganizations(ctx context.Context, term string) ([]OrganizationSummary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Required("search_term")
	}
	orgs, err := s.repo.Organizations().Search(ctx, term)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, orgs)
}

func (s *Service) ListOrganizationNames(ctx context.Context) ([]OrganizationName, error) {
	orgs, err := s.repo.Organizations().Names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OrganizationName, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, OrganizationName{OrganizationID: o.ID, OrganizationName: o.Name})
	}
	return out, nil
}

func (s *Service) summaries(ctx context.Context, orgs []models.Organization) ([]OrganizationSummary, error) {
	out := make([]OrganizationSummary, 0, len(orgs))
	if len(orgs) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	progress, err := s.repo.Onboarding().ProgressForOrgs(ctx, ids)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.Documents().ListByOrgs(ctx, ids)
	if err != nil {
		return nil, err
	}
	docsByOrg := map[int64][]models.Document{}
	for _, d := range docs {
		docsByOrg[d.OrganizationID] = append(docsByOrg[d.OrganizationID], d)
	}
	for _, o := range orgs {
		out = append(out, toSummary(o, progress[o.ID], docsByOrg[o.ID]))
	}
	return out, nil
}
