package onboarding

import (
	"time"

	"launchpad/internal/documents"
	"launchpad/internal/models"
	"launchpad/internal/stage"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// OrganizationSummary is one row of the organization list.
type OrganizationSummary struct {
	OrganizationID     int64                   `json:"organization_id"`
	OrganizationName   string                  `json:"organization_name"`
	OrganizationType   models.OrganizationType `json:"organization_type"`
	Country            string                  `json:"country"`
	CreatedOn          time.Time               `json:"organization_created_on"`
	StepID             int64                   `json:"step_id"`
	LatestStepNumber   int                     `json:"latest_step_number"`
	LatestStepName     string                  `json:"latest_step_name"`
	LatestStepProgress int                     `json:"latest_step_progress"`
	DueDate            *string                 `json:"due_date"`
	DocumentLinks      []documents.View        `json:"document_links"`
}

type StepView struct {
	StepID     int64            `json:"step_id"`
	StepNumber int              `json:"step_number"`
	StepName   string           `json:"step_name"`
	State      stage.State      `json:"state"`
	ReachedAt  *time.Time       `json:"reached_at"`
	Documents  []documents.View `json:"documents"`
}

// OrganizationDetail is the summary plus the full 8-step timeline.
type OrganizationDetail struct {
	OrganizationSummary
	UpdatedAt time.Time  `json:"updated_at"`
	Steps     []StepView `json:"steps"`
}

type ProgressView struct {
	StepID            int64   `json:"step_id"`
	OrganizationID    int64   `json:"organization_id"`
	CurrentStepNumber int     `json:"current_step_number"`
	CurrentStepName   string  `json:"current_step_name"`
	Progress          int     `json:"progress"`
	DueDate           *string `json:"due_date"`
}

type OrganizationName struct {
	OrganizationID   int64  `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// Page is one page of the organization list. Items is serialized as "steps"
// to match the list endpoint's historical shape.
type Page struct {
	Items   []OrganizationSummary `json:"steps"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
	HasNext bool                  `json:"has_next"`
	HasPrev bool                  `json:"has_prev"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func toProgressView(p models.OnboardingProgress) ProgressView {
	return ProgressView{
		StepID:            p.ID,
		OrganizationID:    p.OrganizationID,
		CurrentStepNumber: p.CurrentStepNumber,
		CurrentStepName:   p.CurrentStepName(),
		Progress:          p.ProgressPercent,
		DueDate:           formatDate(p.DueDate),
	}
}

func toSummary(org models.Organization, p models.OnboardingProgress, docs []models.Document) OrganizationSummary {
	return OrganizationSummary{
		OrganizationID:     org.ID,
		OrganizationName:   org.Name,
		OrganizationType:   org.Type,
		Country:            org.Country,
		CreatedOn:          org.CreatedOn,
		StepID:             p.ID,
		LatestStepNumber:   p.CurrentStepNumber,
		LatestStepName:     p.CurrentStepName(),
		LatestStepProgress: p.ProgressPercent,
		DueDate:            formatDate(p.DueDate),
		DocumentLinks:      documents.ToViews(docs),
	}
}

func toStepViews(current int, steps []models.OnboardingStep, docs []models.Document) []StepView {
	byStep := map[int64][]models.Document{}
	for _, d := range docs {
		byStep[d.StepID] = append(byStep[d.StepID], d)
	}
	states := map[int]stage.State{}
	for _, e := range stage.Timeline(current) {
		states[e.Number] = e.State
	}
	out := make([]StepView, 0, len(steps))
	for _, s := range steps {
		out = append(out, StepView{
			StepID:     s.ID,
			StepNumber: s.StepNumber,
			StepName:   s.Name(),
			State:      states[s.StepNumber],
			ReachedAt:  s.ReachedAt,
			Documents:  documents.ToViews(byStep[s.ID]),
		})
	}
	return out
}
