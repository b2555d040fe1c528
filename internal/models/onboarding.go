package models

import (
	"time"

	"launchpad/internal/stage"
)

// OnboardingProgress is the single progress record of an organization. Its ID
// is what the REST surface calls the step id.
type OnboardingProgress struct {
	ID                int64      `gorm:"primaryKey" json:"step_id"`
	OrganizationID    int64      `gorm:"uniqueIndex;not null" json:"organization_id"`
	CurrentStepNumber int        `gorm:"not null;default:1" json:"current_step_number"`
	ProgressPercent   int        `gorm:"not null;default:0" json:"progress"`
	DueDate           *time.Time `json:"due_date"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (OnboardingProgress) TableName() string { return "onboarding_progress" }

func (p OnboardingProgress) CurrentStepName() string { return stage.Name(p.CurrentStepNumber) }

// OnboardingStep exists for all 8 stages from the moment the organization is
// created; documents hang off it.
type OnboardingStep struct {
	ID             int64      `gorm:"primaryKey" json:"step_id"`
	OrganizationID int64      `gorm:"uniqueIndex:idx_org_step;not null" json:"organization_id"`
	StepNumber     int        `gorm:"uniqueIndex:idx_org_step;not null" json:"step_number"`
	ReachedAt      *time.Time `json:"reached_at"`
	CreatedAt      time.Time  `json:"-"`

	Documents []Document `gorm:"foreignKey:StepID" json:"-"`
}

func (s OnboardingStep) Name() string { return stage.Name(s.StepNumber) }
