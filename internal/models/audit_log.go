package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	OperatorID     int64          `gorm:"index" json:"operator_id"`        // 0 for system actions
	OrganizationID int64          `gorm:"index" json:"organization_id"`    // 0 when not org-scoped
	Action         string         `gorm:"size:200;not null" json:"action"` // e.g. "onboarding.advance"
	ResourceType   string         `gorm:"size:100" json:"resource_type"`   // e.g. "document"
	ResourceID     int64          `gorm:"index" json:"resource_id"`
	Metadata       datatypes.JSON `gorm:"type:json" json:"metadata"`
	IP             string         `gorm:"size:64" json:"ip"`
	InitiatorName  string         `gorm:"size:255" json:"initiator_name"`
	UserAgent      string         `gorm:"size:255" json:"user_agent"`
	CreatedAt      time.Time      `json:"created_at"`
}

// All returns every model AutoMigrate manages.
func All() []any {
	return []any{
		&Organization{},
		&OnboardingProgress{},
		&OnboardingStep{},
		&Document{},
		&OrganizationUser{},
		&Operator{},
		&AuditLog{},
	}
}
