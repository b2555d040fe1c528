package models

import "time"

type OperatorStatus string

const (
	OperatorActive    OperatorStatus = "active"
	OperatorSuspended OperatorStatus = "suspended"
)

// Operator is a console account of the onboarding team, not a member of any
// client organization.
type Operator struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string         `gorm:"size:200" json:"name"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:32;not null;default:viewer" json:"role"`
	Status       OperatorStatus `gorm:"size:16;default:active" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
