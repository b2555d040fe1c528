package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleStandard UserRole = "standard"
)

func (r UserRole) Valid() bool { return r == RoleAdmin || r == RoleStandard }

// OrganizationUser is a member of a client organization's roster. It is
// addressed by its surrogate ID; Email is unique only within the organization.
type OrganizationUser struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	OrganizationID int64      `gorm:"uniqueIndex:idx_org_email;not null" json:"organization_id"`
	FirstName      string     `gorm:"size:100;not null" json:"first_name"`
	LastName       string     `gorm:"size:100;not null" json:"last_name"`
	Email          string     `gorm:"uniqueIndex:idx_org_email;size:255;not null" json:"email"`
	Role           UserRole   `gorm:"size:16;not null;default:standard" json:"role"`
	Title          string     `gorm:"size:150" json:"title"`
	Department     string     `gorm:"size:150" json:"department"`
	LinkedInURL    string     `gorm:"size:512" json:"linkedin_url"`
	IsVerified     bool       `gorm:"not null;default:false" json:"is_verified"`
	PasswordReset  bool       `gorm:"not null;default:false" json:"password_reset"`
	FirstLogin     *time.Time `json:"first_login"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (u OrganizationUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
