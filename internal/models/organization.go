package models

import (
	"strings"
	"time"
)

type OrganizationType string

const (
	OrgFintech                    OrganizationType = "fintech"
	OrgBank                       OrganizationType = "bank"
	OrgDistributionChannelPartner OrganizationType = "distribution-channel-partner"
)

// ParseOrganizationType accepts the canonical value and the spelled-out label
// ("distribution channel partners") the onboarding forms send.
func ParseOrganizationType(s string) (OrganizationType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "-")
	norm = strings.TrimSuffix(norm, "s")
	switch OrganizationType(norm) {
	case OrgFintech, OrgBank, OrgDistributionChannelPartner:
		return OrganizationType(norm), true
	}
	return "", false
}

type Organization struct {
	ID        int64            `gorm:"primaryKey" json:"organization_id"`
	Name      string           `gorm:"size:200;not null;index" json:"organization_name"`
	Type      OrganizationType `gorm:"size:64;not null" json:"organization_type"`
	Country   string           `gorm:"size:100" json:"country"`
	CreatedOn time.Time        `gorm:"<-:create;not null" json:"organization_created_on"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Relations
	Progress *OnboardingProgress `gorm:"foreignKey:OrganizationID" json:"-"`
	Steps    []OnboardingStep    `gorm:"foreignKey:OrganizationID" json:"-"`
	Users    []OrganizationUser  `gorm:"foreignKey:OrganizationID" json:"-"`
}
