package models

import "time"

type DocumentType string

const (
	DocLaunchpad         DocumentType = "Launchpad document"
	DocSalesPresentation DocumentType = "Sales presentation"
	DocProductBriefing   DocumentType = "Product briefing"
	DocAdministrative    DocumentType = "Administrative"
	DocCompliance        DocumentType = "Compliance"
	DocOther             DocumentType = "Other"
)

var documentTypes = []DocumentType{
	DocLaunchpad, DocSalesPresentation, DocProductBriefing, DocAdministrative, DocCompliance, DocOther,
}

func DocumentTypes() []DocumentType {
	return append([]DocumentType(nil), documentTypes...)
}

func (t DocumentType) Valid() bool {
	for _, v := range documentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Document is a file attached to one onboarding step of one organization.
// URL, StorageKey and CreatedAt are written once.
type Document struct {
	ID             int64        `gorm:"primaryKey" json:"id"`
	OrganizationID int64        `gorm:"index;not null" json:"organization_id"`
	StepID         int64        `gorm:"index;not null" json:"step_id"`
	StepNumber     int          `gorm:"not null" json:"step_number"`
	Name           string       `gorm:"size:255;not null" json:"document_name"`
	Type           DocumentType `gorm:"size:64;not null" json:"document_type"`
	LinkType       string       `gorm:"size:32;default:pdf" json:"link_type"`
	URL            string       `gorm:"<-:create;size:1024;not null" json:"document_link"`
	StorageKey     string       `gorm:"<-:create;size:512" json:"-"`
	CreatedAt      time.Time    `gorm:"<-:create" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
