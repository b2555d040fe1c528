package console

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/documents"
	"launchpad/internal/models"
	"launchpad/internal/onboarding"
	"launchpad/internal/stage"
)

// Session pairs the API client with the local state. Reads go through the
// state; writes validate their input before any request is sent and drop the
// affected state entries once the server has accepted them.
type Session struct {
	client *Client
	state  *State
}

func NewSession(client *Client, state *State) *Session {
	return &Session{client: client, state: state}
}

func (s *Session) Client() *Client { return s.client }
func (s *Session) State() *State   { return s.state }

func (s *Session) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Required("email")
	}
	if password == "" {
		return apperr.Required("password")
	}
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.state.SetToken(token)
	return nil
}

// Organization returns the detail of id, from the state when present.
func (s *Session) Organization(ctx context.Context, id int64) (*onboarding.OrganizationDetail, error) {
	if d, ok := s.state.organization(id); ok {
		return d, nil
	}
	d, err := s.client.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	s.state.putOrganization(d)
	s.state.Select(id)
	return d, nil
}

// Roster returns the users of orgID, from the state when present.
func (s *Session) Roster(ctx context.Context, orgID int64) ([]models.OrganizationUser, error) {
	if users, ok := s.state.roster(orgID); ok {
		return users, nil
	}
	users, err := s.client.ListUsers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	s.state.putRoster(orgID, users)
	return users, nil
}

// Remember stores the list view's latest result.
func (s *Session) Remember(res ListResult) { s.state.setList(res.Items) }

func (s *Session) CreateOrganization(ctx context.Context, in NewOrganization) (*onboarding.OrganizationDetail, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Required("organization_name")
	}
	if _, ok := models.ParseOrganizationType(in.Type); !ok {
		return nil, apperr.Invalid("organization_type", fmt.Sprintf("unknown type %q", in.Type))
	}
	d, err := s.client.CreateOrganization(ctx, in)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(d.OrganizationID)
	return d, nil
}

// Advance moves orgID from currentStep to the next stage.
func (s *Session) Advance(ctx context.Context, orgID int64, currentStep int, notifyUserIDs []int64) (*onboarding.ProgressView, error) {
	if _, err := stage.Next(currentStep); err != nil {
		return nil, err
	}
	p, err := s.client.AdvanceStage(ctx, orgID, currentStep, notifyUserIDs)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(orgID)
	return p, nil
}

func (s *Session) SetProgress(ctx context.Context, orgID int64, percent int) (*onboarding.ProgressView, error) {
	if percent < 0 || percent > 100 {
		return nil, apperr.Invalid("progress", "must be between 0 and 100")
	}
	p, err := s.client.SetProgress(ctx, orgID, percent)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(orgID)
	return p, nil
}

func (s *Session) SetDueDate(ctx context.Context, stepID int64, due *time.Time) (*onboarding.ProgressView, error) {
	if stepID <= 0 {
		return nil, apperr.Required("step_id")
	}
	p, err := s.client.UpdateDueDate(ctx, stepID, due)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(p.OrganizationID)
	return p, nil
}

func validDocumentType(t string) error {
	if t == "" {
		return apperr.Required("document_type")
	}
	if !models.DocumentType(t).Valid() {
		return apperr.Invalid("document_type", fmt.Sprintf("unknown type %q", t))
	}
	return nil
}

func (s *Session) UploadDocument(ctx context.Context, orgID int64, stepNumber int, name, docType, filename string, body io.Reader) (*documents.View, error) {
	if !stage.Valid(stepNumber) {
		return nil, apperr.Invalid("step_number", fmt.Sprintf("must be between %d and %d", stage.First, stage.Last))
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Required("document_name")
	}
	if err := validDocumentType(docType); err != nil {
		return nil, err
	}
	if body == nil || filename == "" {
		return nil, apperr.Required("file")
	}
	doc, err := s.client.UploadDocument(ctx, orgID, DocumentUpload{
		StepNumber:   stepNumber,
		DocumentName: name,
		DocumentType: docType,
		Filename:     filename,
		Body:         body,
	})
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(orgID)
	return doc, nil
}

// EditDocument changes a document of orgID. orgID only scopes the state
// entries to drop.
func (s *Session) EditDocument(ctx context.Context, orgID, docID int64, name, docType *string) (*documents.View, error) {
	if name == nil && docType == nil {
		return nil, apperr.Invalid("document", "nothing to change")
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, apperr.Invalid("document_name", "must not be empty")
	}
	if docType != nil {
		if err := validDocumentType(*docType); err != nil {
			return nil, err
		}
	}
	doc, err := s.client.EditDocument(ctx, docID, name, docType)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateOrganization(orgID)
	return doc, nil
}

func (s *Session) DeleteDocument(ctx context.Context, orgID, docID int64) error {
	if err := s.client.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	s.state.InvalidateOrganization(orgID)
	return nil
}

func validEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Required("email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Invalid("email", "is not a valid address")
	}
	return nil
}

func (s *Session) AddUser(ctx context.Context, orgID int64, u NewUser) (*models.OrganizationUser, error) {
	if strings.TrimSpace(u.FirstName) == "" {
		return nil, apperr.Required("first_name")
	}
	if strings.TrimSpace(u.LastName) == "" {
		return nil, apperr.Required("last_name")
	}
	if err := validEmail(u.Email); err != nil {
		return nil, err
	}
	if !models.UserRole(strings.ToLower(u.Role)).Valid() {
		return nil, apperr.Invalid("role", "must be admin or standard")
	}
	added, err := s.client.AddUser(ctx, orgID, u)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateRoster(orgID)
	return added, nil
}

func (s *Session) EditUser(ctx context.Context, userID int64, patch UserPatch) (*models.OrganizationUser, error) {
	if patch.Email != nil {
		if err := validEmail(*patch.Email); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil && !models.UserRole(strings.ToLower(*patch.Role)).Valid() {
		return nil, apperr.Invalid("role", "must be admin or standard")
	}
	u, err := s.client.EditUser(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	s.state.InvalidateRoster(u.OrganizationID)
	return u, nil
}

func (s *Session) DeleteUser(ctx context.Context, orgID, userID int64) error {
	if err := s.client.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.state.InvalidateRoster(orgID)
	return nil
}
