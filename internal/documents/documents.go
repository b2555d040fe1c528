// Package documents manages files attached to an organization's onboarding
// steps.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"launchpad/internal/apperr"
	"launchpad/internal/cache"
	"launchpad/internal/metrics"
	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/stage"
	"launchpad/internal/storage"
)

const DefaultLinkType = "pdf"

// View is the wire shape of a document.
type View struct {
	ID           int64               `json:"id"`
	StepID       int64               `json:"step_id"`
	StepNumber   int                 `json:"step_number"`
	LinkType     string              `json:"link_type"`
	DocumentLink string              `json:"document_link"`
	DocumentType models.DocumentType `json:"document_type"`
	DocumentName string              `json:"document_name"`
	CreatedAt    time.Time           `json:"created_at"`
}

func ToView(d models.Document) View {
	return View{
		ID:           d.ID,
		StepID:       d.StepID,
		StepNumber:   d.StepNumber,
		LinkType:     d.LinkType,
		DocumentLink: d.URL,
		DocumentType: d.Type,
		DocumentName: d.Name,
		CreatedAt:    d.CreatedAt,
	}
}

func ToViews(docs []models.Document) []View {
	out := make([]View, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToView(d))
	}
	return out
}

type Deps struct {
	Repo    repository.Manager
	Objects storage.ObjectStore
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type Service struct {
	repo    repository.Manager
	objects storage.ObjectStore
	cache   cache.Cache
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{repo: d.Repo, objects: d.Objects, cache: d.Cache, metrics: d.Metrics, log: d.Logger}
}

type UploadInput struct {
	OrganizationID int64
	StepNumber     int
	Name           string
	Type           string
	LinkType       string
	Filename       string
	ContentType    string
	Body           []byte
}

func (in UploadInput) validate() (models.DocumentType, error) {
	if in.OrganizationID <= 0 {
		return "", apperr.Required("organization_id")
	}
	if in.StepNumber == 0 {
		return "", apperr.Required("step_number")
	}
	if !stage.Valid(in.StepNumber) {
		return "", apperr.Invalid("step_number", fmt.Sprintf("must be between %d and %d", stage.First, stage.Last))
	}
	if strings.TrimSpace(in.Name) == "" {
		return "", apperr.Required("document_name")
	}
	if in.Type == "" {
		return "", apperr.Required("document_type")
	}
	t := models.DocumentType(in.Type)
	if !t.Valid() {
		return "", apperr.Invalid("document_type", fmt.Sprintf("unknown type %q", in.Type))
	}
	if len(in.Body) == 0 {
		return "", apperr.Required("file")
	}
	return t, nil
}

// Upload stores the payload, then records the document against the given
// step. A document row never exists without its object: if the row cannot
// be written the object is removed again.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*View, error) {
	docType, err := in.validate()
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Organizations().Get(ctx, in.OrganizationID); err != nil {
		return nil, fmt.Errorf("organization %d: %w", in.OrganizationID, err)
	}
	step, err := s.repo.Onboarding().Step(ctx, in.OrganizationID, in.StepNumber)
	if err != nil {
		return nil, fmt.Errorf("step %d of organization %d: %w", in.StepNumber, in.OrganizationID, err)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(in.Body)
	}
	linkType := strings.TrimSpace(in.LinkType)
	if linkType == "" {
		linkType = DefaultLinkType
	}

	key := storage.DocumentKey(in.OrganizationID, in.StepNumber, in.Filename)
	url, err := s.objects.Put(ctx, key, contentType, bytes.NewReader(in.Body), int64(len(in.Body)))
	if err != nil {
		s.log.Error("document upload failed", "organization_id", in.OrganizationID, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}

	doc := models.Document{
		OrganizationID: in.OrganizationID,
		StepID:         step.ID,
		StepNumber:     step.StepNumber,
		Name:           strings.TrimSpace(in.Name),
		Type:           docType,
		LinkType:       linkType,
		URL:            url,
		StorageKey:     key,
	}
	if err := s.repo.Documents().Create(ctx, &doc); err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.log.Warn("orphaned document object", "key", key, "error", derr)
		}
		return nil, err
	}

	s.invalidate(ctx, in.OrganizationID)
	s.metrics.DocumentUploaded(string(docType))
	s.log.Info("document uploaded", "organization_id", in.OrganizationID, "document_id", doc.ID, "step", in.StepNumber)

	v := ToView(doc)
	return &v, nil
}

// Edit changes name and/or type. URL and creation time are never touched.
func (s *Service) Edit(ctx context.Context, docID int64, name, docType *string) (*View, error) {
	doc, err := s.repo.Documents().Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", docID, err)
	}

	var newName *string
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, apperr.Invalid("document_name", "must not be empty")
		}
		newName = &n
	}
	var newType *models.DocumentType
	if docType != nil {
		t := models.DocumentType(*docType)
		if !t.Valid() {
			return nil, apperr.Invalid("document_type", fmt.Sprintf("unknown type %q", *docType))
		}
		newType = &t
	}

	if err := s.repo.Documents().UpdateMeta(ctx, docID, newName, newType); err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.OrganizationID)

	updated, err := s.repo.Documents().Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	v := ToView(*updated)
	return &v, nil
}

// Delete removes the document and its stored object. Deleting an unknown id
// succeeds.
func (s *Service) Delete(ctx context.Context, docID int64) error {
	doc, err := s.repo.Documents().Get(ctx, docID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.Documents().Delete(ctx, docID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
			s.log.Warn("document object not removed", "key", doc.StorageKey, "error", err)
		}
	}
	s.invalidate(ctx, doc.OrganizationID)
	return nil
}

func (s *Service) ListForOrganization(ctx context.Context, orgID int64) ([]View, error) {
	if _, err := s.repo.Organizations().Get(ctx, orgID); err != nil {
		return nil, fmt.Errorf("organization %d: %w", orgID, err)
	}
	docs, err := s.repo.Documents().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return ToViews(docs), nil
}

func (s *Service) invalidate(ctx context.Context, orgID int64) {
	if err := s.cache.Invalidate(ctx, cache.OrganizationKey(orgID)); err != nil {
		s.log.Warn("cache invalidate failed", "organization_id", orgID, "error", err)
	}
}
