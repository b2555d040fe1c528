package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/audit"
	"launchpad/internal/auth"
	"launchpad/internal/documents"
	"launchpad/internal/metrics"
	"launchpad/internal/models"
	"launchpad/internal/onboarding"
	"launchpad/internal/rbac"
	"launchpad/internal/repository"
	"launchpad/internal/roster"
	"launchpad/internal/seed"
	"launchpad/internal/storage"
)

type server struct {
	t       *testing.T
	engine  *gin.Engine
	repo    *repository.MemoryManager
	objects *storage.MemoryStore
	token   string
}

func newServer(t *testing.T, allowDelete bool) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryManager()
	objects := storage.NewMemoryStore("http://files.test")
	tokens := auth.NewTokens("test-secret", time.Hour)

	_, err := seed.EnsureAdmin(context.Background(), repo.Operators(), "admin@example.com", "admin-pass", log)
	require.NoError(t, err)

	engine := NewRouter(Deps{
		Onboarding: onboarding.NewService(onboarding.Deps{Repo: repo, Objects: objects, Logger: log, AllowDelete: allowDelete}),
		Documents:  documents.NewService(documents.Deps{Repo: repo, Objects: objects, Logger: log}),
		Roster:     roster.NewService(roster.Deps{Repo: repo, Logger: log}),
		Auth:       auth.NewService(repo.Operators(), tokens),
		Tokens:     tokens,
		Operators:  repo.Operators(),
		Audit:      audit.NewRecorder(repo.Audit(), log),
		Metrics:    metrics.New(),
		Logger:     log,
	})
	s := &server{t: t, engine: engine, repo: repo, objects: objects}
	s.token = s.login("admin@example.com", "admin-pass")
	return s
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (s *server) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) upload(orgID int64, meta map[string]any, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	data, err := json.Marshal(meta)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.WriteField("data", string(data)))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/upload_document", orgID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLogin_BadPassword(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodGet, "/onboarding_steps/all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/onboarding_steps/all", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodGet, "/api/v1/me", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Operator    models.Operator `json:"operator"`
		Permissions []string        `json:"permissions"`
	}](t, w)
	assert.Equal(t, "admin@example.com", out.Operator.Email)
	assert.Contains(t, out.Permissions, rbac.AuditRead)
}

func TestViewerCannotWrite(t *testing.T) {
	s := newServer(t, false)
	hash, err := auth.HashPassword("viewer-pass")
	require.NoError(t, err)
	require.NoError(t, s.repo.Operators().Create(context.Background(), &models.Operator{
		Email: "viewer@example.com", PasswordHash: hash, Role: rbac.RoleViewer, Status: models.OperatorActive,
	}))
	viewer := s.login("viewer@example.com", "viewer-pass")

	w := s.do(http.MethodPost, "/organizations/create", map[string]string{"organization_name": "Acme", "organization_type": "fintech"}, viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/onboarding_steps/all", nil, viewer)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOnboardingFlowOverHTTP(t *testing.T) {
	s := newServer(t, false)

	w := s.do(http.MethodPost, "/organizations/create", map[string]string{
		"organization_name": "Acme", "organization_type": "fintech", "country": "Nigeria",
	}, s.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	org := decode[onboarding.OrganizationDetail](t, w)
	assert.Equal(t, 1, org.LatestStepNumber)
	require.Len(t, org.Steps, 8)

	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/organization/%d/progress_step", org.OrganizationID),
		map[string]int{"step_number": 1, "next_step": 2}, s.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[onboarding.ProgressView](t, w).CurrentStepNumber)

	// a second advance with the stale step number is a conflict
	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/organization/%d/progress_step", org.OrganizationID),
		map[string]int{"step_number": 1, "next_step": 2}, s.token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/organization/%d/progress_step", org.OrganizationID),
		map[string]int{"step_number": -1}, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(org.OrganizationID, map[string]any{
		"step_number": 2, "document_name": "Deck", "document_type": "Sales presentation",
	}, "deck.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[documents.View](t, w)
	assert.Equal(t, "pdf", doc.LinkType)
	assert.Equal(t, 1, s.objects.Len())

	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/edit_document", doc.ID),
		map[string]string{"document_type": "Compliance"}, s.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.DocCompliance, decode[documents.View](t, w).DocumentType)

	w = s.do(http.MethodGet, fmt.Sprintf("/onboarding_steps/all/%d/", org.OrganizationID), nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[onboarding.OrganizationDetail](t, w)
	require.Len(t, detail.DocumentLinks, 1)

	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/delete_document", doc.ID), nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.objects.Len())

	w = s.do(http.MethodPost, fmt.Sprintf("/onboarding_steps/update_due_date/%d/", detail.StepID),
		map[string]string{"due_date": "2025-01-15"}, s.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[onboarding.ProgressView](t, w)
	require.NotNil(t, p.DueDate)
	assert.Equal(t, "2025-01-15", *p.DueDate)
	assert.Equal(t, 2, p.CurrentStepNumber)

	w = s.do(http.MethodGet, "/api/v1/audit", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[struct {
		Logs []models.AuditLog `json:"logs"`
	}](t, w)
	assert.NotEmpty(t, logs.Logs)
	assert.Equal(t, "onboarding.due_date", logs.Logs[0].Action)
}

func TestListAndSearch(t *testing.T) {
	s := newServer(t, false)
	for _, name := range []string{"Acme Payments", "Zenith Bank", "Kuda"} {
		w := s.do(http.MethodPost, "/organizations/create", map[string]string{"organization_name": name, "organization_type": "bank"}, s.token)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/onboarding_steps/all?page=1&per_page=2", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[onboarding.Page](t, w)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)

	w = s.do(http.MethodGet, "/onboarding_steps/all?stage=9", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/onboarding_steps/all?start_date=yesterday", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/onboarding_steps/all?page=922337203685477582&per_page=10", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/onboarding_steps/search", map[string]string{"search_term": "zen"}, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[struct {
		Steps []onboarding.OrganizationSummary `json:"steps"`
	}](t, w)
	require.Len(t, found.Steps, 1)
	assert.Equal(t, "Zenith Bank", found.Steps[0].OrganizationName)

	w = s.do(http.MethodPost, "/onboarding_steps/search", map[string]string{"search_term": ""}, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/organizations/all", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	names := decode[struct {
		Organizations []onboarding.OrganizationName `json:"organizations"`
	}](t, w)
	require.Len(t, names.Organizations, 3)
	assert.Equal(t, "Acme Payments", names.Organizations[0].OrganizationName)
}

func TestDeleteOrganization_DisabledIsForbidden(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodPost, "/organizations/create", map[string]string{"organization_name": "Acme", "organization_type": "fintech"}, s.token)
	require.Equal(t, http.StatusCreated, w.Code)
	org := decode[onboarding.OrganizationDetail](t, w)

	w = s.do(http.MethodPost, fmt.Sprintf("/organizations/%d/delete", org.OrganizationID), nil, s.token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/onboarding_steps/all/999/", nil, s.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRosterEndpoints(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodPost, "/organizations/create", map[string]string{"organization_name": "Acme", "organization_type": "fintech"}, s.token)
	require.Equal(t, http.StatusCreated, w.Code)
	org := decode[onboarding.OrganizationDetail](t, w)

	add := map[string]string{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@acme.io", "role": "admin"}
	w = s.do(http.MethodPost, fmt.Sprintf("/users/admin/add_user/%d", org.OrganizationID), add, s.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[struct {
		User models.OrganizationUser `json:"user"`
	}](t, w).User
	assert.False(t, user.IsVerified)

	w = s.do(http.MethodPost, fmt.Sprintf("/users/admin/add_user/%d", org.OrganizationID), add, s.token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/users/edit/%d", user.ID), map[string]string{"title": "CTO"}, s.token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/users/login_event/%d", user.ID), nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/users/organization_users/logins/%d", org.OrganizationID), nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	logins := decode[struct {
		Logins []roster.LoginActivity `json:"logins"`
	}](t, w)
	require.Len(t, logins.Logins, 1)
	assert.NotNil(t, logins.Logins[0].FirstLogin)

	w = s.do(http.MethodPost, "/users/admin/delete", map[string]int64{"user_id": user.ID}, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/users/admin/delete", map[string]int64{"user_id": user.ID}, s.token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/users/organization/admin-users/%d/", org.OrganizationID), nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[struct {
		Users []models.OrganizationUser `json:"users"`
	}](t, w)
	assert.Empty(t, users.Users)
}
