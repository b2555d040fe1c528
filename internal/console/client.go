// Package console is the operator's command-line client for the launchpad
// API.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"launchpad/internal/documents"
	"launchpad/internal/models"
	"launchpad/internal/onboarding"
	"launchpad/internal/roster"
)

// RequestFailed is a non-2xx answer from the API. Message is the server's
// "error" field when it sent one.
type RequestFailed struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *RequestFailed) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the launchpad API. It never retries.
type Client struct {
	r *resty.Client
}

func NewClient(baseURL, token string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if token != "" {
		r.SetAuthToken(token)
	}
	return &Client{r: r}
}

func jsonString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) SetToken(token string) { c.r.SetAuthToken(token) }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var errBody apiError
	req := c.r.R().SetContext(ctx).SetError(&errBody)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	return c.send(req, method, path, &errBody)
}

func (c *Client) send(req *resty.Request, method, path string, errBody *apiError) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &RequestFailed{Method: method, Path: path, Status: resp.StatusCode(), Message: errBody.Error}
	}
	return nil
}

// Login exchanges operator credentials for a token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return "", err
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

type ListParams struct {
	Page      int
	PerPage   int
	Stage     int
	StartDate *time.Time
	EndDate   *time.Time
}

func (p ListParams) query() map[string]string {
	q := map[string]string{}
	if p.Page > 0 {
		q["page"] = strconv.Itoa(p.Page)
	}
	if p.PerPage > 0 {
		q["per_page"] = strconv.Itoa(p.PerPage)
	}
	if p.Stage > 0 {
		q["stage"] = strconv.Itoa(p.Stage)
	}
	if p.StartDate != nil {
		q["start_date"] = p.StartDate.Format(onboarding.DateLayout)
	}
	if p.EndDate != nil {
		q["end_date"] = p.EndDate.Format(onboarding.DateLayout)
	}
	return q
}

func (c *Client) ListOrganizations(ctx context.Context, p ListParams) (*onboarding.Page, error) {
	var out onboarding.Page
	var errBody apiError
	req := c.r.R().SetContext(ctx).SetQueryParams(p.query()).SetResult(&out).SetError(&errBody)
	if err := c.send(req, http.MethodGet, "/onboarding_steps/all", &errBody); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchOrganizations(ctx context.Context, term string) ([]onboarding.OrganizationSummary, error) {
	var out struct {
		Steps []onboarding.OrganizationSummary `json:"steps"`
	}
	if err := c.do(ctx, http.MethodPost, "/onboarding_steps/search", map[string]string{"search_term": term}, &out); err != nil {
		return nil, err
	}
	return out.Steps, nil
}

func (c *Client) GetOrganization(ctx context.Context, id int64) (*onboarding.OrganizationDetail, error) {
	var out onboarding.OrganizationDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/onboarding_steps/all/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSteps(ctx context.Context, orgID int64) ([]onboarding.StepView, error) {
	var out struct {
		Steps []onboarding.StepView `json:"steps"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/onboarding_steps/organization/%d/steps", orgID), nil, &out); err != nil {
		return nil, err
	}
	return out.Steps, nil
}

func (c *Client) AdvanceStage(ctx context.Context, orgID int64, stepNumber int, notifyUserIDs []int64) (*onboarding.ProgressView, error) {
	var out onboarding.ProgressView
	body := map[string]any{"step_number": stepNumber, "next_step": stepNumber + 1}
	if len(notifyUserIDs) > 0 {
		body["notify_user_ids"] = notifyUserIDs
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/onboarding_steps/organization/%d/progress_step", orgID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetProgress(ctx context.Context, orgID int64, percent int) (*onboarding.ProgressView, error) {
	var out onboarding.ProgressView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/onboarding_steps/organization/%d/progress", orgID), map[string]int{"progress": percent}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDueDate sets the due date of the progress record stepID; nil clears
// it.
func (c *Client) UpdateDueDate(ctx context.Context, stepID int64, due *time.Time) (*onboarding.ProgressView, error) {
	var out onboarding.ProgressView
	body := map[string]*string{"due_date": nil}
	if due != nil {
		s := due.Format(onboarding.DateLayout)
		body["due_date"] = &s
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/onboarding_steps/update_due_date/%d/", stepID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type DocumentUpload struct {
	StepNumber   int       `json:"step_number"`
	DocumentName string    `json:"document_name"`
	DocumentType string    `json:"document_type"`
	LinkType     string    `json:"link_type,omitempty"`
	Filename     string    `json:"-"`
	Body         io.Reader `json:"-"`
}

func (c *Client) UploadDocument(ctx context.Context, orgID int64, up DocumentUpload) (*documents.View, error) {
	meta, err := jsonString(up)
	if err != nil {
		return nil, err
	}
	var out documents.View
	var errBody apiError
	req := c.r.R().
		SetContext(ctx).
		SetFormData(map[string]string{"data": meta}).
		SetFileReader("file", up.Filename, up.Body).
		SetResult(&out).
		SetError(&errBody)
	if err := c.send(req, http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/upload_document", orgID), &errBody); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditDocument(ctx context.Context, docID int64, name, docType *string) (*documents.View, error) {
	var out documents.View
	body := map[string]*string{"document_name": name, "document_type": docType}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/edit_document", docID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/onboarding_steps/document/%d/delete_document", docID), nil, nil)
}

func (c *Client) OrganizationNames(ctx context.Context) ([]onboarding.OrganizationName, error) {
	var out struct {
		Organizations []onboarding.OrganizationName `json:"organizations"`
	}
	if err := c.do(ctx, http.MethodGet, "/organizations/all", nil, &out); err != nil {
		return nil, err
	}
	return out.Organizations, nil
}

type NewOrganization struct {
	Name    string `json:"organization_name"`
	Type    string `json:"organization_type"`
	Country string `json:"country,omitempty"`
}

func (c *Client) CreateOrganization(ctx context.Context, in NewOrganization) (*onboarding.OrganizationDetail, error) {
	var out onboarding.OrganizationDetail
	if err := c.do(ctx, http.MethodPost, "/organizations/create", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type OrganizationPatch struct {
	Name    *string `json:"organization_name,omitempty"`
	Type    *string `json:"organization_type,omitempty"`
	Country *string `json:"country,omitempty"`
}

func (c *Client) UpdateOrganization(ctx context.Context, id int64, patch OrganizationPatch) (*onboarding.OrganizationDetail, error) {
	var out onboarding.OrganizationDetail
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/organizations/%d/update", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/organizations/%d/delete", id), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, orgID int64) ([]models.OrganizationUser, error) {
	var out struct {
		Users []models.OrganizationUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/organization/admin-users/%d/", orgID), nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

type NewUser struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Title       string `json:"title,omitempty"`
	Department  string `json:"department,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

func (c *Client) AddUser(ctx context.Context, orgID int64, u NewUser) (*models.OrganizationUser, error) {
	var out struct {
		User models.OrganizationUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/admin/add_user/%d", orgID), u, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

type UserPatch struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Role        *string `json:"role,omitempty"`
	Title       *string `json:"title,omitempty"`
	Department  *string `json:"department,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
}

func (c *Client) EditUser(ctx context.Context, userID int64, patch UserPatch) (*models.OrganizationUser, error) {
	var out struct {
		User models.OrganizationUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/edit/%d", userID), patch, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, "/users/admin/delete", map[string]int64{"user_id": userID}, nil)
}

func (c *Client) LoginActivity(ctx context.Context, orgID int64) ([]roster.LoginActivity, error) {
	var out struct {
		Logins []roster.LoginActivity `json:"logins"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/organization_users/logins/%d", orgID), nil, &out); err != nil {
		return nil, err
	}
	return out.Logins, nil
}

type AuditPage struct {
	Logs       []models.AuditLog `json:"logs"`
	NextCursor *int64            `json:"next_cursor"`
}

func (c *Client) Audit(ctx context.Context, query string, afterID int64, limit int) (*AuditPage, error) {
	params := map[string]string{}
	if query != "" {
		params["q"] = query
	}
	if afterID > 0 {
		params["after_id"] = strconv.FormatInt(afterID, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var out AuditPage
	var errBody apiError
	req := c.r.R().SetContext(ctx).SetQueryParams(params).SetResult(&out).SetError(&errBody)
	if err := c.send(req, http.MethodGet, "/api/v1/audit", &errBody); err != nil {
		return nil, err
	}
	return &out, nil
}
