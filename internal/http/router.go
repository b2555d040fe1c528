package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/audit"
	"launchpad/internal/auth"
	"launchpad/internal/documents"
	"launchpad/internal/http/handlers"
	"launchpad/internal/metrics"
	"launchpad/internal/onboarding"
	"launchpad/internal/rbac"
	"launchpad/internal/repository"
	"launchpad/internal/roster"
)

type Deps struct {
	Onboarding *onboarding.Service
	Documents  *documents.Service
	Roster     *roster.Service
	Auth       *auth.Service
	Tokens     *auth.Tokens
	Operators  repository.OperatorRepository
	Audit      *audit.Recorder
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// FilesDir is served under /files when documents are kept on disk.
	FilesDir string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(requestLogger(d.Logger), recovery(d.Logger), cors())
	if d.Metrics != nil {
		r.Use(observe(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.FilesDir != "" {
		r.Static("/files", d.FilesDir)
	}

	// Public routes
	r.POST("/api/v1/auth/login", handlers.LoginHandler(d.Auth, d.Tokens, d.Audit))
	r.POST("/api/v1/auth/logout", handlers.LogoutHandler())

	chk := rbac.Checker{}
	authMW := auth.JWT(d.Operators, d.Tokens)

	api := r.Group("/api/v1", authMW)
	{
		api.GET("/me", handlers.MeHandler(d.Operators, chk))
		api.GET("/audit", requirePermission(chk, rbac.AuditRead), handlers.ListAudit(d.Audit))
	}

	steps := r.Group("/onboarding_steps", authMW)
	{
		steps.GET("/all", requirePermission(chk, rbac.OrganizationsRead), handlers.ListOrganizations(d.Onboarding))
		steps.POST("/search", requirePermission(chk, rbac.OrganizationsRead), handlers.SearchOrganizations(d.Onboarding))
		steps.GET("/all/:id/", requirePermission(chk, rbac.OrganizationsRead), handlers.GetOrganization(d.Onboarding))
		steps.GET("/organization/:id/steps", requirePermission(chk, rbac.OrganizationsRead), handlers.ListSteps(d.Onboarding))
		steps.POST("/organization/:id/progress_step", requirePermission(chk, rbac.OrganizationsWrite), handlers.AdvanceStage(d.Onboarding, d.Audit))
		steps.POST("/organization/:id/progress", requirePermission(chk, rbac.OrganizationsWrite), handlers.SetProgress(d.Onboarding, d.Audit))
		steps.POST("/update_due_date/:id/", requirePermission(chk, rbac.OrganizationsWrite), handlers.UpdateDueDate(d.Onboarding, d.Audit))

		// Documents
		steps.POST("/document/:id/upload_document", requirePermission(chk, rbac.DocumentsWrite), handlers.UploadDocument(d.Documents, d.Audit))
		steps.POST("/document/:id/edit_document", requirePermission(chk, rbac.DocumentsWrite), handlers.EditDocument(d.Documents, d.Audit))
		steps.POST("/document/:id/delete_document", requirePermission(chk, rbac.DocumentsWrite), handlers.DeleteDocument(d.Documents, d.Audit))
	}

	orgs := r.Group("/organizations", authMW)
	{
		orgs.GET("/all", requirePermission(chk, rbac.OrganizationsRead), handlers.ListOrganizationNames(d.Onboarding))
		orgs.POST("/create", requirePermission(chk, rbac.OrganizationsWrite), handlers.CreateOrganization(d.Onboarding, d.Audit))
		orgs.POST("/:id/update", requirePermission(chk, rbac.OrganizationsWrite), handlers.UpdateOrganization(d.Onboarding, d.Audit))
		orgs.POST("/:id/delete", requirePermission(chk, rbac.OrganizationsWrite), handlers.DeleteOrganization(d.Onboarding, d.Audit))
	}

	users := r.Group("/users", authMW)
	{
		users.GET("/organization/admin-users/:id/", requirePermission(chk, rbac.UsersRead), handlers.ListOrgUsers(d.Roster))
		users.GET("/organization_users/logins/:id", requirePermission(chk, rbac.UsersRead), handlers.LoginActivity(d.Roster))
		users.POST("/admin/add_user/:id", requirePermission(chk, rbac.UsersWrite), handlers.AddOrgUser(d.Roster, d.Audit))
		users.POST("/edit/:id", requirePermission(chk, rbac.UsersWrite), handlers.EditOrgUser(d.Roster, d.Audit))
		users.POST("/admin/delete", requirePermission(chk, rbac.UsersWrite), handlers.DeleteOrgUser(d.Roster, d.Audit))
		users.POST("/login_event/:id", requirePermission(chk, rbac.UsersWrite), handlers.RecordLogin(d.Roster))
		users.POST("/reset/:id", requirePermission(chk, rbac.UsersWrite), handlers.MarkPasswordReset(d.Roster, d.Audit))
	}

	return r
}

func requirePermission(chk rbac.Checker, permKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.ClaimsFrom(c)
		if !ok || !chk.Can(cl.Role, permKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "missing": permKey})
			return
		}
		c.Next()
	}
}
