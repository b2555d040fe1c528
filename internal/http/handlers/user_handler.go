package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/apperr"
	"launchpad/internal/audit"
	"launchpad/internal/roster"
)

// ListOrgUsers returns the roster of the organization in the path.
func ListOrgUsers(svc *roster.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}
		users, err := svc.ListUsers(c.Request.Context(), orgID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// AddOrgUser inserts a new user into the organization's roster.
func AddOrgUser(svc *roster.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			FirstName   string `json:"first_name"`
			LastName    string `json:"last_name"`
			Email       string `json:"email"`
			Role        string `json:"role"`
			Title       string `json:"title"`
			Department  string `json:"department"`
			LinkedInURL string `json:"linkedin_url"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svc.AddUser(c.Request.Context(), orgID, roster.UserInput{
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			Email:       in.Email,
			Role:        in.Role,
			Title:       in.Title,
			Department:  in.Department,
			LinkedInURL: in.LinkedInURL,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, orgID, "user.add", "organization_user", u.ID, gin.H{"email": u.Email, "role": u.Role})
		c.JSON(http.StatusCreated, gin.H{"user": u})
	}
}

func EditOrgUser(svc *roster.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			FirstName   *string `json:"first_name"`
			LastName    *string `json:"last_name"`
			Email       *string `json:"email"`
			Role        *string `json:"role"`
			Title       *string `json:"title"`
			Department  *string `json:"department"`
			LinkedInURL *string `json:"linkedin_url"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svc.EditUser(c.Request.Context(), id, roster.UserPatch{
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			Email:       in.Email,
			Role:        in.Role,
			Title:       in.Title,
			Department:  in.Department,
			LinkedInURL: in.LinkedInURL,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, u.OrganizationID, "user.edit", "organization_user", u.ID, in)
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

func DeleteOrgUser(svc *roster.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		if in.UserID <= 0 {
			fail(c, apperr.Required("user_id"))
			return
		}
		if err := svc.DeleteUser(c.Request.Context(), in.UserID); err != nil {
			fail(c, err)
			return
		}
		record(c, rec, 0, "user.delete", "organization_user", in.UserID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	}
}

// RecordLogin is called by the client-facing auth service after a
// successful sign-in. An absent "at" means now.
func RecordLogin(svc *roster.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			At *time.Time `json:"at"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		at := time.Now()
		if in.At != nil {
			at = *in.At
		}
		u, err := svc.RecordLogin(c.Request.Context(), id, at)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

func MarkPasswordReset(svc *roster.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		u, err := svc.MarkPasswordReset(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, u.OrganizationID, "user.password_reset", "organization_user", u.ID, nil)
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

func LoginActivity(svc *roster.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}
		rows, err := svc.LoginActivity(c.Request.Context(), orgID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logins": rows})
	}
}
