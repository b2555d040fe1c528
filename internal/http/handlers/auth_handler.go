package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/audit"
	"launchpad/internal/auth"
	"launchpad/internal/models"
)

// LoginHandler authenticates an operator and returns a JWT, also set as the
// "token" cookie.
func LoginHandler(svc *auth.Service, tokens *auth.Tokens, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}

		token, exp, op, err := svc.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			fail(c, err)
			return
		}

		c.SetCookie(auth.CookieName, token, int(tokens.TTL().Seconds()), "/", "", false, true)

		rec.Record(c.Request.Context(), models.AuditLog{
			OperatorID:    op.ID,
			Action:        "auth.login",
			ResourceType:  "operator",
			ResourceID:    op.ID,
			IP:            c.ClientIP(),
			InitiatorName: op.Email,
			UserAgent:     c.Request.UserAgent(),
		}, nil)

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": exp,
			"operator": gin.H{
				"id":    op.ID,
				"email": op.Email,
				"name":  op.Name,
				"role":  op.Role,
			},
		})
	}
}

// LogoutHandler clears the token cookie.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
		c.Status(http.StatusNoContent)
	}
}
