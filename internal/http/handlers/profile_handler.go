package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/auth"
	"launchpad/internal/rbac"
	"launchpad/internal/repository"
)

// MeHandler returns the calling operator and what their role allows.
func MeHandler(operators repository.OperatorRepository, chk rbac.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		op, err := operators.Get(c.Request.Context(), cl.OperatorID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"operator":    op,
			"permissions": chk.Permissions(op.Role),
		})
	}
}
