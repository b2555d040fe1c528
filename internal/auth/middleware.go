package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/internal/models"
	"launchpad/internal/repository"
)

const (
	claimsKey  = "claims"
	CookieName = "token"
)

// JWT returns a Gin middleware that validates operator tokens from either the
// Authorization header or the "token" cookie and verifies that the operator
// is still active.
func JWT(operators repository.OperatorRepository, tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader("Authorization")

		// Fallback: read from cookie if no Authorization header
		if tokenStr == "" {
			if cookie, err := c.Cookie(CookieName); err == nil {
				tokenStr = "Bearer " + cookie
			}
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		// Verify operator still exists and is active
		op, err := operators.Get(c.Request.Context(), claims.OperatorID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator not found"})
			return
		}
		if op.Status != models.OperatorActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account suspended"})
			return
		}
		// role may have changed since the token was issued
		claims.Role = op.Role

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims JWT stored on the context, if any.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*Claims)
	return cl, ok
}
