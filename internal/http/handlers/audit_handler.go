package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/internal/audit"
)

func ListAudit(rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := audit.DefaultLimit
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= audit.MaxLimit {
				limit = parsed
			}
		}

		var afterID int64
		if cursorStr := c.Query("after_id"); cursorStr != "" {
			if parsed, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && parsed > 0 {
				afterID = parsed
			}
		}

		logs, next, err := rec.List(c.Request.Context(), strings.TrimSpace(c.Query("q")), afterID, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"logs":        logs,
			"next_cursor": next,
		})
	}
}
