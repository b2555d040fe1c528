package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/apperr"
	"launchpad/internal/audit"
	"launchpad/internal/onboarding"
	"launchpad/internal/stage"
)

// parseDate accepts a calendar day or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(onboarding.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalid(field, "must be YYYY-MM-DD or RFC 3339")
}

func optionalDate(c *gin.Context, field string) (*time.Time, error) {
	raw := c.Query(field)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(c *gin.Context, field string) (int, error) {
	raw := c.Query(field)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid(field, "must be a number")
	}
	return n, nil
}

// ListOrganizations serves one page of the organization list.
func ListOrganizations(svc *onboarding.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q onboarding.ListQuery
		var err error
		if q.Page, err = queryInt(c, "page"); err != nil {
			fail(c, err)
			return
		}
		if q.PerPage, err = queryInt(c, "per_page"); err != nil {
			fail(c, err)
			return
		}
		if q.Stage, err = stage.Parse(c.Query("stage")); err != nil {
			fail(c, err)
			return
		}
		if q.StartDate, err = optionalDate(c, "start_date"); err != nil {
			fail(c, err)
			return
		}
		if q.EndDate, err = optionalDate(c, "end_date"); err != nil {
			fail(c, err)
			return
		}

		page, err := svc.ListOrganizations(c.Request.Context(), q)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func SearchOrganizations(svc *onboarding.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			SearchTerm string `json:"search_term"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		results, err := svc.SearchOrganizations(c.Request.Context(), in.SearchTerm)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"steps": results, "total": len(results)})
	}
}

func GetOrganization(svc *onboarding.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		detail, err := svc.GetOrganization(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func ListSteps(svc *onboarding.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		steps, err := svc.ListSteps(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"steps": steps})
	}
}

// AdvanceStage moves an organization to its next stage.
func AdvanceStage(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			StepNumber    int     `json:"step_number"`
			NextStep      int     `json:"next_step"`
			NotifyUserIDs []int64 `json:"notify_user_ids"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}

		progress, err := svc.AdvanceStage(c.Request.Context(), orgID, onboarding.AdvanceInput{
			StepNumber:    in.StepNumber,
			NextStep:      in.NextStep,
			NotifyUserIDs: in.NotifyUserIDs,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, orgID, "onboarding.advance", "organization", orgID, gin.H{
			"from": in.StepNumber,
			"to":   progress.CurrentStepNumber,
		})
		c.JSON(http.StatusOK, progress)
	}
}

func SetProgress(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			Progress *int `json:"progress"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		if in.Progress == nil {
			fail(c, apperr.Required("progress"))
			return
		}
		progress, err := svc.SetProgress(c.Request.Context(), orgID, *in.Progress)
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, orgID, "onboarding.progress", "organization", orgID, gin.H{"progress": *in.Progress})
		c.JSON(http.StatusOK, progress)
	}
}

// UpdateDueDate sets or clears the due date of a progress record. The path
// id is the step id returned by the list endpoints.
func UpdateDueDate(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		stepID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			DueDate *string `json:"due_date"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}

		var due *time.Time
		if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
			t, err := parseDate("due_date", *in.DueDate)
			if err != nil {
				fail(c, err)
				return
			}
			due = &t
		}

		progress, err := svc.SetDueDate(c.Request.Context(), stepID, due)
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, progress.OrganizationID, "onboarding.due_date", "onboarding_progress", stepID, gin.H{"due_date": progress.DueDate})
		c.JSON(http.StatusOK, progress)
	}
}
