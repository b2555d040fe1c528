package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/audit"
	"launchpad/internal/onboarding"
)

func ListOrganizationNames(svc *onboarding.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := svc.ListOrganizationNames(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"organizations": names})
	}
}

func CreateOrganization(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Name    string `json:"organization_name"`
			Type    string `json:"organization_type"`
			Country string `json:"country"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		detail, err := svc.CreateOrganization(c.Request.Context(), onboarding.CreateOrganizationInput{
			Name:    in.Name,
			Type:    in.Type,
			Country: in.Country,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, detail.OrganizationID, "organization.create", "organization", detail.OrganizationID, gin.H{
			"name": detail.OrganizationName,
			"type": detail.OrganizationType,
		})
		c.JSON(http.StatusCreated, detail)
	}
}

func UpdateOrganization(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			Name    *string `json:"organization_name"`
			Type    *string `json:"organization_type"`
			Country *string `json:"country"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		detail, err := svc.UpdateOrganization(c.Request.Context(), id, onboarding.UpdateOrganizationInput{
			Name:    in.Name,
			Type:    in.Type,
			Country: in.Country,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, id, "organization.update", "organization", id, in)
		c.JSON(http.StatusOK, detail)
	}
}

func DeleteOrganization(svc *onboarding.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteOrganization(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		record(c, rec, id, "organization.delete", "organization", id, nil)
		c.JSON(http.StatusOK, gin.H{"message": "organization deleted"})
	}
}
