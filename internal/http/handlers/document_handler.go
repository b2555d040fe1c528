package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/apperr"
	"launchpad/internal/audit"
	"launchpad/internal/documents"
)

// MaxUploadBytes caps a single document upload.
const MaxUploadBytes = 25 << 20

// UploadDocument takes a multipart form with the file under "file" and the
// metadata as JSON under "data". The path id is the organization.
func UploadDocument(svc *documents.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := idParam(c, "id")
		if !ok {
			return
		}

		var meta struct {
			StepNumber   int    `json:"step_number"`
			DocumentName string `json:"document_name"`
			DocumentType string `json:"document_type"`
			LinkType     string `json:"link_type"`
		}
		raw := c.PostForm("data")
		if raw == "" {
			fail(c, apperr.Required("data"))
			return
		}
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			fail(c, apperr.Invalid("data", "must be a JSON object"))
			return
		}

		fh, err := c.FormFile("file")
		if err != nil {
			fail(c, apperr.Required("file"))
			return
		}
		if fh.Size > MaxUploadBytes {
			fail(c, apperr.Invalid("file", fmt.Sprintf("larger than %d bytes", MaxUploadBytes)))
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()
		body, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
		if err != nil {
			fail(c, err)
			return
		}

		doc, err := svc.Upload(c.Request.Context(), documents.UploadInput{
			OrganizationID: orgID,
			StepNumber:     meta.StepNumber,
			Name:           meta.DocumentName,
			Type:           meta.DocumentType,
			LinkType:       meta.LinkType,
			Filename:       fh.Filename,
			ContentType:    fh.Header.Get("Content-Type"),
			Body:           body,
		})
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, orgID, "document.upload", "document", doc.ID, gin.H{
			"name": doc.DocumentName,
			"type": doc.DocumentType,
			"step": doc.StepNumber,
		})
		c.JSON(http.StatusCreated, doc)
	}
}

// EditDocument changes a document's name and/or type. The path id is the
// document.
func EditDocument(svc *documents.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			DocumentName *string `json:"document_name"`
			DocumentType *string `json:"document_type"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		doc, err := svc.Edit(c.Request.Context(), id, in.DocumentName, in.DocumentType)
		if err != nil {
			fail(c, err)
			return
		}
		record(c, rec, 0, "document.edit", "document", id, in)
		c.JSON(http.StatusOK, doc)
	}
}

func DeleteDocument(svc *documents.Service, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		record(c, rec, 0, "document.delete", "document", id, nil)
		c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
	}
}
