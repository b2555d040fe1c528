// Package storage keeps uploaded onboarding documents outside the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore stores document payloads. Put returns the URL the document is
// served from; that URL is recorded once and never rewritten.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// DocumentKey builds a collision-free object key for a document attached to
// step stepNumber of organization orgID.
func DocumentKey(orgID int64, stepNumber int, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	return fmt.Sprintf("organizations/%d/steps/%d/%s%s", orgID, stepNumber, uuid.New(), ext)
}
