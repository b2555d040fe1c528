// Package audit records who changed what through the API.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"

	"launchpad/internal/models"
	"launchpad/internal/repository"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Recorder struct {
	repo repository.AuditRepository
	log  *slog.Logger
}

func NewRecorder(repo repository.AuditRepository, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record stores entry with meta encoded as JSON. A failed write is logged and
// never reaches the caller; the action it describes has already happened.
func (r *Recorder) Record(ctx context.Context, entry models.AuditLog, meta any) {
	if r == nil {
		return
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = datatypes.JSON(b)
		}
	}
	if err := r.repo.Create(ctx, &entry); err != nil {
		r.log.Warn("audit write failed", "action", entry.Action, "error", err)
	}
}

// List returns up to limit entries older than afterID (0 for the newest) and
// the cursor of the next page, nil on the last page.
func (r *Recorder) List(ctx context.Context, query string, afterID int64, limit int) ([]models.AuditLog, *int64, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	logs, err := r.repo.List(ctx, repository.AuditFilter{Query: query, AfterID: afterID, Limit: limit + 1})
	if err != nil {
		return nil, nil, err
	}
	var next *int64
	if len(logs) > limit {
		logs = logs[:limit]
		id := logs[limit-1].ID
		next = &id
	}
	return logs, next, nil
}
