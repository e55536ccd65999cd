// Package render owns the render-job lifecycle: the durable job store,
// submission (single and batch), and the stuck-job reaper.
package render

import (
	"context"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
)

// StatusUpdate is a partial, single-row update. Nil fields are left
// untouched.
type StatusUpdate struct {
	Status       *models.Status
	Progress     *int
	Result       *models.RenderResult
	ErrorMessage *string
}

// Store is the durable record of render jobs. Each call is atomic for
// one row; nothing here assumes multi-row transactions. The worker pool
// and the reaper mutate the same rows concurrently, which is safe
// because terminal transitions are guarded by the non-terminal status
// filter on writes.
type Store interface {
	// Create persists a new job. Returns a CodeAlreadyExists error on id
	// collision.
	Create(ctx context.Context, job *models.RenderJob) error

	// Get returns the job or a CodeNotFound error.
	Get(ctx context.Context, id string) (*models.RenderJob, error)

	// UpdateStatus applies a partial update. Status changes only land on
	// rows that are still non-terminal.
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error

	// ListByStatusBefore returns jobs whose status is in statuses and
	// whose creation time is strictly before cutoff.
	ListByStatusBefore(ctx context.Context, statuses []models.Status, cutoff time.Time) ([]models.RenderJob, error)

	// BulkMarkFailed force-fails the given jobs with one message,
	// skipping rows already terminal. Returns the number of rows
	// actually transitioned.
	BulkMarkFailed(ctx context.Context, ids []string, message string) (int64, error)
}
