package render

import (
	"context"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
)

// TimeoutFailureMessage is the fixed message stamped on jobs the reaper
// kills, so operators can tell timeout-kills from worker-reported
// failures.
const TimeoutFailureMessage = "render timed out: job exceeded the maximum processing time and was terminated"

// Reaper force-fails jobs stuck non-terminal past the timeout. It runs
// on an external time trigger and shares the store with the worker pool
// without coordination: a job the worker completed no longer matches
// the non-terminal filter, so the sweep never overwrites real results.
type Reaper struct {
	store   Store
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

func NewReaper(store Store, timeout time.Duration, log *logger.Logger) *Reaper {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Reaper{
		store:   store,
		timeout: timeout,
		log:     log.WithComponent("reaper"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Sweep fails every queued or processing job created before now-timeout
// and returns how many it transitioned. Re-running right after a sweep
// finds nothing: failed jobs no longer match the status filter.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.timeout)

	stuck, err := r.store.ListByStatusBefore(ctx,
		[]models.Status{models.StatusQueued, models.StatusProcessing}, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	ids := make([]string, len(stuck))
	for i, job := range stuck {
		ids[i] = job.ID
	}

	n, err := r.store.BulkMarkFailed(ctx, ids, TimeoutFailureMessage)
	if err != nil {
		return 0, err
	}

	r.log.FromContext(ctx).Info("reaped stuck render jobs",
		"matched", len(ids),
		"failed", n,
		"cutoff", cutoff.Format(time.RFC3339),
	)
	return n, nil
}
