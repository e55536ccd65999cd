package render

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
)

// Enqueuer is the submit-side view of the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// SubmitRequest is one render specification.
type SubmitRequest struct {
	AccountID string         `json:"account_id"`
	Params    map[string]any `json:"params"`
}

// BatchResult reports a batch submission. JobIDs holds the ids of the
// requests that succeeded, in input order; failed slots are absent.
type BatchResult struct {
	BatchID string   `json:"batch_id"`
	JobIDs  []string `json:"job_ids"`
	Failed  int      `json:"failed"`
}

// Submitter creates job records and enqueues work for the external
// worker pool.
type Submitter struct {
	store Store
	queue Enqueuer
	log   *logger.Logger
	now   func() time.Time
}

func NewSubmitter(store Store, queue Enqueuer, log *logger.Logger) *Submitter {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Submitter{
		store: store,
		queue: queue,
		log:   log.WithComponent("submitter"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SubmitOne validates the request, creates the job queued at zero
// progress, and enqueues it. Returns the new job id.
func (s *Submitter) SubmitOne(ctx context.Context, req SubmitRequest) (string, error) {
	return s.submit(ctx, req, "", 0)
}

func (s *Submitter) submit(ctx context.Context, req SubmitRequest, batchID string, batchIndex int) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	now := s.now()
	job := &models.RenderJob{
		ID:         uuid.NewString(),
		AccountID:  req.AccountID,
		Status:     models.StatusQueued,
		Progress:   0,
		Params:     req.Params,
		BatchID:    batchID,
		BatchIndex: batchIndex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return "", err
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		// The row stays queued; if no worker ever sees it the reaper
		// will time it out.
		s.log.FromContext(ctx).Error("enqueue failed after create",
			"job_id", job.ID,
			"error", err.Error(),
		)
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "submit.enqueue", "failed to enqueue render job")
	}

	return job.ID, nil
}

// SubmitBatch submits all requests under one shared batch id,
// concurrently and independently: one request's failure does not abort
// its siblings. When every submission fails, the whole call fails.
func (s *Submitter) SubmitBatch(ctx context.Context, reqs []SubmitRequest) (BatchResult, error) {
	if len(reqs) == 0 {
		return BatchResult{}, errors.Validation("batch must contain at least one request")
	}

	batchID := uuid.NewString()
	ids := make([]string, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req SubmitRequest) {
			defer wg.Done()
			ids[i], errs[i] = s.submit(ctx, req, batchID, i)
		}(i, req)
	}
	wg.Wait()

	res := BatchResult{BatchID: batchID}
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed++
			s.log.FromContext(ctx).Warn("batch member submission failed",
				"batch_id", batchID,
				"batch_index", i,
				"error", errs[i].Error(),
			)
			continue
		}
		res.JobIDs = append(res.JobIDs, id)
	}

	if len(res.JobIDs) == 0 {
		return res, errors.New(errors.CodeUnavailable, "all batch submissions failed").
			WithField("batch_id", batchID).
			WithField("failed", res.Failed)
	}
	return res, nil
}

func validate(req SubmitRequest) error {
	if req.AccountID == "" {
		return errors.ValidationField("account_id", "account_id is required")
	}
	if len(req.Params) == 0 {
		return errors.ValidationField("params", "render params are required")
	}
	return nil
}
