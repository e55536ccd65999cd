package polling

import (
	"context"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/render"
)

// BatchSubmitter is the submission side the client drives.
type BatchSubmitter interface {
	SubmitOne(ctx context.Context, req render.SubmitRequest) (string, error)
	SubmitBatch(ctx context.Context, reqs []render.SubmitRequest) (render.BatchResult, error)
}

// Client couples job submission with status tracking: every id a
// submission returns is handed to the engine, which starts polling on
// its own if it is not already running.
type Client struct {
	submitter BatchSubmitter
	engine    *Engine
}

func NewClient(submitter BatchSubmitter, engine *Engine) *Client {
	return &Client{submitter: submitter, engine: engine}
}

// Submit submits one render request and tracks the resulting job.
func (c *Client) Submit(ctx context.Context, req render.SubmitRequest) (string, error) {
	jobID, err := c.submitter.SubmitOne(ctx, req)
	if err != nil {
		return "", err
	}
	c.engine.Track([]JobState{{ID: jobID, Status: models.StatusQueued}}, "")
	return jobID, nil
}

// SubmitBatch submits the requests under one batch id and registers the
// successful ids with the engine's batch tracker, so the batch-complete
// callback fires once every surviving member reaches a terminal state.
// Partial submission failure still tracks the members that made it.
func (c *Client) SubmitBatch(ctx context.Context, reqs []render.SubmitRequest) (render.BatchResult, error) {
	res, err := c.submitter.SubmitBatch(ctx, reqs)
	if err != nil {
		return res, err
	}

	jobs := make([]JobState, len(res.JobIDs))
	for i, id := range res.JobIDs {
		jobs[i] = JobState{ID: id, Status: models.StatusQueued, BatchIndex: i}
	}
	c.engine.Track(jobs, res.BatchID)
	return res, nil
}
