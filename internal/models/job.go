// Package models defines the domain types for the render service.
package models

import (
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

// Status is the lifecycle state of a render job. The set is closed:
// queued -> processing -> completed | failed. Completed and failed are
// terminal; once a job reaches one of them it never transitions again.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RenderResult is the output of a successfully completed render.
// It is only ever attached to a job whose status is completed.
type RenderResult struct {
	DownloadURL  string `json:"download_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// RenderJob is the durable record of one render request.
//
// Result is non-nil iff Status == StatusCompleted; ErrorMessage is
// non-empty iff Status == StatusFailed. Use the Mark* methods rather
// than assigning Status directly so those invariants hold.
type RenderJob struct {
	ID           string         `json:"id"`
	AccountID    string         `json:"account_id"`
	Status       Status         `json:"status"`
	Progress     int            `json:"progress"`
	Result       *RenderResult  `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	BatchID      string         `json:"batch_id,omitempty"`
	BatchIndex   int            `json:"batch_index"`
	Params       map[string]any `json:"params,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SetProgress raises the job's progress. Progress is monotonic while the
// job is live: a lower value than the current one is ignored, values are
// clamped to [0,100].
func (j *RenderJob) SetProgress(p int, now time.Time) {
	if j.Status.Terminal() {
		return
	}
	if p > 100 {
		p = 100
	}
	if p <= j.Progress {
		return
	}
	j.Progress = p
	j.UpdatedAt = now
}

// MarkProcessing transitions a queued job to processing.
func (j *RenderJob) MarkProcessing(now time.Time) error {
	if j.Status.Terminal() {
		return terminalErr(j)
	}
	j.Status = StatusProcessing
	j.UpdatedAt = now
	return nil
}

// MarkCompleted transitions the job to its completed terminal state,
// pinning progress to 100 and attaching the result.
func (j *RenderJob) MarkCompleted(res RenderResult, now time.Time) error {
	if j.Status.Terminal() {
		return terminalErr(j)
	}
	j.Status = StatusCompleted
	j.Progress = 100
	j.Result = &res
	j.ErrorMessage = ""
	j.UpdatedAt = now
	return nil
}

// MarkFailed transitions the job to its failed terminal state.
func (j *RenderJob) MarkFailed(message string, now time.Time) error {
	if j.Status.Terminal() {
		return terminalErr(j)
	}
	j.Status = StatusFailed
	j.Result = nil
	j.ErrorMessage = message
	j.UpdatedAt = now
	return nil
}

func terminalErr(j *RenderJob) error {
	return errors.Newf(errors.CodeFailedPrecond, "job %s is already %s", j.ID, j.Status).
		WithField("job_id", j.ID).
		WithField("status", string(j.Status))
}
