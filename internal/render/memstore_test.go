package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]*models.RenderJob
	failNext map[string]bool // account ids whose Create calls fail
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     make(map[string]*models.RenderJob),
		failNext: make(map[string]bool),
	}
}

func (m *memStore) Create(ctx context.Context, job *models.RenderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext[job.AccountID] {
		return fmt.Errorf("simulated create failure")
	}
	if _, ok := m.jobs[job.ID]; ok {
		return errors.AlreadyExists("job", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return errors.NotFound("job", id)
	}
	if upd.Status != nil && !job.Status.Terminal() {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.Result != nil {
		job.Result = upd.Result
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ListByStatusBefore(ctx context.Context, statuses []models.Status, cutoff time.Time) ([]models.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RenderJob
	for _, job := range m.jobs {
		for _, st := range statuses {
			if job.Status == st && job.CreatedAt.Before(cutoff) {
				out = append(out, *job)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) BulkMarkFailed(ctx context.Context, ids []string, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		job, ok := m.jobs[id]
		if !ok || job.Status.Terminal() {
			continue
		}
		job.Status = models.StatusFailed
		job.ErrorMessage = message
		job.Result = nil
		job.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

// memQueue records enqueued ids and can fail on demand.
type memQueue struct {
	mu      sync.Mutex
	ids     []string
	failAll bool
}

func (q *memQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAll {
		return fmt.Errorf("simulated enqueue failure")
	}
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *memQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}
