package polling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/render"
)

// jobStore is an in-memory render.Store doubling as the engine's status
// reader, so submissions and polls see the same records.
type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.RenderJob
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*models.RenderJob)}
}

func (s *jobStore) Create(ctx context.Context, job *models.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return errors.AlreadyExists("job", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *jobStore) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	cp := *job
	return &cp, nil
}

func (s *jobStore) UpdateStatus(ctx context.Context, id string, upd render.StatusUpdate) error {
	return nil
}

func (s *jobStore) ListByStatusBefore(ctx context.Context, statuses []models.Status, cutoff time.Time) ([]models.RenderJob, error) {
	return nil, nil
}

func (s *jobStore) BulkMarkFailed(ctx context.Context, ids []string, message string) (int64, error) {
	return 0, nil
}

func (s *jobStore) complete(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.Status = models.StatusCompleted
	job.Progress = 100
	job.Result = &models.RenderResult{DownloadURL: url}
}

func (s *jobStore) fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.Status = models.StatusFailed
	job.ErrorMessage = message
}

type nopQueue struct{}

func (nopQueue) Enqueue(ctx context.Context, jobID string) error { return nil }

func TestClientSubmitBatchTracksThroughCompletion(t *testing.T) {
	store := newJobStore()
	submitter := render.NewSubmitter(store, nopQueue{}, nil)

	type batchDone struct {
		batchID   string
		completed []JobState
	}
	results := make(chan batchDone, 2)

	engine := New(store, Callbacks{
		OnAllComplete: func(batchID string, completed []JobState) {
			results <- batchDone{batchID, completed}
		},
	}, quickConfig(), nil)
	defer engine.Close()

	client := NewClient(submitter, engine)

	res, err := client.SubmitBatch(context.Background(), []render.SubmitRequest{
		{AccountID: "acct_1", Params: map[string]any{"n": 1}},
		{AccountID: "acct_1", Params: map[string]any{"n": 2}},
		{AccountID: "acct_1", Params: map[string]any{"n": 3}},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(res.JobIDs) != 3 {
		t.Fatalf("job ids = %v", res.JobIDs)
	}

	// Submission alone must have started tracking.
	waitFor(t, func() bool { return len(engine.Snapshot().Active) == 3 }, "tracking to start")

	store.complete(res.JobIDs[0], "u/0")
	store.fail(res.JobIDs[1], "encoder crashed")
	store.complete(res.JobIDs[2], "u/2")

	select {
	case got := <-results:
		if got.batchID != res.BatchID {
			t.Errorf("batch id = %q, want %q", got.batchID, res.BatchID)
		}
		if len(got.completed) != 2 {
			t.Fatalf("completed = %+v, want the two successes", got.completed)
		}
		if got.completed[0].ID != res.JobIDs[0] || got.completed[1].ID != res.JobIDs[2] {
			t.Errorf("completed order = [%s %s], want [%s %s]",
				got.completed[0].ID, got.completed[1].ID,
				res.JobIDs[0], res.JobIDs[2])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch-complete callback never fired")
	}
}

func TestClientSubmitTracksSingleJob(t *testing.T) {
	store := newJobStore()
	submitter := render.NewSubmitter(store, nopQueue{}, nil)

	completions := newCounter()
	engine := New(store, Callbacks{
		OnComplete: func(js JobState) { completions.inc(js.ID) },
	}, quickConfig(), nil)
	defer engine.Close()

	client := NewClient(submitter, engine)

	jobID, err := client.Submit(context.Background(),
		render.SubmitRequest{AccountID: "acct_1", Params: map[string]any{"n": 1}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	store.complete(jobID, "u/j")
	waitFor(t, func() bool { return completions.get(jobID) == 1 }, "completion callback")
}

func TestClientSubmitFailureTracksNothing(t *testing.T) {
	store := newJobStore()
	submitter := render.NewSubmitter(store, nopQueue{}, nil)

	engine := New(store, Callbacks{}, quickConfig(), nil)
	defer engine.Close()

	client := NewClient(submitter, engine)

	if _, err := client.Submit(context.Background(),
		render.SubmitRequest{Params: map[string]any{"n": 1}}); err == nil {
		t.Fatal("submission without an account must fail")
	}

	if s := engine.Snapshot(); len(s.Active) != 0 {
		t.Errorf("rejected submission was tracked: %+v", s.Active)
	}
}
