// Package polling implements the client-side status engine: one shared
// timer multiplexing status polls for every in-flight render job,
// exactly-once completion callbacks, and whole-batch completion
// detection.
//
// All mutable state is owned by a single goroutine; the public methods
// only pass messages to it. Callbacks run on that goroutine and must
// not block or call back into the engine synchronously.
package polling

import (
	"context"
	"sort"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
)

// StatusReader is the job-store read the engine polls against.
type StatusReader interface {
	Get(ctx context.Context, id string) (*models.RenderJob, error)
}

// JobState is the engine's local view of one tracked job.
type JobState struct {
	ID           string
	Status       models.Status
	Progress     int
	Result       *models.RenderResult
	ErrorMessage string
	BatchIndex   int
}

// Callbacks are the side effects the engine drives. Each fires at most
// once per job (or per batch for OnAllComplete).
type Callbacks struct {
	OnComplete func(JobState)
	OnError    func(JobState)
	// OnAllComplete receives the batch's completed members only, in
	// batch-index order; failed members are excluded.
	OnAllComplete func(batchID string, completed []JobState)
}

// Config tunes the engine.
type Config struct {
	// Interval between poll rounds. Defaults to 2s.
	Interval time.Duration
	// PollTimeout bounds each individual status fetch. Defaults to 10s.
	PollTimeout time.Duration
	// AutoDownload triggers Download once per job on completion.
	AutoDownload bool
	Download     func(ctx context.Context, job JobState) error
}

// Snapshot is a read-only view of the engine's state.
type Snapshot struct {
	Active    []JobState
	Completed []JobState
	Failed    []JobState
	// AggregateProgress is the arithmetic mean over all tracked jobs,
	// 0 when nothing is tracked.
	AggregateProgress float64
}

type tracked struct {
	JobState
	batchID    string
	cancelled  bool
	notified   bool
	downloaded bool
}

type (
	trackCmd struct {
		jobs    []JobState
		batchID string
	}
	cancelCmd   struct{ done chan struct{} }
	snapshotCmd struct{ reply chan Snapshot }
	pollNowCmd  struct{}
	stopCmd     struct{ done chan struct{} }
	resultCmd   struct {
		id  string
		gen int
		job *models.RenderJob
		err error
	}
)

// Engine multiplexes status polling for all tracked jobs.
type Engine struct {
	reader StatusReader
	cb     Callbacks
	cfg    Config
	log    *logger.Logger

	cmds chan any
	done chan struct{}

	// Everything below is touched only by the run goroutine.
	jobs    map[string]*tracked
	batches map[string]map[string]struct{}
	gen     int
	ticker  *time.Ticker
	tick    <-chan time.Time
}

func New(reader StatusReader, cb Callbacks, cfg Config, log *logger.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewDefault()
	}

	e := &Engine{
		reader:  reader,
		cb:      cb,
		cfg:     cfg,
		log:     log.WithComponent("polling"),
		cmds:    make(chan any, 128),
		done:    make(chan struct{}),
		jobs:    make(map[string]*tracked),
		batches: make(map[string]map[string]struct{}),
	}
	go e.run()
	return e
}

// Track registers jobs for polling. A non-empty batchID groups them for
// the batch-complete callback. Polling starts automatically when any
// tracked job is active; tracking while the timer already runs is a
// no-op on the timer.
func (e *Engine) Track(jobs []JobState, batchID string) {
	e.send(trackCmd{jobs: jobs, batchID: batchID})
}

// Cancel stops the timer and clears the active set immediately.
// In-flight poll responses are still merged into local state but fire
// no callbacks.
func (e *Engine) Cancel() {
	done := make(chan struct{})
	e.send(cancelCmd{done: done})
	select {
	case <-done:
	case <-e.done:
	}
}

// PollNow forces an immediate poll round ahead of the next tick.
func (e *Engine) PollNow() {
	e.send(pollNowCmd{})
}

// Snapshot returns the current derived views.
func (e *Engine) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	e.send(snapshotCmd{reply: reply})
	select {
	case s := <-reply:
		return s
	case <-e.done:
		return Snapshot{}
	}
}

// Close shuts the engine down. No callbacks fire afterwards.
func (e *Engine) Close() {
	done := make(chan struct{})
	e.send(stopCmd{done: done})
	select {
	case <-done:
	case <-e.done:
	}
}

func (e *Engine) send(cmd any) {
	select {
	case e.cmds <- cmd:
	case <-e.done:
	}
}

func (e *Engine) run() {
	for {
		select {
		case c := <-e.cmds:
			switch cmd := c.(type) {
			case trackCmd:
				e.handleTrack(cmd)
			case cancelCmd:
				e.handleCancel()
				close(cmd.done)
			case snapshotCmd:
				cmd.reply <- e.snapshot()
			case pollNowCmd:
				e.pollActive()
			case resultCmd:
				e.applyResult(cmd)
			case stopCmd:
				e.stopTicker()
				close(e.done)
				close(cmd.done)
				return
			}
		case <-e.tick:
			e.pollActive()
		}
	}
}

func (e *Engine) handleTrack(cmd trackCmd) {
	for _, js := range cmd.jobs {
		if js.ID == "" {
			continue
		}
		t := &tracked{JobState: js, batchID: cmd.batchID}
		if t.Status == "" {
			t.Status = models.StatusQueued
		}
		e.jobs[js.ID] = t

		if cmd.batchID != "" {
			members, ok := e.batches[cmd.batchID]
			if !ok {
				members = make(map[string]struct{})
				e.batches[cmd.batchID] = members
			}
			members[js.ID] = struct{}{}
		}
	}
	e.adjustTicker()
}

func (e *Engine) handleCancel() {
	for _, t := range e.jobs {
		t.cancelled = true
	}
	// Batch tracking dies with the cancellation; no late batch
	// callbacks either.
	e.batches = make(map[string]map[string]struct{})
	e.gen++
	e.stopTicker()
}

func (e *Engine) pollActive() {
	for id, t := range e.jobs {
		if !e.active(t) {
			continue
		}
		go func(id string, gen int) {
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PollTimeout)
			defer cancel()
			job, err := e.reader.Get(ctx, id)
			e.send(resultCmd{id: id, gen: gen, job: job, err: err})
		}(id, e.gen)
	}
}

func (e *Engine) applyResult(cmd resultCmd) {
	t, ok := e.jobs[cmd.id]
	if !ok {
		return
	}
	if cmd.err != nil {
		// Transient fetch failure: keep the job active, try again on
		// the next tick.
		e.log.Warn("status poll failed", "job_id", cmd.id, "error", cmd.err.Error())
		return
	}

	wasTerminal := t.Status.Terminal()

	// Last-write-wins merge; the locally-known batch index survives a
	// fetched record that omits it.
	localIndex := t.BatchIndex
	t.Status = cmd.job.Status
	t.Progress = cmd.job.Progress
	t.Result = cmd.job.Result
	t.ErrorMessage = cmd.job.ErrorMessage
	if cmd.job.BatchIndex == 0 && localIndex != 0 {
		t.BatchIndex = localIndex
	} else {
		t.BatchIndex = cmd.job.BatchIndex
	}

	stale := cmd.gen != e.gen || t.cancelled
	if !wasTerminal && t.Status.Terminal() && !t.notified && !stale {
		t.notified = true
		e.fireTerminal(t)
	}

	e.checkBatches()
	e.adjustTicker()
}

func (e *Engine) fireTerminal(t *tracked) {
	switch t.Status {
	case models.StatusCompleted:
		if e.cb.OnComplete != nil {
			e.cb.OnComplete(t.JobState)
		}
		if e.cfg.AutoDownload && e.cfg.Download != nil && !t.downloaded {
			t.downloaded = true
			job := t.JobState
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				if err := e.cfg.Download(ctx, job); err != nil {
					e.log.Warn("auto-download failed", "job_id", job.ID, "error", err.Error())
				}
			}()
		}
	case models.StatusFailed:
		if e.cb.OnError != nil {
			e.cb.OnError(t.JobState)
		}
	}
}

// checkBatches fires the batch-complete callback for every batch whose
// members have all reached a terminal state, then drops the batch.
func (e *Engine) checkBatches() {
	for batchID, members := range e.batches {
		allTerminal := true
		completed := make([]JobState, 0, len(members))
		for id := range members {
			t, ok := e.jobs[id]
			if !ok || !t.Status.Terminal() {
				allTerminal = false
				break
			}
			if t.Status == models.StatusCompleted {
				completed = append(completed, t.JobState)
			}
		}
		if !allTerminal {
			continue
		}

		delete(e.batches, batchID)
		sort.Slice(completed, func(i, j int) bool {
			return completed[i].BatchIndex < completed[j].BatchIndex
		})
		if e.cb.OnAllComplete != nil {
			e.cb.OnAllComplete(batchID, completed)
		}
	}
}

func (e *Engine) active(t *tracked) bool {
	return !t.cancelled && !t.Status.Terminal()
}

func (e *Engine) activeCount() int {
	n := 0
	for _, t := range e.jobs {
		if e.active(t) {
			n++
		}
	}
	return n
}

// adjustTicker keeps the single shared timer running iff any job is
// active.
func (e *Engine) adjustTicker() {
	if e.activeCount() == 0 {
		e.stopTicker()
		return
	}
	if e.ticker == nil {
		e.ticker = time.NewTicker(e.cfg.Interval)
		e.tick = e.ticker.C
	}
}

func (e *Engine) stopTicker() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
		e.tick = nil
	}
}

func (e *Engine) snapshot() Snapshot {
	var s Snapshot
	var sum, counted int
	for _, t := range e.jobs {
		// A cancelled job that never reached a terminal state is out of
		// every view: it left the active set the moment Cancel ran and
		// has no result to show. Jobs that finished before (or despite)
		// the cancellation keep their terminal bucket.
		if t.cancelled && !t.Status.Terminal() {
			continue
		}
		sum += t.Progress
		counted++
		switch {
		case t.Status == models.StatusCompleted:
			s.Completed = append(s.Completed, t.JobState)
		case t.Status == models.StatusFailed:
			s.Failed = append(s.Failed, t.JobState)
		default:
			s.Active = append(s.Active, t.JobState)
		}
	}
	if counted > 0 {
		s.AggregateProgress = float64(sum) / float64(counted)
	}
	return s
}
