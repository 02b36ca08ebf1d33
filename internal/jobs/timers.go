package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"todobot/internal/metrics"
)

var ErrClosed = errors.New("scheduler closed")

// Timers is an in-process scheduler: every job is a time.AfterFunc that
// dispatches through Handlers on the timer's goroutine. Jobs do not survive
// a restart.
type Timers struct {
	handlers *Handlers
	logger   *zap.Logger

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]*timerJob
	closed  bool
}

type timerJob struct {
	job   Job
	timer *time.Timer
}

func NewTimers(handlers *Handlers, logger *zap.Logger) *Timers {
	return &Timers{
		handlers: handlers,
		logger:   logger,
		pending:  make(map[uint64]*timerJob),
	}
}

func (t *Timers) RunOnce(_ context.Context, delay time.Duration, j Job) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Job{}, ErrClosed
	}

	t.seq++
	j.ID = t.seq
	j.RunAt = time.Now().Add(delay)
	j.Status = StatusPending

	tj := &timerJob{job: j}
	id := j.ID
	// fire takes t.mu, so it cannot observe tj before timer is set.
	tj.timer = time.AfterFunc(delay, func() { t.fire(id) })
	t.pending[id] = tj

	return j, nil
}

func (t *Timers) JobsByName(_ context.Context, name string) ([]Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Job
	for _, tj := range t.pending {
		if tj.job.Name == name {
			out = append(out, tj.job)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].RunAt.Before(out[k].RunAt) })
	return out, nil
}

func (t *Timers) Cancel(_ context.Context, job Job) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tj, ok := t.pending[job.ID]
	if !ok {
		return false, nil
	}
	tj.timer.Stop()
	delete(t.pending, job.ID)
	return true, nil
}

// Close stops every pending timer. Jobs already firing run to completion.
func (t *Timers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, tj := range t.pending {
		tj.timer.Stop()
		delete(t.pending, id)
	}
	t.closed = true
}

func (t *Timers) fire(id uint64) {
	t.mu.Lock()
	tj, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	job := tj.job
	job.Status = StatusRunning
	job.Attempts = 1
	if err := t.handlers.dispatch(context.Background(), job); err != nil {
		metrics.JobsFailed.WithLabelValues(job.Type).Inc()
		t.logger.Error("timer job failed",
			zap.Uint64("job_id", job.ID),
			zap.String("name", job.Name),
			zap.String("type", job.Type),
			zap.Error(err),
		)
	}
}
