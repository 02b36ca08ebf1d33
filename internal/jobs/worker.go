package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"todobot/internal/metrics"
)

const defaultPoll = 800 * time.Millisecond

// Queue is the storage side of the worker loop. *Repo implements it.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

// Worker polls the queue and runs due jobs through Handlers.
type Worker struct {
	ID       string
	Queue    Queue
	Handlers *Handlers
	Poll     time.Duration
	Logger   *zap.Logger
}

func (w *Worker) Run(ctx context.Context) {
	poll := w.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	w.Logger.Info("job worker started", zap.String("worker_id", w.ID), zap.Duration("poll", poll))
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("job worker stopped", zap.String("worker_id", w.ID))
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain runs due jobs until the queue has none left or ctx ends.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.Queue.Claim(ctx, w.ID)
		if err != nil {
			w.Logger.Error("job claim failed", zap.String("worker_id", w.ID), zap.Error(err))
			return
		}
		if job == nil {
			return
		}
		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	err := w.Handlers.dispatch(ctx, *job)
	switch {
	case err == nil:
		if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
			w.Logger.Error("job mark done failed", zap.Uint64("job_id", job.ID), zap.Error(err))
		}
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrBadPayload):
		metrics.JobsFailed.WithLabelValues(job.Type).Inc()
		w.Logger.Error("job dropped", zap.Uint64("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		_ = w.Queue.MarkFailed(ctx, job.ID, err.Error())
	default:
		w.Logger.Warn("job failed",
			zap.Uint64("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempts", job.Attempts+1),
			zap.Error(err),
		)
		w.retry(ctx, job, err.Error())
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		metrics.JobsFailed.WithLabelValues(job.Type).Inc()
		_ = w.Queue.MarkFailed(ctx, job.ID, errMsg)
		return
	}

	_ = w.Queue.RetryLater(ctx, job.ID, attempts, time.Now().Add(Backoff(attempts)), errMsg)
}

// Backoff is 2^attempts seconds, capped at ten minutes.
func Backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
