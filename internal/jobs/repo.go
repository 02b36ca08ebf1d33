package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const defaultMaxAttempts = 8

// Repo is the Postgres-backed job queue.
type Repo struct {
	DB *gorm.DB
}

// RunOnce stores j as a pending job due after delay.
func (r *Repo) RunOnce(ctx context.Context, delay time.Duration, j Job) (Job, error) {
	j.ID = 0
	j.RunAt = time.Now().Add(delay)
	j.Status = StatusPending
	if len(j.Payload) == 0 {
		j.Payload = []byte("{}")
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = defaultMaxAttempts
	}
	if err := r.DB.WithContext(ctx).Create(&j).Error; err != nil {
		return Job{}, err
	}
	return j, nil
}

// JobsByName returns the pending jobs registered under name.
func (r *Repo) JobsByName(ctx context.Context, name string) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Where("name = ? AND status = ?", name, StatusPending).
		Order("run_at asc").
		Find(&out).Error
	return out, err
}

// Cancel moves a still pending job to CANCELLED. It reports false when the
// job already ran, is running or was cancelled before.
func (r *Repo) Cancel(ctx context.Context, job Job) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status='CANCELLED', updated_at=now()
where id=? and status='PENDING'`, job.ID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// requeue RUNNING jobs whose worker died
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`).Error; err != nil {
			return err
		}

		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}
