package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"todobot/internal/jobs"
	"todobot/internal/memo"
	"todobot/internal/metrics"
)

const maxMinutes = math.MaxInt64 / int64(time.Minute)

// ParseTimed reads "/timed" arguments: a positive number of minutes followed
// by the memo text.
func ParseTimed(args []string) (time.Duration, string, error) {
	if len(args) < 2 {
		return 0, "", ErrBadCommand
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, "", ErrBadCommand
	}
	if n <= 0 {
		return 0, "", ErrPastReminder
	}
	if n > maxMinutes {
		return 0, "", ErrBadCommand
	}
	return time.Duration(n) * time.Minute, strings.Join(args[1:], " "), nil
}

// Timed adds a memo and schedules a reminder for it. The reminder job is
// named after the memo ID so Complete can find and cancel it.
func (s *Service) Timed(ctx context.Context, chatID int64, args []string) (string, error) {
	delay, text, err := ParseTimed(args)
	if err != nil {
		return "", err
	}

	var id string
	err = s.withChat(ctx, chatID, func(l *memo.List) error {
		reply := fmt.Sprintf("Reminder in %d min\n%s", int64(delay/time.Minute), text)
		msgID, err := s.msgr.Send(ctx, chatID, reply, checkKeyboard)
		if err != nil {
			return err
		}
		id = l.Add(msgID, text)

		payload, err := json.Marshal(jobs.Reminder{MessageID: msgID, Text: text})
		if err != nil {
			return err
		}
		job, err := s.sched.RunOnce(ctx, delay, jobs.Job{
			ChatID:  chatID,
			Name:    id,
			Type:    jobs.TypeReminder,
			Payload: payload,
		})
		if err != nil {
			return fmt.Errorf("schedule reminder: %w", err)
		}
		s.logger.Info("reminder scheduled",
			zap.Int64("chat_id", chatID),
			zap.String("memo_id", id),
			zap.Uint64("job_id", job.ID),
			zap.Time("run_at", job.RunAt),
		)
		return nil
	})
	if err != nil {
		return "", err
	}

	metrics.MemosCreated.Inc()
	metrics.RemindersScheduled.Inc()
	return id, nil
}

// Remind is the reminder job callback. It shows the memo again and records
// the new message on it. A memo completed in the meantime is left alone.
func (s *Service) Remind(ctx context.Context, job jobs.Job) error {
	var r jobs.Reminder
	if err := json.Unmarshal(job.Payload, &r); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrBadPayload, err)
	}

	outcome := "sent"
	err := s.withChat(ctx, job.ChatID, func(l *memo.List) error {
		m, err := l.Get(r.MessageID)
		if errors.Is(err, memo.ErrNotFound) {
			outcome = "gone"
			return nil
		}
		if err != nil {
			return err
		}

		msgID, err := s.msgr.Send(ctx, job.ChatID, m.Text, checkKeyboard)
		if err != nil {
			return err
		}
		m.Update(msgID)
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RemindersFired.WithLabelValues(outcome).Inc()
	s.logger.Info("reminder fired",
		zap.Int64("chat_id", job.ChatID),
		zap.String("memo_id", job.Name),
		zap.String("outcome", outcome),
	)
	return nil
}

// RemoveReminder cancels the pending reminder jobs named name. It reports
// whether there was anything to cancel.
func (s *Service) RemoveReminder(ctx context.Context, name string) (bool, error) {
	pending, err := s.sched.JobsByName(ctx, name)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}

	var removed bool
	for _, j := range pending {
		ok, err := s.sched.Cancel(ctx, j)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = true
			metrics.RemindersCancelled.Inc()
		}
	}
	return removed, nil
}
