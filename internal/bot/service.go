// Package bot is the conversation layer of the to-do bot. It turns inbound
// chat events into memo list changes, outgoing messages and reminder jobs.
//
// Every event of a chat, including a firing reminder, is handled while holding
// that chat's lock: load the list, change it, save it. Chats are independent.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"todobot/internal/chat"
	"todobot/internal/jobs"
	"todobot/internal/memo"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadCommand    = fmt.Errorf("%w: malformed command", ErrInvalidInput)
	ErrPastReminder  = fmt.Errorf("%w: reminder in the past", ErrInvalidInput)
	ErrUnknownAction = errors.New("unknown action")
)

// ActionCheck is the button data that completes a memo.
const ActionCheck = "check"

// checkKeyboard goes under every message that shows a memo.
var checkKeyboard = chat.Keyboard{{Text: "Mark done", Data: ActionCheck}}

// Messenger delivers bot messages to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb chat.Keyboard) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, text string) error
}

// Scheduler runs named one-shot jobs. Cancel reports false for a job that is
// no longer pending.
type Scheduler interface {
	RunOnce(ctx context.Context, delay time.Duration, j jobs.Job) (jobs.Job, error)
	JobsByName(ctx context.Context, name string) ([]jobs.Job, error)
	Cancel(ctx context.Context, job jobs.Job) (bool, error)
}

// Store holds each chat's memo list between events.
type Store interface {
	Load(ctx context.Context, chatID int64) (*memo.List, error)
	Save(ctx context.Context, chatID int64, l *memo.List) error
	Reset(ctx context.Context, chatID int64) error
}

type Service struct {
	store  Store
	sched  Scheduler
	msgr   Messenger
	logger *zap.Logger

	locks chatLocks
}

func New(store Store, sched Scheduler, msgr Messenger, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		sched:  sched,
		msgr:   msgr,
		logger: logger,
	}
}

// Register installs the reminder callback on the scheduler's handler table.
func (s *Service) Register(h *jobs.Handlers) {
	h.Handle(jobs.TypeReminder, s.Remind)
}

// withChat runs fn on the chat's memo list under the chat lock and saves the
// list if fn succeeds.
func (s *Service) withChat(ctx context.Context, chatID int64, fn func(l *memo.List) error) error {
	unlock := s.locks.lock(chatID)
	defer unlock()

	l, err := s.store.Load(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load chat %d: %w", chatID, err)
	}
	if err := fn(l); err != nil {
		return err
	}
	if err := s.store.Save(ctx, chatID, l); err != nil {
		return fmt.Errorf("save chat %d: %w", chatID, err)
	}
	return nil
}

type chatLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (c *chatLocks) lock(chatID int64) (unlock func()) {
	c.mu.Lock()
	if c.m == nil {
		c.m = make(map[int64]*sync.Mutex)
	}
	l, ok := c.m[chatID]
	if !ok {
		l = &sync.Mutex{}
		c.m[chatID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
