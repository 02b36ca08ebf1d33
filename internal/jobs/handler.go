package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownType = errors.New("unknown job type")
	ErrBadPayload  = errors.New("bad job payload")
)

// HandlerFunc runs a due job. A returned error makes the queue retry it.
type HandlerFunc func(ctx context.Context, job Job) error

// Handlers maps job types to their callbacks. Both backends dispatch through it.
type Handlers struct {
	mu sync.RWMutex
	m  map[string]HandlerFunc
}

func (h *Handlers) Handle(typ string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[string]HandlerFunc)
	}
	h.m[typ] = fn
}

func (h *Handlers) dispatch(ctx context.Context, job Job) error {
	h.mu.RLock()
	fn, ok := h.m[job.Type]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, job.Type)
	}
	return fn(ctx, job)
}
