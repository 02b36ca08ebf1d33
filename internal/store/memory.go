package store

import (
	"context"
	"encoding/json"
	"sync"

	"todobot/internal/memo"
)

// Memory keeps encoded chat states in a map. Every Load decodes a fresh copy,
// so callers see the same save/load boundary as with Chats.
type Memory struct {
	mu    sync.RWMutex
	chats map[int64][]byte
}

func NewMemory() *Memory {
	return &Memory{chats: make(map[int64][]byte)}
}

func (s *Memory) Load(_ context.Context, chatID int64) (*memo.List, error) {
	s.mu.RLock()
	b, ok := s.chats[chatID]
	s.mu.RUnlock()
	if !ok {
		return memo.NewList(), nil
	}
	return decode(b)
}

func (s *Memory) Save(_ context.Context, chatID int64, l *memo.List) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = b
	return nil
}

func (s *Memory) Reset(ctx context.Context, chatID int64) error {
	return s.Save(ctx, chatID, memo.NewList())
}
