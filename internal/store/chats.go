package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todobot/internal/memo"
)

// ChatState is the persisted state of one conversation.
type ChatState struct {
	ChatID    int64           `gorm:"primaryKey;autoIncrement:false"`
	Memos     json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	UpdatedAt time.Time       `gorm:"not null;default:now()"`
}

// Chats keeps each conversation's memo list as a jsonb document.
type Chats struct {
	DB *gorm.DB
}

// Load returns the chat's memo list, or an empty one if the chat has none yet.
func (s *Chats) Load(ctx context.Context, chatID int64) (*memo.List, error) {
	var st ChatState
	err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return memo.NewList(), nil
	}
	if err != nil {
		return nil, err
	}
	return decode(st.Memos)
}

func (s *Chats) Save(ctx context.Context, chatID int64, l *memo.List) error {
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode memos: %w", err)
	}
	st := ChatState{ChatID: chatID, Memos: b, UpdatedAt: time.Now()}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"memos", "updated_at"}),
		}).
		Create(&st).Error
}

func (s *Chats) Reset(ctx context.Context, chatID int64) error {
	return s.Save(ctx, chatID, memo.NewList())
}

func decode(b []byte) (*memo.List, error) {
	l := memo.NewList()
	if len(b) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(b, l); err != nil {
		return nil, fmt.Errorf("decode memos: %w", err)
	}
	return l, nil
}
