package chat

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("message not found")

const (
	defaultPage = 50
	maxPage     = 200
)

// Repo stores the conversation log in Postgres. It is the bot's outbound
// transport: clients poll the log for what the bot sent.
type Repo struct {
	DB *gorm.DB
}

// Receive records a message written by the client and returns it with its id.
func (r *Repo) Receive(ctx context.Context, chatID int64, text string) (Message, error) {
	m := Message{ChatID: chatID, Text: text}
	setKeyboard(&m, nil)
	if err := r.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return Message{}, err
	}
	return m, nil
}

// Send appends a bot message with an optional keyboard and returns its id.
func (r *Repo) Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error) {
	m := Message{ChatID: chatID, FromBot: true, Text: text}
	setKeyboard(&m, kb)
	if err := r.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

// Edit replaces the text of a bot message as HTML and drops its keyboard.
func (r *Repo) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	res := r.DB.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND chat_id = ? AND from_bot = true", messageID, chatID).
		Updates(map[string]any{
			"text":         text,
			"parse_mode":   ParseModeHTML,
			"button_texts": pq.StringArray{},
			"button_data":  pq.StringArray{},
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, chatID, messageID int64) (Message, error) {
	var m Message
	err := r.DB.WithContext(ctx).Where("id = ? AND chat_id = ?", messageID, chatID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, ErrNotFound
	}
	return m, err
}

// List returns up to limit messages of a chat with id > after, oldest first.
func (r *Repo) List(ctx context.Context, chatID, after int64, limit int) ([]Message, error) {
	if limit <= 0 || limit > maxPage {
		limit = defaultPage
	}
	var out []Message
	err := r.DB.WithContext(ctx).
		Where("chat_id = ? AND id > ?", chatID, after).
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
