package chat

import (
	"time"

	"github.com/lib/pq"
)

const ParseModeHTML = "HTML"

// Message is one entry of a conversation log. Its ID is the message id the
// bot and the client use to address it; ids are unique across chats.
type Message struct {
	ID        int64  `gorm:"primaryKey"`
	ChatID    int64  `gorm:"index;not null"`
	FromBot   bool   `gorm:"not null;default:false"`
	Text      string `gorm:"type:text;not null;default:''"`
	ParseMode string `gorm:"type:text;not null;default:''"`

	ButtonTexts pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	ButtonData  pq.StringArray `gorm:"type:text[];not null;default:'{}'"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"index;not null;default:now()"`
}

// Button is an inline action under a message. Data is sent back on press.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Keyboard is the row of buttons attached to an outgoing message.
type Keyboard []Button

func (m *Message) Keyboard() Keyboard {
	if len(m.ButtonData) == 0 {
		return nil
	}
	kb := make(Keyboard, 0, len(m.ButtonData))
	for i, d := range m.ButtonData {
		var text string
		if i < len(m.ButtonTexts) {
			text = m.ButtonTexts[i]
		}
		kb = append(kb, Button{Text: text, Data: d})
	}
	return kb
}

// HasAction reports whether the message carries a button with data.
func (m *Message) HasAction(data string) bool {
	for _, d := range m.ButtonData {
		if d == data {
			return true
		}
	}
	return false
}

func setKeyboard(m *Message, kb Keyboard) {
	m.ButtonTexts = make(pq.StringArray, 0, len(kb))
	m.ButtonData = make(pq.StringArray, 0, len(kb))
	for _, b := range kb {
		m.ButtonTexts = append(m.ButtonTexts, b.Text)
		m.ButtonData = append(m.ButtonData, b.Data)
	}
}
