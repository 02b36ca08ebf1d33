package memo

import (
	"errors"
	"slices"
	"strconv"
)

var ErrNotFound = errors.New("memo not found")
var ErrOutOfRange = errors.New("memo index out of range")

// Memo is a single task item plus the messages currently showing it.
// ID is the string form of the first display message and is never reassigned.
type Memo struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Messages []int64  `json:"messages"`
	Tags     []string `json:"tags,omitempty"`
}

func New(messageID int64, text string) *Memo {
	return &Memo{
		ID:       strconv.FormatInt(messageID, 10),
		Text:     text,
		Messages: []int64{messageID},
		Tags:     ExtractTags(text),
	}
}

// Update records another message displaying the memo (re-list, reminder).
func (m *Memo) Update(messageID int64) {
	m.Messages = append(m.Messages, messageID)
}

func (m *Memo) Shows(messageID int64) bool {
	return slices.Contains(m.Messages, messageID)
}

func (m *Memo) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}
