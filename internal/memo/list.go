package memo

import "strings"

// List holds the memos of one conversation in creation order.
// Lookups scan linearly; per-chat lists are short.
type List struct {
	Memos []*Memo `json:"memos"`
}

func NewList() *List {
	return &List{}
}

// Add creates a memo displayed by messageID and returns its ID.
func (l *List) Add(messageID int64, text string) string {
	m := New(messageID, text)
	l.Memos = append(l.Memos, m)
	return m.ID
}

// Remove drops the first memo displayed by messageID.
func (l *List) Remove(messageID int64) error {
	i := l.index(messageID)
	if i < 0 {
		return ErrNotFound
	}
	l.Memos = append(l.Memos[:i], l.Memos[i+1:]...)
	return nil
}

// Get returns the memo displayed by messageID.
func (l *List) Get(messageID int64) (*Memo, error) {
	i := l.index(messageID)
	if i < 0 {
		return nil, ErrNotFound
	}
	return l.Memos[i], nil
}

func (l *List) Len() int {
	return len(l.Memos)
}

func (l *List) At(i int) (*Memo, error) {
	if i < 0 || i >= len(l.Memos) {
		return nil, ErrOutOfRange
	}
	return l.Memos[i], nil
}

// Filter returns memos carrying tag, or every memo when tag is empty.
func (l *List) Filter(tag string) []*Memo {
	tag = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "#")
	if tag == "" {
		return append([]*Memo(nil), l.Memos...)
	}
	out := make([]*Memo, 0, len(l.Memos))
	for _, m := range l.Memos {
		if m.HasTag(tag) {
			out = append(out, m)
		}
	}
	return out
}

func (l *List) index(messageID int64) int {
	for i, m := range l.Memos {
		if m.Shows(messageID) {
			return i
		}
	}
	return -1
}
