package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// maxTitleRunes is how much of the first message survives as the session title.
const maxTitleRunes = 30

// Session is one named conversation thread. Messages are append-only; the
// whole session is deleted as a unit, never individual messages.
type Session struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single chat turn. Immutable once created.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error,omitempty"`
}

// DeriveTitle builds a session title from the first message: the leading 30
// runes, with an ellipsis appended only when the text was truncated.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxTitleRunes]) + "…"
}

// Append adds a message to the session and refreshes UpdatedAt. UpdatedAt
// never moves backwards even if the message carries an older timestamp.
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
	if m.Timestamp.After(s.UpdatedAt) {
		s.UpdatedAt = m.Timestamp
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() Session {
	out := *s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}
