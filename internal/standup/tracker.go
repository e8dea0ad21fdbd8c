package standup

import (
	"strings"
	"sync"
	"time"
)

// Inbound is a chat message as seen by the standup workflow.
type Inbound struct {
	ChatID      int64
	UserID      int64
	DisplayName string
	MessageID   int64
	ReplyToID   int64 // zero when the message is not a reply
	Text        string
	ReceivedAt  time.Time
	FromBot     bool
}

// Prompt is a delivered standup prompt. SentAt is the chat's own timestamp
// of the message, so it compares with reply timestamps at the same precision.
type Prompt struct {
	MessageID int64
	SentAt    time.Time
}

// Tracker remembers the last prompt and decides which messages answer it.
type Tracker struct {
	window time.Duration

	mu        sync.RWMutex
	messageID int64
	sentAt    time.Time
}

// NewTracker creates a tracker accepting replies for window after a prompt.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{window: window}
}

// Record stores the last dispatched prompt.
func (t *Tracker) Record(messageID int64, sentAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageID = messageID
	t.sentAt = sentAt
}

// Last returns the last prompt, if any.
func (t *Tracker) Last() (messageID int64, sentAt time.Time, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messageID, t.sentAt, !t.sentAt.IsZero()
}

// InScope reports whether m is a standup reply: posted by a person in the
// standup channel within the window after the last prompt, and either a
// reply to that prompt or not a reply at all.
func (t *Tracker) InScope(m Inbound, channelID int64) bool {
	if m.FromBot || channelID == 0 || m.ChatID != channelID {
		return false
	}
	if strings.HasPrefix(strings.TrimSpace(m.Text), "/") {
		return false
	}

	promptID, sentAt, ok := t.Last()
	if !ok {
		return false
	}
	age := m.ReceivedAt.Sub(sentAt)
	if age < 0 || age > t.window {
		return false
	}
	return m.ReplyToID == 0 || m.ReplyToID == promptID
}
