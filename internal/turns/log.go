package turns

import (
	"sync"

	"voice-practice-client/internal/models"
)

// Log is the ordered, append-only transcript log. Messages are never
// mutated or removed. Thread-safe.
type Log struct {
	mu   sync.RWMutex
	msgs []models.ChatMessage
}

func NewLog() *Log {
	return &Log{}
}

// Append adds finalized messages to the log in order.
func (l *Log) Append(msgs ...models.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msgs...)
}

// Messages returns a copy of the transcript log.
func (l *Log) Messages() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.ChatMessage, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of finalized messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}
