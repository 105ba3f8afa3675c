// Package turns accumulates partial transcripts per speaker and finalizes
// them into chat messages on turn completion.
package turns

import (
	"strings"
	"sync"

	"voice-practice-client/internal/models"
)

// Aggregator collects incremental transcript fragments for the user and the
// assistant between turn boundaries. Thread-safe.
type Aggregator struct {
	mu        sync.Mutex
	user      strings.Builder
	assistant strings.Builder
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddFragment appends a transcript fragment to the speaker's accumulator and
// returns the speaker's growing partial text for live display.
// Fragments for unknown speakers are ignored.
func (a *Aggregator) AddFragment(speaker models.Speaker, text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch speaker {
	case models.SpeakerUser:
		a.user.WriteString(text)
		return a.user.String()
	case models.SpeakerAssistant:
		a.assistant.WriteString(text)
		return a.assistant.String()
	default:
		return ""
	}
}

// Partials returns the current partial text per speaker.
func (a *Aggregator) Partials() (user, assistant string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user.String(), a.assistant.String()
}

// CompleteTurn finalizes the current turn: each non-empty accumulator emits
// one trimmed ChatMessage, user before assistant, and both accumulators are
// reset. A turn with no accumulated text emits nothing.
func (a *Aggregator) CompleteTurn() []models.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	var msgs []models.ChatMessage
	if text := strings.TrimSpace(a.user.String()); text != "" {
		msgs = append(msgs, models.ChatMessage{Speaker: models.SpeakerUser, Text: text})
	}
	if text := strings.TrimSpace(a.assistant.String()); text != "" {
		msgs = append(msgs, models.ChatMessage{Speaker: models.SpeakerAssistant, Text: text})
	}

	a.user.Reset()
	a.assistant.Reset()
	return msgs
}

// Reset clears both accumulators without emitting anything.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Reset()
	a.assistant.Reset()
}
