// Package schema validates transcript events before they are exported.
package schema

import (
	"errors"
	"fmt"

	"voice-practice-client/internal/models"
)

var (
	ErrMissingEventType = errors.New("event is missing eventType")
	ErrMissingSessionID = errors.New("event is missing sessionId")
	ErrUnknownSpeaker   = errors.New("event has an unknown speaker")
	ErrEmptyText        = errors.New("event has empty text")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks that a transcript event carries the fields downstream
// consumers rely on. Returns nil for event types it does not know about.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.TranscriptPartial:
		return check(ev.EventType, ev.SessionID, ev.Speaker, ev.Text)
	case models.TranscriptFinal:
		return check(ev.EventType, ev.SessionID, ev.Speaker, ev.Text)
	default:
		return nil
	}
}

func check(eventType, sessionID string, speaker models.Speaker, text string) error {
	if eventType == "" {
		return ErrMissingEventType
	}
	if sessionID == "" {
		return ErrMissingSessionID
	}
	if !speaker.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSpeaker, speaker)
	}
	if text == "" {
		return ErrEmptyText
	}
	return nil
}
