// Package models defines the data structures shared across the client:
// chat messages and the transcript event payloads exported for analytics.
package models

// Speaker identifies who produced a chat message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Valid reports whether the speaker is one of the known values.
func (s Speaker) Valid() bool {
	return s == SpeakerUser || s == SpeakerAssistant
}

// ChatMessage is one finalized turn entry in the transcript log.
// Immutable once created.
type ChatMessage struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
