package models

// TranscriptPartial represents an in-progress transcript update for one
// speaker, emitted while a turn is still accumulating.
type TranscriptPartial struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"`
}

// TranscriptFinal represents a finalized chat message emitted when the
// remote service signals turn completion.
type TranscriptFinal struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	TurnSeq   uint64  `json:"turnSeq"`
	Timestamp int64   `json:"timestamp"`
}
