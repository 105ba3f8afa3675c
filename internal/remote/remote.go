// Package remote defines the interface to the remote conversational AI
// service: one duplex streaming connection per session carrying outbound
// audio frames and inbound transcript/audio events.
package remote

import (
	"context"
	"errors"
)

// Classification errors for connection failures.
var (
	// ErrCredentialRejected means the service rejected the credential or
	// session configuration at connect time. The stored credential should
	// be discarded and the user asked to re-enter it.
	ErrCredentialRejected = errors.New("remote service rejected the credential")

	// ErrConnectionFailed is a transport-level failure.
	ErrConnectionFailed = errors.New("remote connection failed")
)

// SessionConfig is the initial configuration payload for a session.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	TranscribeInput   bool
	TranscribeOutput  bool

	// InputSampleRate is the PCM rate of outbound microphone frames.
	InputSampleRate int
}

// ServerEvent is one inbound message from the service. A single event may
// carry any combination of fields.
type ServerEvent struct {
	// InputTranscript is a partial transcript fragment of the user's speech.
	InputTranscript string

	// OutputTranscript is a partial transcript fragment of the assistant's speech.
	OutputTranscript string

	// Audio holds zero or more base64-encoded PCM fragments of assistant speech.
	Audio []string

	// TurnComplete signals that the current turn finished.
	TurnComplete bool

	// Interrupted signals that in-progress assistant speech was cut off.
	Interrupted bool
}

// Handler receives the four asynchronous notifications of a connection.
// Callbacks are invoked sequentially in arrival order.
type Handler interface {
	// OnOpen is called once when the connection is established and the
	// session configuration has been accepted.
	OnOpen()

	// OnEvent is called for each inbound server event.
	OnEvent(ev ServerEvent)

	// OnError is called once on an unrecoverable connection error.
	OnError(err error)

	// OnClose is called once when the connection closes, after any OnError.
	OnClose()
}

// Conn is one open duplex connection. Audio sent before the session
// configuration is accepted is deferred in order, never dropped.
// Reconnecting after close requires a brand-new Conn from the Dialer.
type Conn interface {
	// SendAudio transmits one raw PCM frame to the service.
	SendAudio(ctx context.Context, frame []byte) error

	// Close tears the connection down. Idempotent.
	Close() error
}

// Dialer opens connections to the remote service.
type Dialer interface {
	Dial(ctx context.Context, credential string, cfg SessionConfig, h Handler) (Conn, error)
}
