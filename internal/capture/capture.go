// Package capture produces fixed-size microphone frames for streaming to
// the remote service.
package capture

import "errors"

// ErrDeviceDenied is returned when the microphone cannot be opened, which
// covers permission denial as well as a missing input device.
var ErrDeviceDenied = errors.New("microphone unavailable or access denied")

// Config holds capture parameters. The remote service dictates 16 kHz mono
// 16-bit little-endian PCM.
type Config struct {
	SampleRate   int
	Channels     int
	FrameSamples int
}

// Source delivers fixed-size PCM frames from a microphone. Start may only
// be called once per Source; a new session opens a new Source.
type Source interface {
	// Start opens the device and begins delivering frames. onFrame
	// receives each fixed-size frame; onError is called once on any
	// capture failure, after which no more frames are delivered.
	Start(onFrame func(frame []byte), onError func(err error)) error

	// Close stops capture and releases the device. Idempotent.
	Close() error
}

// Factory opens a new Source for a session.
type Factory func(cfg Config) (Source, error)
