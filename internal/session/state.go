// Package session coordinates the lifecycle of one practice session:
// credential lookup, remote connection, microphone capture, turn
// aggregation and playback scheduling.
package session

import "fmt"

// State represents the lifecycle state of the session controller.
type State int

const (
	// StateIdle - No session in progress.
	StateIdle State = iota
	// StateConnecting - Connection requested, setup not yet acknowledged.
	StateConnecting
	// StateActive - Session established, audio flowing both ways.
	StateActive
	// StateStopping - Teardown in progress.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateStopping:
		return "STOPPING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Running reports whether a session is in progress in any form.
func (s State) Running() bool {
	return s == StateConnecting || s == StateActive
}
