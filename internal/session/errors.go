package session

import "errors"

// ErrCredentialMissing means no credential is stored; the user must enter
// one before a session can start.
var ErrCredentialMissing = errors.New("no credential stored")

// Failure kinds recorded on sessions that end with an error.
const (
	FailureCredentialInvalid = "credential_invalid"
	FailurePermissionDenied  = "permission_denied"
	FailureConnection        = "connection"
	FailureCapture           = "capture"
)
