package enrollment

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("enrollment session not found")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid enrollment transition")
	// ErrEnrollmentInProgress is returned when the name is already being enrolled.
	ErrEnrollmentInProgress = errors.New("enrollment already in progress")
	// ErrCommitFailed is returned when the completed identity could not be
	// persisted. The last capture is rolled back so the caller may retry it.
	ErrCommitFailed = errors.New("enrollment commit failed")
)
