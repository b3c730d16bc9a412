package backend

import "errors"

var (
	// ErrDuplicateBackend is returned when a name is registered twice for one capability.
	ErrDuplicateBackend = errors.New("backend already registered")
	// ErrUnknownBackend is returned when a selection names an unregistered backend.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrNoUsableBackend is returned when a required capability has no backend.
	ErrNoUsableBackend = errors.New("no usable backend")
)
