package repository

import "errors"

// Sentinel errors for identity persistence.
var (
	ErrNotFound        = errors.New("identity not found")
	ErrUnknownPolicy   = errors.New("unknown duplicate policy")
	ErrUnknownBackend  = errors.New("unknown store backend")
	ErrInvalidIdentity = errors.New("invalid identity")
)
