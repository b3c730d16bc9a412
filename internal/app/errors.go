package service

import "errors"

// Sentinel errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrQuorumUnavailable = errors.New("quorum matching needs a verifier backend")
	ErrUnknownMode       = errors.New("unknown recognition mode")
	ErrAuditUnavailable  = errors.New("audit sink is not queryable")
	ErrIncompleteImport  = errors.New("not enough frames for pose")
)
