package model

import "errors"

// Error taxonomy shared by the decision core. Adapters wrap these with %w so
// callers can test with errors.Is.
var (
	ErrNoFaceDetected            = errors.New("no face detected")
	ErrMultipleFacesDetected     = errors.New("multiple faces detected")
	ErrEmbeddingExtractionFailed = errors.New("embedding extraction failed")
	ErrNoEnrolledIdentities      = errors.New("no enrolled identities")
	ErrSpoofDetected             = errors.New("spoof detected")
	ErrBackendUnavailable        = errors.New("backend unavailable")
	ErrStoreCorrupt              = errors.New("identity store corrupt")
	ErrDuplicateIdentity         = errors.New("identity already enrolled")
	ErrIdentityNotFound          = errors.New("identity not found")
	ErrDimensionMismatch         = errors.New("embedding dimension mismatch")
)
