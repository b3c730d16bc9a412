package model

// Status classifies the outcome of one recognition call.
type Status string

// Recognition statuses.
const (
	StatusPerfectMatch         Status = "PERFECT_MATCH"
	StatusPartialMatch         Status = "PARTIAL_MATCH"
	StatusNoMatch              Status = "NO_MATCH"
	StatusNoFaceDetected       Status = "NO_FACE_DETECTED"
	StatusNoEnrolledIdentities Status = "NO_ENROLLED_IDENTITIES"
	StatusSpoofDetected        Status = "SPOOF_DETECTED"
	StatusRecognitionError     Status = "RECOGNITION_ERROR"
)

// Matched reports whether the status names an identity.
func (s Status) Matched() bool {
	return s == StatusPerfectMatch || s == StatusPartialMatch
}

// MatchResult is produced fresh for every recognition call.
type MatchResult struct {
	Identity   string  `json:"identity,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
	// Region is the face that produced the result, when there was one.
	Region *Box `json:"region,omitempty"`
}

// NewResult builds an identity-free result with zero confidence.
func NewResult(status Status) MatchResult {
	return MatchResult{Status: status}
}

// Thresholds maps a confidence to a match status.
type Thresholds struct {
	// Perfect is the exclusive lower bound for PERFECT_MATCH.
	Perfect float64
	// Partial is the exclusive lower bound for PARTIAL_MATCH.
	Partial float64
}

// DefaultThresholds returns 0.9 / 0.
func DefaultThresholds() Thresholds {
	return Thresholds{Perfect: 0.9, Partial: 0}
}

// Classify maps a best confidence to PERFECT_MATCH, PARTIAL_MATCH or NO_MATCH.
func (t Thresholds) Classify(confidence float64) Status {
	switch {
	case confidence > t.Perfect:
		return StatusPerfectMatch
	case confidence > t.Partial:
		return StatusPartialMatch
	default:
		return StatusNoMatch
	}
}
