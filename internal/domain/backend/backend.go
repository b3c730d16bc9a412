// Package backend defines the capability-typed contracts the recognition core
// consumes (detection, embedding, verification and liveness) and a registry
// that selects concrete backends by name.
package backend

import (
	"context"
	"image"

	"github.com/okian/facegate/internal/domain/model"
)

// Capability names used for registry lookups, logs and metrics.
const (
	CapabilityDetect   = "detect"
	CapabilityEmbed    = "embed"
	CapabilityVerify   = "verify"
	CapabilityLiveness = "liveness"
)

// Named is implemented by every backend.
type Named interface {
	Name() string
}

// Detector locates faces in a frame. Empty or unreadable frames yield an
// empty slice, not an error.
type Detector interface {
	Named
	Detect(ctx context.Context, frame image.Image) ([]model.Box, error)
}

// Embedder extracts a fixed-dimension vector from a face crop. A failure is
// reported as an error; an all-zero vector is a valid result.
type Embedder interface {
	Named
	Embed(ctx context.Context, crop image.Image) ([]float64, error)
}

// Verification is the outcome of a pairwise face comparison. Distance is
// non-negative and grows with dissimilarity.
type Verification struct {
	Verified bool
	Distance float64
}

// Verifier compares two face crops.
type Verifier interface {
	Named
	Verify(ctx context.Context, a, b image.Image) (Verification, error)
}

// LivenessClassifier scores how likely a crop shows a live face, in [0,1].
type LivenessClassifier interface {
	Named
	Liveness(ctx context.Context, crop image.Image) (float64, error)
}
