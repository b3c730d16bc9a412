// Package matcher turns a camera frame into a MatchResult against the
// enrolled identity set. SingleShot compares fused embeddings; Quorum
// requires agreement across several enrolled poses.
package matcher

import (
	"context"
	"image"

	"github.com/okian/facegate/internal/domain/liveness"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/model"
)

// Matcher recognizes the best enrolled identity in a frame. Failures are
// reported through the result status, never as errors.
type Matcher interface {
	Match(ctx context.Context, frame image.Image, identities []model.EnrolledIdentity) model.MatchResult
}

// FaceLocator finds the faces in a frame.
type FaceLocator interface {
	Locate(ctx context.Context, frame image.Image) ([]locate.Face, error)
}

// LivenessChecker gates a crop on anti-spoofing.
type LivenessChecker interface {
	Check(ctx context.Context, crop image.Image) liveness.Decision
}

func regionOf(f locate.Face) *model.Box {
	b := f.Box
	return &b
}
