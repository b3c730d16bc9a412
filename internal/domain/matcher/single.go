package matcher

import (
	"context"
	"errors"
	"image"

	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/scoring"
	"github.com/okian/facegate/pkg/logger"
)

// SingleShot scores the fused embedding of every live face against every
// identity with a stored embedding and keeps the global maximum.
type SingleShot struct {
	locator FaceLocator
	gate    LivenessChecker
	fuser   fusion.Fuser
	scorer  scoring.Scorer
	settings
}

// NewSingleShot creates a single-shot matcher.
func NewSingleShot(locator FaceLocator, gate LivenessChecker, fuser fusion.Fuser, scorer scoring.Scorer, opts ...Option) *SingleShot {
	return &SingleShot{
		locator:  locator,
		gate:     gate,
		fuser:    fuser,
		scorer:   scorer,
		settings: newSettings(opts),
	}
}

// Match runs the single-shot pipeline over frame. A spoofed face is skipped
// without aborting the others.
func (m *SingleShot) Match(ctx context.Context, frame image.Image, identities []model.EnrolledIdentity) model.MatchResult {
	faces, err := m.locator.Locate(ctx, frame)
	if err != nil {
		m.logger.Error(ctx, "Face detection failed", logger.Error(err))
		return model.NewResult(model.StatusRecognitionError)
	}
	if len(faces) == 0 {
		return model.NewResult(model.StatusNoFaceDetected)
	}

	var (
		best             model.MatchResult
		compared         bool
		spoofed          int
		extractionFailed bool
		firstSpoof       *model.Box
		firstLive        *model.Box
	)
	for _, face := range faces {
		if d := m.gate.Check(ctx, face.Crop); !d.Live {
			spoofed++
			if firstSpoof == nil {
				firstSpoof = regionOf(face)
			}
			continue
		}
		if firstLive == nil {
			firstLive = regionOf(face)
		}
		if len(identities) == 0 {
			continue
		}

		fused, err := m.fuser.Fuse(ctx, face.Crop)
		if err != nil {
			extractionFailed = true
			m.logger.Warn(ctx, "Embedding extraction failed", logger.Error(err))
			continue
		}

		if r, ok := m.bestFor(ctx, face, fused, identities); ok {
			if !compared || r.Confidence > best.Confidence {
				best = r
			}
			compared = true
		}
	}

	switch {
	case spoofed == len(faces):
		return model.MatchResult{Status: model.StatusSpoofDetected, Region: firstSpoof}
	case len(identities) == 0:
		return model.MatchResult{Status: model.StatusNoEnrolledIdentities, Region: firstLive}
	case !compared && extractionFailed:
		return model.MatchResult{Status: model.StatusRecognitionError, Region: firstLive}
	case !compared:
		return model.MatchResult{Status: model.StatusNoMatch, Region: firstLive}
	}

	best.Status = m.thresholds.Classify(best.Confidence)
	if !best.Status.Matched() {
		best.Identity = ""
	}
	return best
}

func (m *SingleShot) bestFor(ctx context.Context, face locate.Face, fused model.FusedEmbedding, identities []model.EnrolledIdentity) (model.MatchResult, bool) {
	var (
		best  model.MatchResult
		found bool
	)
	for _, id := range identities {
		if !id.HasEmbedding() {
			continue
		}
		r, err := m.scorer.Score(fused.Vector, id.Embedding.Vector)
		if err != nil {
			if errors.Is(err, model.ErrDimensionMismatch) {
				m.logger.Warn(ctx, "Stored embedding not comparable",
					logger.String("identity", id.Name),
					logger.Int("query_dim", fused.Dim()),
					logger.Int("stored_dim", id.Embedding.Dim()))
			}
			continue
		}
		if !found || r.Confidence > best.Confidence {
			best = model.MatchResult{Identity: id.Name, Confidence: r.Confidence, Region: regionOf(face)}
			found = true
		}
	}
	return best, found
}
