// Package liveness gates face crops on an anti-spoofing classifier before
// they are matched.
package liveness

import (
	"context"
	"image"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// DefaultThreshold is the score a crop must exceed to count as live.
const DefaultThreshold = 0.8

// Decision is the gate outcome for one crop.
type Decision struct {
	Live  bool
	Score float64
	// FailOpen is set when the classifier failed and the crop was let
	// through because the gate is configured to fail open.
	FailOpen bool
	// Err is the classifier failure, if any.
	Err error
}

// Gate decides whether a crop shows a live face.
type Gate struct {
	classifier backend.LivenessClassifier
	threshold  float64
	failOpen   bool
	logger     logger.Logger
}

// NewGate creates a gate over classifier. The gate fails closed unless
// WithFailOpen(true) is given.
func NewGate(classifier backend.LivenessClassifier, opts ...Option) *Gate {
	g := &Gate{
		classifier: classifier,
		threshold:  DefaultThreshold,
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check classifies crop. A crop is live iff its score is strictly above the
// threshold. A classifier failure denies the crop unless the gate fails open.
func (g *Gate) Check(ctx context.Context, crop image.Image) Decision {
	score, err := g.classifier.Liveness(ctx, crop)
	if err != nil {
		if g.failOpen {
			g.logger.Warn(ctx, "Liveness classifier failed, admitting face because fail-open is enabled",
				logger.String("classifier", g.classifier.Name()),
				logger.Error(err))
			metrics.RecordLivenessFailOpen()
			return Decision{Live: true, FailOpen: true, Err: err}
		}
		g.logger.Warn(ctx, "Liveness classifier failed, treating face as spoof",
			logger.String("classifier", g.classifier.Name()),
			logger.Error(err))
		metrics.RecordSpoofDetected()
		return Decision{Live: false, Err: err}
	}

	live := score > g.threshold
	if !live {
		g.logger.Info(ctx, "Spoof detected",
			logger.Float64("score", score),
			logger.Float64("threshold", g.threshold))
		metrics.RecordSpoofDetected()
	}
	return Decision{Live: live, Score: score}
}

// Threshold returns the configured threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// FailOpen reports whether classifier failures admit the face.
func (g *Gate) FailOpen() bool { return g.failOpen }
