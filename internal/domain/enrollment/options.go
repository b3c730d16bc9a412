package enrollment

import (
	"time"

	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
)

const defaultSessionTTL = 5 * time.Minute

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithPoses sets the ordered pose labels to capture.
func WithPoses(poses []model.Pose) Option {
	return func(m *Manager) {
		if len(poses) > 0 {
			m.poses = append([]model.Pose(nil), poses...)
		}
	}
}

// WithCapturesPerPose sets how many captures each pose needs.
func WithCapturesPerPose(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.perPose = n
		}
	}
}

// WithSessionTTL sets how long an idle session survives. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithReferenceEmbedding fuses the first capture of the first pose into a
// stored embedding so single-shot matching can use the new identity.
func WithReferenceEmbedding(f fusion.Fuser) Option {
	return func(m *Manager) {
		m.fuser = f
	}
}

// WithAllowExisting lets a session target an already enrolled name, for
// catalogs configured to replace duplicates.
func WithAllowExisting(allow bool) Option {
	return func(m *Manager) {
		m.allowExisting = allow
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
