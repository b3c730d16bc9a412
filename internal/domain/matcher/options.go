package matcher

import (
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
)

// DefaultQuorum is the number of poses that must agree.
const DefaultQuorum = 3

type settings struct {
	thresholds model.Thresholds
	quorum     int
	poses      []model.Pose
	logger     logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		thresholds: model.DefaultThresholds(),
		quorum:     DefaultQuorum,
		poses:      model.DefaultPoses(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a matcher.
type Option func(*settings)

// WithThresholds sets the PERFECT and PARTIAL lower bounds.
func WithThresholds(t model.Thresholds) Option {
	return func(s *settings) {
		if t.Perfect >= t.Partial {
			s.thresholds = t
		}
	}
}

// WithQuorum sets how many poses must produce a verified comparison.
// Used by Quorum only.
func WithQuorum(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.quorum = n
		}
	}
}

// WithPoses sets the ordered pose labels compared by Quorum.
func WithPoses(poses []model.Pose) Option {
	return func(s *settings) {
		if len(poses) > 0 {
			s.poses = append([]model.Pose(nil), poses...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
