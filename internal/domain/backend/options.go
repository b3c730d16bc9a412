package backend

import (
	"time"

	"github.com/okian/facegate/pkg/logger"
)

const defaultCallTimeout = 5 * time.Second

// Option configures a Registry.
type Option func(*Registry)

// WithCallTimeout bounds every backend call made through a resolved Set.
// Non-positive values disable the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.callTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
