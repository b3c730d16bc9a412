package liveness

import "github.com/okian/facegate/pkg/logger"

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithThreshold sets the liveness threshold. Values outside [0,1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(g *Gate) {
		if threshold >= 0 && threshold <= 1 {
			g.threshold = threshold
		}
	}
}

// WithFailOpen makes classifier failures admit the face instead of denying
// it. Every such decision is logged at warn level and counted.
func WithFailOpen(enabled bool) Option {
	return func(g *Gate) {
		g.failOpen = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}
