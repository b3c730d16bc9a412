package fusion

import "github.com/okian/facegate/pkg/logger"

// Option applies a configuration option to the MeanFuser.
type Option func(*MeanFuser)

// WithEnhancement enables contrast stretching and sharpening of each crop
// before it reaches the backends.
func WithEnhancement(enabled bool) Option {
	return func(f *MeanFuser) {
		f.enhance = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *MeanFuser) {
		if l != nil {
			f.logger = l
		}
	}
}
