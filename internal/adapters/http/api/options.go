package api

import "github.com/okian/facegate/pkg/logger"

const defaultMaxUploadBytes = 10 << 20

type settings struct {
	maxUploadBytes int64
	logger         logger.Logger
}

// Option configures the Server.
type Option func(*settings)

// WithMaxUploadBytes caps the size of an uploaded frame.
func WithMaxUploadBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
