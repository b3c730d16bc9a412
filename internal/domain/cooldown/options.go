package cooldown

import "time"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDefaultWindow sets the window for channels without their own.
func WithDefaultWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fallback = d
		}
	}
}

// WithChannelWindow sets the window of one channel.
func WithChannelWindow(channel string, d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.windows[channel] = d
		}
	}
}
