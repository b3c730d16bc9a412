package service

import (
	"time"

	"github.com/okian/facegate/internal/adapters/announce"
	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/adapters/repository"
	"github.com/okian/facegate/internal/config"
	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults apply otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithRegistry supplies backends instead of building them from
// configuration.
func WithRegistry(r *backend.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithIdentityStore supplies the identity store instead of opening the
// configured one.
func WithIdentityStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithAuditSink supplies the audit sink. When it also implements
// audit.Reader the access-event queries are served from it.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Service) {
		s.auditSink = sink
	}
}

// WithSpeaker supplies the announcement sink.
func WithSpeaker(sink announce.Sink) Option {
	return func(s *Service) {
		s.speaker = sink
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
