// Package service wires the recognition core, the identity catalog,
// enrollment and the announcement pipeline into the dependencies required
// by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/facegate/internal/adapters/announce"
	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/adapters/mq/outbox"
	"github.com/okian/facegate/internal/adapters/mq/worker"
	"github.com/okian/facegate/internal/adapters/repository"
	"github.com/okian/facegate/internal/config"
	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/cooldown"
	"github.com/okian/facegate/internal/domain/dedupe"
	"github.com/okian/facegate/internal/domain/enrollment"
	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/liveness"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/matcher"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/scoring"
	"github.com/okian/facegate/pkg/logger"
)

// Service implements the API dependencies for the access point.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	registry   *backend.Registry
	backends   *backend.Set
	store      repository.Store
	catalog    *repository.Catalog
	locator    *locate.Locator
	single     *matcher.SingleShot
	quorum     *matcher.Quorum
	enrollment *enrollment.Manager
	cooldown   *cooldown.Service

	// Side effects
	auditSink   audit.Sink
	auditReader audit.Reader
	speaker     announce.Sink
	outbox      *outbox.Mailbox
	announcer   *worker.Worker

	closers    []io.Closer
	closeAudit func()

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now    func() time.Time
	logger logger.Logger
}

// New constructs a new Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores, resolves the backends and launches the background
// workers. Calling Start on a started service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg
	s.logger.Info(ctx, "starting access point service...")

	if s.registry == nil {
		r, closers, err := buildRegistry(cfg, s.logger.Named("backend"))
		if err != nil {
			return fmt.Errorf("build backends: %w", err)
		}
		s.registry, s.closers = r, closers
	}
	set, err := s.registry.Resolve(ctx, backend.Selection{
		Detectors: cfg.Backends.Detectors,
		Embedders: cfg.Backends.Embedders,
		Verifier:  cfg.Backends.Verifier,
		Liveness:  cfg.Backends.Liveness,
	})
	if err != nil {
		s.closeBackends(ctx)
		return fmt.Errorf("resolve backends: %w", err)
	}
	s.backends = set

	if s.store == nil {
		store, err := openStore(ctx, cfg.Identities)
		if err != nil {
			s.closeBackends(ctx)
			return fmt.Errorf("open identity store: %w", err)
		}
		s.store = store
	}
	policy, err := repository.ParseDuplicatePolicy(cfg.Identities.DuplicatePolicy)
	if err != nil {
		s.closeBackends(ctx)
		return err
	}
	s.catalog = repository.NewCatalog(s.store,
		repository.WithDuplicatePolicy(policy),
		repository.WithLogger(s.logger.Named("catalog")),
	)
	if err := s.catalog.Load(ctx); err != nil {
		// The catalog already serves an empty set; recognition keeps
		// answering NO_ENROLLED_IDENTITIES until the store is repaired.
		s.logger.Error(ctx, "identity store unreadable", logger.Error(err))
	}

	s.buildCore(set)

	if s.auditSink == nil {
		sink, reader, closeFn, err := openAudit(ctx, cfg.Audit, s.logger.Named("audit"))
		if err != nil {
			s.closeStores(ctx)
			return fmt.Errorf("open audit sink: %w", err)
		}
		s.auditSink, s.auditReader, s.closeAudit = sink, reader, closeFn
	} else if r, ok := s.auditSink.(audit.Reader); ok && s.auditReader == nil {
		s.auditReader = r
	}

	if s.speaker == nil {
		speaker, err := openSpeaker(cfg.Announce, s.logger.Named("speaker"))
		if err != nil {
			s.closeStores(ctx)
			return fmt.Errorf("open announce sink: %w", err)
		}
		s.speaker = speaker
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.speaker != nil {
		s.outbox = outbox.New()
		s.announcer = worker.New(s.outbox, s.speaker,
			worker.WithPlaybackTimeout(cfg.Announce.PlaybackTimeout),
			worker.WithLogger(s.logger),
		)
		s.goRun(func() { s.announcer.Run(runCtx) })
	}
	s.goRun(func() { s.enrollment.Run(runCtx, cfg.Enrollment.SweepInterval) })
	if s.auditReader != nil {
		s.goRun(func() {
			audit.RunRetention(runCtx, s.auditReader, cfg.Audit.Retention, cfg.Audit.PurgeInterval, s.logger.Named("audit"))
		})
	}

	s.started = true
	s.logger.Info(ctx, "access point service started",
		logger.Int("identities", s.catalog.Len()),
		logger.Int("detectors", len(set.Detectors)),
		logger.Int("embedders", len(set.Embedders)),
		logger.Bool("quorum", s.quorum != nil),
		logger.String("mode", cfg.Matching.Mode),
	)
	return nil
}

func (s *Service) buildCore(set *backend.Set) {
	cfg := s.cfg
	log := s.logger

	s.locator = locate.New(set.Detectors,
		dedupe.NewGreedyDeduper(dedupe.WithThreshold(cfg.Matching.DedupeThreshold)))
	gate := liveness.NewGate(set.Liveness,
		liveness.WithThreshold(cfg.Liveness.Threshold),
		liveness.WithFailOpen(cfg.Liveness.FailOpen),
		liveness.WithLogger(log.Named("liveness")),
	)
	fuser := fusion.NewMeanFuser(set.Embedders,
		fusion.WithEnhancement(cfg.Matching.Enhance),
		fusion.WithLogger(log.Named("fusion")),
	)
	scorer := scoring.NewSimilarityScorer(
		scoring.WithWeights(cfg.Scoring.CosineWeight, cfg.Scoring.EuclidWeight),
		scoring.WithBoost(cfg.Scoring.BoostThreshold, cfg.Scoring.BoostAmount),
	)
	thresholds := matcher.WithThresholds(model.Thresholds{
		Perfect: cfg.Matching.PerfectThreshold,
		Partial: cfg.Matching.PartialThreshold,
	})
	enrollPoses := poses(cfg.Enrollment.Poses)

	s.single = matcher.NewSingleShot(s.locator, gate, fuser, scorer,
		thresholds, matcher.WithLogger(log.Named("matcher")))
	if set.Verifier != nil {
		s.quorum = matcher.NewQuorum(s.locator, gate, set.Verifier,
			thresholds,
			matcher.WithQuorum(cfg.Matching.Quorum),
			matcher.WithPoses(enrollPoses),
			matcher.WithLogger(log.Named("quorum")),
		)
	}

	opts := []enrollment.Option{
		enrollment.WithPoses(enrollPoses),
		enrollment.WithCapturesPerPose(cfg.Enrollment.CapturesPerPose),
		enrollment.WithSessionTTL(cfg.Enrollment.SessionTTL),
		enrollment.WithAllowExisting(s.catalog.Policy() == repository.DuplicateReplace),
		enrollment.WithClock(s.now),
		enrollment.WithLogger(log.Named("enrollment")),
	}
	if cfg.Enrollment.ReferenceEmbedding {
		opts = append(opts, enrollment.WithReferenceEmbedding(fuser))
	}
	s.enrollment = enrollment.NewManager(s.locator, s.catalog, opts...)

	cdOpts := []cooldown.Option{cooldown.WithDefaultWindow(cfg.Cooldown.Window)}
	if cfg.Cooldown.Voice > 0 {
		cdOpts = append(cdOpts, cooldown.WithChannelWindow(cooldown.ChannelVoice, cfg.Cooldown.Voice))
	}
	if cfg.Cooldown.Audit > 0 {
		cdOpts = append(cdOpts, cooldown.WithChannelWindow(cooldown.ChannelAudit, cfg.Cooldown.Audit))
	}
	s.cooldown = cooldown.NewService(cdOpts...)
}

func (s *Service) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop drains the announcer, discards open enrollments and closes the
// stores. It waits at most until ctx is done for the background workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping access point service...")

	var errs []error
	if s.outbox != nil {
		_ = s.outbox.Close()
		if err := s.announcer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.enrollment.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for workers: %w", ctx.Err()))
	}

	s.closeStores(ctx)
	s.started = false
	s.logger.Info(ctx, "access point service stopped")
	return errors.Join(errs...)
}

func (s *Service) closeStores(ctx context.Context) {
	if s.closeAudit != nil {
		s.closeAudit()
		s.closeAudit = nil
	}
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close identity store", logger.Error(err))
		}
	}
	s.closeBackends(ctx)
}

func (s *Service) closeBackends(ctx context.Context) {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close backend", logger.Error(err))
		}
	}
	s.closers = nil
}

// Ready reports whether the service has been started.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Health is the state reported by the health endpoint.
type Health struct {
	Ready                bool     `json:"ready"`
	Identities           int      `json:"identities"`
	EnrollmentSessions   int      `json:"enrollment_sessions"`
	Detectors            []string `json:"detectors"`
	Embedders            []string `json:"embedders"`
	Verifier             string   `json:"verifier,omitempty"`
	Liveness             string   `json:"liveness"`
	PendingAnnouncements int      `json:"pending_announcements"`
}

// Health returns a snapshot of the service state.
func (s *Service) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := Health{Ready: s.started}
	if !s.started {
		return h
	}
	h.Identities = s.catalog.Len()
	h.EnrollmentSessions = s.enrollment.Len()
	for _, d := range s.backends.Detectors {
		h.Detectors = append(h.Detectors, d.Name())
	}
	for _, e := range s.backends.Embedders {
		h.Embedders = append(h.Embedders, e.Name())
	}
	if s.backends.Verifier != nil {
		h.Verifier = s.backends.Verifier.Name()
	}
	h.Liveness = s.backends.Liveness.Name()
	if s.outbox != nil {
		h.PendingAnnouncements = s.outbox.Len()
	}
	return h
}
