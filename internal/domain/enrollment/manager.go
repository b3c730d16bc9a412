package enrollment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// Catalog is the write side of the identity set as seen by enrollment.
type Catalog interface {
	Contains(name string) bool
	Add(ctx context.Context, id model.EnrolledIdentity) error
}

// FaceLocator finds exactly one face in a frame.
type FaceLocator interface {
	Single(ctx context.Context, frame image.Image) (locate.Face, error)
}

// Capture outcomes reported to metrics.
const (
	captureAccepted = "accepted"
	captureRejected = "rejected"
	captureFailed   = "commit_failed"
)

// Manager owns the live enrollment sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	locator FaceLocator
	catalog Catalog
	fuser   fusion.Fuser

	poses         []model.Pose
	perPose       int
	ttl           time.Duration
	allowExisting bool
	now           func() time.Time
	logger        logger.Logger
}

// NewManager creates a session manager.
func NewManager(locator FaceLocator, catalog Catalog, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		locator:  locator,
		catalog:  catalog,
		poses:    model.DefaultPoses(),
		perPose:  1,
		ttl:      defaultSessionTTL,
		now:      time.Now,
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start opens a session for name and moves it to CAPTURING the first pose.
// Names already enrolled are refused unless existing identities may be
// replaced; names with a live session are always refused.
func (m *Manager) Start(ctx context.Context, name string) (Progress, error) {
	target, err := naming.Clean(name)
	if err != nil {
		return Progress{}, err
	}
	if !m.allowExisting && m.catalog.Contains(target) {
		return Progress{}, fmt.Errorf("%q: %w", target, model.ErrDuplicateIdentity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := naming.Key(target)
	for _, s := range m.sessions {
		if naming.Key(s.Target) == key {
			return Progress{}, fmt.Errorf("%q: %w", target, ErrEnrollmentInProgress)
		}
	}

	s := NewSession(uuid.NewString(), target, m.poses, m.perPose, m.now())
	if err := s.Begin(); err != nil {
		return Progress{}, err
	}
	m.sessions[s.ID] = s
	m.updateGauge()
	metrics.RecordEnrollmentSession(string(StateCapturing))
	m.logger.Info(ctx, "Enrollment started",
		logger.String("session_id", s.ID),
		logger.String("name", target))
	return s.Progress(), nil
}

// Capture detects the single face in frame and stores it under the current
// pose. Zero or several faces reject the attempt without changing state.
// When the last pose completes, the identity is committed to the catalog;
// if that fails the capture is rolled back and ErrCommitFailed returned.
func (m *Manager) Capture(ctx context.Context, id string, frame image.Image) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Progress{}, ErrSessionNotFound
	}
	s.touch(m.now())

	face, err := m.locator.Single(ctx, frame)
	if err != nil {
		metrics.RecordEnrollmentCapture(captureRejected)
		return s.Progress(), err
	}
	if err := s.Accept(face.Crop); err != nil {
		return s.Progress(), err
	}
	metrics.RecordEnrollmentCapture(captureAccepted)

	if s.State() != StateComplete {
		return s.Progress(), nil
	}

	if err := m.commit(ctx, s); err != nil {
		metrics.RecordEnrollmentCapture(captureFailed)
		if rbErr := s.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		m.logger.Error(ctx, "Enrollment commit failed",
			logger.String("session_id", s.ID),
			logger.String("name", s.Target),
			logger.Error(err))
		return s.Progress(), fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	progress := s.Progress()
	delete(m.sessions, id)
	m.updateGauge()
	metrics.RecordEnrollmentSession(string(StateComplete))
	m.logger.Info(ctx, "Enrollment complete",
		logger.String("session_id", s.ID),
		logger.String("name", s.Target))
	return progress, nil
}

func (m *Manager) commit(ctx context.Context, s *Session) error {
	identity, err := s.Identity(m.now())
	if err != nil {
		return err
	}
	if m.fuser != nil {
		if refs := identity.Poses[m.poses[0]]; len(refs) > 0 {
			fused, err := m.fuser.Fuse(ctx, refs[0])
			if err != nil {
				m.logger.Warn(ctx, "Reference embedding unavailable, enrolling pose images only",
					logger.String("name", s.Target),
					logger.Error(err))
			} else {
				identity.Embedding = &fused
			}
		}
	}
	return m.catalog.Add(ctx, identity)
}

// Cancel discards the session and everything it captured.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.Cancel(); err != nil {
		return err
	}
	delete(m.sessions, id)
	m.updateGauge()
	metrics.RecordEnrollmentSession(string(StateCancelled))
	m.logger.Info(ctx, "Enrollment cancelled",
		logger.String("session_id", id),
		logger.String("name", s.Target))
	return nil
}

// Get returns the progress of a live session.
func (m *Manager) Get(id string) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Progress{}, ErrSessionNotFound
	}
	return s.Progress(), nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep cancels sessions idle for longer than the TTL and returns how many
// were evicted.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince().After(cutoff) {
			continue
		}
		_ = s.Cancel()
		delete(m.sessions, id)
		evicted++
		metrics.RecordEnrollmentSession("expired")
		m.logger.Info(ctx, "Enrollment session expired",
			logger.String("session_id", id),
			logger.String("name", s.Target))
	}
	if evicted > 0 {
		m.updateGauge()
	}
	return evicted
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Shutdown cancels every live session; partial enrollments are discarded.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		_ = s.Cancel()
		delete(m.sessions, id)
		metrics.RecordEnrollmentSession(string(StateCancelled))
	}
	m.updateGauge()
	m.logger.Info(ctx, "Enrollment sessions discarded")
}

// updateGauge must be called with m.mu held.
func (m *Manager) updateGauge() {
	metrics.UpdateEnrollmentSessions(len(m.sessions))
}
