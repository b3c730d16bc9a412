package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/domain/enrollment"
	"github.com/okian/facegate/internal/domain/model"
)

// StartEnrollment opens an enrollment session for name.
func (s *Service) StartEnrollment(ctx context.Context, name string) (enrollment.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return enrollment.Progress{}, ErrNotStarted
	}
	return s.enrollment.Start(ctx, name)
}

// Capture feeds one frame to an enrollment session.
func (s *Service) Capture(ctx context.Context, sessionID string, frame image.Image) (enrollment.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return enrollment.Progress{}, ErrNotStarted
	}
	return s.enrollment.Capture(ctx, sessionID, frame)
}

// CancelEnrollment discards a session.
func (s *Service) CancelEnrollment(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.enrollment.Cancel(ctx, sessionID)
}

// Enrollment returns the progress of a live session.
func (s *Service) Enrollment(sessionID string) (enrollment.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return enrollment.Progress{}, ErrNotStarted
	}
	return s.enrollment.Get(sessionID)
}

// Poses returns the configured enrollment poses in capture order.
func (s *Service) Poses() []model.Pose {
	return poses(s.cfg.Enrollment.Poses)
}

// Import enrolls name from prepared frames keyed by pose, running them
// through a regular enrollment session in pose order. Every configured pose
// needs enough frames; the session is cancelled on the first failure.
func (s *Service) Import(ctx context.Context, name string, frames map[model.Pose][]image.Image) (enrollment.Progress, error) {
	progress, err := s.StartEnrollment(ctx, name)
	if err != nil {
		return progress, err
	}
	for _, pose := range s.Poses() {
		refs := frames[pose]
		if len(refs) < s.cfg.Enrollment.CapturesPerPose {
			_ = s.CancelEnrollment(ctx, progress.SessionID)
			return progress, fmt.Errorf("pose %s: %d of %d frames: %w",
				pose, len(refs), s.cfg.Enrollment.CapturesPerPose, ErrIncompleteImport)
		}
		for i, frame := range refs[:s.cfg.Enrollment.CapturesPerPose] {
			next, err := s.Capture(ctx, progress.SessionID, frame)
			if err != nil {
				if !errors.Is(err, enrollment.ErrSessionNotFound) {
					_ = s.CancelEnrollment(ctx, progress.SessionID)
				}
				return next, fmt.Errorf("pose %s frame %d: %w", pose, i+1, err)
			}
			progress = next
		}
	}
	return progress, nil
}

// Identities returns the image-free view of every enrolled identity,
// sorted by name.
func (s *Service) Identities() ([]model.IdentitySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	ids := s.catalog.Identities()
	out := make([]model.IdentitySummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RemoveIdentity deletes one enrolled identity.
func (s *Service) RemoveIdentity(ctx context.Context, name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.catalog.Remove(ctx, name)
}

// RecentAccess returns up to limit access events, newest first.
func (s *Service) RecentAccess(ctx context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if s.auditReader == nil {
		return nil, ErrAuditUnavailable
	}
	return s.auditReader.Recent(ctx, limit)
}

// AccessStats summarizes the recorded access events.
func (s *Service) AccessStats(ctx context.Context) (audit.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return audit.Stats{}, ErrNotStarted
	}
	if s.auditReader == nil {
		return audit.Stats{}, ErrAuditUnavailable
	}
	return s.auditReader.Stats(ctx, s.now())
}
