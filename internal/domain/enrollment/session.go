// Package enrollment captures the pose-labelled reference images of a new
// identity and commits them atomically once every pose is captured.
package enrollment

import (
	"fmt"
	"image"
	"time"

	"github.com/okian/facegate/internal/domain/model"
)

// State of an enrollment session.
type State string

// Session states.
const (
	StateInit      State = "INIT"
	StateCapturing State = "CAPTURING"
	StateComplete  State = "COMPLETE"
	StateCancelled State = "CANCELLED"
)

// Progress is a snapshot of a session for callers.
type Progress struct {
	SessionID string       `json:"session_id"`
	Target    string       `json:"name"`
	State     State        `json:"state"`
	Pose      model.Pose   `json:"pose,omitempty"`
	PoseIndex int          `json:"pose_index"`
	PoseCount int          `json:"pose_count"`
	Captured  int          `json:"captured"`
	PerPose   int          `json:"per_pose"`
	Poses     []model.Pose `json:"poses"`
}

// Session is the enrollment state machine for one target identity:
// INIT -> CAPTURING(pose[0]) -> ... -> CAPTURING(pose[n-1]) -> COMPLETE,
// with CANCELLED reachable before completion. It is not safe for concurrent
// use; Manager serializes access.
type Session struct {
	ID     string
	Target string

	poses    []model.Pose
	perPose  int
	index    int
	captured map[model.Pose][]image.Image
	state    State

	createdAt time.Time
	touchedAt time.Time
}

// NewSession creates a session in INIT. perPose below 1 is treated as 1.
func NewSession(id, target string, poses []model.Pose, perPose int, now time.Time) *Session {
	if len(poses) == 0 {
		poses = model.DefaultPoses()
	}
	return &Session{
		ID:        id,
		Target:    target,
		poses:     append([]model.Pose(nil), poses...),
		perPose:   max(1, perPose),
		captured:  make(map[model.Pose][]image.Image, len(poses)),
		state:     StateInit,
		createdAt: now,
		touchedAt: now,
	}
}

// Begin moves INIT to CAPTURING the first pose.
func (s *Session) Begin() error {
	if s.state != StateInit {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateCapturing
	s.index = 0
	return nil
}

// Accept stores crop under the current pose and advances once the pose has
// its quota, reaching COMPLETE after the last pose.
func (s *Session) Accept(crop image.Image) error {
	if s.state != StateCapturing {
		return fmt.Errorf("%w: capture in %s", ErrInvalidTransition, s.state)
	}
	pose := s.poses[s.index]
	s.captured[pose] = append(s.captured[pose], crop)
	if len(s.captured[pose]) < s.perPose {
		return nil
	}
	if s.index == len(s.poses)-1 {
		s.state = StateComplete
		return nil
	}
	s.index++
	return nil
}

// Rollback undoes the most recent Accept. It is used when committing a
// completed session fails, returning the session to its last pose.
func (s *Session) Rollback() error {
	if s.state == StateCancelled || s.state == StateInit {
		return fmt.Errorf("%w: rollback in %s", ErrInvalidTransition, s.state)
	}
	if s.state == StateCapturing && len(s.captured[s.poses[s.index]]) == 0 {
		if s.index == 0 {
			return fmt.Errorf("%w: nothing to roll back", ErrInvalidTransition)
		}
		s.index--
	}
	s.state = StateCapturing
	pose := s.poses[s.index]
	refs := s.captured[pose]
	s.captured[pose] = refs[:len(refs)-1]
	return nil
}

// Cancel discards everything captured. Completed sessions cannot be cancelled.
func (s *Session) Cancel() error {
	switch s.state {
	case StateInit, StateCapturing:
		s.state = StateCancelled
		s.captured = make(map[model.Pose][]image.Image)
		return nil
	default:
		return fmt.Errorf("%w: cancel in %s", ErrInvalidTransition, s.state)
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// CurrentPose returns the pose being captured, if capturing.
func (s *Session) CurrentPose() (model.Pose, bool) {
	if s.state != StateCapturing {
		return "", false
	}
	return s.poses[s.index], true
}

// Progress returns a snapshot of the session.
func (s *Session) Progress() Progress {
	p := Progress{
		SessionID: s.ID,
		Target:    s.Target,
		State:     s.state,
		PoseIndex: s.index,
		PoseCount: len(s.poses),
		PerPose:   s.perPose,
		Poses:     append([]model.Pose(nil), s.poses...),
	}
	if pose, ok := s.CurrentPose(); ok {
		p.Pose = pose
		p.Captured = len(s.captured[pose])
	}
	return p
}

// Identity returns the enrolled identity built from a completed session.
func (s *Session) Identity(now time.Time) (model.EnrolledIdentity, error) {
	if s.state != StateComplete {
		return model.EnrolledIdentity{}, fmt.Errorf("%w: identity in %s", ErrInvalidTransition, s.state)
	}
	poses := make(map[model.Pose][]image.Image, len(s.captured))
	for pose, refs := range s.captured {
		poses[pose] = append([]image.Image(nil), refs...)
	}
	return model.EnrolledIdentity{Name: s.Target, Poses: poses, EnrolledAt: now}, nil
}

func (s *Session) touch(now time.Time) { s.touchedAt = now }

func (s *Session) idleSince() time.Time { return s.touchedAt }
