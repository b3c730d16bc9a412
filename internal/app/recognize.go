package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/okian/facegate/internal/adapters/announce"
	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/adapters/mq/outbox"
	"github.com/okian/facegate/internal/config"
	"github.com/okian/facegate/internal/domain/cooldown"
	"github.com/okian/facegate/internal/domain/matcher"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// Outcome is a recognition result with the access decision taken on it.
type Outcome struct {
	model.MatchResult
	Granted bool   `json:"granted"`
	Mode    string `json:"mode"`
	// Announcement is the text queued for playback, empty when nothing was
	// queued.
	Announcement string `json:"announcement,omitempty"`
}

// Recognize matches frame against the enrolled identities, decides access
// and queues the announcement and audit record. An empty mode uses the
// configured default.
func (s *Service) Recognize(ctx context.Context, frame image.Image, mode string) (Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Outcome{}, ErrNotStarted
	}
	if mode == "" {
		mode = s.cfg.Matching.Mode
	}

	var m matcher.Matcher
	switch mode {
	case config.ModeSingle:
		m = s.single
	case config.ModeQuorum:
		if s.quorum == nil {
			return Outcome{}, ErrQuorumUnavailable
		}
		m = s.quorum
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	start := time.Now()
	result := m.Match(ctx, frame, s.catalog.Identities())
	metrics.RecordRecognitionLatency(mode, float64(time.Since(start).Milliseconds()))
	metrics.RecordRecognition(mode, string(result.Status))

	out := Outcome{MatchResult: result, Mode: mode, Granted: s.granted(result.Status)}
	s.logger.Info(ctx, "recognition",
		logger.String("mode", mode),
		logger.String("status", string(result.Status)),
		logger.String("identity", result.Identity),
		logger.Float64("confidence", result.Confidence),
		logger.Bool("granted", out.Granted),
	)
	if result.Status == model.StatusNoFaceDetected {
		return out, nil
	}

	decision := audit.Denied
	if out.Granted {
		decision = audit.Granted
	}
	metrics.RecordAccessDecision(string(decision))

	now := s.now()
	s.announce(ctx, &out, now)
	if s.auditSink != nil && s.cooldown.Allow(cooldown.ChannelAudit, result.Identity, now) {
		s.auditSink.Record(ctx, audit.Record{
			Time:       now,
			Identity:   result.Identity,
			Confidence: result.Confidence,
			Decision:   decision,
			Status:     result.Status,
			Mode:       mode,
		})
	}
	return out, nil
}

func (s *Service) granted(status model.Status) bool {
	switch status {
	case model.StatusPerfectMatch:
		return true
	case model.StatusPartialMatch:
		return s.cfg.Decision.GrantOnPartial
	default:
		return false
	}
}

// announce queues the text for out unless the voice cooldown suppresses it.
// The caller never waits for playback.
func (s *Service) announce(ctx context.Context, out *Outcome, now time.Time) {
	text := announce.Text(out.MatchResult, out.Granted)
	if text == "" || s.outbox == nil {
		return
	}
	if !s.cooldown.Allow(cooldown.ChannelVoice, out.Identity, now) {
		metrics.RecordAnnouncement(cooldown.ChannelVoice, "suppressed")
		s.logger.Debug(ctx, "announcement suppressed", logger.String("identity", out.Identity))
		return
	}
	if !s.outbox.Put(outbox.Announcement{Identity: out.Identity, Text: text, At: now}) {
		return
	}
	out.Announcement = text
}
