// Package cooldown suppresses repeated announcements of the same identity.
// Each named channel keeps its own state, so the voice and audit channels
// may suppress on different schedules.
package cooldown

import (
	"sync"
	"time"

	"github.com/okian/facegate/internal/domain/naming"
)

// Well-known channel names.
const (
	ChannelVoice = "voice"
	ChannelAudit = "audit"
)

// DefaultWindow is the suppression window for a channel without its own.
const DefaultWindow = 3 * time.Second

type channelState struct {
	last   string
	lastAt time.Time
	has    bool
}

// Service tracks the last announced identity per channel.
type Service struct {
	mu       sync.Mutex
	channels map[string]*channelState
	windows  map[string]time.Duration
	fallback time.Duration
}

// NewService creates a cooldown service with configuration options.
func NewService(opts ...Option) *Service {
	s := &Service{
		channels: make(map[string]*channelState),
		windows:  make(map[string]time.Duration),
		fallback: DefaultWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Allow reports whether identity may be announced on channel at now, and
// records it when allowed. An empty identity means unknown: it is always
// allowed and clears the channel, so the next known identity is announced.
func (s *Service) Allow(channel, identity string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.channels[channel]
	if !ok {
		st = &channelState{}
		s.channels[channel] = st
	}

	if identity == "" {
		*st = channelState{}
		return true
	}

	key := naming.Key(identity)
	if st.has && st.last == key && now.Sub(st.lastAt) < s.window(channel) {
		return false
	}

	st.last = key
	st.lastAt = now
	st.has = true
	return true
}

// Reset clears one channel.
func (s *Service) Reset(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channel)
}

// Window returns the suppression window of channel.
func (s *Service) Window(channel string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window(channel)
}

func (s *Service) window(channel string) time.Duration {
	if w, ok := s.windows[channel]; ok {
		return w
	}
	return s.fallback
}
