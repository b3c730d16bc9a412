// Package outbox decouples announcement playback from the recognition loop.
//
// The mailbox holds at most one pending announcement. A newer announcement
// replaces an older one that has not been taken yet, so a slow speaker
// always plays the latest decision instead of a backlog.
package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/okian/facegate/pkg/metrics"
)

// Announcement is one text to play.
type Announcement struct {
	Identity string
	Text     string
	At       time.Time
}

// Mailbox is a single-slot, latest-wins handoff between producers and one
// consumer.
type Mailbox struct {
	mu      sync.Mutex
	pending *Announcement
	notify  chan struct{}
	closed  chan struct{}
	once    sync.Once
}

// New creates an empty mailbox.
func New() *Mailbox {
	return &Mailbox{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Put stores a as the pending announcement, replacing any previous one.
// It never blocks and returns false once the mailbox is closed.
func (m *Mailbox) Put(a Announcement) bool {
	m.mu.Lock()
	select {
	case <-m.closed:
		m.mu.Unlock()
		metrics.RecordErrorByComponent("outbox", "closed")
		return false
	default:
	}
	if m.pending != nil {
		metrics.RecordOutboxDropped()
	}
	m.pending = &a
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until an announcement is pending and takes it. After Close
// it returns a still pending announcement once, then ErrClosed.
func (m *Mailbox) Next(ctx context.Context) (Announcement, error) {
	for {
		if a, ok := m.take(); ok {
			return a, nil
		}
		select {
		case <-ctx.Done():
			return Announcement{}, ctx.Err()
		case <-m.closed:
			if a, ok := m.take(); ok {
				return a, nil
			}
			return Announcement{}, ErrClosed
		case <-m.notify:
		}
	}
}

// Len returns 1 when an announcement is pending, else 0.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return 1
	}
	return 0
}

// Close stops accepting announcements.
func (m *Mailbox) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		close(m.closed)
		m.mu.Unlock()
	})
	return nil
}

// IsClosed reports whether Close was called.
func (m *Mailbox) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *Mailbox) take() (Announcement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Announcement{}, false
	}
	a := *m.pending
	m.pending = nil
	return a, true
}
