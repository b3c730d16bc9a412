package audit

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 1000

// MemorySink keeps the most recent records in a ring buffer.
type MemorySink struct {
	mu    sync.RWMutex
	buf   []Record
	next  int
	count int
}

// NewMemorySink creates a ring buffer holding up to capacity records.
// Non-positive capacity uses the default.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemorySink{buf: make([]Record, capacity)}
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = r
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
}

// Recent implements Reader.
func (s *MemorySink) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestFirst()
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Stats implements Reader.
func (s *MemorySink) Stats(_ context.Context, now time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		st    Stats
		since = startOfDay(now)
		seen  = make(map[string]struct{})
	)
	for _, r := range s.newestFirst() {
		st.TotalRecords++
		if r.Identity != "" {
			seen[r.Identity] = struct{}{}
		}
		if r.Time.Before(since) {
			continue
		}
		st.Today.Total++
		switch r.Decision {
		case Granted:
			st.Today.Granted++
		case Denied:
			st.Today.Denied++
		}
	}
	st.UniqueIdentities = int64(len(seen))
	return st, nil
}

// Purge implements Reader.
func (s *MemorySink) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.newestFirst()
	var purged int64
	n := 0
	for _, r := range kept {
		if r.Time.Before(before) {
			purged++
			continue
		}
		kept[n] = r
		n++
	}
	kept = kept[:n]

	s.buf = make([]Record, len(s.buf))
	s.count = 0
	s.next = 0
	for i := len(kept) - 1; i >= 0; i-- {
		s.buf[s.next] = kept[i]
		s.next = (s.next + 1) % len(s.buf)
		s.count++
	}
	return purged, nil
}

func (s *MemorySink) newestFirst() []Record {
	out := make([]Record, 0, s.count)
	for i := 1; i <= s.count; i++ {
		out = append(out, s.buf[(s.next-i+len(s.buf))%len(s.buf)])
	}
	return out
}
