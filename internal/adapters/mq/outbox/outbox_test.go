package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMailbox_LatestWins(t *testing.T) {
	m := New()
	ctx := context.Background()

	if l := m.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	m.Put(Announcement{Text: "Welcome, Alice"})
	m.Put(Announcement{Text: "Access denied"})
	m.Put(Announcement{Text: "Welcome, Bob"})

	if l := m.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	a, err := m.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Text != "Welcome, Bob" {
		t.Errorf("expected latest announcement, got %q", a.Text)
	}
	if l := m.Len(); l != 0 {
		t.Errorf("expected length 0 after take, got %d", l)
	}
}

func TestMailbox_NextBlocksUntilPut(t *testing.T) {
	m := New()
	got := make(chan Announcement, 1)
	go func() {
		a, err := m.Next(context.Background())
		if err == nil {
			got <- a
		}
	}()

	select {
	case <-got:
		t.Fatal("Next returned before anything was put")
	case <-time.After(20 * time.Millisecond):
	}

	m.Put(Announcement{Text: "hello"})
	select {
	case a := <-got:
		if a.Text != "hello" {
			t.Errorf("expected hello, got %q", a.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestMailbox_ContextCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestMailbox_Close(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.Put(Announcement{Text: "last words"})

	if err := m.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !m.IsClosed() {
		t.Error("expected mailbox to report closed")
	}
	if m.Put(Announcement{Text: "too late"}) {
		t.Error("expected put after close to fail")
	}

	a, err := m.Next(ctx)
	if err != nil || a.Text != "last words" {
		t.Errorf("expected pending announcement to drain, got %q, %v", a.Text, err)
	}
	if _, err := m.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMailbox_ConcurrentProducers(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Put(Announcement{Text: "x"})
			}
		}()
	}
	wg.Wait()

	if l := m.Len(); l != 1 {
		t.Errorf("expected exactly one pending announcement, got %d", l)
	}
}
