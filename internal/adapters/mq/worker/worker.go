// Package worker plays announcements taken from the outbox.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/facegate/internal/adapters/mq/outbox"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

const (
	defaultPlaybackTimeout = 10 * time.Second
	channelVoice           = "voice"
)

// Source hands out the next announcement.
type Source interface {
	Next(ctx context.Context) (outbox.Announcement, error)
}

// Speaker plays an announcement.
type Speaker interface {
	Announce(ctx context.Context, text string) error
}

// Worker is the single consumer of the announcement outbox. Playback runs
// only on its goroutine.
type Worker struct {
	source  Source
	speaker Speaker
	name    string
	timeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker.
func New(source Source, speaker Speaker, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		speaker:  speaker,
		name:     "announcer",
		timeout:  defaultPlaybackTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run plays announcements until ctx is canceled, Shutdown is called or the
// source is closed.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		a, err := w.source.Next(ctx)
		if err != nil {
			if !errors.Is(err, outbox.ErrClosed) && ctx.Err() == nil {
				w.logger.Error(ctx, "failed to take announcement", logger.Error(err))
			}
			return
		}
		w.play(ctx, a)
	}
}

// Shutdown stops the worker and waits for the current playback to end.
func (w *Worker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) play(ctx context.Context, a outbox.Announcement) {
	playCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.speaker.Announce(playCtx, a.Text)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordAnnouncement(channelVoice, "failed")
		metrics.RecordErrorByComponent("announcer", "playback")
		w.logger.Warn(ctx, "announcement failed",
			logger.String("text", a.Text),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAnnouncement(channelVoice, "played")
	w.logger.Debug(ctx, "announcement played",
		logger.String("text", a.Text),
		logger.Duration("elapsed", elapsed),
	)
}
