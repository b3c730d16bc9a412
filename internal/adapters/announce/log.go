package announce

import (
	"context"

	"github.com/okian/facegate/pkg/logger"
)

// LogSink writes announcements to the log instead of speaking them.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Nop()
	}
	return &LogSink{logger: l}
}

// Announce implements Sink.
func (s *LogSink) Announce(ctx context.Context, text string) error {
	s.logger.Info(ctx, "announcement", logger.String("text", text))
	return nil
}
