package audit

import (
	"context"

	"github.com/okian/facegate/pkg/logger"
)

// LogSink writes every record to the structured log.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a log sink. A nil logger discards records.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Nop()
	}
	return &LogSink{logger: l}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, r Record) {
	s.logger.Info(ctx, "access attempt",
		logger.String("identity", r.Identity),
		logger.String("decision", string(r.Decision)),
		logger.String("status", string(r.Status)),
		logger.Float64("confidence", r.Confidence),
		logger.String("mode", r.Mode),
	)
}
