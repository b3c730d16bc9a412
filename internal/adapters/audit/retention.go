package audit

import (
	"context"
	"time"

	"github.com/okian/facegate/pkg/logger"
)

// RunRetention purges records older than maxAge every interval until ctx
// is done.
func RunRetention(ctx context.Context, r Reader, maxAge, interval time.Duration, log logger.Logger) {
	if maxAge <= 0 || interval <= 0 {
		return
	}
	if log == nil {
		log = logger.Nop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := r.Purge(ctx, now.Add(-maxAge))
			if err != nil {
				log.Warn(ctx, "audit retention failed", logger.Error(err))
				continue
			}
			if n > 0 {
				log.Info(ctx, "audit records purged", logger.Int("count", int(n)))
			}
		}
	}
}
