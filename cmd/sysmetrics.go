package main

import (
	"context"
	"runtime"
	"time"

	service "github.com/okian/facegate/internal/app"
	"github.com/okian/facegate/internal/config"
	"github.com/okian/facegate/pkg/metrics"
)

const (
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// metricsOptions maps the metrics section onto manager options.
func metricsOptions(cfg config.MetricsConfig) []metrics.Option {
	opts := []metrics.Option{
		metrics.WithNamespace(cfg.Namespace),
		metrics.WithHistogramBuckets(cfg.LatencyBucketsMs),
	}
	if cfg.AccessPoint != "" {
		opts = append(opts, metrics.WithConstLabels(map[string]string{"access_point": cfg.AccessPoint}))
	}
	return opts
}

// startSystemMetricsUpdater updates runtime metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc.Health())
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(h service.Health) {
	if !h.Ready {
		return
	}
	metrics.UpdateEnrolledIdentities(h.Identities)
	metrics.UpdateEnrollmentSessions(h.EnrollmentSessions)
}
