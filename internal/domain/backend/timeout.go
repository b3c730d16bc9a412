package backend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/metrics"
)

// Call outcomes reported to metrics.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

type result[T any] struct {
	value T
	err   error
}

// bounded runs fn under timeout. The call runs on its own goroutine so a
// backend that ignores ctx cannot stall the pipeline; its late result is
// discarded. Every failure wraps model.ErrBackendUnavailable.
func bounded[T any](ctx context.Context, timeout time.Duration, capability, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		latency := float64(time.Since(start).Milliseconds())
		if r.err != nil {
			outcome := outcomeError
			if errors.Is(r.err, context.DeadlineExceeded) {
				outcome = outcomeTimeout
			}
			metrics.RecordBackendCall(capability, name, outcome, latency)
			return zero, fmt.Errorf("%s %s: %w: %w", capability, name, model.ErrBackendUnavailable, r.err)
		}
		metrics.RecordBackendCall(capability, name, outcomeOK, latency)
		return r.value, nil
	case <-ctx.Done():
		metrics.RecordBackendCall(capability, name, outcomeTimeout, float64(time.Since(start).Milliseconds()))
		return zero, fmt.Errorf("%s %s: %w: %w", capability, name, model.ErrBackendUnavailable, ctx.Err())
	}
}

type timedDetector struct {
	inner   Detector
	timeout time.Duration
}

func (t *timedDetector) Name() string { return t.inner.Name() }

func (t *timedDetector) Detect(ctx context.Context, frame image.Image) ([]model.Box, error) {
	return bounded(ctx, t.timeout, CapabilityDetect, t.inner.Name(), func(ctx context.Context) ([]model.Box, error) {
		return t.inner.Detect(ctx, frame)
	})
}

type timedEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

func (t *timedEmbedder) Name() string { return t.inner.Name() }

func (t *timedEmbedder) Embed(ctx context.Context, crop image.Image) ([]float64, error) {
	return bounded(ctx, t.timeout, CapabilityEmbed, t.inner.Name(), func(ctx context.Context) ([]float64, error) {
		return t.inner.Embed(ctx, crop)
	})
}

type timedVerifier struct {
	inner   Verifier
	timeout time.Duration
}

func (t *timedVerifier) Name() string { return t.inner.Name() }

func (t *timedVerifier) Verify(ctx context.Context, a, b image.Image) (Verification, error) {
	return bounded(ctx, t.timeout, CapabilityVerify, t.inner.Name(), func(ctx context.Context) (Verification, error) {
		return t.inner.Verify(ctx, a, b)
	})
}

type timedLiveness struct {
	inner   LivenessClassifier
	timeout time.Duration
}

func (t *timedLiveness) Name() string { return t.inner.Name() }

func (t *timedLiveness) Liveness(ctx context.Context, crop image.Image) (float64, error) {
	return bounded(ctx, t.timeout, CapabilityLiveness, t.inner.Name(), func(ctx context.Context) (float64, error) {
		return t.inner.Liveness(ctx, crop)
	})
}
