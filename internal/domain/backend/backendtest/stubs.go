// Package backendtest provides scriptable backends for tests.
package backendtest

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/model"
)

// Detector returns Boxes, or Err when set.
type Detector struct {
	ID    string
	Boxes []model.Box
	Err   error
	Fn    func(ctx context.Context, frame image.Image) ([]model.Box, error)
	calls atomic.Int64
}

func (d *Detector) Name() string { return d.ID }

func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]model.Box, error) {
	d.calls.Add(1)
	if d.Fn != nil {
		return d.Fn(ctx, frame)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return append([]model.Box(nil), d.Boxes...), nil
}

// Calls returns how many times Detect ran.
func (d *Detector) Calls() int64 { return d.calls.Load() }

// Embedder returns Vector, or Err when set.
type Embedder struct {
	ID     string
	Vector []float64
	Err    error
	Fn     func(ctx context.Context, crop image.Image) ([]float64, error)
	calls  atomic.Int64
}

func (e *Embedder) Name() string { return e.ID }

func (e *Embedder) Embed(ctx context.Context, crop image.Image) ([]float64, error) {
	e.calls.Add(1)
	if e.Fn != nil {
		return e.Fn(ctx, crop)
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return append([]float64(nil), e.Vector...), nil
}

// Calls returns how many times Embed ran.
func (e *Embedder) Calls() int64 { return e.calls.Load() }

// Verifier delegates to Fn, or returns Result/Err.
type Verifier struct {
	ID     string
	Result backend.Verification
	Err    error
	Fn     func(ctx context.Context, a, b image.Image) (backend.Verification, error)
}

func (v *Verifier) Name() string { return v.ID }

func (v *Verifier) Verify(ctx context.Context, a, b image.Image) (backend.Verification, error) {
	if v.Fn != nil {
		return v.Fn(ctx, a, b)
	}
	return v.Result, v.Err
}

// Liveness returns Score, or Err when set.
type Liveness struct {
	ID    string
	Score float64
	Err   error
	Fn    func(ctx context.Context, crop image.Image) (float64, error)
}

func (l *Liveness) Name() string { return l.ID }

func (l *Liveness) Liveness(ctx context.Context, crop image.Image) (float64, error) {
	if l.Fn != nil {
		return l.Fn(ctx, crop)
	}
	return l.Score, l.Err
}

// Frame returns a blank frame of the given size.
func Frame(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Tagged is an image carrying a label, so verifiers can tell references apart.
type Tagged struct {
	*image.RGBA
	Tag string
}

// NewTagged returns a small tagged image.
func NewTagged(tag string) *Tagged {
	return &Tagged{RGBA: image.NewRGBA(image.Rect(0, 0, 4, 4)), Tag: tag}
}

// TagOf returns the tag of img, or "" when it is not a *Tagged.
func TagOf(img image.Image) string {
	if t, ok := img.(*Tagged); ok {
		return t.Tag
	}
	return ""
}
