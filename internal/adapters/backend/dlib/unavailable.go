//go:build !dlib

package dlib

import (
	"context"
	"errors"
	"image"

	"github.com/okian/facegate/internal/domain/model"
)

// Available reports whether the binary was built with dlib support.
const Available = false

// ErrUnavailable is returned by New in builds without the dlib tag.
var ErrUnavailable = errors.New("dlib backend not compiled in (build with -tags dlib)")

// Backend is a placeholder in builds without dlib.
type Backend struct {
	name string
	cnn  bool
}

// New always fails without the dlib build tag.
func New(string, string, ...Option) (*Backend, error) {
	return nil, ErrUnavailable
}

// Name implements backend.Named.
func (b *Backend) Name() string { return b.name }

// Detect implements backend.Detector.
func (b *Backend) Detect(context.Context, image.Image) ([]model.Box, error) {
	return nil, ErrUnavailable
}

// Embed implements backend.Embedder.
func (b *Backend) Embed(context.Context, image.Image) ([]float64, error) {
	return nil, ErrUnavailable
}

// Close implements io.Closer.
func (b *Backend) Close() error { return nil }
