//go:build dlib

// Package dlib runs dlib's HOG/CNN face detector and ResNet descriptor in
// process through go-face. Build with -tags dlib; the dlib libraries and
// model files must be installed.
package dlib

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/model"
)

// Available reports whether the binary was built with dlib support.
const Available = true

const jpegQuality = 95

// Backend detects faces and extracts 128-d descriptors.
type Backend struct {
	name string
	cnn  bool

	mu  sync.Mutex
	rec *face.Recognizer
}

var (
	_ backend.Detector = (*Backend)(nil)
	_ backend.Embedder = (*Backend)(nil)
)

// New loads the models from modelsDir.
func New(name, modelsDir string, opts ...Option) (*Backend, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	b := &Backend{name: name, rec: rec}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name implements backend.Named.
func (b *Backend) Name() string { return b.name }

// Detect implements backend.Detector.
func (b *Backend) Detect(ctx context.Context, frame image.Image) ([]model.Box, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, nil
	}
	faces, err := b.recognize(ctx, frame)
	if err != nil {
		return nil, err
	}
	origin := frame.Bounds().Min
	boxes := make([]model.Box, 0, len(faces))
	for _, f := range faces {
		boxes = append(boxes, model.BoxFromRect(f.Rectangle.Add(origin)))
	}
	return boxes, nil
}

// Embed implements backend.Embedder. The crop must contain one face.
func (b *Backend) Embed(ctx context.Context, crop image.Image) ([]float64, error) {
	data, err := encodeJPEG(crop)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	f, err := b.rec.RecognizeSingle(data)
	b.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib descriptor: %w", err)
	}
	if f == nil {
		return nil, model.ErrNoFaceDetected
	}
	out := make([]float64, len(f.Descriptor))
	for i, v := range f.Descriptor {
		out[i] = float64(v)
	}
	return out, nil
}

// Close releases the native recognizer.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Close()
	return nil
}

func (b *Backend) recognize(ctx context.Context, img image.Image) ([]face.Face, error) {
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cnn {
		return b.rec.RecognizeCNN(data)
	}
	return b.rec.Recognize(data)
}

// encodeJPEG converts img to the only format go-face accepts.
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
