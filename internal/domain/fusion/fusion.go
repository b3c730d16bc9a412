// Package fusion combines the embeddings of several backends into one
// vector per face crop.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// Fuser extracts a fused embedding from a face crop.
type Fuser interface {
	Fuse(ctx context.Context, crop image.Image) (model.FusedEmbedding, error)
}

// MeanFuser averages the vectors of every backend that succeeds. Backends
// are called independently and in order; the first success fixes the
// dimension and later vectors of another length are excluded.
type MeanFuser struct {
	embedders []backend.Embedder
	enhance   bool
	logger    logger.Logger
}

// NewMeanFuser creates a fuser over embedders.
func NewMeanFuser(embedders []backend.Embedder, opts ...Option) *MeanFuser {
	f := &MeanFuser{
		embedders: embedders,
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fuse returns the element-wise mean. It fails with
// model.ErrEmbeddingExtractionFailed when no backend produced a vector.
func (f *MeanFuser) Fuse(ctx context.Context, crop image.Image) (model.FusedEmbedding, error) {
	if f.enhance {
		crop = imaging.Enhance(crop)
	}

	var (
		sum      []float64
		backends []string
		errs     []error
	)
	for _, e := range f.embedders {
		vec, err := e.Embed(ctx, crop)
		if err == nil && len(vec) == 0 {
			err = errors.New("empty vector")
		}
		if err == nil && sum != nil && len(vec) != len(sum) {
			err = fmt.Errorf("%w: got %d, want %d", model.ErrDimensionMismatch, len(vec), len(sum))
		}
		if err != nil {
			f.logger.Warn(ctx, "Embedding backend excluded from fusion",
				logger.String("backend", e.Name()),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}

		if sum == nil {
			sum = make([]float64, len(vec))
		}
		for i, v := range vec {
			sum[i] += v
		}
		backends = append(backends, e.Name())
	}

	metrics.RecordFusionContributors(len(backends))
	if len(backends) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
		}
		if joined := errors.Join(errs...); joined != nil {
			return model.FusedEmbedding{}, fmt.Errorf("%w: %w", model.ErrEmbeddingExtractionFailed, joined)
		}
		return model.FusedEmbedding{}, model.ErrEmbeddingExtractionFailed
	}

	n := float64(len(backends))
	for i := range sum {
		sum[i] /= n
	}
	return model.FusedEmbedding{Vector: sum, Backends: backends}, nil
}
