// Package scoring turns a pair of face embeddings into a single confidence.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/facegate/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultCosineWeight   = 0.7
	DefaultEuclidWeight   = 0.3
	DefaultBoostThreshold = 0.95
	DefaultBoostAmount    = 0.05
)

// Result contains the intermediate similarities and the final confidence.
type Result struct {
	Cosine     float64
	Euclidean  float64
	Combined   float64
	Confidence float64
}

// Scorer compares two embeddings. It is a pure function of its inputs.
type Scorer interface {
	Score(a, b []float64) (Result, error)
}

// SimilarityScorer blends cosine and euclidean similarity and pushes
// near-certain matches toward 1.
type SimilarityScorer struct {
	cosineWeight   float64
	euclidWeight   float64
	boostThreshold float64
	boostAmount    float64
}

// NewSimilarityScorer creates a scorer with configuration options.
func NewSimilarityScorer(opts ...Option) *SimilarityScorer {
	s := &SimilarityScorer{
		cosineWeight:   DefaultCosineWeight,
		euclidWeight:   DefaultEuclidWeight,
		boostThreshold: DefaultBoostThreshold,
		boostAmount:    DefaultBoostAmount,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score computes the confidence that a and b belong to the same face.
// Vectors must be non-empty and of equal dimension.
func (s *SimilarityScorer) Score(a, b []float64) (Result, error) {
	if len(a) == 0 || len(a) != len(b) {
		return Result{}, fmt.Errorf("%w: %d vs %d", model.ErrDimensionMismatch, len(a), len(b))
	}

	cos := CosineSimilarity(a, b)
	euc := 1 / (1 + EuclideanDistance(a, b))
	combined := s.cosineWeight*cos + s.euclidWeight*euc

	return Result{
		Cosine:     cos,
		Euclidean:  euc,
		Combined:   combined,
		Confidence: s.Boost(combined),
	}, nil
}

// Boost applies the saturation rule: above the boost threshold the amount is
// added. The result is clamped to [0,1].
func (s *SimilarityScorer) Boost(combined float64) float64 {
	if combined > s.boostThreshold {
		combined += s.boostAmount
	}
	return clamp01(combined)
}

// CosineSimilarity returns 1 - cosine distance. A zero-norm vector has no
// direction, so its similarity to anything is 0.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// floating point can drift past the bounds
	return math.Max(-1, math.Min(1, sim))
}

// EuclideanDistance returns the L2 distance between equal-length vectors.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
