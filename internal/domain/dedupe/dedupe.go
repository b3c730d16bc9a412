// Package dedupe collapses overlapping face regions reported by one or more
// detectors for the same frame.
package dedupe

import "github.com/okian/facegate/internal/domain/model"

// DefaultThreshold is the IoU above which a candidate counts as a duplicate.
const DefaultThreshold = 0.5

// Deduper removes duplicate face regions.
type Deduper interface {
	// Dedupe keeps candidates in discovery order, dropping any whose IoU with
	// an already kept box exceeds the threshold. The input is not modified.
	Dedupe(candidates []model.Box) []model.Box

	Threshold() float64
}

// greedyDeduper implements Deduper with single-pass greedy clustering.
type greedyDeduper struct {
	threshold float64
}

// NewGreedyDeduper creates a deduper with configuration options.
func NewGreedyDeduper(opts ...Option) Deduper {
	d := &greedyDeduper{
		threshold: DefaultThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dedupe returns the kept boxes. An empty result is valid.
func (d *greedyDeduper) Dedupe(candidates []model.Box) []model.Box {
	kept := make([]model.Box, 0, len(candidates))
	for _, c := range candidates {
		duplicate := false
		for _, k := range kept {
			if IoU(c, k) > d.threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

// Threshold returns the configured IoU threshold.
func (d *greedyDeduper) Threshold() float64 {
	return d.threshold
}

// IoU returns intersection over union of two boxes; 0 when they do not
// overlap or either area is zero.
func IoU(a, b model.Box) float64 {
	areaA, areaB := a.Area(), b.Area()
	if areaA == 0 || areaB == 0 {
		return 0
	}

	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	overlap := (x2 - x1) * (y2 - y1)
	union := areaA + areaB - overlap
	if union <= 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}
