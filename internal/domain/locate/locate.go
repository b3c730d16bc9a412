// Package locate finds the distinct faces in a frame: every configured
// detector runs, overlapping boxes are collapsed and each face is cropped.
package locate

import (
	"context"
	"fmt"
	"image"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/dedupe"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
)

// Face is one deduplicated face region and its crop.
type Face struct {
	Box  model.Box
	Crop image.Image
}

// Locator detects, deduplicates and crops faces.
type Locator struct {
	detectors []backend.Detector
	deduper   dedupe.Deduper
}

// New creates a Locator. A nil deduper uses the default greedy IoU deduper.
func New(detectors []backend.Detector, deduper dedupe.Deduper) *Locator {
	if deduper == nil {
		deduper = dedupe.NewGreedyDeduper()
	}
	return &Locator{detectors: detectors, deduper: deduper}
}

// Locate returns the faces in frame in discovery order. An error means no
// detector could run; an empty slice means no face was found.
func (l *Locator) Locate(ctx context.Context, frame image.Image) ([]Face, error) {
	boxes, err := backend.DetectAll(ctx, l.detectors, frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	kept := l.deduper.Dedupe(boxes)
	faces := make([]Face, 0, len(kept))
	for _, b := range kept {
		crop, err := imaging.Crop(frame, b)
		if err != nil {
			continue
		}
		faces = append(faces, Face{Box: b, Crop: crop})
	}
	return faces, nil
}

// Single returns the only face in frame. Zero faces fail with
// model.ErrNoFaceDetected and several with model.ErrMultipleFacesDetected.
func (l *Locator) Single(ctx context.Context, frame image.Image) (Face, error) {
	faces, err := l.Locate(ctx, frame)
	if err != nil {
		return Face{}, err
	}
	switch len(faces) {
	case 0:
		return Face{}, model.ErrNoFaceDetected
	case 1:
		return faces[0], nil
	default:
		return Face{}, fmt.Errorf("%w: %d", model.ErrMultipleFacesDetected, len(faces))
	}
}
