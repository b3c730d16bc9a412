package backend

import (
	"context"
	"errors"
	"image"

	"github.com/okian/facegate/internal/domain/model"
)

// DetectAll runs every detector against frame and concatenates their boxes in
// detector order, clamped to the frame with zero-area boxes dropped. A
// failing detector is skipped; an error is returned only when every detector
// failed.
func DetectAll(ctx context.Context, detectors []Detector, frame image.Image) ([]model.Box, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, nil
	}
	bounds := frame.Bounds()
	var (
		boxes []model.Box
		errs  []error
	)
	for _, d := range detectors {
		found, err := d.Detect(ctx, frame)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, b := range found {
			b = b.Clamp(bounds)
			if !b.Empty() {
				boxes = append(boxes, b)
			}
		}
	}
	if len(detectors) > 0 && len(errs) == len(detectors) {
		return nil, errors.Join(errs...)
	}
	return boxes, nil
}
