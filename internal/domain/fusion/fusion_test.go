package fusion_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/backend/backendtest"
	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMeanFuser(t *testing.T) {
	ctx := context.Background()
	crop := backendtest.Frame(8, 8)

	Convey("Given two healthy backends", t, func() {
		a := &backendtest.Embedder{ID: "facenet", Vector: []float64{1, 2, 3}}
		b := &backendtest.Embedder{ID: "arcface", Vector: []float64{3, 4, 5}}
		f := fusion.NewMeanFuser([]backend.Embedder{a, b})

		Convey("When fusing a crop", func() {
			fused, err := f.Fuse(ctx, crop)

			Convey("Then the result should be the element-wise mean", func() {
				So(err, ShouldBeNil)
				So(fused.Vector, ShouldResemble, []float64{2, 3, 4})
				So(fused.Backends, ShouldResemble, []string{"facenet", "arcface"})
			})

			Convey("Then fusing again should be reproducible", func() {
				again, err := f.Fuse(ctx, crop)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, fused)
			})
		})
	})

	Convey("Given one failing backend", t, func() {
		ok := &backendtest.Embedder{ID: "facenet", Vector: []float64{1, 1}}
		broken := &backendtest.Embedder{ID: "vggface", Err: model.ErrBackendUnavailable}
		f := fusion.NewMeanFuser([]backend.Embedder{broken, ok})

		Convey("Then the failure should be excluded", func() {
			fused, err := f.Fuse(ctx, crop)
			So(err, ShouldBeNil)
			So(fused.Vector, ShouldResemble, []float64{1, 1})
			So(fused.Backends, ShouldResemble, []string{"facenet"})
		})
	})

	Convey("Given a backend with a different dimension", t, func() {
		first := &backendtest.Embedder{ID: "facenet", Vector: []float64{2, 2}}
		wide := &backendtest.Embedder{ID: "arcface", Vector: []float64{1, 1, 1}}
		third := &backendtest.Embedder{ID: "sface", Vector: []float64{4, 0}}
		f := fusion.NewMeanFuser([]backend.Embedder{first, wide, third})

		Convey("Then the first success should fix the dimension", func() {
			fused, err := f.Fuse(ctx, crop)
			So(err, ShouldBeNil)
			So(fused.Vector, ShouldResemble, []float64{3, 1})
			So(fused.Backends, ShouldResemble, []string{"facenet", "sface"})
		})
	})

	Convey("Given backends returning empty and all-zero vectors", t, func() {
		empty := &backendtest.Embedder{ID: "empty", Vector: nil}
		zero := &backendtest.Embedder{ID: "zero", Vector: []float64{0, 0, 0}}
		f := fusion.NewMeanFuser([]backend.Embedder{empty, zero})

		Convey("Then the empty vector should fail and the zero vector should be valid", func() {
			fused, err := f.Fuse(ctx, crop)
			So(err, ShouldBeNil)
			So(fused.Vector, ShouldResemble, []float64{0, 0, 0})
			So(fused.Backends, ShouldResemble, []string{"zero"})
		})
	})

	Convey("Given only failing backends", t, func() {
		f := fusion.NewMeanFuser([]backend.Embedder{
			&backendtest.Embedder{ID: "a", Err: errors.New("oom")},
			&backendtest.Embedder{ID: "b", Vector: []float64{}},
		})

		Convey("Then fusion should fail with extraction failed", func() {
			_, err := f.Fuse(ctx, crop)
			So(errors.Is(err, model.ErrEmbeddingExtractionFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "oom")
		})
	})

	Convey("Given no backends at all", t, func() {
		f := fusion.NewMeanFuser(nil)

		Convey("Then fusion should fail with extraction failed", func() {
			_, err := f.Fuse(ctx, crop)
			So(errors.Is(err, model.ErrEmbeddingExtractionFailed), ShouldBeTrue)
		})
	})

	Convey("Given enhancement is enabled", t, func() {
		var seen image.Image
		spy := &backendtest.Embedder{ID: "spy", Fn: func(_ context.Context, c image.Image) ([]float64, error) {
			seen = c
			return []float64{1}, nil
		}}
		f := fusion.NewMeanFuser([]backend.Embedder{spy}, fusion.WithEnhancement(true))

		Convey("Then backends should receive a preprocessed copy of the crop", func() {
			_, err := f.Fuse(ctx, crop)
			So(err, ShouldBeNil)
			So(seen, ShouldNotBeNil)
			So(seen == crop, ShouldBeFalse)
			So(seen.Bounds(), ShouldResemble, crop.Bounds())
		})
	})
}
