package dedupe_test

import (
	"testing"

	dedupe "github.com/okian/facegate/internal/domain/dedupe"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIoU(t *testing.T) {
	Convey("Given pairs of boxes", t, func() {
		a := model.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}

		Convey("Then identical boxes should have IoU 1", func() {
			So(dedupe.IoU(a, a), ShouldEqual, 1)
		})

		Convey("Then a contained box should score its area fraction", func() {
			So(dedupe.IoU(a, model.Box{X1: 0, Y1: 0, X2: 10, Y2: 6}), ShouldAlmostEqual, 0.6)
		})

		Convey("Then disjoint or touching boxes should score 0", func() {
			So(dedupe.IoU(a, model.Box{X1: 20, Y1: 20, X2: 30, Y2: 30}), ShouldEqual, 0)
			So(dedupe.IoU(a, model.Box{X1: 10, Y1: 0, X2: 20, Y2: 10}), ShouldEqual, 0)
		})

		Convey("Then a zero-area box should score 0", func() {
			So(dedupe.IoU(a, model.Box{X1: 5, Y1: 5, X2: 5, Y2: 9}), ShouldEqual, 0)
		})

		Convey("Then partial overlap should use the union", func() {
			// overlap 25, union 175
			So(dedupe.IoU(a, model.Box{X1: 5, Y1: 5, X2: 15, Y2: 15}), ShouldAlmostEqual, 25.0/175.0)
		})
	})
}

func TestGreedyDeduper(t *testing.T) {
	Convey("Given a new GreedyDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewGreedyDeduper()

			Convey("Then it should use the default threshold", func() {
				So(d.Threshold(), ShouldEqual, dedupe.DefaultThreshold)
			})
		})

		Convey("When creating a deduper with invalid options", func() {
			d := dedupe.NewGreedyDeduper(dedupe.WithThreshold(0), dedupe.WithThreshold(1.5))

			Convey("Then the default threshold should be kept", func() {
				So(d.Threshold(), ShouldEqual, dedupe.DefaultThreshold)
			})
		})

		d := dedupe.NewGreedyDeduper()
		first := model.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}

		Convey("When two boxes overlap with IoU 0.6", func() {
			second := model.Box{X1: 0, Y1: 0, X2: 10, Y2: 6}
			out := d.Dedupe([]model.Box{first, second})

			Convey("Then exactly one should be kept, the first discovered", func() {
				So(out, ShouldResemble, []model.Box{first})
			})
		})

		Convey("When two boxes overlap with IoU 0.4", func() {
			second := model.Box{X1: 0, Y1: 0, X2: 10, Y2: 4}
			out := d.Dedupe([]model.Box{first, second})

			Convey("Then both should be kept", func() {
				So(out, ShouldResemble, []model.Box{first, second})
			})
		})

		Convey("When two boxes overlap with IoU exactly at the threshold", func() {
			second := model.Box{X1: 0, Y1: 0, X2: 10, Y2: 5}
			out := d.Dedupe([]model.Box{first, second})

			Convey("Then both should be kept", func() {
				So(len(out), ShouldEqual, 2)
			})
		})

		Convey("When there are no candidates", func() {
			out := d.Dedupe(nil)

			Convey("Then the result should be empty", func() {
				So(out, ShouldBeEmpty)
			})
		})

		Convey("When several detectors report the same faces", func() {
			left := model.Box{X1: 0, Y1: 0, X2: 40, Y2: 40}
			right := model.Box{X1: 100, Y1: 0, X2: 140, Y2: 40}
			candidates := []model.Box{
				left,
				right,
				{X1: 1, Y1: 1, X2: 41, Y2: 41},
				{X1: 101, Y1: 2, X2: 139, Y2: 41},
			}
			out := d.Dedupe(candidates)

			Convey("Then one box per face should remain and the input should be untouched", func() {
				So(out, ShouldResemble, []model.Box{left, right})
				So(len(candidates), ShouldEqual, 4)
			})
		})
	})
}
