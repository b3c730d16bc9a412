package liveness_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/okian/facegate/internal/domain/backend/backendtest"
	"github.com/okian/facegate/internal/domain/liveness"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGate(t *testing.T) {
	ctx := context.Background()
	crop := backendtest.Frame(4, 4)

	Convey("Given a gate with the default threshold", t, func() {
		classifier := &backendtest.Liveness{ID: "minifas"}
		gate := liveness.NewGate(classifier)

		Convey("Then it should fail closed by default", func() {
			So(gate.FailOpen(), ShouldBeFalse)
			So(gate.Threshold(), ShouldEqual, liveness.DefaultThreshold)
		})

		Convey("When the score is above the threshold", func() {
			classifier.Score = 0.95
			d := gate.Check(ctx, crop)

			Convey("Then the face should be live", func() {
				So(d.Live, ShouldBeTrue)
				So(d.Score, ShouldEqual, 0.95)
				So(d.Err, ShouldBeNil)
			})
		})

		Convey("When the score equals the threshold", func() {
			classifier.Score = liveness.DefaultThreshold
			d := gate.Check(ctx, crop)

			Convey("Then the face should be a spoof", func() {
				So(d.Live, ShouldBeFalse)
			})
		})

		Convey("When the classifier fails", func() {
			classifier.Err = model.ErrBackendUnavailable
			d := gate.Check(ctx, crop)

			Convey("Then the face should be denied", func() {
				So(d.Live, ShouldBeFalse)
				So(d.FailOpen, ShouldBeFalse)
				So(errors.Is(d.Err, model.ErrBackendUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given a gate configured to fail open", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)
		classifier := &backendtest.Liveness{ID: "minifas", Err: errors.New("timeout")}
		gate := liveness.NewGate(classifier,
			liveness.WithFailOpen(true),
			liveness.WithThreshold(0.3),
			liveness.WithLogger(logger.Get()))

		Convey("When the classifier fails", func() {
			d := gate.Check(ctx, crop)

			Convey("Then the face should be admitted and the decision logged at warn", func() {
				So(d.Live, ShouldBeTrue)
				So(d.FailOpen, ShouldBeTrue)
				So(buf.String(), ShouldContainSubstring, "fail-open")
				So(buf.String(), ShouldContainSubstring, "WARN")
			})
		})

		Convey("When the classifier scores below the threshold", func() {
			classifier.Err = nil
			classifier.Score = 0.2
			d := gate.Check(ctx, crop)

			Convey("Then the face should still be a spoof", func() {
				So(d.Live, ShouldBeFalse)
				So(d.FailOpen, ShouldBeFalse)
				So(gate.Threshold(), ShouldEqual, 0.3)
			})
		})
	})
}
