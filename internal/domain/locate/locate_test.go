package locate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/backend/backendtest"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocator(t *testing.T) {
	ctx := context.Background()
	frame := backendtest.Frame(200, 100)
	left := model.Box{X1: 10, Y1: 10, X2: 50, Y2: 60}
	right := model.Box{X1: 120, Y1: 10, X2: 170, Y2: 70}

	Convey("Given two detectors reporting the same two faces", t, func() {
		hog := &backendtest.Detector{ID: "hog", Boxes: []model.Box{left, right}}
		cnn := &backendtest.Detector{ID: "cnn", Boxes: []model.Box{{X1: 11, Y1: 11, X2: 51, Y2: 61}}}
		l := locate.New([]backend.Detector{hog, cnn}, nil)

		Convey("When locating faces", func() {
			faces, err := l.Locate(ctx, frame)

			Convey("Then each face should appear once with a crop of its box", func() {
				So(err, ShouldBeNil)
				So(len(faces), ShouldEqual, 2)
				So(faces[0].Box, ShouldResemble, left)
				So(faces[0].Crop.Bounds().Dx(), ShouldEqual, 40)
				So(faces[1].Box, ShouldResemble, right)
			})
		})

		Convey("When a single face is required", func() {
			_, err := l.Single(ctx, frame)

			Convey("Then it should fail with multiple faces", func() {
				So(errors.Is(err, model.ErrMultipleFacesDetected), ShouldBeTrue)
			})
		})
	})

	Convey("Given a detector that finds nothing", t, func() {
		l := locate.New([]backend.Detector{&backendtest.Detector{ID: "hog"}}, nil)

		Convey("Then a single face request should fail with no face", func() {
			_, err := l.Single(ctx, frame)
			So(errors.Is(err, model.ErrNoFaceDetected), ShouldBeTrue)
		})
	})

	Convey("Given only failing detectors", t, func() {
		l := locate.New([]backend.Detector{&backendtest.Detector{ID: "hog", Err: model.ErrBackendUnavailable}}, nil)

		Convey("Then locating should return an error", func() {
			_, err := l.Locate(ctx, frame)
			So(errors.Is(err, model.ErrBackendUnavailable), ShouldBeTrue)
		})
	})
}
