//go:build !dlib

package dlib_test

import (
	"errors"
	"testing"

	"github.com/okian/facegate/internal/adapters/backend/dlib"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUnavailable(t *testing.T) {
	Convey("Given a build without dlib", t, func() {
		b, err := dlib.New("dlib", "/models", dlib.WithCNN(true))

		Convey("Then construction should fail with a clear error", func() {
			So(b, ShouldBeNil)
			So(errors.Is(err, dlib.ErrUnavailable), ShouldBeTrue)
			So(dlib.Available, ShouldBeFalse)
		})
	})
}
