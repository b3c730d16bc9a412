package naming_test

import (
	"testing"

	"github.com/okian/facegate/internal/domain/naming"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	Convey("Given spellings of the same name", t, func() {
		Convey("Then they should share a key", func() {
			So(naming.Key("Jiří Novák"), ShouldEqual, "jiri novak")
			So(naming.Key("  JIRI   novak "), ShouldEqual, "jiri novak")
			So(naming.Key("Straße"), ShouldEqual, naming.Key("STRASSE"))
		})

		Convey("Then different names should not collide", func() {
			So(naming.Key("Alice"), ShouldNotEqual, naming.Key("Alicia"))
		})
	})
}

func TestClean(t *testing.T) {
	Convey("Given user supplied names", t, func() {
		Convey("Then valid names should be trimmed", func() {
			name, err := naming.Clean("  Ada   Lovelace ")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "Ada Lovelace")
		})

		Convey("Then empty and path-like names should be rejected", func() {
			for _, bad := range []string{"", "   ", "..", "a/b", "a\\b", "bell\x07"} {
				_, err := naming.Clean(bad)
				So(err, ShouldEqual, naming.ErrInvalidName)
			}
		})
	})
}
