package announce_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/facegate/internal/adapters/announce"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestText(t *testing.T) {
	Convey("Given decided results", t, func() {
		Convey("Then a granted match should greet by confidence tier", func() {
			r := model.MatchResult{Identity: "Alice", Confidence: 0.97, Status: model.StatusPerfectMatch}
			So(announce.Text(r, true), ShouldEqual, "Welcome, Alice")
			r.Confidence = 0.9
			So(announce.Text(r, true), ShouldEqual, "I think you are Alice")
			r.Confidence = 0.4
			So(announce.Text(r, true), ShouldEqual, "Recognized Alice")
		})

		Convey("Then a spoof should be called out", func() {
			r := model.MatchResult{Status: model.StatusSpoofDetected}
			So(announce.Text(r, false), ShouldEqual, announce.SpoofText)
		})

		Convey("Then other denials should share one phrase", func() {
			for _, s := range []model.Status{model.StatusNoMatch, model.StatusPartialMatch, model.StatusRecognitionError, model.StatusNoEnrolledIdentities} {
				So(announce.Text(model.MatchResult{Status: s}, false), ShouldEqual, announce.DeniedText)
			}
		})

		Convey("Then no face should produce no announcement", func() {
			So(announce.Text(model.MatchResult{Status: model.StatusNoFaceDetected}, false), ShouldBeEmpty)
		})
	})
}

func TestCommandSink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script sink test needs a POSIX shell")
	}
	ctx := context.Background()

	Convey("Given a speech command that records its arguments", t, func() {
		dir := t.TempDir()
		out := filepath.Join(dir, "spoken")
		script := filepath.Join(dir, "speak.sh")
		So(os.WriteFile(script, []byte("#!/bin/sh\nfor a in \"$@\"; do printf '%s\\n' \"$a\"; done > \""+out+"\"\n"), 0o755), ShouldBeNil)

		sink, err := announce.NewCommandSink(script, "-s", "150")
		So(err, ShouldBeNil)

		Convey("When a text is announced", func() {
			err := sink.Announce(ctx, "Welcome, Alice")

			Convey("Then the text should be the last argument", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "-s\n150\nWelcome, Alice\n")
			})
		})
	})

	Convey("Given a failing speech command", t, func() {
		dir := t.TempDir()
		script := filepath.Join(dir, "broken.sh")
		So(os.WriteFile(script, []byte("#!/bin/sh\necho 'no audio device' >&2\nexit 3\n"), 0o755), ShouldBeNil)
		sink, err := announce.NewCommandSink(script)
		So(err, ShouldBeNil)

		Convey("Then the error should carry stderr", func() {
			err := sink.Announce(ctx, "hello")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no audio device")
		})
	})

	Convey("Given an empty command", t, func() {
		_, err := announce.NewCommandSink("  ")
		So(errors.Is(err, announce.ErrEmptyCommand), ShouldBeTrue)
	})

	Convey("Given the log sink", t, func() {
		So(announce.NewLogSink(nil).Announce(ctx, "hi"), ShouldBeNil)
	})
}
