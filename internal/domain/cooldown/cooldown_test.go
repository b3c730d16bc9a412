package cooldown_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/facegate/internal/domain/cooldown"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	at := func(sec float64) time.Time { return t0.Add(time.Duration(sec * float64(time.Second))) }

	Convey("Given a cooldown service with the default window", t, func() {
		s := cooldown.NewService()

		Convey("When Alice is recognized at t=0, t=2 and t=4", func() {
			first := s.Allow(cooldown.ChannelVoice, "Alice", at(0))
			second := s.Allow(cooldown.ChannelVoice, "Alice", at(2))
			third := s.Allow(cooldown.ChannelVoice, "Alice", at(4))

			Convey("Then only the repeat inside the window should be suppressed", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(third, ShouldBeTrue)
			})
		})

		Convey("When the same identity repeats exactly at the window edge", func() {
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)

			Convey("Then it should be announced", func() {
				So(s.Allow(cooldown.ChannelVoice, "Alice", at(3)), ShouldBeTrue)
			})
		})

		Convey("When another identity appears inside the window", func() {
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)

			Convey("Then it should be announced", func() {
				So(s.Allow(cooldown.ChannelVoice, "Bob", at(1)), ShouldBeTrue)
				So(s.Allow(cooldown.ChannelVoice, "Alice", at(1.5)), ShouldBeTrue)
			})
		})

		Convey("When an unknown face is seen between two sightings", func() {
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)
			So(s.Allow(cooldown.ChannelVoice, "", at(0.5)), ShouldBeTrue)

			Convey("Then unknowns should never be suppressed and the state should reset", func() {
				So(s.Allow(cooldown.ChannelVoice, "", at(0.6)), ShouldBeTrue)
				So(s.Allow(cooldown.ChannelVoice, "Alice", at(1)), ShouldBeTrue)
			})
		})

		Convey("When channels are used independently", func() {
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)

			Convey("Then each channel should keep its own state", func() {
				So(s.Allow(cooldown.ChannelAudit, "Alice", at(1)), ShouldBeTrue)
				So(s.Allow(cooldown.ChannelVoice, "Alice", at(1)), ShouldBeFalse)
			})
		})

		Convey("When a channel is reset", func() {
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)
			s.Reset(cooldown.ChannelVoice)

			Convey("Then the next sighting should be announced", func() {
				So(s.Allow(cooldown.ChannelVoice, "Alice", at(1)), ShouldBeTrue)
			})
		})

		Convey("When names differ only in case or accents", func() {
			So(s.Allow(cooldown.ChannelVoice, "Zoë", at(0)), ShouldBeTrue)

			Convey("Then they should be treated as the same identity", func() {
				So(s.Allow(cooldown.ChannelVoice, "zoe", at(1)), ShouldBeFalse)
			})
		})
	})

	Convey("Given per-channel windows", t, func() {
		s := cooldown.NewService(
			cooldown.WithDefaultWindow(time.Second),
			cooldown.WithChannelWindow(cooldown.ChannelAudit, 10*time.Second),
		)

		Convey("Then each channel should use its own window", func() {
			So(s.Window(cooldown.ChannelVoice), ShouldEqual, time.Second)
			So(s.Window(cooldown.ChannelAudit), ShouldEqual, 10*time.Second)
			So(s.Allow(cooldown.ChannelAudit, "Alice", at(0)), ShouldBeTrue)
			So(s.Allow(cooldown.ChannelAudit, "Alice", at(5)), ShouldBeFalse)
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(0)), ShouldBeTrue)
			So(s.Allow(cooldown.ChannelVoice, "Alice", at(2)), ShouldBeTrue)
		})
	})

	Convey("Given concurrent callers", t, func() {
		s := cooldown.NewService()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Allow(cooldown.ChannelVoice, "Alice", t0) {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one announcement should pass", func() {
			So(allowed, ShouldEqual, 1)
		})
	})
}
