package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(at time.Time, identity string, d audit.Decision) audit.Record {
	status := model.StatusNoMatch
	if d == audit.Granted {
		status = model.StatusPerfectMatch
	}
	return audit.Record{Time: at, Identity: identity, Confidence: 0.9, Decision: d, Status: status, Mode: "single"}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-20 * time.Hour)

	Convey("Given a memory sink with records across two days", t, func() {
		sink := audit.NewMemorySink(10)
		sink.Record(ctx, rec(yesterday, "Alice", audit.Granted))
		sink.Record(ctx, rec(now.Add(-2*time.Hour), "Bob", audit.Granted))
		sink.Record(ctx, rec(now.Add(-time.Hour), "", audit.Denied))
		sink.Record(ctx, rec(now, "Alice", audit.Granted))

		Convey("When recent records are requested", func() {
			got, err := sink.Recent(ctx, 2)

			Convey("Then the newest should come first", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Time, ShouldEqual, now)
				So(got[1].Identity, ShouldEqual, "")
			})
		})

		Convey("When stats are computed", func() {
			st, err := sink.Stats(ctx, now)

			Convey("Then today's counts and unique identities should match", func() {
				So(err, ShouldBeNil)
				So(st.TotalRecords, ShouldEqual, int64(4))
				So(st.UniqueIdentities, ShouldEqual, int64(2))
				So(st.Today, ShouldResemble, audit.DayStats{Total: 3, Granted: 2, Denied: 1})
			})
		})

		Convey("When old records are purged", func() {
			n, err := sink.Purge(ctx, startOf(now))

			Convey("Then only today's should remain, still newest first", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(1))
				got, _ := sink.Recent(ctx, 10)
				So(len(got), ShouldEqual, 3)
				So(got[0].Time, ShouldEqual, now)
				So(got[2].Identity, ShouldEqual, "Bob")
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := sink.Recent(ctx, 0)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, audit.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})

	Convey("Given a full ring buffer", t, func() {
		sink := audit.NewMemorySink(2)
		for i := range 5 {
			sink.Record(ctx, rec(now.Add(time.Duration(i)*time.Minute), "x", audit.Denied))
		}

		Convey("Then only the newest records should be kept", func() {
			got, err := sink.Recent(ctx, 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Time, ShouldEqual, now.Add(4*time.Minute))
			So(got[1].Time, ShouldEqual, now.Add(3*time.Minute))
		})
	})
}

func startOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func TestTee(t *testing.T) {
	Convey("Given two sinks behind a tee", t, func() {
		a, b := audit.NewMemorySink(4), audit.NewMemorySink(4)
		sink := audit.Tee(a, audit.NewLogSink(nil), b)
		sink.Record(context.Background(), rec(time.Now(), "Alice", audit.Granted))

		Convey("Then both should receive the record", func() {
			ra, _ := a.Recent(context.Background(), 1)
			rb, _ := b.Recent(context.Background(), 1)
			So(len(ra), ShouldEqual, 1)
			So(len(rb), ShouldEqual, 1)
		})
	})
}

type purgeRecorder struct {
	calls chan time.Time
}

func (p *purgeRecorder) Recent(context.Context, int) ([]audit.Record, error) { return nil, nil }

func (p *purgeRecorder) Stats(context.Context, time.Time) (audit.Stats, error) {
	return audit.Stats{}, nil
}

func (p *purgeRecorder) Purge(_ context.Context, before time.Time) (int64, error) {
	select {
	case p.calls <- before:
	default:
	}
	return 0, nil
}

func TestRunRetention(t *testing.T) {
	Convey("Given a retention loop with a short interval", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		r := &purgeRecorder{calls: make(chan time.Time, 1)}
		done := make(chan struct{})
		go func() {
			audit.RunRetention(ctx, r, time.Hour, 5*time.Millisecond, nil)
			close(done)
		}()

		Convey("Then it should purge older than the max age and stop on cancel", func() {
			var before time.Time
			select {
			case before = <-r.calls:
			case <-time.After(2 * time.Second):
			}
			cancel()
			<-done
			So(before.IsZero(), ShouldBeFalse)
			So(time.Since(before), ShouldBeGreaterThanOrEqualTo, time.Hour)
		})
	})
}
