package enrollment_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/backend/backendtest"
	"github.com/okian/facegate/internal/domain/enrollment"
	"github.com/okian/facegate/internal/domain/fusion"
	"github.com/okian/facegate/internal/domain/locate"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCatalog struct {
	mu   sync.Mutex
	ids  map[string]model.EnrolledIdentity
	fail error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{ids: make(map[string]model.EnrolledIdentity)}
}

func (c *fakeCatalog) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ids[naming.Key(name)]
	return ok
}

func (c *fakeCatalog) Add(_ context.Context, id model.EnrolledIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.ids[naming.Key(id.Name)] = id
	return nil
}

func (c *fakeCatalog) get(name string) (model.EnrolledIdentity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[naming.Key(name)]
	return id, ok
}

var oneFace = []model.Box{{X1: 10, Y1: 10, X2: 60, Y2: 60}}

func TestManager(t *testing.T) {
	ctx := context.Background()
	frame := backendtest.Frame(100, 100)

	Convey("Given an enrollment manager", t, func() {
		det := &backendtest.Detector{ID: "hog", Boxes: oneFace}
		catalog := newFakeCatalog()
		clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		m := enrollment.NewManager(locate.New([]backend.Detector{det}, nil), catalog,
			enrollment.WithClock(func() time.Time { return clock }),
			enrollment.WithSessionTTL(time.Minute))

		p, err := m.Start(ctx, "  Alice ")
		So(err, ShouldBeNil)

		Convey("Then the session should be capturing the first pose", func() {
			So(p.State, ShouldEqual, enrollment.StateCapturing)
			So(p.Pose, ShouldEqual, model.PoseStraight)
			So(p.Target, ShouldEqual, "Alice")
			So(p.SessionID, ShouldNotBeEmpty)
			So(m.Len(), ShouldEqual, 1)
		})

		Convey("When all five poses are captured", func() {
			for i := 0; i < 5; i++ {
				p, err = m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldBeNil)
			}

			Convey("Then the identity should be committed and the session closed", func() {
				So(p.State, ShouldEqual, enrollment.StateComplete)
				id, ok := catalog.get("alice")
				So(ok, ShouldBeTrue)
				So(id.ReferenceCount(), ShouldEqual, 5)
				So(id.HasEmbedding(), ShouldBeFalse)
				So(m.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the session is cancelled after four poses", func() {
			for i := 0; i < 4; i++ {
				_, err = m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldBeNil)
			}
			So(m.Cancel(ctx, p.SessionID), ShouldBeNil)

			Convey("Then the catalog should be unchanged", func() {
				_, ok := catalog.get("alice")
				So(ok, ShouldBeFalse)
				_, err := m.Get(p.SessionID)
				So(err, ShouldEqual, enrollment.ErrSessionNotFound)
			})
		})

		Convey("When a frame has no face", func() {
			det.Boxes = nil
			got, err := m.Capture(ctx, p.SessionID, frame)

			Convey("Then the capture should be rejected and the state unchanged", func() {
				So(errors.Is(err, model.ErrNoFaceDetected), ShouldBeTrue)
				So(got.Pose, ShouldEqual, model.PoseStraight)
				So(got.Captured, ShouldEqual, 0)
				So(m.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a frame has two faces", func() {
			det.Boxes = []model.Box{oneFace[0], {X1: 70, Y1: 10, X2: 95, Y2: 40}}
			_, err := m.Capture(ctx, p.SessionID, frame)

			Convey("Then the capture should be rejected without cancelling", func() {
				So(errors.Is(err, model.ErrMultipleFacesDetected), ShouldBeTrue)
				got, err := m.Get(p.SessionID)
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, enrollment.StateCapturing)
			})
		})

		Convey("When the catalog refuses the completed identity", func() {
			catalog.fail = errors.New("disk full")
			for i := 0; i < 4; i++ {
				_, err = m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldBeNil)
			}
			got, err := m.Capture(ctx, p.SessionID, frame)

			Convey("Then the last capture should be rolled back for retry", func() {
				So(errors.Is(err, enrollment.ErrCommitFailed), ShouldBeTrue)
				So(got.State, ShouldEqual, enrollment.StateCapturing)
				So(got.Pose, ShouldEqual, model.PoseDown)

				catalog.fail = nil
				got, err = m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, enrollment.StateComplete)
			})
		})

		Convey("When the same name is started again", func() {
			_, err := m.Start(ctx, "ALICE")

			Convey("Then it should be refused while in progress", func() {
				So(errors.Is(err, enrollment.ErrEnrollmentInProgress), ShouldBeTrue)
			})
		})

		Convey("When the session idles past its TTL", func() {
			clock = clock.Add(2 * time.Minute)
			evicted := m.Sweep(ctx)

			Convey("Then it should be evicted", func() {
				So(evicted, ShouldEqual, 1)
				_, err := m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldEqual, enrollment.ErrSessionNotFound)
			})
		})

		Convey("When an unknown session is used", func() {
			_, err := m.Capture(ctx, "nope", frame)
			So(err, ShouldEqual, enrollment.ErrSessionNotFound)
			So(m.Cancel(ctx, "nope"), ShouldEqual, enrollment.ErrSessionNotFound)
		})

		Convey("When the manager shuts down", func() {
			m.Shutdown(ctx)

			Convey("Then partial sessions should be discarded", func() {
				So(m.Len(), ShouldEqual, 0)
				_, ok := catalog.get("alice")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a name that is already enrolled", t, func() {
		catalog := newFakeCatalog()
		So(catalog.Add(ctx, model.EnrolledIdentity{Name: "Jiří"}), ShouldBeNil)
		det := &backendtest.Detector{ID: "hog", Boxes: oneFace}

		Convey("Then a new session should be refused by default", func() {
			m := enrollment.NewManager(locate.New([]backend.Detector{det}, nil), catalog)
			_, err := m.Start(ctx, "jiri")
			So(errors.Is(err, model.ErrDuplicateIdentity), ShouldBeTrue)
		})

		Convey("Then a session should be allowed when replacement is configured", func() {
			m := enrollment.NewManager(locate.New([]backend.Detector{det}, nil), catalog, enrollment.WithAllowExisting(true))
			_, err := m.Start(ctx, "jiri")
			So(err, ShouldBeNil)
		})

		Convey("Then invalid names should be refused", func() {
			m := enrollment.NewManager(locate.New([]backend.Detector{det}, nil), catalog)
			_, err := m.Start(ctx, "   ")
			So(errors.Is(err, naming.ErrInvalidName), ShouldBeTrue)
		})
	})

	Convey("Given a manager that derives a reference embedding", t, func() {
		det := &backendtest.Detector{ID: "hog", Boxes: oneFace}
		catalog := newFakeCatalog()
		emb := &backendtest.Embedder{ID: "facenet", Vector: []float64{0.5, 0.5}}
		m := enrollment.NewManager(locate.New([]backend.Detector{det}, nil), catalog,
			enrollment.WithPoses([]model.Pose{model.PoseStraight, model.PoseLeft}),
			enrollment.WithReferenceEmbedding(fusion.NewMeanFuser([]backend.Embedder{emb})))

		p, err := m.Start(ctx, "carol")
		So(err, ShouldBeNil)
		for i := 0; i < 2; i++ {
			_, err = m.Capture(ctx, p.SessionID, frame)
			So(err, ShouldBeNil)
		}

		Convey("Then the committed identity should carry the fused embedding", func() {
			id, ok := catalog.get("carol")
			So(ok, ShouldBeTrue)
			So(id.HasEmbedding(), ShouldBeTrue)
			So(id.Embedding.Vector, ShouldResemble, []float64{0.5, 0.5})
			So(len(id.Poses[model.PoseLeft]), ShouldEqual, 1)
			So(id.Poses[model.PoseLeft][0], ShouldHaveSameTypeAs, &image.RGBA{})
		})

		Convey("Then a failing embedder should not block enrollment", func() {
			emb.Err = errors.New("down")
			p, err := m.Start(ctx, "dave")
			So(err, ShouldBeNil)
			for i := 0; i < 2; i++ {
				_, err = m.Capture(ctx, p.SessionID, frame)
				So(err, ShouldBeNil)
			}
			id, ok := catalog.get("dave")
			So(ok, ShouldBeTrue)
			So(id.HasEmbedding(), ShouldBeFalse)
		})
	})
}
