package modelserver_test

import (
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/facegate/internal/adapters/backend/modelserver"
	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeServer struct {
	model  string
	fields []string
	bounds map[string]image.Rectangle
	reply  map[string]string
	status int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.model = r.URL.Query().Get("model")
	f.bounds = map[string]image.Rectangle{}
	f.fields = nil
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(part)
		img, err := imaging.Decode(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.fields = append(f.fields, part.FormName())
		f.bounds[part.FormName()] = img.Bounds()
	}
	if f.status != 0 {
		http.Error(w, "model not loaded", f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, f.reply[r.URL.Path])
}

func newClient(srv *httptest.Server) *modelserver.Client {
	c, err := modelserver.New("arcface", srv.URL+"/", "buffalo_l")
	So(err, ShouldBeNil)
	return c
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))

	Convey("Given a model server", t, func() {
		fake := &fakeServer{reply: map[string]string{
			"/detect":   `{"faces":[{"bbox":[1.9,2,30,40],"det_score":0.99},{"bbox":[40,5,60,30],"det_score":0.7}]}`,
			"/embed":    `{"dim":3,"embedding":[0.5,-0.25,0]}`,
			"/verify":   `{"verified":true,"distance":0.2}`,
			"/liveness": `{"score":0.93}`,
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		c := newClient(srv)

		Convey("When detecting", func() {
			boxes, err := c.Detect(ctx, frame)

			Convey("Then boxes should be truncated to pixels and the model passed", func() {
				So(err, ShouldBeNil)
				So(boxes, ShouldResemble, []model.Box{{X1: 1, Y1: 2, X2: 30, Y2: 40}, {X1: 40, Y1: 5, X2: 60, Y2: 30}})
				So(fake.model, ShouldEqual, "buffalo_l")
				So(fake.bounds["file"].Dx(), ShouldEqual, 64)
			})
		})

		Convey("When detecting on an empty frame", func() {
			boxes, err := c.Detect(ctx, image.NewRGBA(image.Rectangle{}))

			Convey("Then the server should not be called", func() {
				So(err, ShouldBeNil)
				So(boxes, ShouldBeEmpty)
				So(fake.fields, ShouldBeNil)
			})
		})

		Convey("When embedding", func() {
			vec, err := c.Embed(ctx, frame)

			Convey("Then the vector should be returned as float64", func() {
				So(err, ShouldBeNil)
				So(vec, ShouldResemble, []float64{0.5, -0.25, 0})
			})
		})

		Convey("When verifying", func() {
			v, err := c.Verify(ctx, frame, image.NewRGBA(image.Rect(0, 0, 8, 8)))

			Convey("Then both images should be sent in order", func() {
				So(err, ShouldBeNil)
				So(v, ShouldResemble, backend.Verification{Verified: true, Distance: 0.2})
				So(fake.fields, ShouldResemble, []string{"a", "b"})
				So(fake.bounds["b"].Dx(), ShouldEqual, 8)
			})
		})

		Convey("When checking liveness", func() {
			score, err := c.Liveness(ctx, frame)

			Convey("Then the score should be returned", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 0.93)
			})
		})

		Convey("Then its name should be the configured one", func() {
			So(c.Name(), ShouldEqual, "arcface")
		})
	})

	Convey("Given a server that returns bad payloads", t, func() {
		fake := &fakeServer{reply: map[string]string{
			"/detect":   `{"faces":[{"bbox":[1,2,3]}]}`,
			"/embed":    `{"dim":0,"embedding":[]}`,
			"/verify":   `{"verified":true}`,
			"/liveness": `not json`,
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		c := newClient(srv)

		Convey("Then every capability should fail", func() {
			_, err := c.Detect(ctx, frame)
			So(errors.Is(err, modelserver.ErrBadResponse), ShouldBeTrue)
			_, err = c.Embed(ctx, frame)
			So(errors.Is(err, modelserver.ErrEmptyResponse), ShouldBeTrue)
			_, err = c.Verify(ctx, frame, frame)
			So(errors.Is(err, modelserver.ErrBadResponse), ShouldBeTrue)
			_, err = c.Liveness(ctx, frame)
			So(errors.Is(err, modelserver.ErrBadResponse), ShouldBeTrue)
		})
	})

	Convey("Given a server answering with an error status", t, func() {
		fake := &fakeServer{status: http.StatusServiceUnavailable}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		c := newClient(srv)

		Convey("Then the status should be reported", func() {
			_, err := c.Embed(ctx, frame)
			So(errors.Is(err, modelserver.ErrStatus), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "503")
			So(err.Error(), ShouldContainSubstring, "model not loaded")
		})
	})

	Convey("Given invalid construction arguments", t, func() {
		_, err := modelserver.New("", "http://localhost:8000", "m")
		So(errors.Is(err, modelserver.ErrInvalidConfig), ShouldBeTrue)
		_, err = modelserver.New("x", "localhost", "m")
		So(errors.Is(err, modelserver.ErrInvalidConfig), ShouldBeTrue)
	})
}
