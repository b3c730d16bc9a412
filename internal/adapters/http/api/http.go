// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/facegate/internal/adapters/audit"
	service "github.com/okian/facegate/internal/app"
	"github.com/okian/facegate/internal/domain/enrollment"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Recognize(ctx context.Context, frame image.Image, mode string) (service.Outcome, error)

	StartEnrollment(ctx context.Context, name string) (enrollment.Progress, error)
	Capture(ctx context.Context, sessionID string, frame image.Image) (enrollment.Progress, error)
	CancelEnrollment(ctx context.Context, sessionID string) error
	Enrollment(sessionID string) (enrollment.Progress, error)

	Identities() ([]model.IdentitySummary, error)
	RemoveIdentity(ctx context.Context, name string) error

	RecentAccess(ctx context.Context, limit int) ([]audit.Record, error)
	AccessStats(ctx context.Context) (audit.Stats, error)

	Health() service.Health
}

// Server wires HTTP routes for the access point API.
type Server struct {
	healthHandler      *HealthHandler
	recognizeHandler   *RecognizeHandler
	enrollmentsHandler *EnrollmentsHandler
	identitiesHandler  *IdentitiesHandler
	accessHandler      *AccessHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	st := settings{maxUploadBytes: defaultMaxUploadBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&st)
	}
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		recognizeHandler:   NewRecognizeHandler(deps, st.maxUploadBytes),
		enrollmentsHandler: NewEnrollmentsHandler(deps, st.maxUploadBytes),
		identitiesHandler:  NewIdentitiesHandler(deps),
		accessHandler:      NewAccessHandler(deps),
	}
	f := failer{logger: st.logger}
	s.recognizeHandler.failer = f
	s.enrollmentsHandler.failer = f
	s.identitiesHandler.failer = f
	s.accessHandler.failer = f
	return s
}

// Handler returns a router with every route and the shared middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recognize", MetricsMiddleware(s.recognizeHandler.HandleRecognize, "recognize"))

		r.Post("/enrollments", MetricsMiddleware(s.enrollmentsHandler.HandleStart, "enrollments"))
		r.Get("/enrollments/{id}", MetricsMiddleware(s.enrollmentsHandler.HandleGet, "enrollment"))
		r.Delete("/enrollments/{id}", MetricsMiddleware(s.enrollmentsHandler.HandleCancel, "enrollment"))
		r.Post("/enrollments/{id}/captures", MetricsMiddleware(s.enrollmentsHandler.HandleCapture, "enrollment_capture"))

		r.Get("/identities", MetricsMiddleware(s.identitiesHandler.HandleList, "identities"))
		r.Delete("/identities/{name}", MetricsMiddleware(s.identitiesHandler.HandleRemove, "identity"))

		r.Get("/access-events", MetricsMiddleware(s.accessHandler.HandleRecent, "access_events"))
		r.Get("/access-events/stats", MetricsMiddleware(s.accessHandler.HandleStats, "access_stats"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
