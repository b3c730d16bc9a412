package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/facegate/internal/adapters/audit"
	service "github.com/okian/facegate/internal/app"
	"github.com/okian/facegate/internal/domain/enrollment"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrMissingImage    = errors.New("missing image")
)

// kindError tags a cause with the operation and the kind used for
// status mapping.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// NewKind returns a bare error of kind for op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

type statusRule struct {
	target error
	status int
	code   string
}

// statusRules is checked in order; the first match wins.
var statusRules = []statusRule{
	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large"},
	{ErrMissingImage, http.StatusBadRequest, "missing_image"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{naming.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{audit.ErrInvalidLimit, http.StatusBadRequest, "bad_request"},
	{service.ErrUnknownMode, http.StatusBadRequest, "unknown_mode"},
	{model.ErrNoFaceDetected, http.StatusUnprocessableEntity, "no_face_detected"},
	{model.ErrMultipleFacesDetected, http.StatusUnprocessableEntity, "multiple_faces_detected"},
	{enrollment.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{model.ErrIdentityNotFound, http.StatusNotFound, "identity_not_found"},
	{model.ErrDuplicateIdentity, http.StatusConflict, "duplicate_identity"},
	{enrollment.ErrEnrollmentInProgress, http.StatusConflict, "enrollment_in_progress"},
	{enrollment.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrNotStarted, http.StatusServiceUnavailable, "not_ready"},
	{service.ErrQuorumUnavailable, http.StatusServiceUnavailable, "quorum_unavailable"},
	{service.ErrAuditUnavailable, http.StatusServiceUnavailable, "audit_unavailable"},
	{model.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable"},
}

// statusOf maps err to an HTTP status and error code.
func statusOf(err error) (int, string) {
	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return rule.status, rule.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// failer writes mapped errors and logs the unexpected ones.
type failer struct {
	logger logger.Logger
}

func (f failer) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		log := f.logger
		if log == nil {
			log = logger.Nop()
		}
		metrics.RecordErrorByComponent("api", code)
		log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeError(w, status, code, err)
}
