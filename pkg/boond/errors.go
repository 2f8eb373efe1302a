package boond

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/staffline/boond-sync/internal/resilience"
)

// Error kinds. Match them with errors.Is; every APIError carries exactly one.
var (
	ErrNotFound      = eris.New("boond: not found")
	ErrPermission    = eris.New("boond: permission denied")
	ErrValidation    = eris.New("boond: invalid request")
	ErrRemoteService = eris.New("boond: remote service error")
	ErrUnauthorized  = eris.New("boond: unauthorized")
)

// APIError is a classified, non-retryable failure.
type APIError struct {
	Kind        error
	Environment Environment
	StatusCode  int
	Message     string
	Err         error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Environment != "" {
		fmt.Fprintf(&b, " [%s]", e.Environment)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches the error kind.
func (e *APIError) Is(target error) bool {
	return target == e.Kind
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPermission reports whether the credential lacks access to the resource.
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }

// IsValidation reports whether the request was rejected before being sent.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsTransient reports whether err is a retryable failure that survived the
// retry budget.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return resilience.IsTransient(err) || errors.Is(err, resilience.ErrCircuitOpen)
}

// ErrorKind names the taxonomy bucket of err for reports and responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsPermission(err):
		return "permission"
	case IsValidation(err):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRemoteService):
		return "remote_service"
	case IsTransient(err):
		return "transient_network"
	default:
		return "unknown"
	}
}

func validationError(format string, args ...any) error {
	return &APIError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// classifyStatus maps a non-2xx response to the error taxonomy. Transient
// statuses become resilience.TransientError so the retry loop sees them.
func classifyStatus(env Environment, status int, body []byte) error {
	msg := errorMessage(body)
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(
			eris.Errorf("boond [%s]: status %d: %s", env, status, msg), status)
	}

	kind := ErrRemoteService
	switch status {
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusForbidden:
		kind = ErrPermission
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	}
	return &APIError{Kind: kind, Environment: env, StatusCode: status, Message: msg}
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"errors.0.detail", "errors.0.title", "message", "error"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
