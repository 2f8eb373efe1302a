package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/staffline/boond-sync/internal/store"
	"github.com/staffline/boond-sync/pkg/boond"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success         bool              `json:"success"`
	Environment     boond.Environment `json:"environment,omitempty"`
	Data            any               `json:"data,omitempty"`
	Error           string            `json:"error,omitempty"`
	PermissionError bool              `json:"permissionError"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func respondOK(w http.ResponseWriter, env boond.Environment, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Environment: env, Data: data})
}

func respondError(w http.ResponseWriter, env boond.Environment, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.String("environment", string(env)), zap.Error(err))
	}
	writeJSON(w, status, envelope{
		Environment:     env,
		Error:           err.Error(),
		PermissionError: boond.IsPermission(err),
	})
}

// statusOf maps the error taxonomy to an HTTP status.
func statusOf(err error) int {
	switch {
	case boond.IsValidation(err):
		return http.StatusBadRequest
	case boond.IsNotFound(err), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case boond.IsPermission(err):
		return http.StatusForbidden
	case errors.Is(err, boond.ErrUnauthorized), errors.Is(err, boond.ErrRemoteService):
		return http.StatusBadGateway
	case boond.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
