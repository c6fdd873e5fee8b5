package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
)

func logRequest(r *http.Request, payload any) {
	logger.InfoContext(r.Context(), "http request", logger.Fields{
		"requestId": middleware.GetReqID(r.Context()),
		"method":    r.Method,
		"path":      r.URL.Path,
		"query":     r.URL.RawQuery,
		"payload":   logger.SanitizePayload(payload),
	})
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	logger.InfoContext(r.Context(), "http response", logger.Fields{
		"requestId":  middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
		"response":   logger.SanitizePayload(payload),
	})
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := logger.Fields{
		"requestId": middleware.GetReqID(r.Context()),
		"method":    r.Method,
		"path":      r.URL.Path,
		"query":     r.URL.RawQuery,
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.ErrorContext(r.Context(), "http handler error", err, fields)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respond writes a service result. Failed results use the status the
// service put on the envelope.
func respond[T any](w http.ResponseWriter, r *http.Request, response commons.Response[T], err error, start time.Time) {
	status := http.StatusOK
	if err != nil {
		status = response.Status
		if status == 0 {
			status = http.StatusInternalServerError
			response.Status = status
		}
		if status >= http.StatusInternalServerError {
			logError(r, err, logger.Fields{"message": response.Message})
		}
	}

	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func reject[T any](w http.ResponseWriter, r *http.Request, status int, start time.Time, message string, errs ...string) {
	response := commons.ErrorResponse[T](status, message, errs...)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}
