package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes. Anything
// unclassified is a store failure (region.LookupError or a failed write).
func statusFor(err error) int {
	switch {
	case errors.Is(err, territory.ErrInvalidAssignment), errors.Is(err, territory.ErrInvalidInstaller):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, territory.ErrNoDirectory):
		return http.StatusNotImplemented
	case errors.Is(err, territory.ErrNoFallback):
		return http.StatusUnprocessableEntity
	}
	return http.StatusServiceUnavailable
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteError(w, status, err.Error())
}
