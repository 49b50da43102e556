package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-book-catalog/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// badRequest reports malformed input found at the boundary, keyed by parameter name.
func badRequest(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Message: "one or more validation errors occurred",
		Errors:  map[string]string{field: message},
	})
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch service.KindOf(err) {
	case service.ErrValidation, service.ErrReferentialIntegrity:
		return http.StatusBadRequest
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unclassified errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeMessage(w, status, "an unexpected error occurred")
		return
	}

	body := errorBody{Message: err.Error()}
	var fields validation.Errors
	if errors.As(err, &fields) {
		body.Errors = make(map[string]string, len(fields))
		for name, ferr := range fields {
			body.Errors[name] = ferr.Error()
		}
	}
	var se *service.Error
	if body.Errors == nil && errors.As(err, &se) && se.Field != "" && status == http.StatusBadRequest {
		body.Errors = map[string]string{se.Field: se.Message}
	}
	writeJSON(w, status, body)
}
