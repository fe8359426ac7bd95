package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	errCodeInvalidBirthData   = "INVALID_BIRTH_DATA"
	errCodeInvalidArgument    = "INVALID_ARGUMENT"
	errCodeNotFound           = "NOT_FOUND"
	errCodeUpstream           = "UPSTREAM_UNAVAILABLE"
	errCodeUpstreamData       = "UPSTREAM_INVALID_DATA"
	errCodeQueueFull          = "QUEUE_FULL"
	errCodeUnauthorized       = "UNAUTHORIZED"
	errCodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	errCodeInternal           = "INTERNAL"
	errCodeExportNotAvailable = "NOT_IMPLEMENTED"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBirthData):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidBirthData)
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeErrorWithCode(w, http.StatusBadGateway, err.Error(), errCodeUpstream)
	case errors.Is(err, domain.ErrInvalidPlanetPosition):
		writeErrorWithCode(w, http.StatusBadGateway, err.Error(), errCodeUpstreamData)
	case errors.Is(err, ports.ErrQueueFull):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeQueueFull)
	default:
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
	}
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON enforces the content type and decodes the body into v. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSONContentType(r) {
		writeErrorWithCode(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errCodeUnsupportedMedia)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidArgument)
		return false
	}
	return true
}

// userID reads the caller identity header; a missing header is answered with 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeErrorWithCode(w, http.StatusUnauthorized, "X-User-ID header is required", errCodeUnauthorized)
		return "", false
	}
	return id, true
}
