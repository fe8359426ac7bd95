package rest

import (
	"bytes"
	"net/http"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// compositionRequest is a birth record plus the place name used in the prompt.
type compositionRequest struct {
	domain.BirthData
	LocationName string `json:"location_name,omitempty"`
}

// NatalChart handles POST /natal-chart
func (h *Handler) NatalChart(w http.ResponseWriter, r *http.Request) {
	var req domain.BirthData
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CalculateNatalChart(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.metrics.ObserveAspects(len(result.Aspects))
	writeJSON(w, http.StatusOK, result)
}

// Transits handles POST /transits
func (h *Handler) Transits(w http.ResponseWriter, r *http.Request) {
	var req domain.BirthData
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CalculateTransits(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Compose handles POST /compositions
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	var req compositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.ComposeSymphony(r.Context(), req.BirthData, req.LocationName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.metrics.ObserveAspects(len(result.Aspects))
	writeJSON(w, http.StatusOK, result)
}

// ComposeMIDI handles POST /compositions/midi
func (h *Handler) ComposeMIDI(w http.ResponseWriter, r *http.Request) {
	if h.score == nil {
		writeErrorWithCode(w, http.StatusNotImplemented, "score export not configured", errCodeExportNotAvailable)
		return
	}

	var req compositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.ComposeSymphony(r.Context(), req.BirthData, req.LocationName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.score.WriteScore(&buf, result.Composition); err != nil {
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="natal-symphony.mid"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
