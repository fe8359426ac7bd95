package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

type saveChartRequest struct {
	domain.BirthData
	ChartName         string `json:"chart_name"`
	BirthLocationName string `json:"birth_location_name,omitempty"`
}

// SaveChart handles POST /charts
func (h *Handler) SaveChart(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req saveChartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	chart, err := h.svc.SaveChart(r.Context(), user, req.ChartName, req.BirthLocationName, req.BirthData)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/charts/"+chart.ID)
	writeJSON(w, http.StatusCreated, chart)
}

// ListCharts handles GET /charts
func (h *Handler) ListCharts(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	charts, err := h.svc.ListCharts(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// GetChart handles GET /charts/{id}
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	chart, err := h.svc.GetChart(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// DeleteChart handles DELETE /charts/{id}
func (h *Handler) DeleteChart(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteChart(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
