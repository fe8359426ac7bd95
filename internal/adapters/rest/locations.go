package rest

import "net/http"

// SearchLocations handles GET /locations?q=
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.SearchLocations(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}
