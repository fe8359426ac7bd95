package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/services"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type generationRequest struct {
	compositionRequest
	Prompt string `json:"prompt,omitempty"`
}

// RequestGeneration handles POST /generations. The caller identity is optional.
func (h *Handler) RequestGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.svc.RequestGeneration(r.Context(), r.Header.Get("X-User-ID"), services.GenerationRequest{
		Birth:        req.BirthData,
		LocationName: req.LocationName,
		Prompt:       req.Prompt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/generations/"+g.ID)
	writeJSON(w, http.StatusAccepted, g)
}

// ListGenerations handles GET /generations?limit=
func (h *Handler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorWithCode(w, http.StatusBadRequest, "limit must be a positive integer", errCodeInvalidArgument)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	list, err := h.svc.ListGenerations(r.Context(), user, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetGeneration handles GET /generations/{id}
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GetGeneration(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// StreamGeneration handles GET /generations/{id}/stream. It pushes the record
// every streamInterval and closes once the status is terminal.
func (h *Handler) StreamGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	g, err := h.svc.GetGeneration(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// The read side only watches for the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()
	for {
		if err := conn.WriteJSON(g); err != nil {
			return
		}
		if g.Status.Terminal() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(g.Status)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		g, err = h.svc.GetGeneration(ctx, id)
		if err != nil {
			h.logger.Warn("generation stream lookup failed", zap.String("generation_id", id), zap.Error(err))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "lookup failed"),
				time.Now().Add(time.Second))
			return
		}
	}
}
