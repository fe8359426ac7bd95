package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
	"github.com/ewilliams-labs/natal-symphony/internal/core/services"
	"github.com/ewilliams-labs/natal-symphony/internal/obvy"
)

const defaultStreamInterval = 2 * time.Second

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc     *services.Orchestrator
	score   ports.ScoreWriter
	metrics *obvy.Metrics
	logger  *zap.Logger
	router  *mux.Router

	streamInterval time.Duration
}

// NewHandler initializes the HTTP adapter and sets up routes. A nil score
// writer disables MIDI export.
func NewHandler(svc *services.Orchestrator, score ports.ScoreWriter, metrics *obvy.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:            svc,
		score:          score,
		metrics:        metrics,
		logger:         logger,
		router:         mux.NewRouter(),
		streamInterval: defaultStreamInterval,
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.Use(h.instrument)
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorWithCode(w, http.StatusNotFound, "route not found", errCodeNotFound)
	})

	h.router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	h.router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	h.router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	// Chart pipeline
	h.router.HandleFunc("/natal-chart", h.NatalChart).Methods(http.MethodPost)
	h.router.HandleFunc("/transits", h.Transits).Methods(http.MethodPost)
	h.router.HandleFunc("/compositions", h.Compose).Methods(http.MethodPost)
	h.router.HandleFunc("/compositions/midi", h.ComposeMIDI).Methods(http.MethodPost)

	// Generation
	h.router.HandleFunc("/generations", h.RequestGeneration).Methods(http.MethodPost)
	h.router.HandleFunc("/generations", h.ListGenerations).Methods(http.MethodGet)
	h.router.HandleFunc("/generations/{id}", h.GetGeneration).Methods(http.MethodGet)
	h.router.HandleFunc("/generations/{id}/stream", h.StreamGeneration).Methods(http.MethodGet)

	h.router.HandleFunc("/locations", h.SearchLocations).Methods(http.MethodGet)

	// Saved charts
	h.router.HandleFunc("/charts", h.SaveChart).Methods(http.MethodPost)
	h.router.HandleFunc("/charts", h.ListCharts).Methods(http.MethodGet)
	h.router.HandleFunc("/charts/{id}", h.GetChart).Methods(http.MethodGet)
	h.router.HandleFunc("/charts/{id}", h.DeleteChart).Methods(http.MethodDelete)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "natal-symphony"})
}

// ReadyCheck reports whether the ephemeris can serve chart requests.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "ephemeris": "connected"})
}
