package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/evprof/pkg/logging"
	"github.com/psantana5/evprof/pkg/profiler"
)

// Source is the read side of *profiler.Tracker
type Source interface {
	Stats() map[string]profiler.Summary
	StatsFor(name string) (profiler.Summary, bool)
	FinishedEvents() map[string][]profiler.Event
	Events(name string) []profiler.Event
	Running() int
	Names() []string
}

// Handler serves read-only views of a tracker
type Handler struct {
	source    Source
	gatherer  prometheus.Gatherer
	logger    *logging.Logger
	startTime time.Time
}

// NewHandler creates a new handler over source
func NewHandler(source Source, logger *logging.Logger) *Handler {
	return &Handler{
		source:    source,
		logger:    logger.WithField("component", "api"),
		startTime: time.Now(),
	}
}

// SetMetricsGatherer enables /metrics backed by g
func (h *Handler) SetMetricsGatherer(g prometheus.Gatherer) {
	h.gatherer = g
}

// RegisterRoutes registers all API routes. A single name can be selected
// either as a path segment (/stats/{name}) or as a query parameter
// (/stats?name=...); only the query form can address the empty name.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stats", h.ListStats).Methods("GET")
	r.HandleFunc("/stats/{name}", h.GetStats).Methods("GET")
	r.HandleFunc("/events", h.ListEvents).Methods("GET")
	r.HandleFunc("/events/{name}", h.GetEvents).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// ListStats returns the summary of every finished event name, or of the one
// given by ?name=
func (h *Handler) ListStats(w http.ResponseWriter, r *http.Request) {
	if name, ok := queryName(r); ok {
		h.writeStats(w, name)
		return
	}
	h.writeJSON(w, http.StatusOK, h.source.Stats())
}

// GetStats returns the summary of one event name
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeStats(w, mux.Vars(r)["name"])
}

func (h *Handler) writeStats(w http.ResponseWriter, name string) {
	summary, ok := h.source.StatsFor(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no finished events named "+name)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ListEvents returns all finished events grouped by name, or the events of
// the one given by ?name=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if name, ok := queryName(r); ok {
		h.writeEvents(w, name)
		return
	}
	h.writeJSON(w, http.StatusOK, h.source.FinishedEvents())
}

// GetEvents returns the finished events of one name in stop order
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, mux.Vars(r)["name"])
}

func (h *Handler) writeEvents(w http.ResponseWriter, name string) {
	events := h.source.Events(name)
	if events == nil {
		h.writeError(w, http.StatusNotFound, "no finished events named "+name)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// queryName reports the name query parameter. Present but empty selects the
// empty name.
func queryName(r *http.Request) (string, bool) {
	values, ok := r.URL.Query()["name"]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status        string  `json:"status"`
	Running       int     `json:"running_events"`
	Names         int     `json:"event_names"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports liveness plus registry sizes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Running:       h.source.Running(),
		Names:         len(h.source.Names()),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
