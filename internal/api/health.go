package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// CheckFunc probes one dependency; nil means healthy.
type CheckFunc func(ctx context.Context) error

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health serves liveness and readiness probes.
type Health struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewHealth(logger *zerolog.Logger) *Health {
	return &Health{
		checks:  make(map[string]CheckFunc),
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// AddCheck registers a readiness probe under name.
func (h *Health) AddCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// Check runs every probe and returns the failures keyed by name.
func (h *Health) Check(ctx context.Context) map[string]error {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	failed := make(map[string]error)
	for _, name := range names {
		h.mu.RLock()
		fn := h.checks[name]
		h.mu.RUnlock()
		if err := fn(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}

func (h *Health) handleHealthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Health) handleReadyz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	failed := h.Check(r.Context())

	h.mu.RLock()
	report := make(map[string]string, len(h.checks))
	for name := range h.checks {
		report[name] = "ok"
	}
	h.mu.RUnlock()

	if len(failed) == 0 {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Checks: report})
		return
	}
	for name, err := range failed {
		report[name] = "error"
		h.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
	}
	writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Checks: report})
}

func (h *Health) RegisterRoutes(router *httprouter.Router) {
	router.GET("/healthz", h.handleHealthz)
	router.GET("/readyz", h.handleReadyz)
}

// Handler returns a standalone router for a dedicated health port.
func (h *Health) Handler() http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}
