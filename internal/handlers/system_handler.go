package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// healthTimeout bounds every dependency check
const healthTimeout = 2 * time.Second

// HealthCheck probes one dependency, e.g. the database or Redis
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// SystemHandler serves the service info and health endpoints
type SystemHandler struct {
	handlers.BaseHandler
	version string
	checks  []HealthCheck
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(version string, checks []HealthCheck, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		version:     version,
		checks:      checks,
	}
}

// RegisterRoutes registers the root and health routes
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
}

// Root handles GET /
// @Summary Service info
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Trade Journal API",
		"version": h.version,
		"docs":    "/swagger/index.html",
	})
}

// Health handles GET /health
// @Summary Health check
// @Description Reports "healthy" when every dependency answers, 503 otherwise
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := map[string]string{"status": "healthy"}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.Logger.Warn("health check failed", zap.String("dependency", check.Name), zap.Error(err))
			body[check.Name] = "unavailable"
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body[check.Name] = "ok"
	}

	h.RespondJSON(w, status, body)
}
