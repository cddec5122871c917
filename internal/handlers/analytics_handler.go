package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// AnalyticsService is the interface that wraps methods for closed-trade statistics.
type AnalyticsService interface {
	// Method Portfolio computes win rate, averages, profit factor, risk/reward and best/worst trades
	// over the closed trades of a portfolio owned by the user.
	//
	// If the portfolio does not exist or belongs to another user, services.ErrPortfolioNotFound or services.ErrForbidden will be returned.
	Portfolio(ctx context.Context, userID, portfolioID int) (*models.PortfolioAnalytics, error)
	// Method BySymbol groups the closed trades of a portfolio by symbol in order of first appearance.
	//
	// Please reference Portfolio method for ownership errors.
	BySymbol(ctx context.Context, userID, portfolioID int) (*models.SymbolBreakdown, error)
	// Method Overview computes statistics for every portfolio the user owns.
	Overview(ctx context.Context, userID int) (*models.AnalyticsOverview, error)
}

// AnalyticsHandler handles HTTP requests for analytics
type AnalyticsHandler struct {
	handlers.BaseHandler
	service AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all analytics handler routes.
// The router is expected to be scoped to /api/v1 and to require a session.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/portfolio/{id}", h.Portfolio)
		r.Get("/portfolio/{id}/by-symbol", h.BySymbol)
		r.Get("/overview", h.Overview)
	})
}

func (h *AnalyticsHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	status, msg := errorStatus(err, "failed to "+action)
	if status == http.StatusInternalServerError {
		h.Logger.Error("failed to "+action, zap.Error(err))
	}
	h.RespondError(w, status, msg)
}

// Portfolio handles GET /api/v1/analytics/portfolio/{id}
// @Summary Portfolio analytics
// @Description Closed-trade statistics for one portfolio
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param id path int true "Portfolio ID"
// @Success 200 {object} models.PortfolioAnalytics
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/analytics/portfolio/{id} [get]
func (h *AnalyticsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	analytics, err := h.service.Portfolio(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, err, "get analytics")
		return
	}

	h.RespondJSON(w, http.StatusOK, analytics)
}

// BySymbol handles GET /api/v1/analytics/portfolio/{id}/by-symbol
// @Summary Analytics by symbol
// @Description Closed-trade statistics per symbol, in order of first appearance
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param id path int true "Portfolio ID"
// @Success 200 {object} models.SymbolBreakdown
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/analytics/portfolio/{id}/by-symbol [get]
func (h *AnalyticsHandler) BySymbol(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	breakdown, err := h.service.BySymbol(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, err, "get symbol analytics")
		return
	}

	h.RespondJSON(w, http.StatusOK, breakdown)
}

// Overview handles GET /api/v1/analytics/overview
// @Summary Analytics overview
// @Description Statistics for every portfolio of the signed-in user
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AnalyticsOverview
// @Failure 401 {object} map[string]string
// @Router /api/v1/analytics/overview [get]
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	overview, err := h.service.Overview(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "get analytics overview")
		return
	}

	h.RespondJSON(w, http.StatusOK, overview)
}
