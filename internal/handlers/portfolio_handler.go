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

// PortfolioService is the interface that wraps methods for Portfolio business logic.
type PortfolioService interface {
	// Method List retrieves every portfolio owned by the user.
	List(ctx context.Context, userID int) ([]models.Portfolio, error)
	// Method Create validates the request and creates a portfolio owned by the user.
	//
	// If the request is invalid or some other error occurs, the error will be returned together with "nil" value.
	Create(ctx context.Context, userID int, req *models.CreatePortfolioRequest) (*models.Portfolio, error)
	// Method Get retrieves a portfolio owned by the user.
	//
	// If the portfolio does not exist, services.ErrPortfolioNotFound will be returned.
	// If it belongs to another user, services.ErrForbidden will be returned.
	Get(ctx context.Context, userID, portfolioID int) (*models.Portfolio, error)
	// Method Update applies the provided fields to a portfolio owned by the user.
	//
	// Please reference Get method for ownership errors.
	Update(ctx context.Context, userID, portfolioID int, req *models.UpdatePortfolioRequest) (*models.Portfolio, error)
	// Method Delete removes a portfolio owned by the user together with its trades.
	//
	// Please reference Get method for ownership errors.
	Delete(ctx context.Context, userID, portfolioID int) error
}

// PortfolioHandler handles HTTP requests for portfolios
type PortfolioHandler struct {
	handlers.BaseHandler
	service PortfolioService
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(svc PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all portfolio handler routes.
// The router is expected to be scoped to /api/v1 and to require a session.
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *PortfolioHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	status, msg := errorStatus(err, "failed to "+action)
	if status == http.StatusInternalServerError {
		h.Logger.Error("failed to "+action, zap.Error(err))
	}
	h.RespondError(w, status, msg)
}

// List handles GET /api/v1/portfolios
// @Summary List portfolios
// @Description Get every portfolio owned by the signed-in user
// @Tags portfolios
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Portfolio
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/portfolios [get]
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	portfolios, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "get portfolios")
		return
	}

	h.RespondJSON(w, http.StatusOK, portfolios)
}

// Create handles POST /api/v1/portfolios
// @Summary Create portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePortfolioRequest true "Portfolio data"
// @Success 201 {object} models.Portfolio
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/portfolios [post]
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req models.CreatePortfolioRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	portfolio, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(w, err, "create portfolio")
		return
	}

	h.RespondJSON(w, http.StatusCreated, portfolio)
}

// Get handles GET /api/v1/portfolios/{id}
// @Summary Get portfolio
// @Tags portfolios
// @Produce json
// @Security BearerAuth
// @Param id path int true "Portfolio ID"
// @Success 200 {object} models.Portfolio
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/portfolios/{id} [get]
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	portfolio, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, err, "get portfolio")
		return
	}

	h.RespondJSON(w, http.StatusOK, portfolio)
}

// Update handles PATCH /api/v1/portfolios/{id}
// @Summary Update portfolio
// @Description Apply only the provided fields
// @Tags portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Portfolio ID"
// @Param request body models.UpdatePortfolioRequest true "Fields to change"
// @Success 200 {object} models.Portfolio
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/portfolios/{id} [patch]
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdatePortfolioRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	portfolio, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		h.respondServiceError(w, err, "update portfolio")
		return
	}

	h.RespondJSON(w, http.StatusOK, portfolio)
}

// Delete handles DELETE /api/v1/portfolios/{id}
// @Summary Delete portfolio
// @Description Delete a portfolio and all of its trades
// @Tags portfolios
// @Security BearerAuth
// @Param id path int true "Portfolio ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/portfolios/{id} [delete]
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, err, "delete portfolio")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
