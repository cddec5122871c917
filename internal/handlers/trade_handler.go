package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// MaxScreenshotSize is the largest accepted screenshot upload
const MaxScreenshotSize = 10 << 20 // 10MB

// TradeService is the interface that wraps methods for Trade business logic.
type TradeService interface {
	// Method ListByPortfolio retrieves the trades of a portfolio owned by the user, newest entry first.
	//
	// "status" parameter optionally filters by open or closed trades.
	// If the portfolio does not exist or belongs to another user, services.ErrPortfolioNotFound or services.ErrForbidden will be returned.
	ListByPortfolio(ctx context.Context, userID, portfolioID int, status *models.TradeStatus) ([]models.Trade, error)
	// Method Create validates the request and opens a trade in a portfolio owned by the user.
	Create(ctx context.Context, userID int, req *models.CreateTradeRequest) (*models.Trade, error)
	// Method Get retrieves a trade whose portfolio is owned by the user.
	//
	// If the trade does not exist, services.ErrTradeNotFound will be returned.
	Get(ctx context.Context, userID, tradeID int) (*models.Trade, error)
	// Method Update applies the provided fields and recomputes profit and loss when an exit price is present.
	Update(ctx context.Context, userID, tradeID int, req *models.UpdateTradeRequest) (*models.Trade, error)
	// Method Close records the exit of an open trade and computes its profit and loss.
	//
	// If the trade is already closed, services.ErrTradeClosed will be returned.
	Close(ctx context.Context, userID, tradeID int, req *models.CloseTradeRequest) (*models.Trade, error)
	// Method Delete removes a trade and its screenshot.
	Delete(ctx context.Context, userID, tradeID int) error
	// Method UploadScreenshot stores an image for a trade, replacing any previous one.
	//
	// Only JPEG, PNG and WebP images are accepted; other types yield services.ErrUnsupportedImage.
	UploadScreenshot(ctx context.Context, userID, tradeID int, file io.Reader, filename, contentType string) (*models.ScreenshotResponse, error)
}

// TradeHandler handles HTTP requests for trades
type TradeHandler struct {
	handlers.BaseHandler
	service TradeService
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(svc TradeService, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all trade handler routes.
// The router is expected to be scoped to /api/v1 and to require a session.
func (h *TradeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/portfolio/{portfolioID}", h.ListByPortfolio)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/close", h.Close)
		r.Post("/{id}/screenshot", h.UploadScreenshot)
	})
}

func (h *TradeHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	status, msg := errorStatus(err, "failed to "+action)
	if status == http.StatusInternalServerError {
		h.Logger.Error("failed to "+action, zap.Error(err))
	}
	h.RespondError(w, status, msg)
}

// ListByPortfolio handles GET /api/v1/trades/portfolio/{portfolioID}
// @Summary List trades of a portfolio
// @Description Get the trades of a portfolio ordered by entry date, newest first
// @Tags trades
// @Produce json
// @Security BearerAuth
// @Param portfolioID path int true "Portfolio ID"
// @Param status query string false "Filter by status: open or closed"
// @Success 200 {array} models.Trade
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/portfolio/{portfolioID} [get]
func (h *TradeHandler) ListByPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	portfolioID, ok := h.URLParamInt(w, r, "portfolioID")
	if !ok {
		return
	}

	var status *models.TradeStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.TradeStatus(raw)
		if !s.Valid() {
			h.RespondError(w, http.StatusBadRequest, "status must be open or closed")
			return
		}
		status = &s
	}

	trades, err := h.service.ListByPortfolio(r.Context(), userID, portfolioID, status)
	if err != nil {
		h.respondServiceError(w, err, "get trades")
		return
	}

	h.RespondJSON(w, http.StatusOK, trades)
}

// Create handles POST /api/v1/trades
// @Summary Create trade
// @Tags trades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTradeRequest true "Trade data"
// @Success 201 {object} models.Trade
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades [post]
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req models.CreateTradeRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	trade, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(w, err, "create trade")
		return
	}

	h.RespondJSON(w, http.StatusCreated, trade)
}

// Get handles GET /api/v1/trades/{id}
// @Summary Get trade
// @Tags trades
// @Produce json
// @Security BearerAuth
// @Param id path int true "Trade ID"
// @Success 200 {object} models.Trade
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/{id} [get]
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	trade, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, err, "get trade")
		return
	}

	h.RespondJSON(w, http.StatusOK, trade)
}

// Update handles PATCH /api/v1/trades/{id}
// @Summary Update trade
// @Description Apply only the provided fields. Profit and loss is recomputed when an exit price is present.
// @Tags trades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Trade ID"
// @Param request body models.UpdateTradeRequest true "Fields to change"
// @Success 200 {object} models.Trade
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/{id} [patch]
func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateTradeRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	trade, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		h.respondServiceError(w, err, "update trade")
		return
	}

	h.RespondJSON(w, http.StatusOK, trade)
}

// Close handles POST /api/v1/trades/{id}/close
// @Summary Close trade
// @Description Record the exit of an open trade and compute its profit and loss
// @Tags trades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Trade ID"
// @Param request body models.CloseTradeRequest true "Exit price and optional exit date"
// @Success 200 {object} models.Trade
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/{id}/close [post]
func (h *TradeHandler) Close(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	var req models.CloseTradeRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	trade, err := h.service.Close(r.Context(), userID, id, &req)
	if err != nil {
		h.respondServiceError(w, err, "close trade")
		return
	}

	h.RespondJSON(w, http.StatusOK, trade)
}

// Delete handles DELETE /api/v1/trades/{id}
// @Summary Delete trade
// @Tags trades
// @Security BearerAuth
// @Param id path int true "Trade ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/{id} [delete]
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, err, "delete trade")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadScreenshot handles POST /api/v1/trades/{id}/screenshot
// @Summary Upload trade screenshot
// @Description Attach a JPEG, PNG or WebP chart screenshot to a trade
// @Tags trades
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Trade ID"
// @Param file formData file true "Screenshot image"
// @Success 200 {object} models.ScreenshotResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/trades/{id}/screenshot [post]
func (h *TradeHandler) UploadScreenshot(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxScreenshotSize+1<<20)
	if err := r.ParseMultipartForm(MaxScreenshotSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxScreenshotSize {
		h.RespondError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}

	resp, err := h.service.UploadScreenshot(r.Context(), userID, id, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondServiceError(w, err, "upload screenshot")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
