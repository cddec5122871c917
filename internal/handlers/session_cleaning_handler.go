package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// SessionIndexPruner removes ids of expired sessions from the per-user indexes
type SessionIndexPruner interface {
	PruneIndexes(ctx context.Context) (int, error)
}

// SessionCleaningHandler handles session index cleaning requests
type SessionCleaningHandler struct {
	handlers.BaseHandler
	pruner SessionIndexPruner
}

// NewSessionCleaningHandler creates a new session cleaning handler
func NewSessionCleaningHandler(pruner SessionIndexPruner, logger *zap.Logger) *SessionCleaningHandler {
	return &SessionCleaningHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		pruner:      pruner,
	}
}

// RegisterRoutes registers session cleaning handler routes.
// The router is expected to be guarded by the API key middleware.
func (h *SessionCleaningHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/prune", h.PruneSessions)
}

// PruneSessions handles POST /internal/sessions/prune
// @Summary Prune session indexes
// @Description Removes ids of expired sessions from every per-user session index
// @Tags maintenance
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]int "Number of stale ids removed"
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /internal/sessions/prune [post]
func (h *SessionCleaningHandler) PruneSessions(w http.ResponseWriter, r *http.Request) {
	pruned, err := h.pruner.PruneIndexes(r.Context())
	if err != nil {
		h.Logger.Error("failed to prune session indexes", zap.Error(err), zap.Int("pruned", pruned))
		h.RespondError(w, http.StatusInternalServerError, "failed to prune session indexes")
		return
	}

	h.Logger.Info("pruned session indexes", zap.Int("pruned", pruned))
	h.RespondJSON(w, http.StatusOK, map[string]int{"pruned": pruned})
}
