package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// Default page for the user list
const (
	defaultUserSkip  = 0
	defaultUserLimit = 100
)

// UserService is the interface that wraps methods for user administration.
type UserService interface {
	// Method List retrieves a page of users ordered by ID.
	//
	// "skip" and "limit" parameters select the page. Out-of-range values yield a validation error.
	List(ctx context.Context, skip, limit int) ([]models.User, error)
	// Method Get retrieves a user by ID.
	//
	// If the user does not exist, services.ErrUserNotFound will be returned together with "nil" value.
	Get(ctx context.Context, userID int) (*models.User, error)
	// Method Update applies the provided fields to a user.
	//
	// Changes to the active or administrator flags end every session of the user,
	// so the new role takes effect at the next login.
	// E-mail and username must stay unique; otherwise services.ErrEmailTaken or services.ErrUsernameTaken will be returned.
	Update(ctx context.Context, userID int, req *models.UpdateUserRequest) (*models.User, error)
	// Method Delete removes a user together with their portfolios and sessions.
	//
	// "actorID" is the administrator performing the deletion; deleting yourself yields services.ErrCannotDeleteSelf.
	Delete(ctx context.Context, actorID, userID int) error
}

// UserHandler handles administrator requests for user accounts
type UserHandler struct {
	handlers.BaseHandler
	service UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all user handler routes behind the administrator check.
// The router is expected to be scoped to /api/v1 and to run SessionMiddleware.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *UserHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	status, msg := errorStatus(err, "failed to "+action)
	if status == http.StatusInternalServerError {
		h.Logger.Error("failed to "+action, zap.Error(err))
	}
	h.RespondError(w, status, msg)
}

// queryInt reads an integer query parameter, falling back to def when it is absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// List handles GET /api/v1/users
// @Summary List users
// @Description Get a page of users (administrators only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Number of users to skip, default 0"
// @Param limit query int false "Page size between 1 and 1000, default 100"
// @Success 200 {array} models.User
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", defaultUserSkip)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid skip")
		return
	}
	limit, err := queryInt(r, "limit", defaultUserLimit)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	users, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		h.respondServiceError(w, err, "get users")
		return
	}

	h.RespondJSON(w, http.StatusOK, users)
}

// Get handles GET /api/v1/users/{id}
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get user")
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// Update handles PATCH /api/v1/users/{id}
// @Summary Update user
// @Description Apply only the provided fields. Role or activity changes end the user's sessions.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/users/{id} [patch]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		h.respondServiceError(w, err, "update user")
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}
// @Summary Delete user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserID(r.Context())
	id, ok := h.URLParamInt(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.respondServiceError(w, err, "delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
