package handlers

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/handlers"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Register validates the credentials and creates a new account.
	//
	// "req" parameter contains email, username, password and an optional full name.
	// The first registered account is made an administrator.
	//
	// If the credentials are invalid or already taken, or some other error occurs, the error will be returned together with "nil" value.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	// Method Login validates the credentials and opens a new session.
	//
	// "req" parameter contains a username or e-mail and a password.
	//
	// If the credentials are invalid, the user is inactive, or some other error occurs, the error will be returned together with "nil" session and an empty token.
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, string, error)
	// Method Logout ends the session with the given ID.
	//
	// Ending a session that no longer exists is not an error.
	Logout(ctx context.Context, sessionID string) error
	// Method Profile retrieves the stored account of a user.
	//
	// If the user does not exist, services.ErrUserNotFound will be returned together with "nil" value.
	Profile(ctx context.Context, userID int) (*models.User, error)
}

// CookieOptions configure the access token cookie
type CookieOptions struct {
	MaxAge time.Duration
	Secure bool
}

// setAccessCookie stores the access token for browser clients
func setAccessCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAccessCookie removes the access token cookie
func clearAccessCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	handlers.BaseHandler
	authService  AuthService
	cookies      CookieOptions
	loginLimiter func(http.Handler) http.Handler
}

// LoginLimiter limits login attempts per client IP to requestsPerMinute.
// A non-positive limit disables limiting. The JSON and form logins share one
// limiter so both endpoints draw from the same budget.
func LoginLimiter(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// NewAuthHandler creates a new auth handler.
// loginLimiter wraps POST /auth/login; nil leaves it unlimited.
func NewAuthHandler(authService AuthService, cookies CookieOptions, loginLimiter func(http.Handler) http.Handler, logger *zap.Logger) *AuthHandler {
	if loginLimiter == nil {
		loginLimiter = LoginLimiter(0)
	}
	return &AuthHandler{
		BaseHandler:  handlers.BaseHandler{Logger: logger},
		authService:  authService,
		cookies:      cookies,
		loginLimiter: loginLimiter,
	}
}

// RegisterRoutes registers all auth handler routes.
// The router is expected to be scoped to /api/v1 and to run SessionMiddleware.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.With(h.loginLimiter).Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}

// Register handles POST /api/v1/auth/register
// @Summary Register a new user
// @Description Create an account. The first registered account becomes an administrator.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		status, msg := errorStatus(err, "failed to register user")
		if status == http.StatusInternalServerError {
			h.Logger.Error("failed to register user", zap.Error(err))
		}
		h.RespondError(w, status, msg)
		return
	}

	h.RespondJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
// @Summary Log in
// @Description Authenticate with a username or e-mail and a password. Accepts JSON or form data. The token is also set as a cookie.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		req = loginRequestFromForm(r)
	} else if !h.DecodeJSON(w, r, &req) {
		return
	}

	_, token, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		status, msg := errorStatus(err, "failed to log in")
		if status == http.StatusInternalServerError {
			h.Logger.Error("failed to login user", zap.Error(err))
		}
		h.RespondError(w, status, msg)
		return
	}

	setAccessCookie(w, token, h.cookies)
	h.RespondJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout handles POST /api/v1/auth/logout
// @Summary Log out
// @Description End the current session and clear the token cookie
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	if err := h.authService.Logout(r.Context(), sess.ID); err != nil {
		h.Logger.Error("failed to logout user", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	clearAccessCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
// @Summary Current user
// @Description Get the account of the signed-in user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	user, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		status, msg := errorStatus(err, "failed to get user")
		if status == http.StatusInternalServerError {
			h.Logger.Error("failed to get current user", zap.Error(err))
		}
		h.RespondError(w, status, msg)
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// isFormRequest reports whether the body is URL-encoded or multipart form data
func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func loginRequestFromForm(r *http.Request) models.LoginRequest {
	return models.LoginRequest{
		Login:    r.FormValue("login"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
}
