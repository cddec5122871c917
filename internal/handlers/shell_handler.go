package handlers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/internal/navigation"
	"github.com/tradejournal/backend/internal/services"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/handlers"
	"github.com/tradejournal/backend/libs/middlewares"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionService is the interface that wraps the session mutators used by the dashboard shell.
type SessionService interface {
	// Method Login validates the credentials and opens a new session.
	//
	// If the credentials are invalid, the user is inactive, or some other error occurs, the error will be returned together with "nil" session and an empty token.
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, string, error)
	// Method Logout ends the session with the given ID.
	//
	// Ending a session that no longer exists is not an error.
	Logout(ctx context.Context, sessionID string) error
}

var pageTitles = map[string]string{
	navigation.RouteDashboard:  "Dashboard",
	navigation.RoutePortfolios: "Portfolios",
	navigation.RouteAnalytics:  "Analytics",
	navigation.RouteUsers:      "Users",
}

type loginPage struct {
	Title    string
	Action   string
	Username string
	Error    string
}

type dashboardPage struct {
	Title string
	Shell navigation.Shell
}

// ShellHandler serves the login page and the dashboard frame
type ShellHandler struct {
	handlers.BaseHandler
	sessions  SessionService
	cookies      CookieOptions
	loginLimiter func(http.Handler) http.Handler
	login        *template.Template
	dashboard    *template.Template
	forbidden    *template.Template
}

// NewShellHandler creates a new shell handler.
// loginLimiter wraps the form login; nil leaves it unlimited.
func NewShellHandler(sessions SessionService, cookies CookieOptions, loginLimiter func(http.Handler) http.Handler, logger *zap.Logger) *ShellHandler {
	if loginLimiter == nil {
		loginLimiter = LoginLimiter(0)
	}
	parse := func(page string) *template.Template {
		return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}

	return &ShellHandler{
		BaseHandler:  handlers.BaseHandler{Logger: logger},
		sessions:     sessions,
		cookies:      cookies,
		loginLimiter: loginLimiter,
		login:        parse("login.html"),
		dashboard:    parse("dashboard.html"),
		forbidden:    parse("forbidden.html"),
	}
}

// RegisterRoutes registers the login, logout and dashboard pages.
// The router is expected to run SessionMiddleware and the CSRF middleware.
func (h *ShellHandler) RegisterRoutes(r chi.Router) {
	r.Get(navigation.RouteLogin, h.LoginPage)
	r.With(h.loginLimiter).Post(navigation.RouteLogin, h.Login)
	r.Post(navigation.RouteLogout, h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSessionPage(navigation.RouteLogin))
		r.Get(navigation.RouteDashboard, h.Dashboard)
		r.Get(navigation.RoutePortfolios, h.Dashboard)
		r.Get(navigation.RouteAnalytics, h.Dashboard)
		r.Get(navigation.RouteUsers, h.Dashboard)
	})
}

// RegisterAPIRoutes registers the JSON navigation endpoint under the API prefix.
func (h *ShellHandler) RegisterAPIRoutes(r chi.Router) {
	r.With(middleware.RequireSession).Get("/navigation", h.Navigation)
}

// LoginPage handles GET /login
func (h *ShellHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSession(r.Context()); ok {
		http.Redirect(w, r, navigation.RouteDashboard, http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, h.login, loginPage{Title: "Sign in", Action: navigation.RouteLogin})
}

// Login handles POST /login
func (h *ShellHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, h.login, loginPage{Title: "Sign in", Action: navigation.RouteLogin, Error: "invalid form data"})
		return
	}
	req := loginRequestFromForm(r)

	_, token, err := h.sessions.Login(r.Context(), &req)
	if err != nil {
		status, msg := errorStatus(err, "login failed, please try again")
		if status == http.StatusInternalServerError {
			h.Logger.Error("failed to login user", zap.Error(err))
		}
		h.render(w, status, h.login, loginPage{
			Title:    "Sign in",
			Action:   navigation.RouteLogin,
			Username: req.Identifier(),
			Error:    msg,
		})
		return
	}

	setAccessCookie(w, token, h.cookies)
	http.Redirect(w, r, navigation.RouteDashboard, http.StatusSeeOther)
}

// Logout handles POST /logout.
// The session is removed from the store before the redirect is written; a session
// that is already gone still gets its cookie cleared and is redirected.
func (h *ShellHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearAccessCookie(w, h.cookies)

	if sess, ok := middleware.GetSession(r.Context()); ok {
		if err := h.sessions.Logout(r.Context(), sess.ID); err != nil && !errors.Is(err, services.ErrSessionNotFound) {
			h.Logger.Error("failed to logout user", zap.Error(err), zap.Int("userId", sess.UserID))
			http.Error(w, "failed to log out", http.StatusInternalServerError)
			return
		}
	}

	http.Redirect(w, r, navigation.RouteLogin, http.StatusSeeOther)
}

// Dashboard handles GET /dashboard and its sections
func (h *ShellHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	path := r.URL.Path

	shell := navigation.Build(sess, path, middlewares.GetCSRFToken(r.Context()))
	if !navigation.CanAccess(sess, path) {
		h.render(w, http.StatusForbidden, h.forbidden, dashboardPage{Title: "Access denied", Shell: shell})
		return
	}

	h.render(w, http.StatusOK, h.dashboard, dashboardPage{Title: pageTitles[path], Shell: shell})
}

// Navigation handles GET /api/v1/navigation
// @Summary Navigation shell
// @Description Get the navigation items, active route and identity label for the signed-in user
// @Tags navigation
// @Produce json
// @Security BearerAuth
// @Param path query string false "Current path used to mark the active item"
// @Success 200 {object} navigation.Shell
// @Failure 401 {object} map[string]string
// @Router /api/v1/navigation [get]
func (h *ShellHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	h.RespondJSON(w, http.StatusOK, navigation.Build(sess, r.URL.Query().Get("path"), ""))
}

func (h *ShellHandler) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		h.Logger.Error("failed to render page", zap.Error(err))
	}
}
