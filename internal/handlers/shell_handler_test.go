package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/internal/navigation"
	"github.com/tradejournal/backend/internal/services"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/auth/service"
	"github.com/tradejournal/backend/libs/middlewares"
	"go.uber.org/zap"
)

func newShellRouter(svc *mockAuthService, sess *models.Session) chi.Router {
	r := chi.NewRouter()
	r.Use(injectSession(sess))
	h := NewShellHandler(svc, testCookies, nil, zap.NewNop())
	h.RegisterRoutes(r)
	r.Route("/api/v1", h.RegisterAPIRoutes)
	return r
}

func postForm(router http.Handler, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var navLinkPattern = regexp.MustCompile(`<a href="([^"]+)"`)

func navLinks(body string) []string {
	links := make([]string, 0)
	for _, m := range navLinkPattern.FindAllStringSubmatch(body, -1) {
		links = append(links, m[1])
	}
	return links
}

func TestShellHandler_Dashboard(t *testing.T) {
	fullName := "Asha Rao"
	named := &models.Session{ID: "s", UserID: 10, Username: "asha", FullName: &fullName, Email: "asha@example.com"}

	tests := []struct {
		name           string
		session        *models.Session
		path           string
		expectedStatus int
		expectedLinks  []string
		expectedActive string
		expectedLabel  string
	}{
		{
			name:           "trader sees the base entries",
			session:        traderSession,
			path:           "/dashboard/portfolios",
			expectedStatus: http.StatusOK,
			expectedLinks:  []string{"/dashboard", "/dashboard/portfolios", "/dashboard/analytics"},
			expectedActive: "/dashboard/portfolios",
			expectedLabel:  "trader",
		},
		{
			name:           "administrator sees the users entry once",
			session:        adminSession,
			path:           "/dashboard/users",
			expectedStatus: http.StatusOK,
			expectedLinks:  []string{"/dashboard", "/dashboard/portfolios", "/dashboard/analytics", "/dashboard/users"},
			expectedActive: "/dashboard/users",
			expectedLabel:  "admin",
		},
		{
			name:           "full name is preferred",
			session:        named,
			path:           "/dashboard",
			expectedStatus: http.StatusOK,
			expectedLinks:  []string{"/dashboard", "/dashboard/portfolios", "/dashboard/analytics"},
			expectedActive: "/dashboard",
			expectedLabel:  "Asha Rao",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(newShellRouter(&mockAuthService{}, tt.session), http.MethodGet, tt.path, nil)

			require.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			body := w.Body.String()
			assert.Equal(t, tt.expectedLinks, navLinks(body))
			assert.Equal(t, 1, strings.Count(body, `aria-current="page"`))
			assert.Contains(t, body, `<a href="`+tt.expectedActive+`" data-icon=`)
			assert.Regexp(t, `href="`+regexp.QuoteMeta(tt.expectedActive)+`" data-icon="[^"]+" class="active"`, body)
			assert.Contains(t, body, `<span class="name">`+tt.expectedLabel+`</span>`)
		})
	}
}

func TestShellHandler_UsersPageRequiresAdmin(t *testing.T) {
	w := doRequest(newShellRouter(&mockAuthService{}, traderSession), http.MethodGet, navigation.RouteUsers, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Administrator access is required")
	assert.NotContains(t, w.Body.String(), `href="/dashboard/users"`)
}

func TestShellHandler_DashboardWithoutSessionRedirects(t *testing.T) {
	for _, path := range []string{"/dashboard", "/dashboard/analytics", "/dashboard/users"} {
		w := doRequest(newShellRouter(&mockAuthService{}, nil), http.MethodGet, path, nil)

		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestShellHandler_LoginPage(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		w := doRequest(newShellRouter(&mockAuthService{}, nil), http.MethodGet, "/login", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<form method="post" action="/login">`)
	})

	t.Run("signed in", func(t *testing.T) {
		w := doRequest(newShellRouter(&mockAuthService{}, traderSession), http.MethodGet, "/login", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})
}

func TestShellHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &mockAuthService{loginSession: traderSession, loginToken: "jwt-token"}

		w := postForm(newShellRouter(svc, nil), "/login", url.Values{"username": {"trader"}, "password": {"secret123"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		cookie := cookieByName(w, middleware.AccessTokenCookie)
		require.NotNil(t, cookie)
		assert.Equal(t, "jwt-token", cookie.Value)
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		svc := &mockAuthService{loginErr: services.ErrInvalidCredentials}

		w := postForm(newShellRouter(svc, nil), "/login", url.Values{"username": {"<trader>"}, "password": {"nope"}})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "incorrect username or password")
		assert.Contains(t, body, `value="&lt;trader&gt;"`)
		assert.Nil(t, cookieByName(w, middleware.AccessTokenCookie))
	})
}

func TestShellHandler_LoginRateLimit(t *testing.T) {
	form := url.Values{"username": {"trader"}, "password": {"nope"}}

	t.Run("form login is limited", func(t *testing.T) {
		svc := &mockAuthService{loginErr: services.ErrInvalidCredentials}
		r := chi.NewRouter()
		NewShellHandler(svc, testCookies, LoginLimiter(2), zap.NewNop()).RegisterRoutes(r)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			codes = append(codes, postForm(r, "/login", form).Code)
		}

		assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
	})

	t.Run("form and api logins share one budget", func(t *testing.T) {
		svc := &mockAuthService{loginErr: services.ErrInvalidCredentials}
		limiter := LoginLimiter(2)
		r := chi.NewRouter()
		NewShellHandler(svc, testCookies, limiter, zap.NewNop()).RegisterRoutes(r)
		r.Route("/api/v1", NewAuthHandler(svc, testCookies, limiter, zap.NewNop()).RegisterRoutes)

		api := doRequest(r, http.MethodPost, "/api/v1/auth/login", jsonBody(`{"username":"trader","password":"nope"}`))
		first := postForm(r, "/login", form)
		second := postForm(r, "/login", form)

		assert.Equal(t, http.StatusUnauthorized, api.Code)
		assert.Equal(t, http.StatusUnauthorized, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})
}

func TestShellHandler_Logout(t *testing.T) {
	t.Run("removes the session before redirecting", func(t *testing.T) {
		svc := &mockAuthService{}

		w := postForm(newShellRouter(svc, traderSession), "/logout", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Equal(t, []string{"sess-trader"}, svc.loggedOut)
		cookie := cookieByName(w, middleware.AccessTokenCookie)
		require.NotNil(t, cookie)
		assert.Equal(t, -1, cookie.MaxAge)
	})

	t.Run("session already gone", func(t *testing.T) {
		svc := &mockAuthService{}

		w := postForm(newShellRouter(svc, nil), "/logout", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Empty(t, svc.loggedOut)
		assert.NotNil(t, cookieByName(w, middleware.AccessTokenCookie))
	})

	t.Run("store failure", func(t *testing.T) {
		svc := &mockAuthService{logoutErr: errDatabase}

		w := postForm(newShellRouter(svc, traderSession), "/logout", url.Values{})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
	})
}

func TestShellHandler_Navigation(t *testing.T) {
	t.Run("administrator", func(t *testing.T) {
		w := doRequest(newShellRouter(&mockAuthService{}, adminSession), http.MethodGet, "/api/v1/navigation?path=/dashboard/analytics", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var shell navigation.Shell
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shell))
		require.Len(t, shell.Items, 4)
		assert.Equal(t, "/dashboard/users", shell.Items[3].Route)
		assert.True(t, shell.Items[2].Active)
		assert.Equal(t, "/logout", shell.LogoutRoute)
		require.NotNil(t, shell.User)
		assert.True(t, shell.User.IsAdmin)
	})

	t.Run("nested path highlights nothing", func(t *testing.T) {
		w := doRequest(newShellRouter(&mockAuthService{}, traderSession), http.MethodGet, "/api/v1/navigation?path=/dashboard/portfolios/3", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var shell navigation.Shell
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shell))
		require.Len(t, shell.Items, 3)
		for _, item := range shell.Items {
			assert.False(t, item.Active, item.Route)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		w := doRequest(newShellRouter(&mockAuthService{}, nil), http.MethodGet, "/api/v1/navigation", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

var csrfFieldPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// TestShellHandler_LogoutCSRF runs the shell behind the CSRF middleware the way the server does
func TestShellHandler_LogoutCSRF(t *testing.T) {
	tokens := service.NewTokenGenerator("test-secret", time.Hour, time.Hour)
	svc := &mockAuthService{}

	r := chi.NewRouter()
	r.Use(injectSession(traderSession))
	r.Use(middlewares.CSRFMiddleware(tokens, middlewares.CSRFOptions{
		ExemptPaths: []string{navigation.RouteLogin},
		MaxAge:      time.Hour,
	}, zap.NewNop()))
	NewShellHandler(svc, testCookies, nil, zap.NewNop()).RegisterRoutes(r)

	page := doRequest(r, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, page.Code)
	csrfCookie := cookieByName(page, middlewares.CSRFCookieName)
	require.NotNil(t, csrfCookie)
	match := csrfFieldPattern.FindStringSubmatch(page.Body.String())
	require.Len(t, match, 2)
	assert.Equal(t, csrfCookie.Value, match[1])

	t.Run("missing token is rejected", func(t *testing.T) {
		w := postForm(r, "/logout", url.Values{}, csrfCookie)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, svc.loggedOut)
	})

	t.Run("matching token logs out", func(t *testing.T) {
		w := postForm(r, "/logout", url.Values{"csrf_token": {match[1]}}, csrfCookie)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []string{"sess-trader"}, svc.loggedOut)
	})
}
