package middlewares

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// CSRFCookieName is the cookie carrying the current CSRF token
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName is the request and response header carrying the CSRF token
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFFormField is the form field accepted in place of the header for HTML forms
	CSRFFormField = "csrf_token"
)

// CSRFTokens issues and verifies signed CSRF tokens
type CSRFTokens interface {
	GenerateCSRFToken() (string, error)
	ValidateCSRFToken(token string) error
}

// CSRFOptions configures CSRFMiddleware
type CSRFOptions struct {
	// ExemptPaths are matched exactly
	ExemptPaths []string
	// ExemptPrefixes are matched with strings.HasPrefix
	ExemptPrefixes []string
	// IssuePaths are exempt paths that still receive a fresh token on success (login, register)
	IssuePaths []string
	MaxAge     time.Duration
	Secure     bool
}

// CSRFMiddleware implements double-submit cookie protection.
//
// POST, PUT, PATCH and DELETE on non-exempt paths must present the token both in the
// csrf_token cookie and in the X-CSRF-Token header (or the csrf_token form field), the
// two must match, and the token must carry a valid signature that has not expired.
// Every non-exempt response with a status below 400 rotates the token. The token that
// will be set on the response is available to handlers through GetCSRFToken.
func CSRFMiddleware(tokens CSRFTokens, opts CSRFOptions, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			exempt := isCSRFExempt(path, opts)

			if !exempt && isCSRFProtectedMethod(r.Method) {
				if msg, ok := checkCSRF(r, tokens); !ok {
					logger.Warn("csrf check failed",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("path", path),
						zap.String("reason", msg),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":"` + msg + `"}`))
					return
				}
			}

			issue := !exempt || (r.Method == http.MethodPost && slices.Contains(opts.IssuePaths, path))
			if !issue {
				next.ServeHTTP(w, r)
				return
			}

			token, err := tokens.GenerateCSRFToken()
			if err != nil {
				logger.Error("failed to generate csrf token", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
				return
			}

			rw := &csrfResponseWriter{ResponseWriter: w, token: token, opts: opts}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), csrfTokenKey, token)))
		})
	}
}

// GetCSRFToken returns the token that the current response will carry
func GetCSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenKey).(string); ok {
		return token
	}
	return ""
}

const csrfTokenKey contextKey = "csrfToken"

func isCSRFProtectedMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isCSRFExempt(path string, opts CSRFOptions) bool {
	if slices.Contains(opts.ExemptPaths, path) {
		return true
	}
	for _, prefix := range opts.ExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// checkCSRF returns the rejection message and false when the request fails validation
func checkCSRF(r *http.Request, tokens CSRFTokens) (string, bool) {
	submitted := r.Header.Get(CSRFHeaderName)
	if submitted == "" {
		contentType := r.Header.Get("Content-Type")
		if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
			strings.HasPrefix(contentType, "multipart/form-data") {
			submitted = r.FormValue(CSRFFormField)
		}
	}

	var cookieToken string
	if cookie, err := r.Cookie(CSRFCookieName); err == nil {
		cookieToken = cookie.Value
	}

	if submitted == "" || cookieToken == "" {
		return "CSRF token missing", false
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
		return "CSRF token mismatch", false
	}
	if err := tokens.ValidateCSRFToken(submitted); err != nil {
		return "CSRF token invalid or expired", false
	}
	return "", true
}

// csrfResponseWriter sets the rotated token just before the status line is written
type csrfResponseWriter struct {
	http.ResponseWriter
	token       string
	opts        CSRFOptions
	wroteHeader bool
}

func (w *csrfResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if code < http.StatusBadRequest {
			http.SetCookie(w.ResponseWriter, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    w.token,
				Path:     "/",
				MaxAge:   int(w.opts.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   w.opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(CSRFHeaderName, w.token)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *csrfResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
