package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"planos/internal/auth"
	"planos/internal/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", duration.String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the signed-in user from the request context.
// Returns nil if the user middleware hasn't populated the context.
func UserFromContext(ctx context.Context) *auth.Profile {
	user, _ := ctx.Value(userContextKey).(*auth.Profile)
	return user
}

// newRequireUserMiddleware only lets requests through when the session holds
// a user. Pages are sent back to the entry page, API calls get a 401.
func newRequireUserMiddleware(api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var user *auth.Profile
			if sess, ok := session.FromContext(r.Context()); ok {
				if profile, ok := sess.CurrentUser(); ok {
					user = &profile
				}
			}

			if user == nil {
				if api {
					unauthorized(w)
					return
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

const (
	csrfFormField  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"

	// maxMultipartBytes bounds a whole upload body: the file plus the other fields.
	maxMultipartBytes = maxImportUploadBytes + 64<<10
)

// newCSRFMiddleware checks state-changing requests against the session's
// CSRF token, read from the X-CSRF-Token header or the csrf_token form field.
func newCSRFMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := session.FromContext(r.Context())
			if !ok {
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			token := r.Header.Get(csrfHeaderName)
			if token == "" {
				if err := parseBoundedForm(w, r); err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
						return
					}
					logger.Warn("csrf: unreadable form", "path", r.URL.Path, "error", err)
					http.Error(w, "malformed form", http.StatusBadRequest)
					return
				}
				token = r.PostFormValue(csrfFormField)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken())) != 1 {
				logger.Warn("csrf validation failed", "method", r.Method, "path", r.URL.Path)
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// parseBoundedForm parses the request body, capping multipart uploads at
// maxMultipartBytes before any of it is buffered.
func parseBoundedForm(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
		return r.ParseMultipartForm(maxImportUploadBytes)
	}
	return r.ParseForm()
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func newSecurityHeadersMiddleware(environment string) func(http.Handler) http.Handler {
	isDev := strings.EqualFold(environment, "development")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
