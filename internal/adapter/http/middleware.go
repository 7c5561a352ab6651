package adapthttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ems/internal/app"
	"ems/internal/domain"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Response bodies for denied requests.
const (
	accessDeniedMessage = "Access Denied"
	unavailableMessage  = "Service temporarily unavailable"
)

// guard admits a request to next only when its session role is in allowed.
// Unauthenticated requests are redirected to the login page, forbidden ones
// answered with 403, and a failing session store with 503.
func (s *Server) guard(allowed domain.RoleSet, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := app.Guarded(r.Context(), s.access, sessionToken(r), allowed,
			func(ctx context.Context, sess *domain.Session) (struct{}, error) {
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionContextKey, sess)))
				return struct{}{}, nil
			})
		switch {
		case err == nil:
		case errors.Is(err, app.ErrUnauthenticated):
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.Is(err, app.ErrForbidden):
			http.Error(w, accessDeniedMessage, http.StatusForbidden)
		default:
			s.logger.ErrorContext(r.Context(), "session lookup failed", slog.Any("error", err))
			http.Error(w, unavailableMessage, http.StatusServiceUnavailable)
		}
	})
}

// sessionFromContext returns the session admitted by guard.
func sessionFromContext(r *http.Request) *domain.Session {
	sess, _ := r.Context().Value(sessionContextKey).(*domain.Session)
	return sess
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware tags every request with an id and logs its outcome.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(r.Context(), level, "request",
			slog.String("id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
