package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"paras/internal/config"
	"paras/internal/metrics"
	"paras/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type contextKey int

const sessionContextKey contextKey = iota

// sessionFromContext returns the resolved session and auth state placed there
// by the session middleware.
func sessionFromContext(ctx context.Context) (*session.Session, session.AuthState) {
	v, ok := ctx.Value(sessionContextKey).(resolvedSession)
	if !ok {
		return nil, session.StateAnonymous
	}
	return v.sess, v.state
}

type resolvedSession struct {
	sess  *session.Session
	state session.AuthState
}

// sessionMiddleware resolves the caller's session from the Authorization
// header (Bearer <session id>) or the session cookie and stashes it in the
// request context. Resolution errors other than cancellation degrade to
// anonymous; guards downstream decide what each route requires.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.sessionID(r)
		sess, state, err := s.sessions.Resolve(r.Context(), id)
		if err != nil && r.Context().Err() != nil {
			// Client went away mid-verification; nothing to serve.
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("session resolution failed")
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, resolvedSession{sess: sess, state: state})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionID(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if id, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(id)
		}
	}
	if c, err := r.Cookie(s.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth admits only fully authenticated sessions. Bootstrapping gets a
// 401 with a distinct message so clients know to retry rather than re-login.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, state := sessionFromContext(r.Context())
		switch state {
		case session.StateAuthenticated:
			next(w, r)
		case session.StateBootstrapping:
			writeError(w, http.StatusUnauthorized, "session verification pending, retry")
		default:
			writeError(w, http.StatusUnauthorized, "authentication required")
		}
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFromContext(r.Context())
		if !sess.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}

// rateLimiter keeps a token bucket per caller, keyed by session id when
// present and remote host otherwise.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.RateLimitConfig
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.limiter.cfg.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := s.sessionID(r)
		if key == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			} else {
				key = r.RemoteAddr
			}
		}
		if !s.limiter.getLimiter(key).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
		metrics.IncGateway(r.URL.Path, statusClass(recorder.status))
	})
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
