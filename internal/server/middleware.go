package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"mutari/internal/store"
	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyIdentity contextKey = "identity"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the feed socket upgrade through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		elapsed := time.Since(started)
		s.metrics.ObserveHTTP(r.Method, r.URL.Path, rw.statusCode, elapsed)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth verifies the bearer token and adds the caller to the context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		if store.Unavailable(err) {
			s.writeStoreError(w, err, "failed to authenticate request")
			return
		}
		if err != nil {
			s.logger.WithError(err).Debug("rejected unauthenticated request")
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "Trebuie să fii autentificat.")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyIdentity, identity)))
	})
}

// OptionalAuth attaches the caller when a valid token is present and lets
// guests through otherwise. An invalid token is still rejected.
func (s *Service) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		switch {
		case errors.Is(err, errNoBearer):
			next.ServeHTTP(w, r)
		case store.Unavailable(err):
			s.writeStoreError(w, err, "failed to authenticate request")
		case err != nil:
			s.logger.WithError(err).Debug("rejected invalid token")
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "Sesiunea a expirat. Autentifică-te din nou.")
		default:
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyIdentity, identity)))
		}
	})
}

func (s *Service) authenticate(r *http.Request) (*types.Identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	if s.verifier == nil {
		return nil, errors.New("no token verifier configured")
	}

	verified, err := s.verifier.Verify(r.Context(), raw)
	if err != nil {
		return nil, err
	}

	identity := *verified
	if identity.Role == types.RoleCustomer && identity.Subject != "" {
		customer, err := s.customers.CustomerBySubject(r.Context(), identity.Subject)
		switch {
		case err == nil:
			identity.UserID = customer.ID
		case !errors.Is(err, types.ErrCustomerNotFound):
			return nil, fmt.Errorf("failed to resolve customer profile: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": identity.UserID,
		"role":    identity.Role,
	}).Debug("authenticated user")

	return &identity, nil
}

// RateLimitGuests throttles unauthenticated writes per client address.
func (s *Service) RateLimitGuests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if !s.limiter.allow(clientIP(r)) {
			s.metrics.GuestRequest("rate_limited")
			s.writeError(w, http.StatusTooManyRequests, "rate_limited", "Prea multe cereri. Încearcă din nou peste un minut.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			// 308 keeps the method and body of API posts
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type ipLimiter struct {
	perMinute int

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{perMinute: perMinute, limiters: make(map[string]*limiterEntry)}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.limiters[ip] = e
	}
	e.seen = now

	if len(l.limiters) > 10000 {
		for k, v := range l.limiters {
			if now.Sub(v.seen) > 10*time.Minute {
				delete(l.limiters, k)
			}
		}
	}

	return e.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
