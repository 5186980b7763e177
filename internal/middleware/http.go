package middleware

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/guard"
	"portfolio/internal/models"
	"portfolio/internal/rate"
	"portfolio/internal/util"
)

// SessionResolver maps a bearer token to the account holding it.
type SessionResolver interface {
	ActiveSession(ctx context.Context, token string) (models.PublicAccount, error)
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()
		r = r.WithContext(WithRequestID(r.Context(), rid))
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func Authn(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := RequestID(r.Context())
			token := BearerToken(r)
			if token == "" {
				util.WriteError(w, http.StatusUnauthorized, "authentication required", rid)
				return
			}
			a, err := sessions.ActiveSession(r.Context(), token)
			if errors.Is(err, guard.ErrNoSession) {
				util.WriteError(w, http.StatusUnauthorized, "invalid session", rid)
				return
			}
			if err != nil {
				log.Printf("authn lookup_failed request_id=%s err=%v", rid, err)
				util.WriteError(w, http.StatusInternalServerError, "internal error", rid)
				return
			}
			ctx := WithAccount(r.Context(), a)
			ctx = WithSessionToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimit(l *rate.Limiter, route string, limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + ClientIP(r, trustProxy)
			if !l.Allow(key, limit, window) {
				util.WriteError(w, http.StatusTooManyRequests, "too many requests", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s remote_ip=%s",
				r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), RequestID(r.Context()), ClientIP(r, trustProxy))
		})
	}
}
