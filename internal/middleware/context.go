package middleware

import (
	"context"
	"net/http"

	"portfolio/internal/models"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxAccount   ctxKey = "account"
	ctxToken     ctxKey = "session_token"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithAccount(ctx context.Context, a models.PublicAccount) context.Context {
	return context.WithValue(ctx, ctxAccount, a)
}

func Account(ctx context.Context) (models.PublicAccount, bool) {
	a, ok := ctx.Value(ctxAccount).(models.PublicAccount)
	return a, ok
}

func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxToken, token)
}

func SessionToken(ctx context.Context) string {
	v, _ := ctx.Value(ctxToken).(string)
	return v
}

// SecurityHeaders sets headers for a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
