package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

// RateCounter counts requests per scope with a window TTL set on the first hit.
type RateCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimit caps requests per client IP on the wrapped routes. The counter
// lives in redis so the cap holds across instances. A counter failure lets
// the request through: the limit protects capacity, not correctness.
func RateLimit(counter RateCounter, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if counter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := clientIP(r) + "|" + r.Method + "|" + routePattern(r)
			count, err := counter.IncrWithTTL(r.Context(), counter.RateLimitKey(scope), window)
			if err != nil {
				logError(r.Context(), logg, "rate limit counter", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
