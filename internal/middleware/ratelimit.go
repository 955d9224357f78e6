package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/corvael/provision-api/internal/observability"
	"github.com/corvael/provision-api/internal/ratelimit"
	"github.com/rs/zerolog"
)

// RateLimit bounds request volume per client IP using the given limiter.
// A limiter backend failure fails open: the request proceeds, since refusing
// all traffic on a limiter outage is worse than briefly not limiting.
func RateLimit(limiter ratelimit.Limiter, m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				m.RateLimitDenials.Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests, please try again later",
					"code":  "RATE_LIMIT_EXCEEDED",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already substituted forwarded-for headers upstream of this.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
