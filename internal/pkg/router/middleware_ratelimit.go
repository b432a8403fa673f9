package router

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
)

// RateLimiter counts requests per key. *ratelimit.Limiter satisfies it.
type RateLimiter interface {
	Allow(key string, rule ratelimit.Rule) ratelimit.Result
	Undo(key string)
}

// RateLimit admits requests under rule, keyed by the matched route and the
// authenticated user id or, for anonymous callers, the client IP.
//
// It must run after authentication so the user id is available.
func RateLimit(limiter RateLimiter, rule ratelimit.Rule) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rule.Key(r.Method+" "+matchedRoutePath(r), rateLimitIdentity(r))
			res := limiter.Allow(key, rule)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int((res.RetryAfter() + time.Second - 1) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, errorResponse{Message: "Too many requests, please try again later"}, http.StatusTooManyRequests)
				return
			}

			if !rule.SkipSuccessful {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if responseStatus(rec) < http.StatusBadRequest {
				limiter.Undo(key)
			}
		})
	}
}

func rateLimitIdentity(r *http.Request) string {
	if clm := jwt.GetAuth(r.Context()); clm != nil && clm.UserID != "" {
		return "user:" + clm.UserID
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}
