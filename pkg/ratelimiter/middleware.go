package ratelimiter

import (
	"net/http"
	"strconv"
)

// KeyFunc extracts the bucket key from a request. An empty key skips the
// limiter.
type KeyFunc func(r *http.Request) string

// DenyFunc writes the response for a rejected request. err is non-nil when
// the limiter itself failed.
type DenyFunc func(w http.ResponseWriter, r *http.Request, res *Result, err error)

// Middleware limits requests per key. Rate limit headers are set on every
// limited response.
func Middleware(l Limiter, keyFn KeyFunc, deny DenyFunc) func(http.Handler) http.Handler {
	if l == nil || keyFn == nil {
		panic("ratelimiter: limiter and key function are required")
	}
	if deny == nil {
		deny = defaultDeny
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				deny(w, r, nil, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if secs := int(res.RetryAfter().Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				deny(w, r, res, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, _ *Result, err error) {
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}
