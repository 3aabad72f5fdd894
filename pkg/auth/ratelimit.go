package auth

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterStore issues a per-agent token bucket limiter, creating one on
// first use and reusing it on subsequent calls.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiterStore builds a store whose limiters allow rps requests per
// second with the given burst.
func NewLimiterStore(rps float64, burst int) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (s *LimiterStore) limiterFor(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.rps, s.burst)
		s.limiters[key] = l
	}
	return l
}

// Allow reports whether a request keyed by key is permitted right now.
func (s *LimiterStore) Allow(key string) bool {
	return s.limiterFor(key).Allow()
}

// RateLimitMiddleware enforces per-agent rate limiting at the HTTP layer.
// It keys the limiter by the AgentHandle attached by NewMiddleware,
// falling back to the remote address when no caller is present (e.g. a
// public path). On rate limit exceeded, it returns 429 with a
// Retry-After header.
func RateLimitMiddleware(store *LimiterStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.RemoteAddr
			if claims, err := GetCaller(r.Context()); err == nil {
				key = claims.AgentHandle
			}

			if !store.Allow(key) {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests",
					"rate limit exceeded, retry after the specified interval")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
