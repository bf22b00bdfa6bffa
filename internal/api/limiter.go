package api

import (
	"net/http"
	"sync"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/httputil"
)

// inFlightLimiter tracks concurrent API requests per client IP and globally.
type inFlightLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newInFlightLimiter(maxPerIP int) *inFlightLimiter {
	return &inFlightLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: 1000, // Default global cap.
	}
}

// acquire registers a request for ip. It returns false when either the
// per-IP or the global limit has been reached.
func (l *inFlightLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.inFlight[ip] >= l.maxPerIP {
		return false
	}
	l.inFlight[ip]++
	l.total++
	return true
}

func (l *inFlightLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

func (l *inFlightLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}

// limit rejects a request with 429 while its client already has maxPerIP
// requests in flight. Probes are never limited.
func (l *inFlightLimiter) limit(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ip := httputil.ClientIP(r, trustProxy)
			if !l.acquire(ip) {
				w.Header().Set("Retry-After", "1")
				httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent requests")
				return
			}
			defer l.release(ip)
			next.ServeHTTP(w, r)
		})
	}
}
