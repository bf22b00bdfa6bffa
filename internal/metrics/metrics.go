package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astroscan_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_cache_hits_total",
			Help: "Cache reads served from a fresh entry.",
		},
		[]string{"cache"},
	)

	cacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_cache_misses_total",
			Help: "Cache reads that required an upstream load.",
		},
		[]string{"cache"},
	)

	upstreamLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_upstream_loads_total",
			Help: "Upstream loads by result (success, error).",
		},
		[]string{"cache", "result"},
	)

	cacheAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "astroscan_cache_age_seconds",
			Help: "Age of the held cache entry in seconds.",
		},
		[]string{"cache"},
	)

	chatIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_chat_intents_total",
			Help: "Chat queries by matched intent.",
		},
		[]string{"intent"},
	)

	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscan_login_attempts_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		upstreamLoadsTotal,
		cacheAgeSeconds,
		chatIntentsTotal,
		loginAttemptsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCacheHit records a fresh cache read.
func IncCacheHit(cache string) {
	cacheHitsTotal.WithLabelValues(cache).Inc()
}

// IncCacheMiss records a cache read that needed a load.
func IncCacheMiss(cache string) {
	cacheMissesTotal.WithLabelValues(cache).Inc()
}

// IncUpstreamLoad records the outcome of an upstream load.
func IncUpstreamLoad(cache, result string) {
	upstreamLoadsTotal.WithLabelValues(cache, result).Inc()
}

// SetCacheAge sets the age gauge for a cache.
func SetCacheAge(cache string, seconds float64) {
	cacheAgeSeconds.WithLabelValues(cache).Set(seconds)
}

// IncChatIntent counts a chat query by the rule that answered it.
func IncChatIntent(intent string) {
	chatIntentsTotal.WithLabelValues(intent).Inc()
}

// IncLoginAttempt counts a login attempt.
func IncLoginAttempt(success bool) {
	result := "rejected"
	if success {
		result = "accepted"
	}
	loginAttemptsTotal.WithLabelValues(result).Inc()
}

// knownRoutes are the only path labels emitted; anything else is "other".
var knownRoutes = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/login":           true,
	"/api/asteroids":   true,
	"/api/map-data":    true,
	"/api/alerts":      true,
	"/api/chat":        true,
	"/api/apod":        true,
	"/api/cache/stats": true,
}

// normalizeRoute bounds label cardinality against scanners and bots.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
