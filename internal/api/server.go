package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/audit"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/auth"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/feedcache"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/health"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/httputil"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/metrics"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/views"
)

// Deps are the collaborators the HTTP handlers are built from.
type Deps struct {
	Logger           *slog.Logger
	Auth             auth.Config
	Feed             *feedcache.Cache[*neows.Snapshot]
	APOD             *feedcache.Cache[*neows.APOD]
	Chatbot          *views.Chatbot
	Audit            *audit.Logger
	AlertThresholdKM float64
	TrustProxy       bool
	// MaxInFlightPerIP caps concurrent requests per client. Zero uses the default.
	MaxInFlightPerIP int
}

// DefaultMaxInFlightPerIP is used when Deps.MaxInFlightPerIP is unset.
const DefaultMaxInFlightPerIP = 8

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, deps Deps) *Server {
	if deps.AlertThresholdKM <= 0 {
		deps.AlertThresholdKM = views.DefaultAlertThresholdKM
	}
	logger := deps.Logger

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Cold requests wait on the upstream call, bounded by its own timeout.
			WriteTimeout: 45 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(deps Deps) http.Handler {
	h := &handlers{
		feed:        deps.Feed,
		apod:        deps.APOD,
		chatbot:     deps.Chatbot,
		audit:       deps.Audit,
		thresholdKM: deps.AlertThresholdKM,
		trustProxy:  deps.TrustProxy,
		logger:      deps.Logger.With("component", "api"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Feed.Populated))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/asteroids", h.asteroids)
	mux.HandleFunc("GET /api/map-data", h.mapData)
	mux.HandleFunc("GET /api/alerts", h.alerts)
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("GET /api/cache/stats", h.cacheStats)
	if deps.APOD != nil {
		mux.HandleFunc("GET /api/apod", h.apodHandler)
	}
	mux.HandleFunc("POST /login", auth.LoginHandler(deps.Logger, deps.Audit, deps.TrustProxy))

	maxPerIP := deps.MaxInFlightPerIP
	if maxPerIP <= 0 {
		maxPerIP = DefaultMaxInFlightPerIP
	}
	limiter := newInFlightLimiter(maxPerIP)

	// Build middleware chain: metrics -> logging -> cors -> limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(deps.Auth)(handler)
	handler = limiter.limit(deps.TrustProxy)(handler)
	handler = corsMiddleware(handler)
	handler = loggingMiddleware(deps.Logger, deps.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

// corsMiddleware allows any origin, which the browser dashboard relies on
// when served from a different port.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
