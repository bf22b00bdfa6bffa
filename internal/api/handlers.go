package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hako/durafmt"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/audit"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/feedcache"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/httputil"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/metrics"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/views"
)

type handlers struct {
	feed        *feedcache.Cache[*neows.Snapshot]
	apod        *feedcache.Cache[*neows.APOD]
	chatbot     *views.Chatbot
	audit       *audit.Logger
	thresholdKM float64
	trustProxy  bool
	logger      *slog.Logger
}

type upstreamErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type cacheStat struct {
	Name          string     `json:"name"`
	Populated     bool       `json:"populated"`
	FetchedAt     *time.Time `json:"fetched_at,omitempty"`
	Age           string     `json:"age,omitempty"`
	AgeSeconds    float64    `json:"age_seconds"`
	WindowSeconds float64    `json:"window_seconds"`
	Hits          int64      `json:"hits"`
	Misses        int64      `json:"misses"`
	Loads         int64      `json:"loads"`
	LoadFailures  int64      `json:"load_failures"`
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Asteroid backend running"))
}

// asteroids serves the upstream body exactly as received.
func (h *handlers) asteroids(w http.ResponseWriter, r *http.Request) {
	snap, err := h.feed.Get(r.Context())
	if err != nil {
		h.logger.Error("NASA fetch failed", "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, upstreamErrorResponse{
			Error:   "NASA fetch failed",
			Details: err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap.Raw)
}

func (h *handlers) mapData(w http.ResponseWriter, r *http.Request) {
	snap, err := h.feed.Get(r.Context())
	if err != nil {
		h.logger.Error("map data failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Map data failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views.Grid(snap.Feed))
}

func (h *handlers) alerts(w http.ResponseWriter, r *http.Request) {
	snap, err := h.feed.Get(r.Context())
	if err != nil {
		h.logger.Error("alert check failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Alert check failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views.Alerts(snap.Feed, h.thresholdKM))
}

// chat always answers 200 with a response string; only a malformed body is
// rejected.
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ans := h.chatbot.Answer(r.Context(), req.Query, h.feed)
	metrics.IncChatIntent(ans.Intent)
	h.logger.Debug("chat answered", "intent", ans.Intent)

	if err := h.audit.Log(r.Context(), audit.Entry{
		Kind:     audit.KindChat,
		ClientIP: httputil.ClientIP(r, h.trustProxy),
		Query:    req.Query,
		Intent:   ans.Intent,
		Response: ans.Response,
		Success:  ans.Intent != views.IntentInitializing,
	}); err != nil {
		h.logger.Warn("audit write failed", "error", err)
	}

	httputil.WriteJSON(w, http.StatusOK, chatResponse{Response: ans.Response})
}

func (h *handlers) apodHandler(w http.ResponseWriter, r *http.Request) {
	apod, err := h.apod.Get(r.Context())
	if err != nil {
		h.logger.Error("APOD fetch failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "APOD fetch failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apod)
}

func (h *handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats := []cacheStat{toCacheStat(h.feed.Stats())}
	if h.apod != nil {
		stats = append(stats, toCacheStat(h.apod.Stats()))
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func toCacheStat(s feedcache.Stats) cacheStat {
	out := cacheStat{
		Name:          s.Name,
		Populated:     s.Populated,
		WindowSeconds: s.Window.Seconds(),
		Hits:          s.Hits,
		Misses:        s.Misses,
		Loads:         s.Loads,
		LoadFailures:  s.LoadFailures,
	}
	if s.Populated {
		fetchedAt := s.FetchedAt.UTC()
		out.FetchedAt = &fetchedAt
		out.AgeSeconds = s.Age.Seconds()
		out.Age = FormatAge(s.Age)
	}
	return out
}

// FormatAge renders a cache age as e.g. "1 minute 5 seconds".
func FormatAge(d time.Duration) string {
	if d < time.Second {
		return "just now"
	}
	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}
