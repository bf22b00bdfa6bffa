package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/feedcache"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/views"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

const upstreamFeed = `{"links":{"self":"x"},"element_count":3,"near_earth_objects":{
"2024-04-10":[
 {"id":"1","name":"(2024 AA)","is_potentially_hazardous_asteroid":true,
  "close_approach_data":[{"relative_velocity":{"kilometers_per_hour":"30000"},"miss_distance":{"kilometers":"200000"}}]},
 {"id":"2","name":"(2024 BB)","is_potentially_hazardous_asteroid":false,
  "close_approach_data":[{"relative_velocity":{"kilometers_per_hour":"90000"},"miss_distance":{"kilometers":"50000"}}]}
],
"2024-04-09":[
 {"id":"3","name":"(2024 CC)","is_potentially_hazardous_asteroid":true,
  "close_approach_data":[{"relative_velocity":{"kilometers_per_hour":"15000"},"miss_distance":{"kilometers":"900000"}}]}
]}}`

type upstream struct {
	server *httptest.Server
	calls  atomic.Int64
	fail   atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		if u.fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/apod") {
			w.Write([]byte(`{"date":"2024-04-10","title":"Pillars","media_type":"image","url":"https://apod.test/p.jpg"}`))
			return
		}
		w.Write([]byte(upstreamFeed))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestHandler(t *testing.T, u *upstream) (http.Handler, *feedcache.Cache[*neows.Snapshot]) {
	t.Helper()
	logger := testLogger()
	fetcher := neows.NewFetcher(neows.Config{
		FeedURL: u.server.URL + "/feed",
		APODURL: u.server.URL + "/apod",
		APIKey:  "test-key",
	}, logger)
	feed := feedcache.New[*neows.Snapshot]("feed", time.Minute, fetcher.FetchFeed, logger)
	apod := feedcache.New[*neows.APOD]("apod", time.Hour, fetcher.FetchAPOD, logger)

	return NewHandler(Deps{
		Logger:           logger,
		Feed:             feed,
		APOD:             apod,
		Chatbot:          views.NewChatbot(logger),
		AlertThresholdKM: views.DefaultAlertThresholdKM,
	}), feed
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))
	w := do(h, "GET", "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Asteroid backend running") {
		t.Errorf("root = %d %q", w.Code, w.Body.String())
	}
}

// TestAsteroidsRawPassThrough verifies the upstream body is served unchanged
// and repeated calls in the window reach upstream once.
func TestAsteroidsRawPassThrough(t *testing.T) {
	u := newUpstream(t)
	h, _ := newTestHandler(t, u)

	for i := 0; i < 3; i++ {
		w := do(h, "GET", "/api/asteroids", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if w.Body.String() != upstreamFeed {
			t.Fatalf("body was modified")
		}
	}
	if u.calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", u.calls.Load())
	}
}

func TestAsteroidsUpstreamFailure(t *testing.T) {
	u := newUpstream(t)
	u.fail.Store(true)
	h, _ := newTestHandler(t, u)

	w := do(h, "GET", "/api/asteroids", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["error"] != "NASA fetch failed" {
		t.Errorf("error = %q", resp["error"])
	}
	if resp["details"] == "" {
		t.Error("expected details for raw route")
	}
	if strings.Contains(resp["details"], "test-key") {
		t.Errorf("details leak api key: %s", resp["details"])
	}
}

func TestDerivedRoutesUpstreamFailure(t *testing.T) {
	u := newUpstream(t)
	u.fail.Store(true)
	h, _ := newTestHandler(t, u)

	tests := []struct {
		path string
		want string
	}{
		{"/api/map-data", "Map data failed"},
		{"/api/alerts", "Alert check failed"},
		{"/api/apod", "APOD fetch failed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(h, "GET", tt.path, "")
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}
			var resp map[string]any
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] != tt.want {
				t.Errorf("error = %v, want %q", resp["error"], tt.want)
			}
			if _, ok := resp["details"]; ok {
				t.Error("derived routes must not expose details")
			}
		})
	}
}

func TestMapDataAndAlerts(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))

	w := do(h, "GET", "/api/map-data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("map-data status = %d", w.Code)
	}
	var grid []views.GridEntry
	if err := json.NewDecoder(w.Body).Decode(&grid); err != nil {
		t.Fatal(err)
	}
	if len(grid) != 3 || grid[0].Name != "(2024 AA)" || grid[2].Name != "(2024 CC)" {
		t.Errorf("grid = %+v", grid)
	}

	w = do(h, "GET", "/api/alerts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("alerts status = %d", w.Code)
	}
	var alerts []views.Alert
	if err := json.NewDecoder(w.Body).Decode(&alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 2 || alerts[0].Name != "(2024 AA)" || alerts[1].DistanceKM != 50000 {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestChat(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"count", `{"query":"how many objects"}`, http.StatusOK, "Current scan detects 3 near-earth objects in this sector."},
		{"closest", `{"query":"closest?"}`, http.StatusOK, "Closest object is (2024 BB) at 50000 km."},
		{"missing query", `{}`, http.StatusOK, views.PromptResponse},
		{"empty body", ``, http.StatusOK, views.PromptResponse},
		{"blocked", `{"query":"password for hazardous"}`, http.StatusOK, views.RefusalResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, "POST", "/api/chat", tt.body)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var resp map[string]string
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["response"] != tt.want {
				t.Errorf("response = %q, want %q", resp["response"], tt.want)
			}
		})
	}
}

func TestChatMalformed(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))
	w := do(h, "POST", "/api/chat", `{"query":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChatInitializing(t *testing.T) {
	u := newUpstream(t)
	u.fail.Store(true)
	h, _ := newTestHandler(t, u)

	w := do(h, "POST", "/api/chat", `{"query":"how many"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["response"] != views.InitializingResponse {
		t.Errorf("response = %q", resp["response"])
	}
}

func TestLogin(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))

	if w := do(h, "POST", "/login", `{"username":"a","password":"b"}`); w.Code != http.StatusOK {
		t.Errorf("login status = %d, want 200", w.Code)
	}
	if w := do(h, "POST", "/login", `{"username":"a"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", w.Code)
	}
}

func TestAPOD(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))
	w := do(h, "GET", "/api/apod", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var apod neows.APOD
	json.NewDecoder(w.Body).Decode(&apod)
	if apod.Title != "Pillars" {
		t.Errorf("apod = %+v", apod)
	}
}

func TestReadyzFollowsFeedCache(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))

	if w := do(h, "GET", "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load = %d, want 503", w.Code)
	}
	do(h, "GET", "/api/asteroids", "")
	if w := do(h, "GET", "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("readyz after load = %d, want 200", w.Code)
	}
}

func TestCacheStats(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))
	do(h, "GET", "/api/map-data", "")
	do(h, "GET", "/api/alerts", "")

	w := do(h, "GET", "/api/cache/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %v, want feed and apod", stats)
	}
	feed := stats[0]
	if feed["name"] != "feed" || feed["populated"] != true {
		t.Errorf("feed stats = %v", feed)
	}
	if feed["loads"] != float64(1) || feed["hits"] != float64(1) {
		t.Errorf("feed loads/hits = %v/%v, want 1/1", feed["loads"], feed["hits"])
	}
	if stats[1]["populated"] != false {
		t.Errorf("apod stats = %v, want unpopulated", stats[1])
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandler(t, newUpstream(t))
	w := do(h, "OPTIONS", "/api/chat", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestFormatAge(t *testing.T) {
	if got := FormatAge(500 * time.Millisecond); got != "just now" {
		t.Errorf("FormatAge(500ms) = %q", got)
	}
	if got := FormatAge(65 * time.Second); got != "1 minute 5 seconds" {
		t.Errorf("FormatAge(65s) = %q", got)
	}
}
