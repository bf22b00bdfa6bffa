// Package neows is the client for NASA's Near Earth Object Web Service feed
// and the Astronomy Picture of the Day endpoint.
package neows

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultFeedURL = "https://api.nasa.gov/neo/rest/v1/feed"
	DefaultAPODURL = "https://api.nasa.gov/planetary/apod"

	// DemoKey is NASA's public placeholder key. It is heavily rate-limited
	// and must not carry production traffic.
	DemoKey = "DEMO_KEY"

	maxBodyBytes = 50 << 20
)

// Config configures the upstream endpoints.
type Config struct {
	FeedURL   string
	APODURL   string
	APIKey    string
	StartDate string // YYYY-MM-DD, optional
	EndDate   string // YYYY-MM-DD, optional
	Timeout   time.Duration
}

// Fetcher retrieves feed and APOD documents from the NASA API.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. Empty fields fall back to the public defaults.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	if cfg.APODURL == "" {
		cfg.APODURL = DefaultAPODURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DemoKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger = logger.With("component", "neows")
	if cfg.APIKey == DemoKey {
		logger.Warn("using NASA DEMO_KEY; requests are rate-limited and unsuitable for production")
	}
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// FeedURL returns the feed request URL with the access key redacted.
func (f *Fetcher) FeedURL() string {
	return redactURL(f.feedRequestURL())
}

// FetchFeed performs one GET against the feed endpoint.
func (f *Fetcher) FetchFeed(ctx context.Context) (*Snapshot, error) {
	target := f.feedRequestURL()
	body, err := f.get(ctx, "fetch feed", target)
	if err != nil {
		return nil, err
	}

	feed, err := DecodeFeed(body)
	if err != nil {
		return nil, &UpstreamFetchError{Op: "fetch feed", URL: redactURL(target), Err: err}
	}

	f.logger.Info("fetched feed",
		"element_count", feed.ElementCount,
		"dates", len(feed.NearEarthObjects),
		"bytes", len(body),
	)
	return &Snapshot{Raw: body, Feed: feed}, nil
}

// FetchAPOD performs one GET against the APOD endpoint.
func (f *Fetcher) FetchAPOD(ctx context.Context) (*APOD, error) {
	target := withQuery(f.cfg.APODURL, url.Values{"api_key": {f.cfg.APIKey}})
	body, err := f.get(ctx, "fetch apod", target)
	if err != nil {
		return nil, err
	}

	apod, err := DecodeAPOD(body)
	if err != nil {
		return nil, &UpstreamFetchError{Op: "fetch apod", URL: redactURL(target), Err: err}
	}
	return apod, nil
}

func (f *Fetcher) feedRequestURL() string {
	q := url.Values{"api_key": {f.cfg.APIKey}}
	if f.cfg.StartDate != "" {
		q.Set("start_date", f.cfg.StartDate)
	}
	if f.cfg.EndDate != "" {
		q.Set("end_date", f.cfg.EndDate)
	}
	return withQuery(f.cfg.FeedURL, q)
}

func (f *Fetcher) get(ctx context.Context, op, target string) ([]byte, error) {
	safeURL := redactURL(target)
	fail := func(status int, err error) error {
		f.logger.Error("upstream request failed", "op", op, "url", safeURL, "status", status, "error", err)
		return &UpstreamFetchError{Op: op, URL: safeURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fail(0, errors.Wrap(err, "creating request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, errors.Wrap(stripURL(err), "sending request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, errors.Errorf("unexpected status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fail(resp.StatusCode, errors.Wrap(err, "reading response body"))
	}
	if len(body) > maxBodyBytes {
		return nil, fail(resp.StatusCode, errors.Errorf("response exceeds %d byte limit", maxBodyBytes))
	}

	return body, nil
}

// withQuery merges q into the query string of base.
func withQuery(base string, q url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	existing := u.Query()
	for k, vs := range q {
		existing[k] = vs
	}
	u.RawQuery = existing.Encode()
	return u.String()
}

// stripURL unwraps *url.Error so the access key never reaches logs or clients.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return errors.Errorf("%s: %v", ue.Op, ue.Err)
	}
	return err
}
