package neows

import (
	"fmt"
	"net/url"
)

// UpstreamFetchError reports a failed request against the NASA API: transport
// errors, non-2xx statuses, oversized bodies and undecodable payloads.
type UpstreamFetchError struct {
	Op         string
	URL        string // access key redacted
	StatusCode int    // zero when no response was received
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// redactURL hides the api_key query value so URLs are safe to log and return.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
