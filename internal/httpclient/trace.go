package httpclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type traceTransport struct {
	base http.RoundTripper
	name string
}

// NewTraceTransport returns a RoundTripper that logs requests at trace level.
func NewTraceTransport(name string, base http.RoundTripper) http.RoundTripper {
	return &traceTransport{
		base: base,
		name: name,
	}
}

// NewTraceClient returns an HTTP client that logs requests at trace level.
func NewTraceClient(name string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTraceTransport(name, nil),
	}
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	urlStr := redactURL(req.URL)
	start := time.Now()

	resp, err := base.RoundTrip(req)
	if err != nil {
		log.Trace().
			Str("client", t.name).
			Str("method", req.Method).
			Str("url", urlStr).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("HTTP request failed")
		return nil, err
	}

	log.Trace().
		Str("client", t.name).
		Str("method", req.Method).
		Str("url", urlStr).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")

	return resp, nil
}

// redactURL hides credentials in the query string and the path tail of
// webhook URLs (Discord keeps its token there).
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	redacted := *u
	redacted.User = nil
	if strings.Contains(redacted.Path, "/webhooks/") {
		if i := strings.LastIndex(redacted.Path, "/"); i > 0 {
			redacted.Path = redacted.Path[:i] + "/redacted"
			redacted.RawPath = ""
		}
	}

	if redacted.RawQuery != "" {
		q := redacted.Query()
		for key := range q {
			if isSensitiveQueryKey(key) {
				q.Set(key, "redacted")
			}
		}
		redacted.RawQuery = q.Encode()
	}
	return redacted.String()
}

func isSensitiveQueryKey(key string) bool {
	switch strings.ToLower(key) {
	case "apikey", "api_key", "api-key", "key", "token", "access_token", "secret", "password":
		return true
	default:
		return false
	}
}
