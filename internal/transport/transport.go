package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxWait     = 2 * time.Minute
	defaultMaxAttempts = 5
)

// RateLimitedTransport retries requests that were answered with 429 Too Many Requests, honoring the server's
// retry-after header. Other responses are returned untouched
type RateLimitedTransport struct {
	base        http.RoundTripper
	logger      zerolog.Logger
	maxWait     time.Duration
	maxAttempts int
}

type Option func(*RateLimitedTransport)

// WithLogger sets the logger that rate limit waits are reported to
func WithLogger(logger zerolog.Logger) Option {
	return func(t *RateLimitedTransport) {
		t.logger = logger
	}
}

// WithMaxWait caps a single wait. A retry-after longer than this is not honored and the 429 is returned as-is
func WithMaxWait(d time.Duration) Option {
	return func(t *RateLimitedTransport) {
		t.maxWait = d
	}
}

// WithMaxAttempts caps the number of requests sent for a single round trip
func WithMaxAttempts(n int) Option {
	return func(t *RateLimitedTransport) {
		t.maxAttempts = n
	}
}

func WithRateLimiting(base http.RoundTripper, opts ...Option) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &RateLimitedTransport{
		base:        base,
		logger:      zerolog.Nop(),
		maxWait:     defaultMaxWait,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		// Restore the request body for each attempt
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxAttempts {
			return resp, nil
		}

		waitDuration := retryAfter(resp.Header.Get("retry-after"))
		if waitDuration <= 0 || waitDuration > t.maxWait {
			return resp, nil
		}

		// Close the response body to free resources
		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		t.logger.Warn().
			Str("host", req.URL.Host).
			Dur("wait", waitDuration).
			Int("attempt", attempt).
			Msg("Rate limited, waiting")
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(waitDuration):
		}
	}
}

// retryAfter parses a retry-after header given either in seconds or as an HTTP date. Zero means no usable value
func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := http.ParseTime(value); err == nil {
		return time.Until(retryTime)
	}
	return 0
}
