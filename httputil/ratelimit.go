package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxRateLimitWait caps how long a request waits for the Helix bucket to refill.
const DefaultMaxRateLimitWait = 10 * time.Second

// RateLimitRetry retries a request once when Helix answers 429 with a Ratelimit-Reset header.
// Resets further away than MaxWait hand the 429 back to the caller.
type RateLimitRetry struct {
	rt      http.RoundTripper
	logger  zerolog.Logger
	MaxWait time.Duration
}

func NewRateLimitRetry(rt http.RoundTripper, logger zerolog.Logger) *RateLimitRetry {
	if rt == nil {
		rt = http.DefaultTransport
	}

	return &RateLimitRetry{
		rt:      rt,
		logger:  logger,
		MaxWait: DefaultMaxRateLimitWait,
	}
}

func (t *RateLimitRetry) RoundTrip(req *http.Request) (*http.Response, error) {
	retry, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.rt.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}

	wait, ok := resetWait(resp.Header.Get("Ratelimit-Reset"))
	if !ok || wait > t.MaxWait {
		return resp, nil
	}

	t.logger.Warn().Str("path", req.URL.Path).Dur("wait", wait).Msg("rate limited, waiting for reset")

	_ = resp.Body.Close()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return t.rt.RoundTrip(retry)
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

// resetWait turns the unix timestamp of Ratelimit-Reset into a wait duration with a second of slack.
func resetWait(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}

	reset, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return 0, false
	}

	return max(time.Until(time.Unix(reset, 0))+time.Second, 0), true
}

// rewindable returns a clone of req whose body can be sent again.
func rewindable(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())

	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
		return clone, nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()

	req.Body = io.NopCloser(bytes.NewReader(data))
	clone.Body = io.NopCloser(bytes.NewReader(data))

	return clone, nil
}
