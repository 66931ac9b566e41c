package httputil

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type RoundTripperFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// LoggingRoundTrip sets the bot's User-Agent and logs every outgoing request.
// Query strings are never logged, header values neither.
type LoggingRoundTrip struct {
	rt      http.RoundTripper
	logger  zerolog.Logger
	version string
}

func NewLoggingRoundTrip(rt http.RoundTripper, logger zerolog.Logger, userAgentVersion string) *LoggingRoundTrip {
	return &LoggingRoundTrip{
		rt:      rt,
		logger:  logger,
		version: userAgentVersion,
	}
}

func (t *LoggingRoundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := t.rt

	if rt == nil {
		rt = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", fmt.Sprintf("eventbot/%s", t.version))

	now := time.Now()
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.logger.Error().Err(err).Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Msg("error while making request")
		return nil, err
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("took", time.Since(now)).
		Int("status", resp.StatusCode).Msg("request made")

	return resp, nil
}

// RedirectTo returns a transport sending every request to target (scheme and host) instead of
// the requested host, keeping path and query. It is used to point fixed API hosts at a local server.
func RedirectTo(rt http.RoundTripper, scheme, host string) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}

	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req = req.Clone(req.Context())
		req.URL.Scheme = scheme
		req.URL.Host = host
		req.Host = host
		return rt.RoundTrip(req)
	})
}
