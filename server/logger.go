package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type ctxKeyLogger int

const loggerKey ctxKeyLogger = 0

// requestLogger logs one access line per request. Only the path is logged, request bodies
// on the token endpoint carry credentials.
func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t := time.Now()

			log := logger.With().Logger()

			if id := middleware.GetReqID(r.Context()); id != "" {
				log = log.With().Str("request_id", id).Logger()
			}

			ctx := context.WithValue(r.Context(), loggerKey, log)
			r = r.WithContext(ctx)

			defer func() {
				log.Debug().
					Str("remote_ip", r.RemoteAddr).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(t)).
					Int("bytes_out", ww.BytesWritten()).
					Msg("incoming_request")
			}()

			next.ServeHTTP(ww, r)
		}

		return http.HandlerFunc(fn)
	}
}
