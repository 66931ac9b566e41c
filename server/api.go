package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrAuthorizationDenied = errors.New("authorization was denied")

type Config struct {
	// RedirectURI is the registered redirect of the app, the listener binds to its host and port
	// and serves the capture page on its path.
	RedirectURI *url.URL
}

// Capture is what the capture page posts back after Twitch redirected the browser.
type Capture struct {
	AccessToken      string `json:"access_token"`
	Scope            string `json:"scope"`
	State            string `json:"state"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// pendingCapture is a posted result waiting for Capture to accept or reject it.
type pendingCapture struct {
	Capture
	accepted chan bool
}

type API struct {
	logger zerolog.Logger
	conf   Config

	captures chan pendingCapture
}

func New(logger zerolog.Logger, config Config) *API {
	return &API{
		logger:   logger,
		conf:     config,
		captures: make(chan pendingCapture),
	}
}

func (a *API) Handler() http.Handler {
	return router(a.logger, a)
}

// Launch serves the auth surface until ctx is cancelled.
func (a *API) Launch(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.conf.RedirectURI.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.conf.RedirectURI.Host, err)
	}

	return a.serve(ctx, ln)
}

func (a *API) serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		WriteTimeout:   time.Second * 15,
		ReadTimeout:    time.Second * 15,
		IdleTimeout:    time.Second * 60,
		MaxHeaderBytes: 8 * 1024,
		Handler:        a.Handler(),
	}

	httpSrv.RegisterOnShutdown(func() {
		a.logger.Info().Msg("http shutdown started")
	})

	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		a.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("redirect-uri", a.conf.RedirectURI.String()).
			Msg("starting auth server")

		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	wg.Go(func() error {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*15)
		defer cancel()

		if err := httpSrv.Shutdown(ctx); err != nil {
			return err
		}

		a.logger.Info().Msg("shutdown done")

		return nil
	})

	if err := wg.Wait(); err != nil {
		return err
	}

	return nil
}

// Capture blocks until the page posts a result carrying state. Results with a different state are
// rejected back to the posting page. A denied authorization is returned as ErrAuthorizationDenied.
func (a *API) Capture(ctx context.Context, state string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case c := <-a.captures:
			if c.State != state {
				a.logger.Warn().Msg("rejecting capture with unexpected state")
				c.accepted <- false
				continue
			}

			c.accepted <- true

			if c.Error != "" {
				return "", fmt.Errorf("%w: %s %s", ErrAuthorizationDenied, c.Error, c.ErrorDescription)
			}

			return c.AccessToken, nil
		}
	}
}

func (a *API) getLoggerFrom(ctx context.Context) zerolog.Logger {
	if logger := ctx.Value(loggerKey); logger != nil {
		typed, ok := logger.(zerolog.Logger)

		if ok {
			return typed
		}
	}

	return a.logger
}

func (a *API) callbackPath() string {
	p := a.conf.RedirectURI.Path
	if p == "" {
		p = "/"
	}
	return p
}

func (a *API) tokenPath() string {
	return strings.TrimSuffix(a.callbackPath(), "/") + "/token"
}
