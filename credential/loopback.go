package credential

import (
	"context"
	"fmt"

	"github.com/cli/browser"
	"github.com/google/uuid"
	"github.com/julez-dev/eventbot/save"
	"github.com/julez-dev/eventbot/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LoopbackAuthorizer runs the implicit grant flow against a local listener on the redirect URI.
type LoopbackAuthorizer struct {
	logger      zerolog.Logger
	clientID    string
	redirectURI string

	// OpenBrowser opens the authorize URL. When nil the URL is only logged.
	OpenBrowser func(url string) error
	newState    func() string
}

// NewLoopbackAuthorizer expects redirectURI as registered with the app, it is sent to Twitch unchanged.
func NewLoopbackAuthorizer(logger zerolog.Logger, clientID string, redirectURI string, openBrowser bool) *LoopbackAuthorizer {
	a := &LoopbackAuthorizer{
		logger:      logger,
		clientID:    clientID,
		redirectURI: redirectURI,
		newState:    uuid.NewString,
	}

	if openBrowser {
		a.OpenBrowser = browser.OpenURL
	}

	return a
}

func (a *LoopbackAuthorizer) Authorize(ctx context.Context, account Account) (string, error) {
	if a.redirectURI == "" {
		return "", fmt.Errorf("%w: %s is required to authorize the %s account", save.ErrMissingSetting, save.KeyRedirectURI, account.Name)
	}

	listenURI, err := save.ParseRedirectURI(a.redirectURI)
	if err != nil {
		return "", err
	}

	state := a.newState()
	authURL := server.AuthorizeURL(a.clientID, a.redirectURI, account.Scopes, state)
	api := server.New(a.logger.With().Str("component", "auth-server").Logger(), server.Config{RedirectURI: listenURI})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return api.Launch(ctx)
	})

	var token string
	wg.Go(func() error {
		// stops the server once a token arrived
		defer cancel()

		a.logger.Info().Str("url", authURL).Msgf("open the URL in your browser and authorize the %s account", account.Name)

		if a.OpenBrowser != nil {
			if err := a.OpenBrowser(authURL); err != nil {
				a.logger.Warn().Err(err).Msg("could not open browser")
			}
		}

		captured, err := api.Capture(ctx, state)
		if err != nil {
			return err
		}

		token = captured
		return nil
	})

	if err := wg.Wait(); err != nil {
		return "", err
	}

	return token, nil
}
