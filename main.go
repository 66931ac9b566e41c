package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/julez-dev/eventbot/bot"
	"github.com/julez-dev/eventbot/credential"
	"github.com/julez-dev/eventbot/httputil"
	"github.com/julez-dev/eventbot/save"
	"github.com/julez-dev/eventbot/twitch"
	"github.com/julez-dev/eventbot/twitch/identity"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

func init() {
	browser.Stderr = io.Discard
	browser.Stdout = io.Discard
}

func main() {
	app := &cli.Command{
		Name:        "eventbot",
		Description: "Twitch chat bot driven by EventSub",
		Usage:       "Answer chat commands, follows and subs in a Twitch channel",
		Authors: []any{
			&mail.Address{
				Name:    "julez-dev",
				Address: "julez-dev@pm.me",
			},
		},
		Commands: []*cli.Command{
			versionCMD,
			accountCMD,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Usage:   "Path of the .env settings file, captured tokens and ids are written back to it",
				Value:   save.DefaultEnvFile,
				Sources: cli.EnvVars("EVENTBOT_SETTINGS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "One of trace, debug, info, warn, error",
				Value:   "info",
				Sources: cli.EnvVars("EVENTBOT_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Only print the authorization URL instead of opening it",
			},
			&cli.DurationFlag{
				Name:  "dedup-window",
				Usage: "Drop redelivered notifications seen within this window, 0 disables it",
				Value: 0,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, err := setupLogger(command.String("log-level"))
			if err != nil {
				return err
			}

			httpClient := newHTTPClient(logger)

			conf, creds, err := loadCredentials(ctx, logger, command, httpClient)
			if err != nil {
				return err
			}

			botAPI, err := twitch.NewAPI(conf.ClientID, twitch.WithUserAccessToken(creds.bot.Token), twitch.WithHTTPClient(httpClient))
			if err != nil {
				return fmt.Errorf("failed to create bot API client: %w", err)
			}

			broadcasterAPI, err := twitch.NewAPI(conf.ClientID, twitch.WithUserAccessToken(creds.broadcaster.Token), twitch.WithHTTPClient(httpClient))
			if err != nil {
				return fmt.Errorf("failed to create broadcaster API client: %w", err)
			}

			b := bot.New(logger, bot.Config{
				EventSubURL:       conf.EventSubURL,
				BotUserID:         creds.bot.UserID,
				BroadcasterUserID: creds.broadcaster.UserID,
				GitHubURL:         conf.GitHubURL,
				DedupWindow:       command.Duration("dedup-window"),
			}, bot.Dependencies{
				HTTPClient:     httpClient,
				BotAPI:         botAPI,
				BroadcasterAPI: broadcasterAPI,
			})

			logger.Info().
				Str("bot", creds.bot.Login).
				Str("broadcaster", creds.broadcaster.Login).
				Str("eventsub-url", conf.EventSubURL).
				Msg("starting bot")

			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			logger.Info().Msg("bot stopped")
			return nil
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error while running eventbot: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return logger, nil
}

func newHTTPClient(logger zerolog.Logger) *http.Client {
	logger = logger.With().Str("component", "http").Logger()

	return &http.Client{
		Transport: httputil.NewLoggingRoundTrip(httputil.NewRateLimitRetry(http.DefaultTransport, logger), logger, Version),
	}
}

type accountCredentials struct {
	bot         credential.Credentials
	broadcaster credential.Credentials
}

// loadCredentials reads the settings file and makes sure both accounts have a valid token and user id.
func loadCredentials(ctx context.Context, logger zerolog.Logger, command *cli.Command, httpClient *http.Client) (save.Config, accountCredentials, error) {
	store := save.NewEnvStore(afero.NewOsFs(), command.String("settings"))
	if err := store.Load(); err != nil {
		return save.Config{}, accountCredentials{}, fmt.Errorf("failed to load settings: %w", err)
	}

	conf, err := save.ConfigFromStore(store)
	if err != nil {
		return save.Config{}, accountCredentials{}, fmt.Errorf("invalid settings in %s: %w", store.Path(), err)
	}

	provider := credential.NewProvider(
		logger.With().Str("component", "credential").Logger(),
		conf.ClientID,
		store,
		identity.NewClient(logger.With().Str("component", "identity").Logger(), conf.ClientID, httpClient),
		credential.NewLoopbackAuthorizer(logger.With().Str("component", "auth").Logger(), conf.ClientID, conf.RedirectURI, !command.Bool("no-browser")),
	)

	botCreds, err := provider.Ensure(ctx, credential.BotAccount)
	if err != nil {
		return save.Config{}, accountCredentials{}, err
	}

	broadcasterCreds, err := provider.Ensure(ctx, credential.BroadcasterAccount)
	if err != nil {
		return save.Config{}, accountCredentials{}, err
	}

	return conf, accountCredentials{bot: botCreds, broadcaster: broadcasterCreds}, nil
}
