// Package identity answers who a user access token belongs to and resolves logins to account ids.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/rs/zerolog"
	"resenje.org/singleflight"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrUserNotFound = errors.New("user not found")
)

type Validation struct {
	ClientID  string
	Login     string
	UserID    string
	Scopes    []string
	ExpiresIn time.Duration
}

type Client struct {
	logger     zerolog.Logger
	clientID   string
	httpClient *http.Client

	singleLookup *singleflight.Group[string, string]
}

func NewClient(logger zerolog.Logger, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		logger:       logger,
		clientID:     clientID,
		httpClient:   httpClient,
		singleLookup: &singleflight.Group[string, string]{},
	}
}

// ValidateToken asks the Twitch identity endpoint about token.
// A token Twitch does not accept is reported as ErrInvalidToken.
func (c *Client) ValidateToken(ctx context.Context, token string) (Validation, error) {
	if err := ctx.Err(); err != nil {
		return Validation{}, err
	}

	client, err := c.newHelix("")
	if err != nil {
		return Validation{}, err
	}

	valid, resp, err := client.ValidateToken(token)
	if err != nil {
		return Validation{}, fmt.Errorf("helix: ValidateToken: %w", err)
	}

	if !valid {
		return Validation{}, fmt.Errorf("%w (%d): %s", ErrInvalidToken, resp.StatusCode, resp.ErrorMessage)
	}

	return Validation{
		ClientID:  resp.Data.ClientID,
		Login:     resp.Data.Login,
		UserID:    resp.Data.UserID,
		Scopes:    resp.Data.Scopes,
		ExpiresIn: time.Duration(resp.Data.ExpiresIn) * time.Second,
	}, nil
}

// LookupUserID resolves a login name to the account id. Concurrent lookups of the same login
// share one request.
func (c *Client) LookupUserID(ctx context.Context, token, login string) (string, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return "", fmt.Errorf("%w: empty login", ErrUserNotFound)
	}

	id, shared, err := c.singleLookup.Do(ctx, login, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		client, err := c.newHelix(token)
		if err != nil {
			return "", err
		}

		resp, err := client.GetUsers(&helix.UsersParams{
			Logins: []string{login},
		})
		if err != nil {
			return "", fmt.Errorf("helix: GetUsers: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("helix: GetUsers failed (%d: %s) %s", resp.StatusCode, resp.Error, resp.ErrorMessage)
		}

		if len(resp.Data.Users) == 0 {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, login)
		}

		return resp.Data.Users[0].ID, nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info().Str("login", login).Str("user-id", id).Bool("shared", shared).Msg("resolved user id")

	return id, nil
}

// helix.Client keeps the user token as mutable state, so each call gets its own client.
func (c *Client) newHelix(token string) (*helix.Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:        c.clientID,
		UserAccessToken: token,
		HTTPClient:      c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}

	return client, nil
}
