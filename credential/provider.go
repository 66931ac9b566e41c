// Package credential makes sure every account the bot acts as has a valid token and a known user id.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julez-dev/eventbot/save"
	"github.com/julez-dev/eventbot/twitch/identity"
	"github.com/rs/zerolog"
)

var (
	ErrMissingToken    = errors.New("token is missing")
	ErrAccountMismatch = errors.New("token belongs to a different account")
)

// Account describes where the settings of one account live and which scopes its token needs.
type Account struct {
	Name        string
	TokenKey    string
	UserIDKey   string
	UsernameKey string
	Scopes      []string
}

var (
	BotAccount = Account{
		Name:        "bot",
		TokenKey:    save.KeyBotToken,
		UserIDKey:   save.KeyBotUserID,
		UsernameKey: save.KeyBotUsername,
		Scopes:      []string{"user:bot", "user:read:chat", "user:write:chat", "moderator:read:followers"},
	}
	BroadcasterAccount = Account{
		Name:        "broadcaster",
		TokenKey:    save.KeyBroadcasterToken,
		UserIDKey:   save.KeyBroadcasterUserID,
		UsernameKey: save.KeyBroadcasterUsername,
		Scopes:      []string{"channel:read:subscriptions", "moderator:read:followers"},
	}
)

type Credentials struct {
	Token  string
	UserID string
	Login  string
}

type Store interface {
	Get(key string) string
	Set(key, value string) error
}

type Identity interface {
	ValidateToken(ctx context.Context, token string) (identity.Validation, error)
	LookupUserID(ctx context.Context, token, login string) (string, error)
}

// Authorizer obtains a new user token for account, usually with the help of the user.
type Authorizer interface {
	Authorize(ctx context.Context, account Account) (string, error)
}

type Provider struct {
	logger     zerolog.Logger
	clientID   string
	store      Store
	identity   Identity
	authorizer Authorizer
}

// NewProvider creates a Provider. authorizer may be nil, a missing token is then an error.
func NewProvider(logger zerolog.Logger, clientID string, store Store, identity Identity, authorizer Authorizer) *Provider {
	return &Provider{
		logger:     logger,
		clientID:   clientID,
		store:      store,
		identity:   identity,
		authorizer: authorizer,
	}
}

// Ensure returns validated credentials for account. A missing token is obtained through the
// authorizer and persisted, a missing user id is looked up and persisted.
func (p *Provider) Ensure(ctx context.Context, account Account) (Credentials, error) {
	logger := p.logger.With().Str("account", account.Name).Logger()

	token := p.store.Get(account.TokenKey)
	if token == "" {
		if p.authorizer == nil {
			return Credentials{}, fmt.Errorf("%w: %s", ErrMissingToken, account.TokenKey)
		}

		logger.Info().Str("key", account.TokenKey).Msg("no token configured, starting authorization")

		captured, err := p.authorizer.Authorize(ctx, account)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to authorize %s account: %w", account.Name, err)
		}

		if err := p.store.Set(account.TokenKey, captured); err != nil {
			return Credentials{}, fmt.Errorf("failed to persist %s: %w", account.TokenKey, err)
		}

		token = captured
	}

	validation, err := p.identity.ValidateToken(ctx, token)
	if err != nil {
		return Credentials{}, fmt.Errorf("%s is not valid: %w", account.TokenKey, err)
	}

	logger.Info().Str("login", validation.Login).Dur("expires-in", validation.ExpiresIn).Msgf("validated %s", account.TokenKey)

	if p.clientID != "" && validation.ClientID != "" && validation.ClientID != p.clientID {
		logger.Warn().Msg("token was issued for a different client id")
	}

	username := p.store.Get(account.UsernameKey)
	if username != "" && !strings.EqualFold(username, validation.Login) {
		return Credentials{}, fmt.Errorf("%w: %s is configured as %q but the token is for %q", ErrAccountMismatch, account.UsernameKey, username, validation.Login)
	}

	userID := p.store.Get(account.UserIDKey)
	if userID == "" {
		userID, err = p.resolveUserID(ctx, token, username, validation)
		if err != nil {
			return Credentials{}, err
		}

		if err := p.store.Set(account.UserIDKey, userID); err != nil {
			return Credentials{}, fmt.Errorf("failed to persist %s: %w", account.UserIDKey, err)
		}

		logger.Info().Str("user-id", userID).Str("key", account.UserIDKey).Msg("stored user id")
	} else if validation.UserID != "" && validation.UserID != userID {
		logger.Warn().Str("configured", userID).Str("token", validation.UserID).Msgf("%s does not match the token owner", account.UserIDKey)
	}

	return Credentials{
		Token:  token,
		UserID: userID,
		Login:  validation.Login,
	}, nil
}

func (p *Provider) resolveUserID(ctx context.Context, token, username string, validation identity.Validation) (string, error) {
	if username == "" {
		if validation.UserID == "" {
			return "", fmt.Errorf("%w: token validation returned no user id", identity.ErrUserNotFound)
		}
		return validation.UserID, nil
	}

	id, err := p.identity.LookupUserID(ctx, token, username)
	if err != nil {
		return "", fmt.Errorf("failed to look up user id of %s: %w", username, err)
	}

	return id, nil
}
