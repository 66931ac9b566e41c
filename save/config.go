package save

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	KeyClientID            = "CLIENT_ID_OF_APP"
	KeyRedirectURI         = "REDIRECT_URI_OF_APP"
	KeyEventSubURL         = "EVENTSUB_WEBSOCKET_URL"
	KeyGitHubURL           = "GITHUB_URL"
	KeyBotToken            = "BOT_OAUTH_TOKEN"
	KeyBotUserID           = "BOT_USER_ID"
	KeyBotUsername         = "BOT_USERNAME"
	KeyBroadcasterToken    = "STREAMER_OAUTH_TOKEN"
	KeyBroadcasterUserID   = "STREAMER_USER_ID"
	KeyBroadcasterUsername = "STREAMER_USERNAME"

	DefaultEventSubURL = "wss://eventsub.wss.twitch.tv/ws"
)

var (
	ErrMissingSetting = errors.New("missing required setting")
	ErrInvalidSetting = errors.New("invalid setting")
)

type Config struct {
	ClientID    string
	RedirectURI string // as configured, empty when not set
	EventSubURL string
	GitHubURL   string

	Bot         AccountSettings
	Broadcaster AccountSettings
}

// AccountSettings holds what the settings file knows about one account.
// Any of the fields may be empty, the credential provider fills the gaps: a missing id is
// looked up by username or, without one, taken from the token owner.
type AccountSettings struct {
	Token    string
	UserID   string
	Username string
}

// ConfigFromStore builds the bot configuration from a loaded settings store.
func ConfigFromStore(s *EnvStore) (Config, error) {
	conf := Config{
		ClientID:    strings.TrimSpace(s.Get(KeyClientID)),
		EventSubURL: strings.TrimSpace(s.Get(KeyEventSubURL)),
		GitHubURL:   strings.TrimSpace(s.Get(KeyGitHubURL)),
		Bot: AccountSettings{
			Token:    strings.TrimSpace(s.Get(KeyBotToken)),
			UserID:   strings.TrimSpace(s.Get(KeyBotUserID)),
			Username: strings.TrimSpace(s.Get(KeyBotUsername)),
		},
		Broadcaster: AccountSettings{
			Token:    strings.TrimSpace(s.Get(KeyBroadcasterToken)),
			UserID:   strings.TrimSpace(s.Get(KeyBroadcasterUserID)),
			Username: strings.TrimSpace(s.Get(KeyBroadcasterUsername)),
		},
	}

	if conf.ClientID == "" {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingSetting, KeyClientID)
	}

	if conf.EventSubURL == "" {
		conf.EventSubURL = DefaultEventSubURL
	}

	if u, err := url.Parse(conf.EventSubURL); err != nil || (u.Scheme != "wss" && u.Scheme != "ws") {
		return Config{}, fmt.Errorf("%w: %s must be a ws:// or wss:// URL", ErrInvalidSetting, KeyEventSubURL)
	}

	if raw := strings.TrimSpace(s.Get(KeyRedirectURI)); raw != "" {
		if _, err := ParseRedirectURI(raw); err != nil {
			return Config{}, err
		}
		conf.RedirectURI = raw
	}

	return conf, nil
}

// ParseRedirectURI validates the OAuth redirect target. The local auth listener
// binds to its host and port, so it has to be a plain http URL with a host.
// The URL is returned as parsed, Twitch compares the redirect_uri byte for byte.
func ParseRedirectURI(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, KeyRedirectURI, err)
	}

	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s must be an http URL with a host, got %q", ErrInvalidSetting, KeyRedirectURI, raw)
	}

	return u, nil
}
