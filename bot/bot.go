// Package bot runs the two EventSub sessions and reacts to chat, subscribe and follow events.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julez-dev/eventbot/twitch/eventsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrTransportClosed = errors.New("transport closed")

type Config struct {
	EventSubURL       string
	BotUserID         string
	BroadcasterUserID string
	GitHubURL         string

	// KeepaliveGrace is the slack on top of the keepalive timeout Twitch announces, zero keeps the default.
	KeepaliveGrace time.Duration
	// DedupWindow drops redelivered notifications within the window, zero disables it.
	DedupWindow time.Duration

	Replies Replies
}

type Dependencies struct {
	HTTPClient *http.Client

	// BotAPI and BroadcasterAPI carry the token of their account, chat messages are always sent with BotAPI.
	BotAPI interface {
		SubscriptionCreator
		ChatMessageSender
	}
	BroadcasterAPI SubscriptionCreator
}

type Bot struct {
	logger   zerolog.Logger
	conf     Config
	deps     Dependencies
	sessions map[Role]*Session
}

func New(logger zerolog.Logger, conf Config, deps Dependencies) *Bot {
	if conf.Replies == (Replies{}) {
		conf.Replies = DefaultReplies()
	}

	sessions := make(map[Role]*Session, len(roles))
	for _, role := range roles {
		sessions[role] = NewSession(role)
	}

	return &Bot{
		logger:   logger,
		conf:     conf,
		deps:     deps,
		sessions: sessions,
	}
}

func (b *Bot) Session(role Role) *Session {
	return b.sessions[role]
}

// Run connects both roles and blocks until one of them fails. A failed registration or a closed
// transport ends the whole bot, there is no reconnect. This also cancels the role that was still
// healthy: left running alone it would keep answering some events while silently missing the others,
// so the bot stops and the operator restarts it.
func (b *Bot) Run(ctx context.Context) error {
	wg, ctx := errgroup.WithContext(ctx)

	registrar := NewRegistrar(
		b.logger.With().Str("component", "registrar").Logger(),
		b.sessions,
		map[Role]SubscriptionCreator{
			RoleBot:         b.deps.BotAPI,
			RoleBroadcaster: b.deps.BroadcasterAPI,
		},
		b.conf.BotUserID,
		b.conf.BroadcasterUserID,
	)

	sender := NewChatSender(b.logger.With().Str("component", "chat").Logger(), b.deps.BotAPI, b.conf.BroadcasterUserID, b.conf.BotUserID)

	for _, role := range roles {
		logger := b.logger.With().Str("role", role.String()).Logger()
		session := b.sessions[role]

		dispatcher := NewDispatcher(logger, session, registrar, sender, wg, DispatcherConfig{
			Replies:   b.conf.Replies,
			GitHubURL: b.conf.GitHubURL,
		})

		conn := eventsub.NewConn(logger, b.conf.EventSubURL, b.deps.HTTPClient)
		if b.conf.KeepaliveGrace > 0 {
			conn.KeepaliveGrace = b.conf.KeepaliveGrace
		}
		conn.DedupWindow = b.conf.DedupWindow
		conn.HandleMessage = dispatcher.Dispatch

		wg.Go(func() error {
			err := conn.Run(ctx)
			session.Close()

			if ctx.Err() != nil {
				return ctx.Err()
			}

			logger.Error().Err(err).Msg("eventsub transport closed")
			return fmt.Errorf("%w: %s: %w", ErrTransportClosed, role, err)
		})
	}

	return wg.Wait()
}
