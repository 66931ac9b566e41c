package bot

import (
	"context"

	"github.com/julez-dev/eventbot/twitch/eventsub"
	"github.com/rs/zerolog"
)

type Sender interface {
	Send(ctx context.Context, text string) error
}

type RoleRegistrar interface {
	RegisterRole(ctx context.Context, role Role) ([]Subscription, error)
}

// Spawner starts f without blocking the caller, errgroup.Group satisfies it.
type Spawner interface {
	Go(f func() error)
}

type DispatcherConfig struct {
	Replies   Replies
	GitHubURL string
}

// Dispatcher routes the messages of one transport. Welcome moves the session to ready and starts
// registration, notifications are matched against the rules of the role.
type Dispatcher struct {
	logger    zerolog.Logger
	session   *Session
	registrar RoleRegistrar
	sender    Sender
	tasks     Spawner
	conf      DispatcherConfig
}

func NewDispatcher(logger zerolog.Logger, session *Session, registrar RoleRegistrar, sender Sender, tasks Spawner, conf DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		session:   session,
		registrar: registrar,
		sender:    sender,
		tasks:     tasks,
		conf:      conf,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg eventsub.Message) {
	switch msg := msg.(type) {
	case eventsub.Welcome:
		d.handleWelcome(ctx, msg)
	case eventsub.Notification:
		if state := d.session.State(); state != StateReady {
			d.logger.Warn().
				Str("state", state.String()).
				Str("message-id", msg.Metadata.MessageID).
				Msg("notification on a session that is not ready, ignoring")
			return
		}

		d.handleNotification(ctx, msg)
	case eventsub.Keepalive:
	default:
		d.logger.Debug().Str("message-type", msg.Meta().MessageType).Msg("ignoring message")
	}
}

func (d *Dispatcher) handleWelcome(ctx context.Context, msg eventsub.Welcome) {
	role := d.session.Role()

	if !d.session.Establish(msg.Session.ID) {
		id, state := d.session.Snapshot()
		d.logger.Warn().
			Str("session-id", id).
			Str("new-session-id", msg.Session.ID).
			Str("state", state.String()).
			Msg("ignoring welcome for established session")
		return
	}

	d.logger.Info().Str("session-id", msg.Session.ID).Msg("session established")

	d.tasks.Go(func() error {
		if _, err := d.registrar.RegisterRole(ctx, role); err != nil {
			d.logger.Error().Err(err).Msg("failed to register subscriptions")
			return err
		}
		return nil
	})
}

func (d *Dispatcher) handleNotification(ctx context.Context, msg eventsub.Notification) {
	role := d.session.Role()

	switch event := msg.Event.(type) {
	case eventsub.ChatMessageEvent:
		if role != RoleBot {
			break
		}

		d.logger.Info().
			Str("channel", event.BroadcasterUserLogin).
			Str("chatter", event.ChatterUserLogin).
			Str("text", event.Message.Text).
			Msgf("MSG #%s <%s> %s", event.BroadcasterUserLogin, event.ChatterUserLogin, event.Message.Text)

		for _, reply := range d.conf.Replies.ForChat(event.Message.Text, event.ChatterUserName, d.conf.GitHubURL) {
			d.send(ctx, reply)
		}
		return
	case eventsub.SubscribeEvent:
		if role != RoleBroadcaster {
			break
		}

		d.logger.Info().
			Str("channel", event.BroadcasterUserLogin).
			Str("user", event.UserLogin).
			Str("tier", event.Tier).
			Bool("gift", event.IsGift).
			Msgf("SUB #%s <%s>", event.BroadcasterUserLogin, event.UserLogin)

		d.send(ctx, d.conf.Replies.ForSubscribe(event.UserName))
		return
	case eventsub.FollowEvent:
		if role != RoleBroadcaster {
			break
		}

		d.logger.Info().
			Str("channel", event.BroadcasterUserLogin).
			Str("user", event.UserLogin).
			Msgf("FOLLOW #%s <%s>", event.BroadcasterUserLogin, event.UserLogin)

		d.send(ctx, d.conf.Replies.ForFollow(event.UserName))
		return
	}

	d.logger.Debug().
		Str("subscription-type", string(msg.Metadata.SubscriptionType)).
		Str("message-id", msg.Metadata.MessageID).
		Msg("event not handled by this role")
}

// send failures are logged only, a lost message does not stop the bot
func (d *Dispatcher) send(ctx context.Context, text string) {
	d.tasks.Go(func() error {
		if err := d.sender.Send(ctx, text); err != nil {
			d.logger.Error().Err(err).Str("message", text).Msg("failed to send chat message")
		}
		return nil
	})
}
