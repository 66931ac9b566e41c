package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/julez-dev/eventbot/twitch"
	"github.com/julez-dev/eventbot/twitch/eventsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrSessionNotReady = errors.New("session is not ready")

type SubscriptionStatus int

const (
	SubscriptionPending SubscriptionStatus = iota
	SubscriptionActive
	SubscriptionFailed
)

func (s SubscriptionStatus) String() string {
	switch s {
	case SubscriptionPending:
		return "pending"
	case SubscriptionActive:
		return "active"
	case SubscriptionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Subscription struct {
	ID        string
	Kind      eventsub.SubscriptionType
	Condition map[string]string
	SessionID string
	Status    SubscriptionStatus
}

// RegistrationError is returned when Twitch did not accept a subscription. It is fatal for the bot.
type RegistrationError struct {
	Role   Role
	Kind   eventsub.SubscriptionType
	Status int
	Body   string
	Err    error
}

func (e RegistrationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to register %s for %s (status %d): %s", e.Kind, e.Role, e.Status, e.Body)
	}

	return fmt.Sprintf("failed to register %s for %s: %v", e.Kind, e.Role, e.Err)
}

func (e RegistrationError) Unwrap() error {
	return e.Err
}

type SubscriptionCreator interface {
	CreateEventSubSubscription(ctx context.Context, reqData twitch.CreateEventSubSubscriptionRequest) (twitch.CreateEventSubSubscriptionResponse, error)
}

// Registrar creates the EventSub subscriptions of a role once its session is ready.
// Every role registers with its own token.
type Registrar struct {
	logger   zerolog.Logger
	sessions map[Role]*Session
	creators map[Role]SubscriptionCreator

	botUserID         string
	broadcasterUserID string
}

func NewRegistrar(logger zerolog.Logger, sessions map[Role]*Session, creators map[Role]SubscriptionCreator, botUserID, broadcasterUserID string) *Registrar {
	return &Registrar{
		logger:            logger,
		sessions:          sessions,
		creators:          creators,
		botUserID:         botUserID,
		broadcasterUserID: broadcasterUserID,
	}
}

// Register issues one subscription request for role, delivered to the role's session.
// Nothing is sent while the session is not ready.
func (r *Registrar) Register(ctx context.Context, role Role, kind eventsub.SubscriptionType, condition map[string]string) (Subscription, error) {
	session, ok := r.sessions[role]
	if !ok {
		return Subscription{}, fmt.Errorf("no session for role %s", role)
	}

	creator, ok := r.creators[role]
	if !ok {
		return Subscription{}, fmt.Errorf("no subscription creator for role %s", role)
	}

	sessionID, state := session.Snapshot()

	sub := Subscription{
		Kind:      kind,
		Condition: condition,
		SessionID: sessionID,
		Status:    SubscriptionPending,
	}

	if state != StateReady {
		sub.Status = SubscriptionFailed
		return sub, fmt.Errorf("%w: %s session is %s", ErrSessionNotReady, role, state)
	}

	resp, err := creator.CreateEventSubSubscription(ctx, twitch.CreateEventSubSubscriptionRequest{
		Type:      string(kind),
		Version:   kind.Version(),
		Condition: condition,
		Transport: twitch.EventSubTransportRequest{
			Method:    "websocket",
			SessionID: sessionID,
		},
	})
	if errors.Is(err, twitch.ErrMalformedResponse) {
		// accepted by status, the subscription id is unknown
		r.logger.Warn().Err(err).Str("role", role.String()).Str("type", string(kind)).Msg("subscription accepted with unreadable response")
		err = nil
	}

	if err != nil {
		sub.Status = SubscriptionFailed

		regErr := RegistrationError{Role: role, Kind: kind, Err: err}

		var apiErr twitch.APIError
		if errors.As(err, &apiErr) {
			regErr.Status = apiErr.Status
			regErr.Body = apiErr.Body
		}

		return sub, regErr
	}

	sub.Status = SubscriptionActive
	if len(resp.Data) > 0 {
		sub.ID = resp.Data[0].ID
	}

	r.logger.Info().
		Str("role", role.String()).
		Str("type", string(kind)).
		Str("subscription-id", sub.ID).
		Msg("subscription created")

	return sub, nil
}

// RegisterRole creates all subscriptions role needs. Broadcaster subscriptions are created
// concurrently, every one of them has to succeed.
func (r *Registrar) RegisterRole(ctx context.Context, role Role) ([]Subscription, error) {
	switch role {
	case RoleBot:
		sub, err := r.Register(ctx, role, eventsub.SubscriptionChatMessage, map[string]string{
			"broadcaster_user_id": r.broadcasterUserID,
			"user_id":             r.botUserID,
		})
		if err != nil {
			return nil, err
		}

		return []Subscription{sub}, nil
	case RoleBroadcaster:
		subs := make([]Subscription, 2)
		wg, ctx := errgroup.WithContext(ctx)

		wg.Go(func() error {
			sub, err := r.Register(ctx, role, eventsub.SubscriptionChannelSubscribe, map[string]string{
				"broadcaster_user_id": r.broadcasterUserID,
			})
			subs[0] = sub
			return err
		})

		wg.Go(func() error {
			sub, err := r.Register(ctx, role, eventsub.SubscriptionChannelFollow, map[string]string{
				"broadcaster_user_id": r.broadcasterUserID,
				"moderator_user_id":   r.broadcasterUserID,
			})
			subs[1] = sub
			return err
		})

		if err := wg.Wait(); err != nil {
			return nil, err
		}

		return subs, nil
	default:
		return nil, fmt.Errorf("unknown role %d", role)
	}
}
