package eventsub

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MessageTypeWelcome      = "session_welcome"
	MessageTypeKeepalive    = "session_keepalive"
	MessageTypeNotification = "notification"
	MessageTypeReconnect    = "session_reconnect"
	MessageTypeRevocation   = "revocation"
)

// SubscriptionType is the EventSub event kind, e.g. channel.chat.message.
type SubscriptionType string

const (
	SubscriptionChatMessage      SubscriptionType = "channel.chat.message"
	SubscriptionChannelSubscribe SubscriptionType = "channel.subscribe"
	SubscriptionChannelFollow    SubscriptionType = "channel.follow"
)

// Version returns the subscription version this client understands.
func (s SubscriptionType) Version() string {
	switch s {
	case SubscriptionChannelFollow:
		return "2"
	default:
		return "1"
	}
}

type Metadata struct {
	MessageID           string           `json:"message_id"`
	MessageType         string           `json:"message_type"`
	MessageTimeStamp    time.Time        `json:"message_timestamp"`
	SubscriptionType    SubscriptionType `json:"subscription_type"`
	SubscriptionVersion string           `json:"subscription_version"`
}

type untypedMessagePayload struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Message is one inbound envelope. It is one of Welcome, Keepalive, Notification or Other.
type Message interface {
	Meta() Metadata
	isMessage()
}

type (
	Welcome struct {
		Metadata Metadata
		Session  Session
	}

	Keepalive struct {
		Metadata Metadata
	}

	Notification struct {
		Metadata     Metadata
		Subscription Subscription
		Event        Event
	}

	// Other is any message type this client does not act on (reconnect, revocation, future types).
	Other struct {
		Metadata Metadata
		Payload  json.RawMessage
	}
)

func (m Welcome) Meta() Metadata      { return m.Metadata }
func (m Keepalive) Meta() Metadata    { return m.Metadata }
func (m Notification) Meta() Metadata { return m.Metadata }
func (m Other) Meta() Metadata        { return m.Metadata }

func (Welcome) isMessage()      {}
func (Keepalive) isMessage()    {}
func (Notification) isMessage() {}
func (Other) isMessage()        {}

type (
	SessionPayload struct {
		Session Session `json:"session"`
	}
	Session struct {
		ID                      string    `json:"id"`
		Status                  string    `json:"status"`
		ConnectedAt             time.Time `json:"connected_at"`
		KeepaliveTimeoutSeconds int       `json:"keepalive_timeout_seconds"`
		ReconnectURL            string    `json:"reconnect_url"`
	}
)

type notificationPayload struct {
	Subscription Subscription    `json:"subscription"`
	Event        json.RawMessage `json:"event"`
}

type Transport struct {
	Method    string `json:"method"`
	SessionID string `json:"session_id"`
}

type Subscription struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Type      SubscriptionType  `json:"type"`
	Version   string            `json:"version"`
	Cost      int               `json:"cost"`
	Condition map[string]string `json:"condition"`
	Transport Transport         `json:"transport"`
	CreatedAt time.Time         `json:"created_at"`
}

// Event is the payload of a notification. It is one of ChatMessageEvent,
// SubscribeEvent, FollowEvent or UnknownEvent.
type Event interface {
	isEvent()
}

type (
	// https://dev.twitch.tv/docs/eventsub/eventsub-subscription-types/#channelchatmessage
	ChatMessageEvent struct {
		BroadcasterUserID    string      `json:"broadcaster_user_id"`
		BroadcasterUserLogin string      `json:"broadcaster_user_login"`
		BroadcasterUserName  string      `json:"broadcaster_user_name"`
		ChatterUserID        string      `json:"chatter_user_id"`
		ChatterUserLogin     string      `json:"chatter_user_login"`
		ChatterUserName      string      `json:"chatter_user_name"`
		MessageID            string      `json:"message_id"`
		Message              ChatMessage `json:"message"`
		MessageType          string      `json:"message_type"`
	}
	ChatMessage struct {
		Text string `json:"text"`
	}

	// https://dev.twitch.tv/docs/eventsub/eventsub-subscription-types/#channelsubscribe
	SubscribeEvent struct {
		UserID               string `json:"user_id"`
		UserLogin            string `json:"user_login"`
		UserName             string `json:"user_name"`
		BroadcasterUserID    string `json:"broadcaster_user_id"`
		BroadcasterUserLogin string `json:"broadcaster_user_login"`
		BroadcasterUserName  string `json:"broadcaster_user_name"`
		Tier                 string `json:"tier"`
		IsGift               bool   `json:"is_gift"`
	}

	// https://dev.twitch.tv/docs/eventsub/eventsub-subscription-types/#channelfollow
	FollowEvent struct {
		UserID               string    `json:"user_id"`
		UserLogin            string    `json:"user_login"`
		UserName             string    `json:"user_name"`
		BroadcasterUserID    string    `json:"broadcaster_user_id"`
		BroadcasterUserLogin string    `json:"broadcaster_user_login"`
		BroadcasterUserName  string    `json:"broadcaster_user_name"`
		FollowedAt           time.Time `json:"followed_at"`
	}

	UnknownEvent struct {
		Type SubscriptionType
		Raw  json.RawMessage
	}
)

func (ChatMessageEvent) isEvent() {}
func (SubscribeEvent) isEvent()   {}
func (FollowEvent) isEvent()      {}
func (UnknownEvent) isEvent()     {}

// Decode parses a raw websocket frame into a Message.
// Unknown message types are returned as Other, unknown subscription types as a Notification
// carrying an UnknownEvent. Only frames that are not valid envelopes return an error.
func Decode(data []byte) (Message, error) {
	var untyped untypedMessagePayload
	if err := json.Unmarshal(data, &untyped); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	switch untyped.Metadata.MessageType {
	case MessageTypeWelcome:
		payload, err := decodePayload[SessionPayload](untyped.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to session welcome: %w", err)
		}
		return Welcome{Metadata: untyped.Metadata, Session: payload.Session}, nil
	case MessageTypeKeepalive:
		return Keepalive{Metadata: untyped.Metadata}, nil
	case MessageTypeNotification:
		return decodeNotification(untyped)
	default:
		return Other{Metadata: untyped.Metadata, Payload: untyped.Payload}, nil
	}
}

func decodeNotification(untyped untypedMessagePayload) (Message, error) {
	payload, err := decodePayload[notificationPayload](untyped.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to notification: %w", err)
	}

	subType := untyped.Metadata.SubscriptionType
	if subType == "" {
		subType = payload.Subscription.Type
	}

	var event Event
	switch subType {
	case SubscriptionChatMessage:
		event, err = decodePayload[ChatMessageEvent](payload.Event)
	case SubscriptionChannelSubscribe:
		event, err = decodePayload[SubscribeEvent](payload.Event)
	case SubscriptionChannelFollow:
		event, err = decodePayload[FollowEvent](payload.Event)
	default:
		event = UnknownEvent{Type: subType, Raw: payload.Event}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to convert %s event: %w", subType, err)
	}

	return Notification{
		Metadata:     untyped.Metadata,
		Subscription: payload.Subscription,
		Event:        event,
	}, nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var typed T

	if len(raw) == 0 {
		return typed, fmt.Errorf("payload is empty")
	}

	if err := json.Unmarshal(raw, &typed); err != nil {
		return typed, err
	}

	return typed, nil
}
