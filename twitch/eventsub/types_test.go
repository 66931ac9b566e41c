package eventsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("welcome", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"1","message_type":"session_welcome"},"payload":{"session":{"id":"abc","status":"connected","keepalive_timeout_seconds":10}}}`))
		require.NoError(t, err)

		welcome, ok := msg.(Welcome)
		require.True(t, ok)
		require.Equal(t, "abc", welcome.Session.ID)
		require.Equal(t, 10, welcome.Session.KeepaliveTimeoutSeconds)
	})

	t.Run("keepalive", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"2","message_type":"session_keepalive"},"payload":{}}`))
		require.NoError(t, err)
		require.IsType(t, Keepalive{}, msg)
		require.Equal(t, "2", msg.Meta().MessageID)
	})

	t.Run("chat message", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"3","message_type":"notification","subscription_type":"channel.chat.message"},
			"payload":{"subscription":{"id":"s","type":"channel.chat.message","version":"1"},
			"event":{"broadcaster_user_id":"2","chatter_user_id":"9","chatter_user_name":"Viewer","message_id":"m","message":{"text":"!lurk"}}}}`))
		require.NoError(t, err)

		notification, ok := msg.(Notification)
		require.True(t, ok)

		event, ok := notification.Event.(ChatMessageEvent)
		require.True(t, ok)
		require.Equal(t, "!lurk", event.Message.Text)
		require.Equal(t, "Viewer", event.ChatterUserName)
		require.Equal(t, "2", event.BroadcasterUserID)
	})

	t.Run("subscription type falls back to payload", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"4","message_type":"notification"},
			"payload":{"subscription":{"type":"channel.follow","version":"2"},"event":{"user_id":"5","user_name":"Alice"}}}`))
		require.NoError(t, err)

		event, ok := msg.(Notification).Event.(FollowEvent)
		require.True(t, ok)
		require.Equal(t, "Alice", event.UserName)
	})

	t.Run("subscribe", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"5","message_type":"notification","subscription_type":"channel.subscribe"},
			"payload":{"subscription":{"type":"channel.subscribe"},"event":{"user_name":"Bob","tier":"1000","is_gift":true}}}`))
		require.NoError(t, err)

		event, ok := msg.(Notification).Event.(SubscribeEvent)
		require.True(t, ok)
		require.Equal(t, "Bob", event.UserName)
		require.True(t, event.IsGift)
	})

	t.Run("unknown subscription type", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"6","message_type":"notification","subscription_type":"channel.raid"},
			"payload":{"subscription":{"type":"channel.raid"},"event":{"viewers":3}}}`))
		require.NoError(t, err)

		event, ok := msg.(Notification).Event.(UnknownEvent)
		require.True(t, ok)
		require.Equal(t, SubscriptionType("channel.raid"), event.Type)
		require.JSONEq(t, `{"viewers":3}`, string(event.Raw))
	})

	t.Run("unknown message type", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"metadata":{"message_id":"7","message_type":"revocation"},"payload":{"subscription":{}}}`))
		require.NoError(t, err)

		other, ok := msg.(Other)
		require.True(t, ok)
		require.Equal(t, MessageTypeRevocation, other.Metadata.MessageType)
	})

	t.Run("malformed frames", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{
			`not json`,
			`{"metadata":{"message_type":"session_welcome"}}`,
			`{"metadata":{"message_type":"notification","subscription_type":"channel.follow"},"payload":{"event":"nope"}}`,
		} {
			_, err := Decode([]byte(raw))
			require.Error(t, err, raw)
		}
	})
}

func TestSubscriptionType_Version(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1", SubscriptionChatMessage.Version())
	require.Equal(t, "1", SubscriptionChannelSubscribe.Version())
	require.Equal(t, "2", SubscriptionChannelFollow.Version())
}
