package bot

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/julez-dev/eventbot/twitch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatAPI struct {
	mock.Mock
}

func (m *mockChatAPI) SendChatMessage(ctx context.Context, data twitch.SendChatMessageRequest) (twitch.SendChatMessageResponse, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(twitch.SendChatMessageResponse), args.Error(1)
}

func TestChatSender_Send(t *testing.T) {
	t.Parallel()

	want := twitch.SendChatMessageRequest{BroadcasterID: "broadcaster-id", SenderID: "bot-id", Message: "VoHiYo"}

	t.Run("sent", func(t *testing.T) {
		t.Parallel()

		api := &mockChatAPI{}
		api.On("SendChatMessage", mock.Anything, want).Return(twitch.SendChatMessageResponse{
			Data: []twitch.SendChatMessageData{{MessageID: "m", IsSent: true}},
		}, nil).Once()

		sender := NewChatSender(zerolog.Nop(), api, "broadcaster-id", "bot-id")
		require.NoError(t, sender.Send(context.Background(), "VoHiYo"))
		api.AssertExpectations(t)
	})

	t.Run("dropped", func(t *testing.T) {
		t.Parallel()

		api := &mockChatAPI{}
		api.On("SendChatMessage", mock.Anything, want).Return(twitch.SendChatMessageResponse{
			Data: []twitch.SendChatMessageData{{IsSent: false, DropReason: twitch.DropReason{Code: "msg_duplicate", Message: "duplicate"}}},
		}, nil)

		sender := NewChatSender(zerolog.Nop(), api, "broadcaster-id", "bot-id")
		err := sender.Send(context.Background(), "VoHiYo")

		require.ErrorIs(t, err, ErrMessageDropped)
		require.ErrorContains(t, err, "msg_duplicate")
	})

	t.Run("success status with unreadable body", func(t *testing.T) {
		t.Parallel()

		api := &mockChatAPI{}
		api.On("SendChatMessage", mock.Anything, want).Return(twitch.SendChatMessageResponse{},
			fmt.Errorf("%w of POST /chat/messages: unexpected end of JSON input", twitch.ErrMalformedResponse)).Once()

		sender := NewChatSender(zerolog.Nop(), api, "broadcaster-id", "bot-id")
		require.NoError(t, sender.Send(context.Background(), "VoHiYo"))
		api.AssertExpectations(t)
	})

	t.Run("api error keeps body", func(t *testing.T) {
		t.Parallel()

		api := &mockChatAPI{}
		api.On("SendChatMessage", mock.Anything, want).Return(twitch.SendChatMessageResponse{},
			twitch.APIError{Status: http.StatusUnauthorized, Body: "token expired"})

		sender := NewChatSender(zerolog.Nop(), api, "broadcaster-id", "bot-id")
		err := sender.Send(context.Background(), "VoHiYo")

		var apiErr twitch.APIError
		require.ErrorAs(t, err, &apiErr)
		require.ErrorContains(t, err, "token expired")
	})
}
