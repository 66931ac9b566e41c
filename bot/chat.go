package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/julez-dev/eventbot/twitch"
	"github.com/rs/zerolog"
)

var ErrMessageDropped = errors.New("message was dropped by twitch")

type ChatMessageSender interface {
	SendChatMessage(ctx context.Context, data twitch.SendChatMessageRequest) (twitch.SendChatMessageResponse, error)
}

// ChatSender posts messages into the broadcaster's chat as the bot account.
type ChatSender struct {
	logger        zerolog.Logger
	api           ChatMessageSender
	broadcasterID string
	senderID      string
}

func NewChatSender(logger zerolog.Logger, api ChatMessageSender, broadcasterID, botUserID string) *ChatSender {
	return &ChatSender{
		logger:        logger,
		api:           api,
		broadcasterID: broadcasterID,
		senderID:      botUserID,
	}
}

func (c *ChatSender) Send(ctx context.Context, text string) error {
	resp, err := c.api.SendChatMessage(ctx, twitch.SendChatMessageRequest{
		BroadcasterID: c.broadcasterID,
		SenderID:      c.senderID,
		Message:       text,
	})
	if errors.Is(err, twitch.ErrMalformedResponse) {
		c.logger.Warn().Err(err).Str("message", text).Msg("chat message accepted with unreadable response")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	if len(resp.Data) > 0 && !resp.Data[0].IsSent {
		drop := resp.Data[0].DropReason
		return fmt.Errorf("%w: %s %s", ErrMessageDropped, drop.Code, drop.Message)
	}

	c.logger.Info().Str("message", text).Msg("sent chat message")

	return nil
}
