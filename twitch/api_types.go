package twitch

import (
	"fmt"
	"time"
)

// error response
type (
	APIError struct {
		ErrorText string `json:"error"`
		Status    int    `json:"status"`
		Message   string `json:"message"`

		// Body is the raw response body as sent by Twitch
		Body string `json:"-"`
	}
)

func (a APIError) Error() string {
	if a.ErrorText == "" && a.Message == "" {
		return fmt.Sprintf("unexpected status (%d): %s", a.Status, a.Body)
	}

	return fmt.Sprintf("%s (%d): %s", a.ErrorText, a.Status, a.Message)
}

// https://dev.twitch.tv/docs/api/reference/#send-chat-message
type (
	SendChatMessageRequest struct {
		BroadcasterID string `json:"broadcaster_id"`
		SenderID      string `json:"sender_id"`
		Message       string `json:"message"`

		ReplyMessageID string `json:"reply_parent_message_id,omitempty"`
	}
	SendChatMessageResponse struct {
		Data []SendChatMessageData `json:"data"`
	}
	SendChatMessageData struct {
		MessageID  string     `json:"message_id"`
		IsSent     bool       `json:"is_sent"`
		DropReason DropReason `json:"drop_reason"`
	}
	DropReason struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// https://dev.twitch.tv/docs/api/reference/#create-eventsub-subscription
type (
	CreateEventSubSubscriptionRequest struct {
		Type      string                   `json:"type"`
		Version   string                   `json:"version"`
		Condition map[string]string        `json:"condition"`
		Transport EventSubTransportRequest `json:"transport"`
	}

	EventSubTransportRequest struct {
		Method    string `json:"method"`
		SessionID string `json:"session_id,omitempty"`
	}

	CreateEventSubSubscriptionResponse struct {
		Data         []EventSubData `json:"data"`
		Total        int            `json:"total"`
		TotalCost    int            `json:"total_cost"`
		MaxTotalCost int            `json:"max_total_cost"`
	}

	EventSubTransport struct {
		Method    string    `json:"method"`
		SessionID string    `json:"session_id"`
		ConnectAt time.Time `json:"connected_at"`
	}

	EventSubData struct {
		ID        string            `json:"id"`
		Status    string            `json:"status"`
		Type      string            `json:"type"`
		Version   string            `json:"version"`
		Condition map[string]string `json:"condition"`
		CreatedAt time.Time         `json:"created_at"`
		Transport EventSubTransport `json:"transport"`
		Cost      int               `json:"cost"`
	}
)
