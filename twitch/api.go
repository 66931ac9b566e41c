package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrNoUserAccess = errors.New("user endpoint called when no token was provided")
	// ErrMalformedResponse is returned with a zero value when the request itself succeeded
	// but the body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response body")
)

const baseURL = "https://api.twitch.tv/helix"

type APIOptionFunc func(api *API) error

func WithHTTPClient(client *http.Client) APIOptionFunc {
	return func(api *API) error {
		api.client = client
		return nil
	}
}

// WithBaseURL overrides the Helix base URL, e.g. for tests or a local mock server.
func WithBaseURL(u string) APIOptionFunc {
	return func(api *API) error {
		if u == "" {
			return fmt.Errorf("base url must not be empty")
		}
		api.baseURL = strings.TrimSuffix(u, "/")
		return nil
	}
}

// WithUserAccessToken sets the bearer token every request of this API is sent with.
func WithUserAccessToken(token string) APIOptionFunc {
	return func(api *API) error {
		api.accessToken = token
		return nil
	}
}

// API is a minimal Helix client bound to a single user access token.
type API struct {
	client      *http.Client
	baseURL     string
	accessToken string
	clientID    string
}

func NewAPI(clientID string, opts ...APIOptionFunc) (*API, error) {
	api := &API{
		clientID: clientID,
		baseURL:  baseURL,
	}

	for _, f := range opts {
		if err := f(api); err != nil {
			return nil, err
		}
	}

	if api.client == nil {
		api.client = http.DefaultClient
	}

	return api, nil
}

// CreateEventSubSubscription creates a subscription. Twitch answers 202 Accepted on success,
// any other status is returned as APIError.
// https://dev.twitch.tv/docs/api/reference/#create-eventsub-subscription
func (a *API) CreateEventSubSubscription(ctx context.Context, reqData CreateEventSubSubscriptionRequest) (CreateEventSubSubscriptionResponse, error) {
	if a.accessToken == "" {
		return CreateEventSubSubscriptionResponse{}, ErrNoUserAccess
	}

	reqBytes, err := json.Marshal(reqData)
	if err != nil {
		return CreateEventSubSubscriptionResponse{}, err
	}

	resp, err := doAuthenticatedRequest[CreateEventSubSubscriptionResponse](ctx, a, http.MethodPost, "/eventsub/subscriptions", reqBytes, http.StatusAccepted)
	if err != nil {
		return CreateEventSubSubscriptionResponse{}, err
	}

	return resp, nil
}

// SendChatMessage sends a chat message as SenderID. Success is 200 OK, note that
// Twitch may still drop the message, see SendChatMessageData.IsSent.
// https://dev.twitch.tv/docs/api/reference/#send-chat-message
func (a *API) SendChatMessage(ctx context.Context, data SendChatMessageRequest) (SendChatMessageResponse, error) {
	if a.accessToken == "" {
		return SendChatMessageResponse{}, ErrNoUserAccess
	}

	body, err := json.Marshal(data)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	resp, err := doAuthenticatedRequest[SendChatMessageResponse](ctx, a, http.MethodPost, "/chat/messages", body, http.StatusOK)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	return resp, nil
}

func doAuthenticatedRequest[T any](ctx context.Context, api *API, method, endpoint string, body []byte, wantStatus int) (T, error) {
	var data T

	url := fmt.Sprintf("%s%s", api.baseURL, endpoint)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return data, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", api.accessToken))
	req.Header.Set("Client-Id", api.clientID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := api.client.Do(req)
	if err != nil {
		return data, err
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return data, err
	}

	if resp.StatusCode != wantStatus {
		return data, newAPIError(resp.StatusCode, respBody)
	}

	if len(respBody) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(respBody, &data); err != nil {
		return data, fmt.Errorf("%w of %s %s: %w", ErrMalformedResponse, method, endpoint, err)
	}

	return data, nil
}

func newAPIError(status int, body []byte) APIError {
	apiErr := APIError{}

	// not every error body is json, the raw body is kept either way
	_ = json.Unmarshal(body, &apiErr)

	apiErr.Status = status
	apiErr.Body = string(body)

	return apiErr
}
