package eventsub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

const (
	maxMessageSize        = 5 * 1024 * 1024 // 5MB
	dialTimeout           = 30 * time.Second
	DefaultKeepaliveGrace = 10 * time.Second
)

var ErrKeepaliveTimeout = errors.New("no message received within keepalive timeout")

// Conn is a single EventSub websocket session. It does not reconnect,
// once Run returns the session is over for good.
type Conn struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
	closed     atomic.Bool

	// KeepaliveGrace is added to the keepalive_timeout_seconds announced in the welcome message.
	// The connection is considered dead if no message arrives within that window.
	KeepaliveGrace time.Duration

	// DedupWindow enables dropping notifications whose message_id was already delivered
	// within the window. Zero disables the filter.
	DedupWindow time.Duration

	// HandleMessage is called on the read goroutine for every decoded message, in arrival order.
	HandleMessage func(ctx context.Context, msg Message)
}

func NewConn(logger zerolog.Logger, url string, httpClient *http.Client) *Conn {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Conn{
		url:            url,
		httpClient:     httpClient,
		logger:         logger,
		KeepaliveGrace: DefaultKeepaliveGrace,
		HandleMessage:  func(ctx context.Context, msg Message) {},
	}
}

// Closed reports whether Run has returned.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Run dials the websocket and reads until the context is cancelled, the server closes the
// connection or the keepalive window expires. Malformed frames are logged and skipped.
func (c *Conn) Run(ctx context.Context) error {
	defer c.closed.Store(true)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	ws, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}

	defer ws.Close(websocket.StatusNormalClosure, "consuming done")
	ws.SetReadLimit(maxMessageSize)

	c.logger.Info().Str("url", c.url).Msg("eventsub connection opened")

	var duplicate *ttlcache.Cache[string, struct{}]
	if c.DedupWindow > 0 {
		duplicate = ttlcache.New(
			ttlcache.WithTTL[string, struct{}](c.DedupWindow),
		)
		go duplicate.Start()
		defer duplicate.Stop()
	}

	var readTimeout time.Duration
	for {
		readCtx, cancelRead := ctx, context.CancelFunc(func() {})
		if readTimeout > 0 {
			readCtx, cancelRead = context.WithTimeout(ctx, readTimeout)
		}

		_, data, err := ws.Read(readCtx)
		expired := readCtx.Err() != nil
		cancelRead()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if expired {
				return fmt.Errorf("%w (%s)", ErrKeepaliveTimeout, readTimeout)
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		msg, err := Decode(data)
		if err != nil {
			c.logger.Debug().Err(err).Msg("skipping malformed eventsub message")
			continue
		}

		switch msg := msg.(type) {
		case Welcome:
			if msg.Session.KeepaliveTimeoutSeconds > 0 {
				readTimeout = time.Duration(msg.Session.KeepaliveTimeoutSeconds)*time.Second + c.KeepaliveGrace
			}
			c.logger.Info().Str("session-id", msg.Session.ID).Dur("keepalive", readTimeout).Msg("session_welcome")
		case Keepalive:
			c.logger.Debug().Str("message-id", msg.Metadata.MessageID).Msg("session_keepalive")
		case Notification:
			if duplicate != nil {
				if duplicate.Has(msg.Metadata.MessageID) {
					c.logger.Debug().Str("message-id", msg.Metadata.MessageID).Msg("dropping redelivered notification")
					continue
				}
				duplicate.Set(msg.Metadata.MessageID, struct{}{}, ttlcache.DefaultTTL)
			}
		case Other:
			c.logger.Info().Str("message-type", msg.Metadata.MessageType).Msg("unhandled message type")
		}

		c.HandleMessage(ctx, msg)
	}
}
