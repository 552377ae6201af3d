// Package live provides a Go client for the /ws/live feed. It maintains
// the connection for its whole lifetime: a dropped connection is redialed
// after a fixed interval, so consumers see a gap in the stream rather than
// an error.
package live

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"mfgstream/internal/model"
)

// Client subscribes to the live test-result feed.
type Client struct {
	url    string
	logger *zap.SugaredLogger

	dialTimeout   time.Duration
	retryInterval time.Duration
	pingInterval  time.Duration

	envelopes chan model.Envelope
}

// NewClient prepares a client for ws://host/ws/live. Run starts the feed.
func NewClient(url string, logger *zap.SugaredLogger) *Client {
	return &Client{
		url:           url,
		logger:        logger,
		dialTimeout:   10 * time.Second,
		retryInterval: 5 * time.Second,
		pingInterval:  20 * time.Second,
		envelopes:     make(chan model.Envelope, 64),
	}
}

// Envelopes streams decoded frames. The channel is closed when Run returns.
func (c *Client) Envelopes() <-chan model.Envelope {
	return c.envelopes
}

// Run dials and reads until ctx is cancelled, redialing after the retry
// interval whenever the connection drops.
func (c *Client) Run(ctx context.Context) {
	defer close(c.envelopes)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.readOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warnw("live feed disconnected, redialing", "error", err, "retry_in", c.retryInterval)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryInterval):
		}
	}
}

func (c *Client) readOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.logger.Infow("live feed connected", "url", c.url)

	// outbound pings keep intermediaries from timing the socket out; the
	// server ignores the payloads
	pingCtx, stopPings := context.WithCancel(ctx)
	defer stopPings()
	go c.keepAlive(pingCtx, conn)

	for {
		var env model.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}

		select {
		case c.envelopes <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}
