package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// sendBuffer bounds how far one subscriber may lag before it is
	// considered dead.
	sendBuffer = 256

	writeWait = 10 * time.Second
)

// Client is one live websocket subscriber. Frames flow hub -> send channel
// -> WritePump; inbound frames are consumed by ReadPump purely as a
// liveness signal.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  hub,
	}
}

// ReadPump drains client frames until the connection drops. The payloads
// are ignored; a read error is the disconnect signal.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.logger.Debugw("subscriber read ended", "client", c.id, "error", err)
			return
		}
	}
}

// WritePump forwards queued frames to the connection. It exits when the hub
// closes the send channel or the peer stops accepting writes.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.logger.Warnw("subscriber write failed", "client", c.id, "error", err)
			c.hub.Unregister(c)
			return
		}
	}
}
