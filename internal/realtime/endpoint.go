package realtime

import (
	"net/http"
)

// ServeWS upgrades the request and runs the subscriber until it
// disconnects. Registration happens only after a successful handshake, so
// the hub never holds half-open connections.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, hub)
	hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}
