package realtime

import (
	"sync"

	"go.uber.org/zap"

	"mfgstream/internal/metrics"
)

// Hub owns the set of live subscriber connections. Membership changes only
// under the hub's lock; callers never iterate the set directly.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	logger *zap.SugaredLogger
	m      *metrics.PipelineMetrics
}

func NewHub(logger *zap.SugaredLogger, m *metrics.PipelineMetrics) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger,
		m:       m,
	}
}

// Register adds a client whose handshake has completed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	if h.m != nil {
		h.m.LiveSubscribers.Inc()
	}
	h.logger.Infow("subscriber registered", "client", c.id, "subscribers", len(h.clients))
}

// Unregister removes a client and closes its send channel. Removing an
// absent client is a no-op, so disconnect paths may race freely.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(c)
}

func (h *Hub) unregisterLocked(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.m != nil {
		h.m.LiveSubscribers.Dec()
	}
	h.logger.Infow("subscriber unregistered", "client", c.id, "subscribers", len(h.clients))
}

// Broadcast queues msg for every registered client. Delivery to one
// subscriber is independent of the others: a dead or slow client is dropped
// and removed, and the failure never propagates past this call.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
			// delivered
		default:
			// dead or slow client -> remove so it cannot stall the rest
			if h.m != nil {
				h.m.BroadcastDropped.Inc()
			}
			h.logger.Warnw("dropping dead subscriber", "client", client.id)
			h.unregisterLocked(client)
		}
	}
}

// Count returns the number of currently registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
