package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flutterbye/platform/internal/observability"
)

var errBufferFull = errors.New("realtime: send buffer full")

// Hub owns every live connection and the topic subscriber sets. Broadcast
// ordering is fixed at the point the hub accepts an event, so frames from one
// sender reach each subscriber in the order they were sent; fan-out itself is
// best-effort per connection.
type Hub struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	conns  map[string]*Conn
	topics map[string]map[string]*Conn
}

// NewHub constructs a Hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		conns:   map[string]*Conn{},
		topics:  map[string]map[string]*Conn{},
	}
}

// Register moves a connection into the open state and starts serving it.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	c.open()
	h.metrics.WSConnectionOpened()
}

// Unregister releases every subscription for the connection and closes it.
// Later broadcasts will not see the connection. Safe against double calls.
func (h *Hub) Unregister(id string, final State) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
		for topic, subs := range h.topics {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close(final)
	h.metrics.WSConnectionClosed()
}

// Subscribe adds the connection to a topic.
func (h *Hub) Subscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = map[string]*Conn{}
		h.topics[topic] = subs
	}
	subs[c.ID] = c
}

// Unsubscribe removes the connection from a topic.
func (h *Hub) Unsubscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscribed reports whether the connection is subscribed to the topic.
func (h *Hub) Subscribed(c *Conn, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.topics[topic][c.ID]
	return ok
}

// Broadcast delivers the frame to every subscriber of the topic. A full
// buffer or a closed connection drops that subscriber's copy only.
func (h *Hub) Broadcast(topic string, frame any) {
	h.mu.Lock()
	subs := make([]*Conn, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		subs = append(subs, c)
	}
	h.mu.Unlock()

	for _, c := range subs {
		if err := c.enqueue(frame); err != nil && h.logger != nil {
			h.logger.Debug("drop frame",
				slog.String("conn", c.ID),
				slog.String("topic", topic),
				slog.Any("error", err))
		}
	}
}

// Send delivers a frame to one connection only.
func (h *Hub) Send(c *Conn, frame any) {
	if err := c.enqueue(frame); err != nil && h.logger != nil {
		h.logger.Debug("drop frame", slog.String("conn", c.ID), slog.Any("error", err))
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// SweepIdle closes connections without activity inside the timeout.
func (h *Hub) SweepIdle(now time.Time, timeout time.Duration) int {
	h.mu.Lock()
	var stale []string
	for id, c := range h.conns {
		if now.Sub(c.LastActivity()) > timeout {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.Unregister(id, StateClosed)
	}
	if len(stale) > 0 && h.logger != nil {
		h.logger.Info("closed idle connections", slog.Int("count", len(stale)))
	}
	return len(stale)
}
