package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/observ"
)

// SendResult reports the outcome of a single send so the hub can decide
// per-result whether to prune the connection, instead of callers
// swallowing transport errors.
type SendResult int

const (
	SendOK SendResult = iota
	SendDisconnected
	SendError
)

// Conn is the hub's view of a client connection. The transport layer
// owns the connection's lifetime; the hub only references it by ID.
type Conn interface {
	ID() string
	Send(msg []byte) SendResult
}

// Hub owns the active connection set and the symbol subscription map.
// All map access is serialized behind one RWMutex; broadcasts snapshot
// the subscriber list under the read lock and send outside it, so a
// slow client write never blocks new subscriptions.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
	subs  map[string]map[string]struct{} // symbol -> set of conn IDs

	log *zap.Logger
}

// New creates an empty hub.
func New(log *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		subs:  make(map[string]map[string]struct{}),
		log:   log,
	}
}

// Register adds a connection to the active set. Re-registering the same
// ID replaces the stored handle.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	active := len(h.conns)
	h.mu.Unlock()

	observ.SetGauge("hub_active_connections", float64(active), nil)
	h.log.Debug("connection registered", zap.String("conn_id", c.ID()))
}

// Unregister removes a connection from the active set and from every
// symbol's subscriber set. Idempotent.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	for sym, set := range h.subs {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.subs, sym)
		}
	}
	active := len(h.conns)
	h.mu.Unlock()

	observ.SetGauge("hub_active_connections", float64(active), nil)
	h.log.Debug("connection unregistered", zap.String("conn_id", connID))
}

// Subscribe adds the connection to the symbol's subscriber set.
// Subscribing twice is a no-op; an unknown connection is ignored.
func (h *Hub) Subscribe(connID, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, known := h.conns[connID]; !known {
		return
	}
	set, ok := h.subs[symbol]
	if !ok {
		set = make(map[string]struct{})
		h.subs[symbol] = set
	}
	set[connID] = struct{}{}
}

// Unsubscribe removes the connection from the symbol's subscriber set.
// Unsubscribing a non-member is a no-op.
func (h *Hub) Unsubscribe(connID, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[symbol]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(h.subs, symbol)
	}
}

// IsSubscribed reports membership in a symbol's subscriber set.
func (h *Hub) IsSubscribed(connID, symbol string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[symbol][connID]
	return ok
}

// ActiveConnections returns the size of the active set.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SendTo delivers a message to one connection, best-effort. A failed
// send is treated as an implicit disconnect and never surfaces to the
// caller.
func (h *Hub) SendTo(connID string, msg []byte) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if res := c.Send(msg); res != SendOK {
		h.pruneFailed(connID, res)
	}
}

// BroadcastToSymbol delivers a message to every current subscriber of
// the symbol. A failure for one subscriber prunes that connection and
// delivery to the rest continues.
func (h *Hub) BroadcastToSymbol(symbol string, msg []byte) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.subs[symbol]))
	for connID := range h.subs[symbol] {
		if c, ok := h.conns[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if res := c.Send(msg); res != SendOK {
			h.pruneFailed(c.ID(), res)
		}
	}
	observ.IncCounterBy("hub_broadcasts_total", map[string]string{"symbol": symbol}, float64(len(targets)))
}

func (h *Hub) pruneFailed(connID string, res SendResult) {
	observ.IncCounter("hub_send_failures_total", map[string]string{
		"result": sendResultLabel(res),
	})
	h.log.Debug("pruning connection after failed send", zap.String("conn_id", connID))
	h.Unregister(connID)
}

func sendResultLabel(res SendResult) string {
	switch res {
	case SendDisconnected:
		return "disconnected"
	case SendError:
		return "error"
	default:
		return "ok"
	}
}
