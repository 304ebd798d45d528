package server

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/hub"
	"github.com/tradewatch/trading-assistant/internal/protocol"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// wsClient adapts one websocket connection to the hub's Conn interface.
// The transport owns the connection lifetime: the read pump is the sole
// cancellation path, and its exit unregisters the client.
type wsClient struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	log  *zap.Logger

	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newWSClient(conn *websocket.Conn, h *hub.Hub, log *zap.Logger) *wsClient {
	return &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		hub:  h,
		log:  log,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *wsClient) ID() string { return c.id }

// Send enqueues a message for the write pump. A closed client reports
// disconnected; a full buffer reports an error, and the hub prunes the
// connection rather than letting a slow reader stall broadcasts.
func (c *wsClient) Send(msg []byte) hub.SendResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return hub.SendDisconnected
	}
	select {
	case c.send <- msg:
		return hub.SendOK
	default:
		return hub.SendError
	}
}

func (c *wsClient) start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump is the per-connection receive loop. Malformed messages get an
// error reply and the loop continues; only transport errors or a close
// frame end it.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.reply(protocol.ErrorMessage{Type: protocol.TypeError, Message: "invalid JSON"})
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *wsClient) handleMessage(msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.TypeSubscribeSymbol:
		symbol := normalizeSymbol(msg.Symbol)
		if symbol == "" {
			c.reply(protocol.ErrorMessage{Type: protocol.TypeError, Message: "missing symbol"})
			return
		}
		c.hub.Subscribe(c.id, symbol)
		c.reply(protocol.Ack{Type: protocol.TypeSubscribed, Symbol: symbol})

	case protocol.TypeUnsubscribeSymbol:
		symbol := normalizeSymbol(msg.Symbol)
		if symbol == "" {
			c.reply(protocol.ErrorMessage{Type: protocol.TypeError, Message: "missing symbol"})
			return
		}
		c.hub.Unsubscribe(c.id, symbol)
		c.reply(protocol.Ack{Type: protocol.TypeUnsubscribed, Symbol: symbol})

	case protocol.TypeRequestRealtimeData:
		symbols := make([]string, 0, len(msg.Symbols))
		for _, s := range msg.Symbols {
			if sym := normalizeSymbol(s); sym != "" {
				c.hub.Subscribe(c.id, sym)
				symbols = append(symbols, sym)
			}
		}
		c.reply(protocol.BulkAck{Type: protocol.TypeRealtimeDataSubscribed, Symbols: symbols})

	default:
		c.reply(protocol.ErrorMessage{Type: protocol.TypeError, Message: "unknown message type: " + msg.Type})
	}
}

func (c *wsClient) reply(v any) {
	c.hub.SendTo(c.id, protocol.Marshal(v))
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
