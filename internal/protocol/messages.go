package protocol

import "encoding/json"

// Client->engine message types.
const (
	TypeSubscribeSymbol     = "subscribe_symbol"
	TypeUnsubscribeSymbol   = "unsubscribe_symbol"
	TypeRequestRealtimeData = "request_realtime_data"
)

// Engine->client message types.
const (
	TypeSubscribed             = "subscribed"
	TypeUnsubscribed           = "unsubscribed"
	TypeRealtimeDataSubscribed = "realtime_data_subscribed"
	TypePriceUpdate            = "price_update"
	TypeError                  = "error"
)

// ClientMessage is an inbound duplex-channel message. Symbol is set for
// single-symbol commands, Symbols for request_realtime_data.
type ClientMessage struct {
	Type    string   `json:"type"`
	Symbol  string   `json:"symbol,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// Ack acknowledges a subscribe/unsubscribe command.
type Ack struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// BulkAck acknowledges a request_realtime_data command.
type BulkAck struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// ErrorMessage reports a malformed or unknown client message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PriceUpdate is the per-symbol market snapshot broadcast to subscribers.
type PriceUpdate struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
	High24h   float64 `json:"high_24h"`
	Low24h    float64 `json:"low_24h"`
	Timestamp string  `json:"timestamp"`
}

// Marshal encodes a message, ignoring errors: every message type here
// marshals cleanly, and the send path treats empty payloads as no-ops.
func Marshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
