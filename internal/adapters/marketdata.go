package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MarketData provides already-fetched market observations for tracked
// symbols. Implementations own rate limits and provider plumbing; the
// engine only consumes tickers.
type MarketData interface {
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)
}

// Ticker is a normalized 24h market snapshot for one symbol.
type Ticker struct {
	Symbol       string    `json:"symbol"`
	Last         float64   `json:"last"`
	ChangePct24h float64   `json:"change_pct_24h"`
	Volume24h    float64   `json:"volume_24h"`
	High24h      float64   `json:"high_24h"`
	Low24h       float64   `json:"low_24h"`
	Timestamp    time.Time `json:"timestamp"`
}

// ValidateTicker rejects malformed tickers fail-closed before they reach
// the engine.
func ValidateTicker(t *Ticker) error {
	if t == nil {
		return fmt.Errorf("ticker is nil")
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if t.Last <= 0 {
		return fmt.Errorf("invalid last price: %.8f", t.Last)
	}
	if t.Volume24h < 0 {
		return fmt.Errorf("negative volume: %.2f", t.Volume24h)
	}
	if t.High24h < t.Low24h {
		return fmt.Errorf("invalid range: high(%.8f) < low(%.8f)", t.High24h, t.Low24h)
	}
	return nil
}

// MarketDataError classifies collaborator failures so callers can log
// and degrade without inspecting provider internals.
type MarketDataError struct {
	Type    string // "network", "rate_limit", "bad_symbol", "provider_error"
	Symbol  string
	Message string
	Cause   error
}

func (e *MarketDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *MarketDataError) Unwrap() error { return e.Cause }

func NewNetworkError(symbol, message string, cause error) *MarketDataError {
	return &MarketDataError{Type: "network", Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(symbol, message string) *MarketDataError {
	return &MarketDataError{Type: "bad_symbol", Symbol: symbol, Message: message}
}

func NewProviderError(symbol, message string, cause error) *MarketDataError {
	return &MarketDataError{Type: "provider_error", Symbol: symbol, Message: message, Cause: cause}
}
