package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/adapters"
	"github.com/tradewatch/trading-assistant/internal/protocol"
)

type fakeMarket struct {
	mu      sync.Mutex
	tickers map[string]*adapters.Ticker
	fails   map[string]bool
	panics  bool
}

func (m *fakeMarket) GetTicker(ctx context.Context, symbol string) (*adapters.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panics {
		panic("provider blew up")
	}
	if m.fails[symbol] {
		return nil, errors.New("fetch failed")
	}
	t, ok := m.tickers[symbol]
	if !ok {
		return nil, adapters.NewBadSymbolError(symbol, "unknown")
	}
	return t, nil
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{sent: make(map[string][][]byte)}
}

func (b *fakeBroadcaster) BroadcastToSymbol(symbol string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[symbol] = append(b.sent[symbol], msg)
}

func (b *fakeBroadcaster) count(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent[symbol])
}

type fakeMarks struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (f *fakeMarks) UpdatePrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prices == nil {
		f.prices = make(map[string]float64)
	}
	f.prices[symbol] = price
}

func ticker(symbol string, last float64) *adapters.Ticker {
	return &adapters.Ticker{
		Symbol:    symbol,
		Last:      last,
		High24h:   last * 1.1,
		Low24h:    last * 0.9,
		Volume24h: 1000,
		Timestamp: time.Now().UTC(),
	}
}

func TestPublishCycle_BroadcastsPerSymbol(t *testing.T) {
	market := &fakeMarket{tickers: map[string]*adapters.Ticker{
		"BTC/USDT": ticker("BTC/USDT", 67000),
		"ETH/USDT": ticker("ETH/USDT", 3400),
	}}
	b := newFakeBroadcaster()
	marks := &fakeMarks{}

	p := New(Config{
		Symbols:          []string{"BTC/USDT", "ETH/USDT"},
		FetchesPerSecond: 1000,
	}, market, b, marks, zap.NewNop())

	require.NoError(t, p.publishCycle(context.Background()))

	assert.Equal(t, 1, b.count("BTC/USDT"))
	assert.Equal(t, 1, b.count("ETH/USDT"))
	assert.Equal(t, 67000.0, marks.prices["BTC/USDT"])

	var update protocol.PriceUpdate
	require.NoError(t, json.Unmarshal(b.sent["BTC/USDT"][0], &update))
	assert.Equal(t, protocol.TypePriceUpdate, update.Type)
	assert.Equal(t, 67000.0, update.Price)
}

func TestPublishCycle_FetchFailureSkipsSymbolOnly(t *testing.T) {
	market := &fakeMarket{
		tickers: map[string]*adapters.Ticker{"ETH/USDT": ticker("ETH/USDT", 3400)},
		fails:   map[string]bool{"BTC/USDT": true},
	}
	b := newFakeBroadcaster()

	p := New(Config{
		Symbols:          []string{"BTC/USDT", "ETH/USDT"},
		FetchesPerSecond: 1000,
	}, market, b, nil, zap.NewNop())

	require.NoError(t, p.publishCycle(context.Background()))

	assert.Equal(t, 0, b.count("BTC/USDT"))
	assert.Equal(t, 1, b.count("ETH/USDT"), "one bad symbol must not abort the cycle")
}

func TestPublishCycle_PanicBecomesError(t *testing.T) {
	market := &fakeMarket{panics: true}
	p := New(Config{
		Symbols:          []string{"BTC/USDT"},
		FetchesPerSecond: 1000,
	}, market, newFakeBroadcaster(), nil, zap.NewNop())

	err := p.publishCycle(context.Background())
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	market := &fakeMarket{tickers: map[string]*adapters.Ticker{
		"BTC/USDT": ticker("BTC/USDT", 67000),
	}}
	b := newFakeBroadcaster()

	p := New(Config{
		Symbols:          []string{"BTC/USDT"},
		Interval:         5 * time.Millisecond,
		BackoffInterval:  5 * time.Millisecond,
		FetchesPerSecond: 1000,
	}, market, b, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Let a few cycles happen, then cancel and require a prompt exit.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}

	assert.Greater(t, b.count("BTC/USDT"), 0)
}
