package adapters

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// SimMarketData generates random-walk tickers so the engine runs
// end-to-end without an exchange connection.
type SimMarketData struct {
	mu     sync.Mutex
	bases  map[string]*simBase
	random *rand.Rand
}

type simBase struct {
	price      float64
	volatility float64 // daily volatility as a ratio
	volume     float64
	open24h    float64
	high24h    float64
	low24h     float64
}

// NewSimMarketData creates a sim provider seeded with the usual suspects.
func NewSimMarketData() *SimMarketData {
	s := &SimMarketData{
		bases:  make(map[string]*simBase),
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	seeds := map[string]struct {
		price, vol, volume float64
	}{
		"BTC/USDT":  {67500.0, 0.03, 28000},
		"ETH/USDT":  {3450.0, 0.04, 310000},
		"SOL/USDT":  {152.0, 0.06, 2400000},
		"DOGE/USDT": {0.162, 0.08, 900000000},
		"SHIB/USDT": {0.0000245, 0.10, 6.1e12},
		"PEPE/USDT": {0.0000121, 0.12, 4.8e12},
	}
	for sym, seed := range seeds {
		s.bases[sym] = &simBase{
			price:      seed.price,
			volatility: seed.vol,
			volume:     seed.volume,
			open24h:    seed.price,
			high24h:    seed.price,
			low24h:     seed.price,
		}
	}
	return s
}

// GetTicker returns the next step of the symbol's random walk.
func (s *SimMarketData) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	base, exists := s.bases[symbol]
	if !exists {
		return nil, NewBadSymbolError(symbol, "symbol not tracked by sim provider")
	}

	// Scale daily volatility down to a per-tick step.
	step := base.volatility / math.Sqrt(24*60*12)
	base.price *= 1 + s.random.NormFloat64()*step
	if base.price > base.high24h {
		base.high24h = base.price
	}
	if base.price < base.low24h {
		base.low24h = base.price
	}

	return &Ticker{
		Symbol:       symbol,
		Last:         base.price,
		ChangePct24h: (base.price/base.open24h - 1) * 100,
		Volume24h:    base.volume * (0.9 + s.random.Float64()*0.2),
		High24h:      base.high24h,
		Low24h:       base.low24h,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Symbols lists the tracked pairs in no particular order.
func (s *SimMarketData) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.bases))
	for sym := range s.bases {
		out = append(out, sym)
	}
	return out
}
