package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tradewatch/trading-assistant/internal/adapters"
	"github.com/tradewatch/trading-assistant/internal/observ"
	"github.com/tradewatch/trading-assistant/internal/protocol"
)

// Broadcaster is the fan-out capability the publisher needs from the hub.
type Broadcaster interface {
	BroadcastToSymbol(symbol string, msg []byte)
}

// PriceUpdater receives the latest observed price so position marks
// track the market.
type PriceUpdater interface {
	UpdatePrice(symbol string, price float64)
}

// Config controls the publish cadence.
type Config struct {
	Symbols          []string
	Interval         time.Duration // normal cycle interval
	BackoffInterval  time.Duration // one-shot interval after a failed cycle
	FetchesPerSecond float64       // rate limit on collaborator fetches
}

// Publisher periodically fetches the latest ticker for each tracked
// symbol and fans the update out to subscribers. A fetch failure skips
// that symbol; an unexpected cycle failure backs the loop off for one
// interval. The loop exits only when its context is canceled.
type Publisher struct {
	cfg     Config
	market  adapters.MarketData
	hub     Broadcaster
	ledger  PriceUpdater
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a publisher. ledger may be nil when no position marking is
// wanted.
func New(cfg Config, market adapters.MarketData, hub Broadcaster, ledger PriceUpdater, log *zap.Logger) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BackoffInterval <= 0 {
		cfg.BackoffInterval = 10 * time.Second
	}
	if cfg.FetchesPerSecond <= 0 {
		cfg.FetchesPerSecond = 10
	}
	return &Publisher{
		cfg:     cfg,
		market:  market,
		hub:     hub,
		ledger:  ledger,
		limiter: rate.NewLimiter(rate.Limit(cfg.FetchesPerSecond), 1),
		log:     log,
	}
}

// Run blocks until ctx is canceled, alternating between publishing and
// idle-wait. Data errors never terminate the loop.
func (p *Publisher) Run(ctx context.Context) {
	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("publisher stopped")
			return
		case <-timer.C:
		}

		interval := p.cfg.Interval
		if err := p.publishCycle(ctx); err != nil {
			p.log.Error("publish cycle failed, backing off", zap.Error(err))
			observ.IncCounter("publisher_cycle_failures_total", nil)
			interval = p.cfg.BackoffInterval
		}
		timer.Reset(interval)
	}
}

// publishCycle fetches and broadcasts one round of tickers. Panics are
// converted into an error so the loop can back off instead of dying.
func (p *Publisher) publishCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &cycleError{value: r}
		}
	}()

	start := time.Now()
	for _, symbol := range p.cfg.Symbols {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil // context canceled; Run's select will observe it
		}

		tick, err := p.market.GetTicker(ctx, symbol)
		if err != nil {
			p.log.Warn("ticker fetch failed, skipping symbol",
				zap.String("symbol", symbol), zap.Error(err))
			observ.IncCounter("publisher_fetch_errors_total", map[string]string{"symbol": symbol})
			continue
		}
		if err := adapters.ValidateTicker(tick); err != nil {
			p.log.Warn("invalid ticker, skipping symbol",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		if p.ledger != nil {
			p.ledger.UpdatePrice(symbol, tick.Last)
		}

		p.hub.BroadcastToSymbol(symbol, protocol.Marshal(protocol.PriceUpdate{
			Type:      protocol.TypePriceUpdate,
			Symbol:    tick.Symbol,
			Price:     tick.Last,
			Change24h: tick.ChangePct24h,
			Volume24h: tick.Volume24h,
			High24h:   tick.High24h,
			Low24h:    tick.Low24h,
			Timestamp: tick.Timestamp.Format(time.RFC3339),
		}))
		observ.IncCounter("publisher_updates_total", map[string]string{"symbol": symbol})
	}
	observ.RecordDuration("publisher_cycle", time.Since(start), nil)
	return nil
}

type cycleError struct{ value any }

func (e *cycleError) Error() string { return "unexpected publish cycle failure" }
