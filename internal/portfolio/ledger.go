package portfolio

import (
	"sync"
	"time"
)

// Position is an open holding for a single symbol. At most one position
// exists per symbol; adding exposure requires close-then-reopen.
type Position struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	EntryTime    time.Time `json:"entry_time"`
	CurrentPrice float64   `json:"current_price"` // last observed market price
}

// Trade is an immutable history entry. PnL fields are zero for buys;
// PnLPct is a ratio (0.05 = +5%), converted to percent only at the API edge.
type Trade struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"` // "buy" or "sell"
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	PnL       float64   `json:"pnl"`
	PnLPct    float64   `json:"pnl_pct"`
}

// Metrics is a derived read-only snapshot of ledger performance.
type Metrics struct {
	InitialCash     float64 `json:"initial_cash"`
	Cash            float64 `json:"cash"`
	TotalValue      float64 `json:"total_value"`
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPct     float64 `json:"total_pnl_pct"`
	ActivePositions int     `json:"active_positions"`
	TotalTrades     int     `json:"total_trades"` // closed (sell) trades only
	WinRate         float64 `json:"win_rate"`
}

// PositionDetail is a per-position view with pnl computed against the
// last observed price.
type PositionDetail struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	Value        float64   `json:"value"`
	PnL          float64   `json:"pnl"`
	PnLPct       float64   `json:"pnl_pct"`
	EntryTime    time.Time `json:"entry_time"`
}

// Ledger owns the simulated cash balance, open positions, and the
// append-only trade history. All mutations and read-then-compute
// sequences hold the ledger lock so concurrent handlers observe
// consistent snapshots; cash can never go negative because OpenPosition
// rejects at the boundary.
type Ledger struct {
	mu          sync.Mutex
	initialCash float64
	cash        float64
	positions   map[string]Position
	history     []Trade
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]Position),
	}
}

// OpenPosition debits cash and records a buy. Returns false without
// mutating state if the cost exceeds available cash or a position for
// the symbol is already open.
func (l *Ledger) OpenPosition(symbol string, quantity, price float64, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := quantity * price
	if cost > l.cash {
		return false
	}
	if _, exists := l.positions[symbol]; exists {
		return false
	}

	l.cash -= cost
	l.positions[symbol] = Position{
		Symbol:       symbol,
		Quantity:     quantity,
		EntryPrice:   price,
		EntryTime:    ts,
		CurrentPrice: price,
	}
	l.history = append(l.history, Trade{
		Symbol:    symbol,
		Action:    "buy",
		Quantity:  quantity,
		Price:     price,
		Timestamp: ts,
	})
	return true
}

// ClosePosition credits proceeds, records a sell with realized pnl, and
// removes the position. Returns false if no position is open for symbol.
func (l *Ledger) ClosePosition(symbol string, price float64, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.positions[symbol]
	if !exists {
		return false
	}

	proceeds := pos.Quantity * price
	pnl := proceeds - pos.Quantity*pos.EntryPrice
	pnlPct := price/pos.EntryPrice - 1

	l.cash += proceeds
	l.history = append(l.history, Trade{
		Symbol:    symbol,
		Action:    "sell",
		Quantity:  pos.Quantity,
		Price:     price,
		Timestamp: ts,
		PnL:       pnl,
		PnLPct:    pnlPct,
	})
	delete(l.positions, symbol)
	return true
}

// UpdatePrice overwrites the last observed price for an open position.
// No-op if the symbol has no position; never touches cash or history.
func (l *Ledger) UpdatePrice(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.positions[symbol]
	if !exists {
		return
	}
	pos.CurrentPrice = price
	l.positions[symbol] = pos
}

// HasPosition reports whether a position is open for symbol.
func (l *Ledger) HasPosition(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.positions[symbol]
	return exists
}

// Position returns a copy of the open position for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, exists := l.positions[symbol]
	return pos, exists
}

// TotalValue is cash plus the mark-to-market value of open positions.
func (l *Ledger) TotalValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValueLocked()
}

func (l *Ledger) totalValueLocked() float64 {
	value := l.cash
	for _, pos := range l.positions {
		value += pos.Quantity * pos.CurrentPrice
	}
	return value
}

// Metrics computes the performance snapshot under a single lock hold so
// cash, positions, and history are mutually consistent.
func (l *Ledger) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	totalValue := l.totalValueLocked()
	closed, winning := 0, 0
	for _, t := range l.history {
		if t.Action != "sell" {
			continue
		}
		closed++
		if t.PnL > 0 {
			winning++
		}
	}
	winRate := 0.0
	if closed > 0 {
		winRate = float64(winning) / float64(closed)
	}

	return Metrics{
		InitialCash:     l.initialCash,
		Cash:            l.cash,
		TotalValue:      totalValue,
		TotalPnL:        totalValue - l.initialCash,
		TotalPnLPct:     totalValue/l.initialCash - 1,
		ActivePositions: len(l.positions),
		TotalTrades:     closed,
		WinRate:         winRate,
	}
}

// PositionDetails returns per-position pnl computed against the last
// observed price.
func (l *Ledger) PositionDetails() []PositionDetail {
	l.mu.Lock()
	defer l.mu.Unlock()

	details := make([]PositionDetail, 0, len(l.positions))
	for _, pos := range l.positions {
		details = append(details, PositionDetail{
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			EntryPrice:   pos.EntryPrice,
			CurrentPrice: pos.CurrentPrice,
			Value:        pos.Quantity * pos.CurrentPrice,
			PnL:          pos.Quantity * (pos.CurrentPrice - pos.EntryPrice),
			PnLPct:       pos.CurrentPrice/pos.EntryPrice - 1,
			EntryTime:    pos.EntryTime,
		})
	}
	return details
}

// RecentTrades returns a copy of the last n history entries, oldest first.
func (l *Ledger) RecentTrades(n int) []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.history) {
		n = len(l.history)
	}
	trades := make([]Trade, n)
	copy(trades, l.history[len(l.history)-n:])
	return trades
}
