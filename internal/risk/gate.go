package risk

import (
	"fmt"
	"sync"
)

// Policy holds the configured risk thresholds. Percentages are ratios
// (0.10 = 10%).
type Policy struct {
	MaxPositionSizePct  float64 `yaml:"max_position_size_pct"`
	MaxTotalExposurePct float64 `yaml:"max_total_exposure_pct"`
	DailyLossLimitPct   float64 `yaml:"daily_loss_limit_pct"`
	StopLossPct         float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
}

// DefaultPolicy matches the standard paper-trading limits: 10% per
// position, 50% total exposure, 5% daily loss, 15% stop, 30% take-profit.
func DefaultPolicy() Policy {
	return Policy{
		MaxPositionSizePct:  0.10,
		MaxTotalExposurePct: 0.50,
		DailyLossLimitPct:   0.05,
		StopLossPct:         0.15,
		TakeProfitPct:       0.30,
	}
}

// Gate evaluates trade requests against the policy. It is stateless
// apart from the daily reference value, captured lazily on the first
// check and reset only by an external trigger at day boundaries.
type Gate struct {
	policy Policy

	mu       sync.Mutex
	dailyRef float64 // zero until first check
}

// NewGate creates a gate with the given policy.
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy}
}

// Policy returns the configured thresholds.
func (g *Gate) Policy() Policy { return g.policy }

// CheckCanTrade reports whether a new position of positionCost may be
// opened against a portfolio currently worth portfolioValue. The daily
// loss check runs before the position size check, so a breached loss
// limit is always the reason reported.
func (g *Gate) CheckCanTrade(portfolioValue, positionCost float64) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dailyRef == 0 {
		g.dailyRef = portfolioValue
	}

	dailyPnL := portfolioValue/g.dailyRef - 1
	if dailyPnL <= -g.policy.DailyLossLimitPct {
		return false, fmt.Sprintf("daily loss limit reached (%.2f%%)", dailyPnL*100)
	}

	sizePct := positionCost / portfolioValue
	if sizePct > g.policy.MaxPositionSizePct {
		return false, fmt.Sprintf("position size too large (%.2f%% > %.2f%%)",
			sizePct*100, g.policy.MaxPositionSizePct*100)
	}

	return true, "risk checks passed"
}

// PositionSize returns the quantity to buy given the portfolio value,
// the asset price, and the caller's confidence in [0,1]. Confidence is
// clamped by the caller, not here.
func (g *Gate) PositionSize(portfolioValue, price, confidence float64) float64 {
	if price <= 0 {
		return 0
	}
	return portfolioValue * g.policy.MaxPositionSizePct * confidence / price
}

// CheckExit reports whether an open position should be closed. Stop-loss
// is checked before take-profit.
func (g *Gate) CheckExit(entryPrice, currentPrice float64) (bool, string) {
	pnlPct := currentPrice/entryPrice - 1

	if pnlPct <= -g.policy.StopLossPct {
		return true, fmt.Sprintf("stop loss triggered (%.2f%%)", pnlPct*100)
	}
	if pnlPct >= g.policy.TakeProfitPct {
		return true, fmt.Sprintf("take profit triggered (%.2f%%)", pnlPct*100)
	}
	return false, ""
}

// ResetDailyTracking overwrites the daily reference value. Called by an
// external day-boundary trigger; the gate keeps no internal timer.
func (g *Gate) ResetDailyTracking(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyRef = value
}
