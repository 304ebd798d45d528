package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/adapters"
	"github.com/tradewatch/trading-assistant/internal/observ"
	"github.com/tradewatch/trading-assistant/internal/portfolio"
	"github.com/tradewatch/trading-assistant/internal/risk"
	"github.com/tradewatch/trading-assistant/internal/signal"
)

// RejectionError is a business-rule failure surfaced to the caller with
// a human-readable reason. Distinct from internal errors, which callers
// report generically.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func reject(format string, args ...any) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// ErrInsightsUnavailable is returned by Analyze when no insights
// collaborator is configured, so the transport can report service
// unavailability rather than a bad request.
var ErrInsightsUnavailable = &RejectionError{Reason: "AI insights not available"}

// Options are the trading knobs the handlers need beyond component
// configuration.
type Options struct {
	PositionCostUSD float64 // fixed notional per buy
	BuyConfidence   float64 // sizing confidence when none is supplied
	Symbols         []string
}

// Service composes the ledger, risk gate, signal generator, and
// collaborators behind the request/response operations. Constructed once
// at startup and threaded into every handler; no ambient globals.
type Service struct {
	ledger   *portfolio.Ledger
	gate     *risk.Gate
	signals  *signal.Generator
	market   adapters.MarketData
	model    adapters.ProbabilityModel
	insights adapters.InsightsGenerator // nil when not configured
	opts     Options
	log      *zap.Logger
}

// New creates the service. insights may be nil; every other dependency
// is required.
func New(
	ledger *portfolio.Ledger,
	gate *risk.Gate,
	signals *signal.Generator,
	market adapters.MarketData,
	model adapters.ProbabilityModel,
	insights adapters.InsightsGenerator,
	opts Options,
	log *zap.Logger,
) *Service {
	if opts.PositionCostUSD <= 0 {
		opts.PositionCostUSD = 1000
	}
	if opts.BuyConfidence <= 0 {
		opts.BuyConfidence = 0.7
	}
	return &Service{
		ledger:   ledger,
		gate:     gate,
		signals:  signals,
		market:   market,
		model:    model,
		insights: insights,
		opts:     opts,
		log:      log,
	}
}

// TradeRequest is the execute-trade input.
type TradeRequest struct {
	Symbol string  `json:"symbol"`
	Action string  `json:"action"`
	Price  float64 `json:"price"`
}

// TradeResult reports a committed paper trade.
type TradeResult struct {
	Status   string  `json:"status"`
	Action   string  `json:"action"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity,omitempty"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost,omitempty"`
}

// ExecuteTrade runs a buy through the risk gate and the ledger, or
// closes an open position on sell. Business-rule denials come back as
// RejectionError.
func (s *Service) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if req.Price <= 0 {
		return TradeResult{}, reject("invalid price")
	}

	switch action {
	case "buy":
		return s.executeBuy(req.Symbol, req.Price)
	case "sell":
		return s.executeSell(req.Symbol, req.Price)
	default:
		return TradeResult{}, reject("invalid action")
	}
}

func (s *Service) executeBuy(symbol string, price float64) (TradeResult, error) {
	value := s.ledger.TotalValue()
	cost := s.opts.PositionCostUSD

	allowed, reason := s.gate.CheckCanTrade(value, cost)
	observ.IncCounter("trade_risk_checks_total", map[string]string{"allowed": fmt.Sprintf("%t", allowed)})
	if !allowed {
		s.log.Info("buy rejected by risk gate",
			zap.String("symbol", symbol), zap.String("reason", reason))
		return TradeResult{}, reject("%s", reason)
	}

	confidence := clamp01(s.opts.BuyConfidence)
	quantity := s.gate.PositionSize(value, price, confidence)

	if !s.ledger.OpenPosition(symbol, quantity, price, time.Now().UTC()) {
		return TradeResult{}, reject("failed to open position")
	}

	s.log.Info("position opened",
		zap.String("symbol", symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price))
	observ.IncCounter("trades_executed_total", map[string]string{"action": "buy"})

	return TradeResult{
		Status:   "success",
		Action:   "buy",
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Cost:     quantity * price,
	}, nil
}

func (s *Service) executeSell(symbol string, price float64) (TradeResult, error) {
	if !s.ledger.ClosePosition(symbol, price, time.Now().UTC()) {
		return TradeResult{}, reject("no position to close")
	}

	s.log.Info("position closed",
		zap.String("symbol", symbol), zap.Float64("price", price))
	observ.IncCounter("trades_executed_total", map[string]string{"action": "sell"})

	return TradeResult{
		Status: "success",
		Action: "sell",
		Symbol: symbol,
		Price:  price,
	}, nil
}

// PortfolioView is the fetch-portfolio response. PnL percentages are
// scaled to percent here at the API edge; the ledger stores ratios.
type PortfolioView struct {
	Metrics      portfolio.Metrics          `json:"metrics"`
	Positions    []portfolio.PositionDetail `json:"positions"`
	RecentTrades []portfolio.Trade          `json:"recent_trades"`
}

// GetPortfolio returns metrics, open position details, and the last ten
// trades.
func (s *Service) GetPortfolio(ctx context.Context) PortfolioView {
	metrics := s.ledger.Metrics()
	metrics.TotalPnLPct *= 100

	positions := s.ledger.PositionDetails()
	for i := range positions {
		positions[i].PnLPct *= 100
	}

	trades := s.ledger.RecentTrades(10)
	for i := range trades {
		trades[i].PnLPct *= 100
	}

	return PortfolioView{Metrics: metrics, Positions: positions, RecentTrades: trades}
}

// SignalResult is the generate-signal response.
type SignalResult struct {
	Symbol           string        `json:"symbol"`
	Timestamp        string        `json:"timestamp"`
	Signal           signal.Signal `json:"signal"`
	CurrentPrice     float64       `json:"current_price"`
	OpportunityScore float64       `json:"opportunity_score"`
	HasPosition      bool          `json:"has_position"`
	ShouldExit       bool          `json:"should_exit,omitempty"`
	ExitReason       string        `json:"exit_reason,omitempty"`
	AIInsight        string        `json:"ai_insight,omitempty"`
}

// GenerateSignal consumes probabilities and the current price from
// collaborators and returns the decision. Model failure degrades to
// neutral probabilities; insight failure is logged and dropped; only a
// market-data failure rejects, since there is no price to decide on.
func (s *Service) GenerateSignal(ctx context.Context, symbol string) (SignalResult, error) {
	pumpProb, exitProb, err := s.model.Probabilities(ctx, symbol)
	if err != nil {
		s.log.Warn("probability model unavailable, using neutral priors",
			zap.String("symbol", symbol), zap.Error(err))
		pumpProb, exitProb = 0.5, 0.5
	}

	tick, err := s.market.GetTicker(ctx, symbol)
	if err != nil {
		s.log.Warn("market data unavailable for signal",
			zap.String("symbol", symbol), zap.Error(err))
		return SignalResult{}, reject("no market data available")
	}

	hasPosition := s.ledger.HasPosition(symbol)
	sig := s.signals.Generate(pumpProb, exitProb, hasPosition)
	score := s.signals.ScoreOpportunity(pumpProb, exitProb, 0, false, false)

	result := SignalResult{
		Symbol:           symbol,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Signal:           sig,
		CurrentPrice:     tick.Last,
		OpportunityScore: score,
		HasPosition:      hasPosition,
	}

	if pos, ok := s.ledger.Position(symbol); ok {
		result.ShouldExit, result.ExitReason = s.gate.CheckExit(pos.EntryPrice, tick.Last)
	}

	if s.insights != nil {
		insight, err := s.insights.AnalyzeSignal(ctx, symbol, pumpProb, exitProb)
		if err != nil {
			s.log.Warn("insight generation failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			result.AIInsight = insight
		}
	}

	observ.IncCounter("signals_generated_total", map[string]string{"action": string(sig.Action)})
	return result, nil
}

// Analyze runs the optional AI analysis operation over the portfolio or
// the market. Rejections: unknown type, or no insights collaborator.
func (s *Service) Analyze(ctx context.Context, analysisType string) (string, error) {
	if s.insights == nil {
		return "", ErrInsightsUnavailable
	}

	switch analysisType {
	case "portfolio":
		metrics := s.ledger.Metrics()
		summary := map[string]any{
			"total_value":      metrics.TotalValue,
			"total_pnl":        metrics.TotalPnL,
			"win_rate":         metrics.WinRate,
			"active_positions": metrics.ActivePositions,
			"recent_trades":    s.ledger.RecentTrades(5),
		}
		analysis, err := s.insights.AnalyzePortfolio(ctx, summary)
		if err != nil {
			return "", fmt.Errorf("portfolio analysis: %w", err)
		}
		return analysis, nil

	case "market":
		analysis, err := s.insights.AnalyzeMarket(ctx, map[string]string{
			"tracked_symbols": strings.Join(s.opts.Symbols, ", "),
		})
		if err != nil {
			return "", fmt.Errorf("market analysis: %w", err)
		}
		return analysis, nil

	default:
		return "", reject("invalid analysis type")
	}
}

// Markets lists the tracked trading pairs.
func (s *Service) Markets() []string {
	out := make([]string, len(s.opts.Symbols))
	copy(out, s.opts.Symbols)
	return out
}

// Health summarizes engine liveness for the health endpoint.
type Health struct {
	Status            string  `json:"status"`
	MarketData        bool    `json:"market_data"`
	AIInsights        bool    `json:"ai_insights"`
	PortfolioValue    float64 `json:"portfolio_value"`
	ActiveConnections int     `json:"active_connections"`
}

// CheckHealth reports collaborator availability and the current
// portfolio value.
func (s *Service) CheckHealth() Health {
	return Health{
		Status:         "healthy",
		MarketData:     s.market != nil,
		AIInsights:     s.insights != nil,
		PortfolioValue: s.ledger.TotalValue(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
