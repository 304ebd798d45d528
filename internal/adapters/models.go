package adapters

import "context"

// ProbabilityModel supplies externally-computed pump and exit
// probabilities for a symbol, both in [0,1]. How they are produced is
// not the engine's concern.
type ProbabilityModel interface {
	Probabilities(ctx context.Context, symbol string) (pumpProb, exitProb float64, err error)
}

// StaticModel returns fixed probabilities. Used when no model service is
// wired up: 0.5/0.5 keeps the decider in its hold band.
type StaticModel struct {
	PumpProb float64
	ExitProb float64
}

func (m StaticModel) Probabilities(ctx context.Context, symbol string) (float64, float64, error) {
	return m.PumpProb, m.ExitProb, nil
}

// InsightsGenerator is the optional text-generation collaborator. Any
// failure here must degrade gracefully; trading decisions never depend
// on it.
type InsightsGenerator interface {
	AnalyzeSignal(ctx context.Context, symbol string, pumpProb, exitProb float64) (string, error)
	AnalyzePortfolio(ctx context.Context, summary map[string]any) (string, error)
	AnalyzeMarket(ctx context.Context, summary map[string]string) (string, error)
}
