package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_ExitBeatsEntry(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	// Held position with a strong pump signal: the exit check still wins.
	s := g.Generate(0.9, 0.65, true)
	assert.Equal(t, ActionSell, s.Action)
	assert.Equal(t, 0.65, s.Confidence)
	assert.Contains(t, s.Reason, "exit signal")
}

func TestGenerate_EntryGuardBlocksMidExitProb(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	// exit_prob 0.55 is below the exit threshold but at/above 0.5, so
	// neither branch fires: hold.
	s := g.Generate(0.75, 0.55, false)
	assert.Equal(t, ActionHold, s.Action)
	assert.Equal(t, 0.75, s.Confidence)

	// With exit_prob clearly low, the same pump probability buys.
	s = g.Generate(0.75, 0.3, false)
	assert.Equal(t, ActionBuy, s.Action)
	assert.Equal(t, 0.75, s.Confidence)
	assert.Contains(t, s.Reason, "pump detected")
}

func TestGenerate_NoEntryWhileHolding(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	// Holding with a weak exit signal: no re-entry, just hold.
	s := g.Generate(0.95, 0.1, true)
	assert.Equal(t, ActionHold, s.Action)
	assert.Equal(t, 0.95, s.Confidence)
}

func TestGenerate_HoldConfidenceIsMax(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	s := g.Generate(0.2, 0.4, false)
	assert.Equal(t, ActionHold, s.Action)
	assert.Equal(t, 0.4, s.Confidence)
	assert.Equal(t, "waiting for clear signal", s.Reason)
}

func TestGenerate_ProbsEchoedBack(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	s := g.Generate(0.42, 0.17, false)
	assert.Equal(t, 0.42, s.PumpProb)
	assert.Equal(t, 0.17, s.ExitProb)
}

func TestScoreOpportunity(t *testing.T) {
	g := NewGenerator(DefaultThresholds())

	tests := []struct {
		name                       string
		pump, exit, sentiment      float64
		volumeSurge, whaleActivity bool
		want                       float64
	}{
		{"all bonuses", 1.0, 0.0, 0.6, true, true, 90},
		{"pump vs exit only", 1.0, 1.0, 0.0, false, false, 40},
		{"floor at zero", 0.0, 1.0, 0.0, false, false, 0},
		{"sentiment at boundary ignored", 0.5, 0.0, 0.5, false, false, 30},
		{"volume bonus only", 0.5, 0.2, 0.0, true, false, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.ScoreOpportunity(tt.pump, tt.exit, tt.sentiment, tt.volumeSurge, tt.whaleActivity)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
