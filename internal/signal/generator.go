package signal

import "fmt"

// Action is a trade decision.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is the transient decision value computed fresh per request.
type Signal struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	PumpProb   float64 `json:"pump_prob"`
	ExitProb   float64 `json:"exit_prob"`
}

// Thresholds gate entry and exit decisions.
type Thresholds struct {
	Pump float64 `yaml:"pump"`
	Exit float64 `yaml:"exit"`
}

// DefaultThresholds are pump 0.7, exit 0.6.
func DefaultThresholds() Thresholds {
	return Thresholds{Pump: 0.7, Exit: 0.6}
}

// Generator maps model probabilities to trade decisions. Pure logic, no
// state beyond the configured thresholds.
type Generator struct {
	thresholds Thresholds
}

// NewGenerator creates a generator with the given thresholds.
func NewGenerator(t Thresholds) *Generator {
	return &Generator{thresholds: t}
}

// Generate evaluates in fixed priority order: exit first when a
// position is held, then entry, then hold. The entry branch requires
// exitProb < 0.5 on top of the pump threshold, so exit probabilities in
// [0.5, exit threshold) block new entries without triggering an exit.
func (g *Generator) Generate(pumpProb, exitProb float64, hasPosition bool) Signal {
	s := Signal{
		Action:   ActionHold,
		PumpProb: pumpProb,
		ExitProb: exitProb,
	}

	if hasPosition && exitProb >= g.thresholds.Exit {
		s.Action = ActionSell
		s.Confidence = exitProb
		s.Reason = fmt.Sprintf("exit signal detected (prob: %.2f)", exitProb)
		return s
	}

	if !hasPosition && pumpProb >= g.thresholds.Pump && exitProb < 0.5 {
		s.Action = ActionBuy
		s.Confidence = pumpProb
		s.Reason = fmt.Sprintf("pump detected (prob: %.2f)", pumpProb)
		return s
	}

	s.Confidence = max(pumpProb, exitProb)
	s.Reason = "waiting for clear signal"
	return s
}

// ScoreOpportunity ranks a symbol 0-100. A heuristic composite for
// sorting candidates, not a calibrated probability: pump contributes up
// to 60, a strong exit probability subtracts up to 20, and sentiment,
// volume surge, and whale activity add flat 10-point bonuses.
func (g *Generator) ScoreOpportunity(pumpProb, exitProb, sentimentScore float64, volumeSurge, whaleActivity bool) float64 {
	score := pumpProb*60 - exitProb*20
	if sentimentScore > 0.5 {
		score += 10
	}
	if volumeSurge {
		score += 10
	}
	if whaleActivity {
		score += 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
