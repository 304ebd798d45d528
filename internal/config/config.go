package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradewatch/trading-assistant/internal/risk"
	"github.com/tradewatch/trading-assistant/internal/signal"
)

type Server struct {
	Addr        string `yaml:"addr"`
	Development bool   `yaml:"development"`
}

type Trading struct {
	InitialCash     float64 `yaml:"initial_cash"`
	PositionCostUSD float64 `yaml:"position_cost_usd"`
	BuyConfidence   float64 `yaml:"buy_confidence"`
}

type Publisher struct {
	IntervalMs        int      `yaml:"interval_ms"`
	BackoffIntervalMs int      `yaml:"backoff_interval_ms"`
	FetchesPerSecond  float64  `yaml:"fetches_per_second"`
	Symbols           []string `yaml:"symbols"`
}

type Root struct {
	Server    Server            `yaml:"server"`
	Trading   Trading           `yaml:"trading"`
	Risk      risk.Policy       `yaml:"risk"`
	Signal    signal.Thresholds `yaml:"signal"`
	Publisher Publisher         `yaml:"publisher"`
}

// Load reads the YAML config at path and fills in defaults for anything
// unset. A missing file yields the pure defaults.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return c, err
		}
	} else if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if addr := os.Getenv("ENGINE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if c.Trading.InitialCash == 0 {
		c.Trading.InitialCash = 10000
	}
	if c.Trading.PositionCostUSD == 0 {
		c.Trading.PositionCostUSD = 1000
	}
	if c.Trading.BuyConfidence == 0 {
		c.Trading.BuyConfidence = 0.7
	}

	if c.Risk == (risk.Policy{}) {
		c.Risk = risk.DefaultPolicy()
	}
	if c.Signal == (signal.Thresholds{}) {
		c.Signal = signal.DefaultThresholds()
	}

	if c.Publisher.IntervalMs == 0 {
		c.Publisher.IntervalMs = 5000
	}
	if c.Publisher.BackoffIntervalMs == 0 {
		c.Publisher.BackoffIntervalMs = 10000
	}
	if c.Publisher.FetchesPerSecond == 0 {
		c.Publisher.FetchesPerSecond = 10
	}
	if len(c.Publisher.Symbols) == 0 {
		c.Publisher.Symbols = []string{"BTC/USDT", "ETH/USDT", "DOGE/USDT", "SHIB/USDT"}
	}

	return c, nil
}

// Interval returns the publish interval as a duration.
func (p Publisher) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// BackoffInterval returns the post-failure interval as a duration.
func (p Publisher) BackoffInterval() time.Duration {
	return time.Duration(p.BackoffIntervalMs) * time.Millisecond
}
