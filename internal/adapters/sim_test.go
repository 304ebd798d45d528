package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimMarketData_GetTicker(t *testing.T) {
	sim := NewSimMarketData()
	ctx := context.Background()

	tick, err := sim.GetTicker(ctx, "btc/usdt")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tick.Symbol)
	assert.Greater(t, tick.Last, 0.0)
	assert.NoError(t, ValidateTicker(tick))
}

func TestSimMarketData_UnknownSymbol(t *testing.T) {
	sim := NewSimMarketData()

	_, err := sim.GetTicker(context.Background(), "NOPE/USDT")
	require.Error(t, err)

	var mdErr *MarketDataError
	require.ErrorAs(t, err, &mdErr)
	assert.Equal(t, "bad_symbol", mdErr.Type)
}

func TestSimMarketData_RangeTracksWalk(t *testing.T) {
	sim := NewSimMarketData()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		tick, err := sim.GetTicker(ctx, "SOL/USDT")
		require.NoError(t, err)
		assert.LessOrEqual(t, tick.Low24h, tick.Last)
		assert.GreaterOrEqual(t, tick.High24h, tick.Last)
	}
}

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		name    string
		tick    *Ticker
		wantErr bool
	}{
		{"nil", nil, true},
		{"empty symbol", &Ticker{Last: 1}, true},
		{"zero price", &Ticker{Symbol: "BTC/USDT"}, true},
		{"inverted range", &Ticker{Symbol: "BTC/USDT", Last: 1, High24h: 1, Low24h: 2}, true},
		{"valid", &Ticker{Symbol: "BTC/USDT", Last: 1, High24h: 2, Low24h: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTicker(tt.tick)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
