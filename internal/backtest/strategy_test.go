package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

func series(prices ...float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{MarketID: "m1", Timestamp: int64(100 + i), Price: p}
	}
	return out
}

func TestMeanReversionNeedsFullWindow(t *testing.T) {
	r := NewMeanReversion(4, 1.5)
	assert.Equal(t, SignalNone, r.Evaluate(series(0.5, 0.5, 0.5)))
	assert.Equal(t, SignalNone, r.Evaluate(series(0.5, 0.5, 0.5, 0.5)))
}

func TestMeanReversionSignalsLongOnDip(t *testing.T) {
	r := NewMeanReversion(4, 1.5)
	// A flat window makes any deviation an extreme z-score.
	got := r.Evaluate(series(0.5, 0.5, 0.5, 0.5, 0.4))
	assert.Equal(t, SignalLong, got)
}

func TestMeanReversionSignalsShortOnSpike(t *testing.T) {
	r := NewMeanReversion(4, 1.5)
	got := r.Evaluate(series(0.5, 0.5, 0.5, 0.5, 0.6))
	assert.Equal(t, SignalShort, got)
}

func TestMeanReversionExitAtMean(t *testing.T) {
	r := NewMeanReversion(4, 1.5)
	// Window [0.5 0.5 0.5 0.4] has mean 0.475; the latest price sits on it.
	got := r.Evaluate(series(0.5, 0.5, 0.5, 0.4, 0.475))
	assert.Equal(t, SignalExit, got)
}

func TestMeanReversionNoSignalInsideBand(t *testing.T) {
	r := NewMeanReversion(4, 1.5)
	// Window [0.4 0.6 0.4 0.6] has mean 0.5 and std 0.1; 0.55 is z = 0.5.
	got := r.Evaluate(series(0.4, 0.6, 0.4, 0.6, 0.55))
	assert.Equal(t, SignalNone, got)
}

func TestThresholdRule(t *testing.T) {
	r := NewThreshold(0.1, 0.9)
	assert.Equal(t, SignalLong, r.Evaluate(series(0.08)))
	assert.Equal(t, SignalLong, r.Evaluate(series(0.1)))
	assert.Equal(t, SignalShort, r.Evaluate(series(0.95)))
	assert.Equal(t, SignalNone, r.Evaluate(series(0.5)))
	assert.Equal(t, SignalNone, r.Evaluate(nil))
}

func TestThresholdDisabledSides(t *testing.T) {
	buyOnly := NewThreshold(0.1, 0)
	assert.Equal(t, SignalNone, buyOnly.Evaluate(series(0.99)))

	sellOnly := NewThreshold(0, 0.9)
	assert.Equal(t, SignalNone, sellOnly.Evaluate(series(0.01)))
}

func TestNewRuleByName(t *testing.T) {
	r, err := NewRule("mean_reversion", map[string]string{"lookback": "12", "z": "2"})
	require.NoError(t, err)
	mr, ok := r.(*MeanReversion)
	require.True(t, ok)
	assert.Equal(t, 12, mr.Lookback)
	assert.Equal(t, 2.0, mr.ZThreshold)

	r, err = NewRule("threshold", map[string]string{"buy_below": "0.2"})
	require.NoError(t, err)
	th, ok := r.(*Threshold)
	require.True(t, ok)
	assert.Equal(t, 0.2, th.BuyBelow)
	assert.Equal(t, 0.9, th.SellAbove)
}

func TestNewRuleRejectsBadInput(t *testing.T) {
	_, err := NewRule("momentum", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewRule("mean_reversion", map[string]string{"z": "high"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewRule("threshold", map[string]string{"buy_below": "cheap"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
