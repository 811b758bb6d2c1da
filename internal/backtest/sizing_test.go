package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedStake(t *testing.T) {
	s := FixedStake{Stake: 10}
	assert.Equal(t, 10.0, s.Size(1000))
	assert.Equal(t, 5.0, s.Size(5), "stake caps at remaining bankroll")
	assert.Equal(t, 0.0, s.Size(0))
	assert.Equal(t, 0.0, s.Size(-3))
	assert.Equal(t, 0.0, FixedStake{}.Size(1000))
}

func TestKellyFullFraction(t *testing.T) {
	// p=0.75, b=1: f = (1*0.75 - 0.25) / 1 = 0.5
	s := Kelly{WinProb: 0.75, RewardRisk: 1, Multiplier: 1}
	assert.InDelta(t, 500, s.Size(1000), 1e-9)
}

func TestKellyHalfAndQuarter(t *testing.T) {
	half := Kelly{WinProb: 0.75, RewardRisk: 1, Multiplier: 0.5}
	assert.InDelta(t, 250, half.Size(1000), 1e-9)

	quarter := Kelly{WinProb: 0.75, RewardRisk: 1, Multiplier: 0.25}
	assert.InDelta(t, 125, quarter.Size(1000), 1e-9)
}

func TestKellyAsymmetricPayoff(t *testing.T) {
	// p=0.55, b=1.5: f = (1.5*0.55 - 0.45) / 1.5 = 0.25
	full := Kelly{WinProb: 0.55, RewardRisk: 1.5, Multiplier: 1}
	assert.InDelta(t, 250, full.Size(1000), 1e-9)

	half := Kelly{WinProb: 0.55, RewardRisk: 1.5, Multiplier: 0.5}
	assert.InDelta(t, 125, half.Size(1000), 1e-9)

	quarter := Kelly{WinProb: 0.55, RewardRisk: 1.5, Multiplier: 0.25}
	assert.InDelta(t, 62.5, quarter.Size(1000), 1e-9)
}

func TestKellyNegativeEdgeClampsToZero(t *testing.T) {
	s := Kelly{WinProb: 0.4, RewardRisk: 1, Multiplier: 1}
	assert.Equal(t, 0.0, s.Size(1000))
}

func TestKellyNeverExceedsBankroll(t *testing.T) {
	s := Kelly{WinProb: 0.99, RewardRisk: 10, Multiplier: 2}
	assert.LessOrEqual(t, s.Size(1000), 1000.0)
}

func TestKellyZeroBankroll(t *testing.T) {
	s := Kelly{WinProb: 0.75, RewardRisk: 1, Multiplier: 1}
	assert.Equal(t, 0.0, s.Size(0))
}
