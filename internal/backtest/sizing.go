package backtest

// Sizer decides how much bankroll to commit to a new position.
type Sizer interface {
	// Size returns the stake for a new position given the current bankroll.
	// The result never exceeds the bankroll and is never negative.
	Size(bankroll float64) float64
}

// FixedStake commits the same amount to every position, capped at the
// remaining bankroll.
type FixedStake struct {
	Stake float64
}

func (s FixedStake) Size(bankroll float64) float64 {
	if bankroll <= 0 || s.Stake <= 0 {
		return 0
	}
	if s.Stake > bankroll {
		return bankroll
	}
	return s.Stake
}

// Kelly sizes positions with the Kelly criterion, f = (b*p - q) / b, where
// p is the assumed win probability, q = 1 - p, and b is the reward-to-risk
// ratio. The fraction is clamped at zero when the edge is negative and
// scaled by Multiplier (0.5 for the usual half-Kelly).
type Kelly struct {
	WinProb    float64
	RewardRisk float64
	Multiplier float64
}

func (s Kelly) Size(bankroll float64) float64 {
	if bankroll <= 0 || s.RewardRisk <= 0 {
		return 0
	}
	mult := s.Multiplier
	if mult <= 0 {
		mult = 1
	}

	q := 1 - s.WinProb
	f := (s.RewardRisk*s.WinProb - q) / s.RewardRisk
	if f < 0 {
		f = 0
	}

	size := bankroll * f * mult
	if size > bankroll {
		size = bankroll
	}
	return size
}
