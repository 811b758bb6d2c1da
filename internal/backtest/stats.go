package backtest

import (
	"math"
	"sort"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// ComputeStats summarizes closed trades and a bankroll trajectory. An empty
// trade list yields a zero win rate, not NaN.
func ComputeStats(trades []domain.Trade, bankrolls []float64) domain.SummaryStats {
	stats := domain.SummaryStats{Trades: len(trades)}

	for _, t := range trades {
		if t.Won {
			stats.Wins++
		}
		stats.TotalPnL += t.PnL
	}
	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
	}

	if len(bankrolls) == 0 {
		return stats
	}

	stats.FinalBankroll = bankrolls[len(bankrolls)-1]
	stats.Blown = stats.FinalBankroll <= 0

	var sum float64
	for _, b := range bankrolls {
		sum += b
	}
	stats.MeanBankroll = sum / float64(len(bankrolls))

	sorted := make([]float64, len(bankrolls))
	copy(sorted, bankrolls)
	sort.Float64s(sorted)
	stats.MedianBankroll = percentile(sorted, 0.50)
	stats.P10Bankroll = percentile(sorted, 0.10)
	stats.P90Bankroll = percentile(sorted, 0.90)

	stats.MaxDrawdown = maxDrawdown(bankrolls)
	return stats
}

// percentile interpolates linearly between the closest ranks of a sorted
// slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// maxDrawdown returns the largest peak-to-trough fall of the trajectory as
// a fraction of the peak.
func maxDrawdown(bankrolls []float64) float64 {
	var peak, maxDD float64
	for _, b := range bankrolls {
		if b > peak {
			peak = b
		}
		if peak > 0 {
			dd := (peak - b) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
