// Package backtest replays collected price series through entry rules and
// position sizers to evaluate trading strategies on historical markets.
package backtest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// Signal is a directional trading signal produced by a rule.
type Signal int

const (
	// SignalNone means stay out or stay put.
	SignalNone Signal = iota
	// SignalLong means buy the tracked outcome.
	SignalLong
	// SignalShort means sell the tracked outcome.
	SignalShort
	// SignalExit means close an open position.
	SignalExit
)

// SignalRule decides what to do given the price history observed so far.
// history holds every point up to and including the current one, oldest
// first; rules must not assume anything beyond it.
type SignalRule interface {
	// Name identifies the rule in logs and reports.
	Name() string
	// Evaluate returns the signal for the latest point in history.
	Evaluate(history []domain.PricePoint) Signal
}

// stdEpsilon guards the z-score division when a window is flat.
const stdEpsilon = 1e-9

// MeanReversion signals entries when the latest price deviates from its
// rolling mean by more than ZThreshold standard deviations, and an exit once
// the price crosses back through the mean.
type MeanReversion struct {
	// Lookback is the number of trailing points in the rolling window.
	Lookback int
	// ZThreshold is the entry trigger in standard deviations.
	ZThreshold float64
}

// NewMeanReversion creates a MeanReversion rule. Non-positive parameters
// fall back to a 24-point window and a 1.5 sigma trigger.
func NewMeanReversion(lookback int, zThreshold float64) *MeanReversion {
	if lookback <= 0 {
		lookback = 24
	}
	if zThreshold <= 0 {
		zThreshold = 1.5
	}
	return &MeanReversion{Lookback: lookback, ZThreshold: zThreshold}
}

func (r *MeanReversion) Name() string { return "mean_reversion" }

// zScore returns the z-score of the latest price against the trailing
// window, excluding the latest point from the window itself.
func (r *MeanReversion) zScore(history []domain.PricePoint) (float64, bool) {
	if len(history) < r.Lookback+1 {
		return 0, false
	}

	window := history[len(history)-1-r.Lookback : len(history)-1]
	var sum float64
	for _, p := range window {
		sum += p.Price
	}
	mean := sum / float64(len(window))

	var sqSum float64
	for _, p := range window {
		d := p.Price - mean
		sqSum += d * d
	}
	std := math.Sqrt(sqSum / float64(len(window)))
	if std < stdEpsilon {
		std = stdEpsilon
	}

	latest := history[len(history)-1].Price
	return (latest - mean) / std, true
}

func (r *MeanReversion) Evaluate(history []domain.PricePoint) Signal {
	z, ok := r.zScore(history)
	if !ok {
		return SignalNone
	}
	switch {
	case z <= -r.ZThreshold:
		return SignalLong
	case z >= r.ZThreshold:
		return SignalShort
	case math.Abs(z) < 0.1:
		// Price is back at the rolling mean.
		return SignalExit
	default:
		return SignalNone
	}
}

// Threshold signals a long entry when the price drops to BuyBelow and a
// short entry when it rises to SellAbove. It never signals an exit on its
// own; positions close on resolution or at the end of the series.
type Threshold struct {
	BuyBelow  float64
	SellAbove float64
}

// NewThreshold creates a Threshold rule. Zero bounds disable the
// corresponding side.
func NewThreshold(buyBelow, sellAbove float64) *Threshold {
	return &Threshold{BuyBelow: buyBelow, SellAbove: sellAbove}
}

func (r *Threshold) Name() string { return "threshold" }

func (r *Threshold) Evaluate(history []domain.PricePoint) Signal {
	if len(history) == 0 {
		return SignalNone
	}
	price := history[len(history)-1].Price
	switch {
	case r.BuyBelow > 0 && price <= r.BuyBelow:
		return SignalLong
	case r.SellAbove > 0 && price >= r.SellAbove:
		return SignalShort
	default:
		return SignalNone
	}
}

// NewRule builds a rule by name with string parameters, as parsed from the
// command line. Unknown names and malformed values are errors.
func NewRule(name string, params map[string]string) (SignalRule, error) {
	getF := func(key string, def float64) (float64, error) {
		raw, ok := params[key]
		if !ok {
			return def, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("strategy param %s=%q: %w", key, raw, domain.ErrInvalidInput)
		}
		return v, nil
	}
	getI := func(key string, def int) (int, error) {
		raw, ok := params[key]
		if !ok {
			return def, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("strategy param %s=%q: %w", key, raw, domain.ErrInvalidInput)
		}
		return v, nil
	}

	switch name {
	case "mean_reversion":
		lookback, err := getI("lookback", 24)
		if err != nil {
			return nil, err
		}
		z, err := getF("z", 1.5)
		if err != nil {
			return nil, err
		}
		return NewMeanReversion(lookback, z), nil
	case "threshold":
		buy, err := getF("buy_below", 0.1)
		if err != nil {
			return nil, err
		}
		sell, err := getF("sell_above", 0.9)
		if err != nil {
			return nil, err
		}
		return NewThreshold(buy, sell), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q: %w", name, domain.ErrInvalidInput)
	}
}
