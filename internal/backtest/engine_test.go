package backtest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func marketSeries(id string, prices ...float64) MarketSeries {
	return MarketSeries{
		Market: domain.Market{ID: id},
		Points: series(prices...),
	}
}

func TestEngineLongWinOnResolution(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.5, 0.96)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, domain.SideLong, tr.Side)
	assert.Equal(t, 0.15, tr.EntryPrice)
	assert.Equal(t, 0.96, tr.ExitPrice)
	assert.Equal(t, ExitReasonResolution, tr.ExitReason)
	assert.InDelta(t, 10*(0.96-0.15)/0.15, tr.PnL, 1e-9)
	assert.True(t, tr.Won)
	assert.False(t, tr.Open)
	assert.InDelta(t, 1000+tr.PnL, res.Stats.FinalBankroll, 1e-9)
}

func TestEngineShortWinOnResolution(t *testing.T) {
	e := NewEngine(NewThreshold(0, 0.8), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.85, 0.5, 0.04)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, domain.SideShort, tr.Side)
	assert.Equal(t, ExitReasonResolution, tr.ExitReason)
	assert.InDelta(t, 10*(0.85-0.04)/0.15, tr.PnL, 1e-9)
	assert.True(t, tr.Won)
}

func TestEngineLongLossOnOppositeResolution(t *testing.T) {
	e := NewEngine(NewThreshold(0.3, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.25, 0.1, 0.04)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Less(t, tr.PnL, 0.0)
	assert.False(t, tr.Won)
	assert.Less(t, res.Stats.FinalBankroll, 1000.0)
}

func TestEngineForcedCloseAtEndOfSeries(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.4, 0.5)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, ExitReasonEndOfData, tr.ExitReason)
	assert.True(t, tr.Open, "forced close keeps the open flag set")
	assert.Equal(t, 0.5, tr.ExitPrice)
	assert.InDelta(t, 10*(0.5-0.15)/0.15, tr.PnL, 1e-9)
}

func TestEngineMeanReversionRoundTrip(t *testing.T) {
	rule := NewMeanReversion(4, 1.5)
	e := NewEngine(rule, FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	// Flat at 0.5, dip to 0.4 (entry long), recover to the rolling mean
	// 0.475 (signal exit).
	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.5, 0.5, 0.5, 0.5, 0.4, 0.475)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, domain.SideLong, tr.Side)
	assert.Equal(t, 0.4, tr.EntryPrice)
	assert.Equal(t, 0.475, tr.ExitPrice)
	assert.Equal(t, ExitReasonSignal, tr.ExitReason)
	assert.True(t, tr.Won)
}

func TestEngineTakeProfitClosesLong(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000, TakeProfit: 0.5}, testLogger())

	// Entry at 0.15; 0.18 is a 20% gain, 0.25 is 66% and trips the target.
	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.18, 0.25)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, ExitReasonTakeProfit, tr.ExitReason)
	assert.Equal(t, 0.25, tr.ExitPrice)
	assert.InDelta(t, 10*(0.25-0.15)/0.15, tr.PnL, 1e-9)
	assert.True(t, tr.Won)
}

func TestEngineStopLossClosesLong(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000, StopLoss: 0.2}, testLogger())

	// 0.13 is a 13% drawdown, 0.10 is 33% and trips the stop.
	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.13, 0.10)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, ExitReasonStopLoss, tr.ExitReason)
	assert.Equal(t, 0.10, tr.ExitPrice)
	assert.InDelta(t, 10*(0.10-0.15)/0.15, tr.PnL, 1e-9)
	assert.False(t, tr.Won)
}

func TestEngineTakeProfitClosesShort(t *testing.T) {
	e := NewEngine(NewThreshold(0, 0.8), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000, TakeProfit: 0.5}, testLogger())

	// Short at 0.85; the gain basis is the No price, so 0.75 is a 66% gain.
	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.85, 0.8, 0.75)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, ExitReasonTakeProfit, tr.ExitReason)
	assert.InDelta(t, 10*(0.85-0.75)/0.15, tr.PnL, 1e-9)
}

func TestEngineResolutionBeatsTakeProfit(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000, TakeProfit: 0.1}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.96)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, ExitReasonResolution, res.Trades[0].ExitReason)
}

func TestEngineOneTradePerMarket(t *testing.T) {
	// Two separate dips below the buy threshold; only the first is taken.
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.15, 0.96, 0.15, 0.96)})
	require.NoError(t, err)
	assert.Len(t, res.Trades, 1)
}

func TestEngineSharedBankrollAcrossMarkets(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{
		marketSeries("m1", 0.15, 0.96),
		marketSeries("m2", 0.15, 0.96),
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	require.Len(t, res.Bankrolls, 3)
	assert.Equal(t, 1000.0, res.Bankrolls[0])
	assert.Greater(t, res.Bankrolls[2], res.Bankrolls[1])
	assert.Equal(t, 2, res.Stats.Wins)
	assert.Equal(t, 1.0, res.Stats.WinRate)
}

func TestEngineNoSignalNoTrades(t *testing.T) {
	e := NewEngine(NewThreshold(0.05, 0.99), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.4, 0.5, 0.6)})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 0.0, res.Stats.WinRate)
	assert.Equal(t, 1000.0, res.Stats.FinalBankroll)
}

func TestEngineRequiresRuleAndSizer(t *testing.T) {
	e := NewEngine(nil, nil, EngineConfig{}, testLogger())
	_, err := e.Run(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// recordingRule asserts the engine never shows a rule future points.
type recordingRule struct {
	lens    []int
	lastTS  []int64
	verdict Signal
}

func (r *recordingRule) Name() string { return "recording" }

func (r *recordingRule) Evaluate(history []domain.PricePoint) Signal {
	r.lens = append(r.lens, len(history))
	r.lastTS = append(r.lastTS, history[len(history)-1].Timestamp)
	return r.verdict
}

func TestEngineNeverLeaksFuturePrices(t *testing.T) {
	rule := &recordingRule{verdict: SignalNone}
	e := NewEngine(rule, FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	pts := series(0.5, 0.52, 0.48, 0.51, 0.49)
	_, err := e.Run([]MarketSeries{{Market: domain.Market{ID: "m1"}, Points: pts}})
	require.NoError(t, err)

	require.Len(t, rule.lens, len(pts))
	for i, n := range rule.lens {
		assert.Equal(t, i+1, n, "evaluation %d saw %d points", i, n)
		assert.Equal(t, pts[i].Timestamp, rule.lastTS[i])
	}
}

func TestEngineSkipsEntryAtDegeneratePrices(t *testing.T) {
	e := NewEngine(NewThreshold(0.2, 0), FixedStake{Stake: 10}, EngineConfig{InitialBankroll: 1000}, testLogger())

	// Price of exactly zero cannot be bought.
	res, err := e.Run([]MarketSeries{marketSeries("m1", 0.0, 0.0)})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}
