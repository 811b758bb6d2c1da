package backtest

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// Exit reasons recorded on closed trades.
const (
	ExitReasonResolution = "resolution"
	ExitReasonSignal     = "signal"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonEndOfData  = "end_of_data"
)

// MarketSeries pairs a market with its collected price series, oldest point
// first.
type MarketSeries struct {
	Market domain.Market
	Points []domain.PricePoint
}

// EngineConfig tunes a backtest run.
type EngineConfig struct {
	// ResolutionThreshold treats the market as resolved once the price
	// reaches it (or its complement on the other side). Defaults to 0.95.
	ResolutionThreshold float64
	// InitialBankroll is the starting bankroll shared across all markets.
	InitialBankroll float64
	// TakeProfit closes a position once its unrealized return reaches this
	// fraction. Zero disables the check.
	TakeProfit float64
	// StopLoss closes a position once its unrealized return falls to minus
	// this fraction. Zero disables the check.
	StopLoss float64
}

// Result is the outcome of one backtest run.
type Result struct {
	Strategy string
	Trades   []domain.Trade
	// Bankrolls is the bankroll trajectory: the initial bankroll followed
	// by the bankroll after each closed trade, in close order.
	Bankrolls []float64
	Stats     domain.SummaryStats
}

// Engine replays price series through a signal rule and a sizer. For each
// market it walks the series in time order, holding at most one position at
// a time and taking at most one trade per market. The rule only ever sees
// prices up to the point being evaluated.
type Engine struct {
	rule   SignalRule
	sizer  Sizer
	cfg    EngineConfig
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero config fields fall back to a 0.95
// resolution threshold and a bankroll of 1000.
func NewEngine(rule SignalRule, sizer Sizer, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.ResolutionThreshold <= 0 || cfg.ResolutionThreshold >= 1 {
		cfg.ResolutionThreshold = 0.95
	}
	if cfg.InitialBankroll <= 0 {
		cfg.InitialBankroll = 1000
	}
	return &Engine{rule: rule, sizer: sizer, cfg: cfg, logger: logger}
}

// Run backtests every series in order with a shared bankroll and returns
// the closed trades plus summary statistics. A bankroll at or below zero
// stops the run; remaining markets are not traded.
func (e *Engine) Run(series []MarketSeries) (Result, error) {
	if e.rule == nil || e.sizer == nil {
		return Result{}, fmt.Errorf("backtest: rule and sizer required: %w", domain.ErrInvalidInput)
	}

	res := Result{
		Strategy:  e.rule.Name(),
		Bankrolls: []float64{e.cfg.InitialBankroll},
	}
	bankroll := e.cfg.InitialBankroll

	for _, s := range series {
		if bankroll <= 0 {
			break
		}
		trade, traded := e.runMarket(s, bankroll)
		if !traded {
			continue
		}
		bankroll += trade.PnL
		res.Trades = append(res.Trades, trade)
		res.Bankrolls = append(res.Bankrolls, bankroll)

		e.logger.Debug("trade closed",
			slog.String("market_id", trade.MarketID),
			slog.String("side", string(trade.Side)),
			slog.Float64("entry", trade.EntryPrice),
			slog.Float64("exit", trade.ExitPrice),
			slog.Float64("pnl", trade.PnL),
			slog.String("exit_reason", trade.ExitReason),
			slog.Float64("bankroll", bankroll),
		)
	}

	res.Stats = ComputeStats(res.Trades, res.Bankrolls)
	return res, nil
}

// runMarket walks one series and returns the single trade taken in it, if
// any. The position opens on the first entry signal and closes on
// resolution, an exit signal, or the end of the series.
func (e *Engine) runMarket(s MarketSeries, bankroll float64) (domain.Trade, bool) {
	var trade domain.Trade
	inPosition := false

	for i := range s.Points {
		history := s.Points[:i+1]
		pt := s.Points[i]

		if !inPosition {
			sig := e.rule.Evaluate(history)
			if sig != SignalLong && sig != SignalShort {
				continue
			}
			if pt.Price <= 0 || pt.Price >= 1 {
				continue
			}
			size := e.sizer.Size(bankroll)
			if size <= 0 {
				return domain.Trade{}, false
			}

			side := domain.SideLong
			if sig == SignalShort {
				side = domain.SideShort
			}
			trade = domain.Trade{
				ID:         uuid.NewString(),
				MarketID:   s.Market.ID,
				Side:       side,
				EntryTime:  pt.Timestamp,
				EntryPrice: pt.Price,
				Size:       size,
				Open:       true,
			}
			inPosition = true
			continue
		}

		if e.resolved(pt.Price) {
			return closeTrade(trade, pt, ExitReasonResolution), true
		}

		ret := unrealizedReturn(trade, pt.Price)
		if e.cfg.TakeProfit > 0 && ret >= e.cfg.TakeProfit {
			return closeTrade(trade, pt, ExitReasonTakeProfit), true
		}
		if e.cfg.StopLoss > 0 && ret <= -e.cfg.StopLoss {
			return closeTrade(trade, pt, ExitReasonStopLoss), true
		}

		sig := e.rule.Evaluate(history)
		if sig == SignalExit || opposes(trade.Side, sig) {
			return closeTrade(trade, pt, ExitReasonSignal), true
		}
	}

	if inPosition {
		last := s.Points[len(s.Points)-1]
		t := closeTrade(trade, last, ExitReasonEndOfData)
		// The market never resolved while the position was on; flag the
		// trade so reports can separate forced closes from real exits.
		t.Open = true
		return t, true
	}
	return domain.Trade{}, false
}

// resolved reports whether the price has pinned to either end of the book.
func (e *Engine) resolved(price float64) bool {
	return price >= e.cfg.ResolutionThreshold || price <= 1-e.cfg.ResolutionThreshold
}

// unrealizedReturn is the fractional gain on the position at price p, using
// the same basis as the settled PnL.
func unrealizedReturn(t domain.Trade, p float64) float64 {
	switch t.Side {
	case domain.SideLong:
		return (p - t.EntryPrice) / t.EntryPrice
	case domain.SideShort:
		return (t.EntryPrice - p) / (1 - t.EntryPrice)
	}
	return 0
}

func opposes(side domain.TradeSide, sig Signal) bool {
	return (side == domain.SideLong && sig == SignalShort) ||
		(side == domain.SideShort && sig == SignalLong)
}

// closeTrade settles a position at pt. Long PnL scales the relative move of
// the entry price; short PnL scales the move of the complementary (No)
// price, which is what selling the tracked outcome amounts to in a binary
// market.
func closeTrade(t domain.Trade, pt domain.PricePoint, reason string) domain.Trade {
	t.ExitTime = pt.Timestamp
	t.ExitPrice = pt.Price
	t.ExitReason = reason
	t.Open = false

	switch t.Side {
	case domain.SideLong:
		t.PnL = t.Size * (t.ExitPrice - t.EntryPrice) / t.EntryPrice
	case domain.SideShort:
		t.PnL = t.Size * (t.EntryPrice - t.ExitPrice) / (1 - t.EntryPrice)
	}
	t.Won = t.PnL > 0
	return t
}
