package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/backtest"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/feed"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/pipeline"
)

// CollectOptions parameterize one collection run.
type CollectOptions struct {
	// Window selects markets by resolution date.
	Window domain.TimeRange
	// Limit caps the number of markets collected. Zero means no cap.
	Limit int
	// Reset clears previous progress so every market is re-collected.
	Reset bool
}

// CollectMode discovers closed markets in the window and collects their
// price histories, resuming from previous progress unless Reset is set.
func (a *App) CollectMode(ctx context.Context, deps *Dependencies, opts CollectOptions) error {
	if opts.Reset {
		if err := deps.Progress.Reset(ctx); err != nil {
			return fmt.Errorf("collect: reset progress: %w", err)
		}
		a.logger.Info("collection progress reset")
	}

	discovery := pipeline.NewDiscovery(deps.Gamma, deps.Markets, pipeline.DiscoveryConfig{
		PageSize:   a.cfg.Collector.PageSize,
		MaxPages:   a.cfg.Collector.MaxPages,
		MaxMarkets: opts.Limit,
	}, a.logger)

	markets, err := discovery.Run(ctx, opts.Window)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	collector := pipeline.NewCollector(deps.Clob, deps.Prices, deps.Progress, deps.Archiver, pipeline.CollectorConfig{
		Interval: a.cfg.Collector.Interval,
		Fidelity: a.cfg.Collector.Fidelity,
		Workers:  a.cfg.Collector.Workers,
	}, a.logger)

	summary, err := collector.Run(ctx, markets)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	a.logger.Info("collection summary",
		slog.String("run_id", summary.RunID),
		slog.Int("discovered", summary.Discovered),
		slog.Int("remaining", summary.Remaining),
		slog.Int("collected", summary.Collected),
		slog.Int("no_token", summary.NoToken),
		slog.Int("fetch_failed", summary.FetchFailed),
		slog.Int("empty_history", summary.EmptyHistory),
		slog.Int("points_stored", summary.PointsStored),
	)
	return nil
}

// BacktestOptions parameterize one backtest run.
type BacktestOptions struct {
	// MarketID is a single market ID or "all" for every stored market.
	MarketID string
	// Strategy overrides the configured strategy name when non-empty.
	Strategy string
	// Params are strategy parameters parsed from the command line.
	Params map[string]string
	// Sizing overrides the configured sizing model when non-empty.
	Sizing string
}

// backtestReport is the JSON report printed after a run.
type backtestReport struct {
	Strategy string              `json:"strategy"`
	Sizing   string              `json:"sizing"`
	Markets  int                 `json:"markets"`
	Stats    domain.SummaryStats `json:"stats"`
	Trades   []domain.Trade      `json:"trades"`
}

// BacktestMode replays stored price series through the selected strategy
// and prints a JSON report to stdout. It returns domain.ErrNotFound when a
// named market is missing from the store.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies, opts BacktestOptions) error {
	strategyName := opts.Strategy
	if strategyName == "" {
		strategyName = a.cfg.Backtest.Strategy
	}
	params := opts.Params
	if params == nil {
		params = map[string]string{}
	}
	if _, ok := params["lookback"]; !ok {
		params["lookback"] = fmt.Sprint(a.cfg.Backtest.Lookback)
	}
	if _, ok := params["z"]; !ok {
		params["z"] = fmt.Sprint(a.cfg.Backtest.ZThreshold)
	}
	if _, ok := params["buy_below"]; !ok {
		params["buy_below"] = fmt.Sprint(a.cfg.Backtest.EntryBelow)
	}

	rule, err := backtest.NewRule(strategyName, params)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	sizingName := opts.Sizing
	if sizingName == "" {
		sizingName = a.cfg.Backtest.Sizing
	}
	var sizer backtest.Sizer
	switch sizingName {
	case "", "fixed":
		sizingName = "fixed"
		sizer = backtest.FixedStake{Stake: a.cfg.Backtest.Stake}
	case "kelly":
		sizer = backtest.Kelly{
			WinProb:    a.cfg.Backtest.KellyWinProb,
			RewardRisk: a.cfg.Backtest.KellyRewardRisk,
			Multiplier: a.cfg.Backtest.KellyMultiplier,
		}
	default:
		return fmt.Errorf("backtest: unknown sizing %q: %w", sizingName, domain.ErrInvalidInput)
	}

	series, err := a.loadSeries(ctx, deps, opts.MarketID)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(rule, sizer, backtest.EngineConfig{
		ResolutionThreshold: a.cfg.Backtest.ResolutionThreshold,
		InitialBankroll:     a.cfg.Backtest.InitialBankroll,
		TakeProfit:          a.cfg.Backtest.TakeProfit,
		StopLoss:            a.cfg.Backtest.StopLoss,
	}, a.logger)

	result, err := engine.Run(series)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	a.logger.Info("backtest complete",
		slog.String("strategy", result.Strategy),
		slog.Int("markets", len(series)),
		slog.Int("trades", result.Stats.Trades),
		slog.Float64("win_rate", result.Stats.WinRate),
		slog.Float64("total_pnl", result.Stats.TotalPnL),
		slog.Float64("final_bankroll", result.Stats.FinalBankroll),
	)

	report := backtestReport{
		Strategy: result.Strategy,
		Sizing:   sizingName,
		Markets:  len(series),
		Stats:    result.Stats,
		Trades:   result.Trades,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("backtest: write report: %w", err)
	}
	return nil
}

// loadSeries resolves the backtest universe: one named market, or every
// stored market when id is "all". Markets without stored points are
// skipped.
func (a *App) loadSeries(ctx context.Context, deps *Dependencies, id string) ([]backtest.MarketSeries, error) {
	var markets []domain.Market
	if id == "" || id == "all" {
		window := domain.TimeRange{
			Start: time.Unix(0, 0).UTC(),
			End:   time.Now().UTC().AddDate(10, 0, 0),
		}
		all, err := deps.Markets.ListClosedWithin(ctx, window, 0)
		if err != nil {
			return nil, fmt.Errorf("backtest: list markets: %w", err)
		}
		markets = all
	} else {
		m, err := deps.Markets.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("backtest: %w", err)
		}
		markets = []domain.Market{m}
	}

	var series []backtest.MarketSeries
	for _, m := range markets {
		points, err := deps.Prices.GetSeries(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("backtest: load series %s: %w", m.ID, err)
		}
		if len(points) == 0 {
			continue
		}
		series = append(series, backtest.MarketSeries{Market: m, Points: points})
	}
	if id != "" && id != "all" && len(series) == 0 {
		return nil, fmt.Errorf("backtest: no stored series for market %s: %w", id, domain.ErrNotFound)
	}
	return series, nil
}

// WatchOptions parameterize the live price tail.
type WatchOptions struct {
	// MarketIDs are the stored markets whose tokens to subscribe to.
	MarketIDs []string
}

// WatchMode tails live trade prices for the given markets and appends them
// to the stored history until the context is cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies, opts WatchOptions) error {
	if len(opts.MarketIDs) == 0 {
		return fmt.Errorf("watch: at least one market id required: %w", domain.ErrInvalidInput)
	}

	var markets []domain.Market
	for _, id := range opts.MarketIDs {
		m, err := deps.Markets.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		markets = append(markets, m)
	}

	tail := feed.NewPriceTail(deps.WsURL, markets, deps.Prices, a.logger)
	err := tail.Run(ctx)
	if err != nil && ctx.Err() != nil {
		// Normal shutdown.
		return nil
	}
	return err
}
