// Command polyhist collects Polymarket price histories and backtests
// strategies against them. It exposes three subcommands:
//
//	polyhist collect  --window=2025-01-01..2026-02-28 [--limit=N] [--resume=false] [--reset]
//	polyhist backtest --market=<id|all> [--strategy=name] [--params=k=v,...] [--sizing=fixed|kelly]
//	polyhist watch    --markets=<id,...>
//
// Exit codes: 0 on success, 1 on configuration or runtime failure, 2 when a
// backtest names a market that is not in the store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/app"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

const usage = `usage: polyhist <collect|backtest|watch> [flags]

subcommands:
  collect    discover closed markets in a window and collect their histories
  backtest   replay stored histories through a strategy and print a report
  watch      tail live trade prices for stored markets

run "polyhist <subcommand> -h" for flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// Exit code 2 signals "market not found" to scripts driving backtests.
	code, err := run(os.Args[1], os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "polyhist: %v\n", err)
	}
	os.Exit(code)
}

func run(subcommand string, args []string) (int, error) {
	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")

	var (
		windowFlag   *string
		limitFlag    *int
		resumeFlag   *bool
		resetFlag    *bool
		marketFlag   *string
		strategyFlag *string
		paramsFlag   *string
		sizingFlag   *string
		marketsFlag  *string
	)

	switch subcommand {
	case "collect":
		windowFlag = fs.String("window", "", "resolution date window, start..end (YYYY-MM-DD)")
		limitFlag = fs.Int("limit", 0, "max markets to collect (0 = no cap)")
		resumeFlag = fs.Bool("resume", true, "resume from previous progress; false starts fresh")
		resetFlag = fs.Bool("reset", false, "clear progress and re-collect everything")
	case "backtest":
		marketFlag = fs.String("market", "all", "market id, or all")
		strategyFlag = fs.String("strategy", "", "strategy name (default from config)")
		paramsFlag = fs.String("params", "", "strategy params, k=v comma separated")
		sizingFlag = fs.String("sizing", "", "position sizing: fixed or kelly (default from config)")
	case "watch":
		marketsFlag = fs.String("markets", "", "comma separated market ids to tail")
	default:
		fmt.Fprint(os.Stderr, usage)
		return 1, nil
	}

	if err := fs.Parse(args); err != nil {
		return 1, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return 1, fmt.Errorf("load config %s: %w", *configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return 1, err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return 1, err
	}
	defer cleanup()

	application := app.New(cfg, logger)

	switch subcommand {
	case "collect":
		window, err := parseWindow(*windowFlag)
		if err != nil {
			return 1, err
		}
		err = application.CollectMode(ctx, deps, app.CollectOptions{
			Window: window,
			Limit:  *limitFlag,
			Reset:  *resetFlag || !*resumeFlag,
		})
		return exitCode(err), errOrNil(err)

	case "backtest":
		params, err := parseParams(*paramsFlag)
		if err != nil {
			return 1, err
		}
		err = application.BacktestMode(ctx, deps, app.BacktestOptions{
			MarketID: *marketFlag,
			Strategy: *strategyFlag,
			Params:   params,
			Sizing:   *sizingFlag,
		})
		return exitCode(err), errOrNil(err)

	case "watch":
		var ids []string
		for _, id := range strings.Split(*marketsFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		err = application.WatchMode(ctx, deps, app.WatchOptions{MarketIDs: ids})
		return exitCode(err), errOrNil(err)
	}
	return 1, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// Logs go to stderr so the backtest JSON report owns stdout.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrNotFound):
		return 2
	default:
		return 1
	}
}

func errOrNil(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// parseWindow parses "start..end" with date-only or RFC3339 bounds. The end
// of a date-only bound is pushed to the end of that day so the window stays
// inclusive.
func parseWindow(s string) (domain.TimeRange, error) {
	if s == "" {
		return domain.TimeRange{}, fmt.Errorf("collect: --window is required (start..end)")
	}
	parts := strings.SplitN(s, "..", 2)
	if len(parts) != 2 {
		return domain.TimeRange{}, fmt.Errorf("collect: malformed window %q, want start..end", s)
	}

	start, err := parseBound(parts[0], false)
	if err != nil {
		return domain.TimeRange{}, fmt.Errorf("collect: window start: %w", err)
	}
	end, err := parseBound(parts[1], true)
	if err != nil {
		return domain.TimeRange{}, fmt.Errorf("collect: window end: %w", err)
	}

	window := domain.TimeRange{Start: start, End: end}
	if !window.Valid() {
		return domain.TimeRange{}, fmt.Errorf("collect: window start after end")
	}
	return window, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: want YYYY-MM-DD or RFC3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.UTC(), nil
}

// parseParams parses "k=v,k=v" strategy parameters.
func parseParams(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("malformed param %q, want k=v", pair)
		}
		params[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return params, nil
}
