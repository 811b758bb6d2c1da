package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/store/memory"
)

func testApp() (*App, *Dependencies) {
	cfg := config.Defaults()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &Dependencies{
		Markets:  memory.NewMarketStore(),
		Prices:   memory.NewPriceStore(),
		Progress: memory.NewProgressStore(),
	}
	return New(&cfg, logger), deps
}

func TestBacktestModeUnknownMarketIsNotFound(t *testing.T) {
	app, deps := testApp()

	err := app.BacktestMode(context.Background(), deps, BacktestOptions{MarketID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBacktestModeMarketWithoutSeriesIsNotFound(t *testing.T) {
	app, deps := testApp()
	ctx := context.Background()

	require.NoError(t, deps.Markets.Upsert(ctx, domain.Market{ID: "m1", Question: "q", Closed: true}))

	err := app.BacktestMode(ctx, deps, BacktestOptions{MarketID: "m1"})
	assert.ErrorIs(t, err, domain.ErrNotFound,
		"a named market with no stored points reports not found")
}

func TestBacktestModeAllWithEmptyStoreSucceeds(t *testing.T) {
	app, deps := testApp()

	err := app.BacktestMode(context.Background(), deps, BacktestOptions{MarketID: "all"})
	assert.NoError(t, err)
}

func TestBacktestModeRunsStoredSeries(t *testing.T) {
	app, deps := testApp()
	ctx := context.Background()

	require.NoError(t, deps.Markets.Upsert(ctx, domain.Market{ID: "m1", Question: "q", Closed: true}))
	points := []domain.PricePoint{
		{MarketID: "m1", Timestamp: 100, Price: 0.5, Outcome: "Yes"},
		{MarketID: "m1", Timestamp: 200, Price: 0.52, Outcome: "Yes"},
		{MarketID: "m1", Timestamp: 300, Price: 0.48, Outcome: "Yes"},
	}
	_, err := deps.Prices.InsertPoints(ctx, "m1", points)
	require.NoError(t, err)

	err = app.BacktestMode(ctx, deps, BacktestOptions{MarketID: "m1"})
	assert.NoError(t, err)
}
