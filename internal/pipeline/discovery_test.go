package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tp(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testWindow() domain.TimeRange {
	return domain.TimeRange{
		Start: *tp("2025-01-01T00:00:00Z"),
		End:   *tp("2026-02-28T23:59:59Z"),
	}
}

// pagedFetcher serves markets in fixed-size pages and counts requests.
type pagedFetcher struct {
	markets []domain.Market
	pages   int
	err     error
}

func (f *pagedFetcher) GetMarkets(_ context.Context, limit, offset int, _ bool) ([]domain.Market, error) {
	f.pages++
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.markets) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.markets) {
		end = len(f.markets)
	}
	return f.markets[offset:end], nil
}

func closedMarket(id, end string) domain.Market {
	return domain.Market{ID: id, Closed: true, EndDate: tp(end)}
}

func TestDiscoveryFiltersByWindow(t *testing.T) {
	fetcher := &pagedFetcher{markets: []domain.Market{
		closedMarket("before", "2024-12-31T00:00:00Z"),
		closedMarket("inside", "2025-06-15T00:00:00Z"),
		closedMarket("after", "2026-03-01T00:00:00Z"),
	}}
	store := memory.NewMarketStore()
	d := NewDiscovery(fetcher, store, DiscoveryConfig{PageSize: 100}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].ID)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDiscoverySkipsOpenAndUndatedMarkets(t *testing.T) {
	fetcher := &pagedFetcher{markets: []domain.Market{
		{ID: "open", Closed: false, EndDate: tp("2025-06-15T00:00:00Z")},
		{ID: "no-date", Closed: true},
		closedMarket("ok", "2025-06-15T00:00:00Z"),
	}}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestDiscoveryScansAllPagesDespiteDateOrder(t *testing.T) {
	// A market inside the window appears on the last page, after pages of
	// out-of-window markets. Discovery must not stop early on dates.
	var markets []domain.Market
	for i := 0; i < 4; i++ {
		markets = append(markets, closedMarket("old-"+string(rune('a'+i)), "2020-01-01T00:00:00Z"))
	}
	markets = append(markets, closedMarket("late", "2025-06-15T00:00:00Z"))

	fetcher := &pagedFetcher{markets: markets}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{PageSize: 2}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)
	assert.Equal(t, 3, fetcher.pages)
}

func TestDiscoveryDeduplicatesAcrossPages(t *testing.T) {
	fetcher := &pagedFetcher{markets: []domain.Market{
		closedMarket("dup", "2025-06-15T00:00:00Z"),
		closedMarket("dup", "2025-06-15T00:00:00Z"),
		closedMarket("other", "2025-07-01T00:00:00Z"),
	}}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{PageSize: 2}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDiscoveryStopsOnShortPage(t *testing.T) {
	fetcher := &pagedFetcher{markets: []domain.Market{
		closedMarket("a", "2025-06-15T00:00:00Z"),
	}}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{PageSize: 100}, testLogger())

	_, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.pages)
}

func TestDiscoveryHonorsMaxPages(t *testing.T) {
	var markets []domain.Market
	for i := 0; i < 10; i++ {
		markets = append(markets, closedMarket("m-"+string(rune('a'+i)), "2025-06-15T00:00:00Z"))
	}
	fetcher := &pagedFetcher{markets: markets}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{PageSize: 2, MaxPages: 3}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Len(t, got, 6)
	assert.Equal(t, 3, fetcher.pages)
}

func TestDiscoveryHonorsMaxMarkets(t *testing.T) {
	var markets []domain.Market
	for i := 0; i < 10; i++ {
		markets = append(markets, closedMarket("m-"+string(rune('a'+i)), "2025-06-15T00:00:00Z"))
	}
	fetcher := &pagedFetcher{markets: markets}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{PageSize: 4, MaxMarkets: 5}, testLogger())

	got, err := d.Run(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestDiscoveryPropagatesFetchError(t *testing.T) {
	boom := errors.New("gamma down")
	fetcher := &pagedFetcher{err: boom}
	d := NewDiscovery(fetcher, memory.NewMarketStore(), DiscoveryConfig{}, testLogger())

	_, err := d.Run(context.Background(), testWindow())
	assert.ErrorIs(t, err, boom)
}

func TestDiscoveryRejectsInvertedWindow(t *testing.T) {
	d := NewDiscovery(&pagedFetcher{}, memory.NewMarketStore(), DiscoveryConfig{}, testLogger())
	window := domain.TimeRange{
		Start: *tp("2026-01-01T00:00:00Z"),
		End:   *tp("2025-01-01T00:00:00Z"),
	}
	_, err := d.Run(context.Background(), window)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLocalLimiterPacesCalls(t *testing.T) {
	l := NewLocalLimiter(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "test"))
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestLocalLimiterZeroDelayIsNoop(t *testing.T) {
	l := NewLocalLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "test"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLocalLimiterHonorsContext(t *testing.T) {
	l := NewLocalLimiter(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Wait(ctx, "test"))
	cancel()
	err := l.Wait(ctx, "test")
	assert.ErrorIs(t, err, context.Canceled)
}
