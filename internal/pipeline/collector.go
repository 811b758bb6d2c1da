package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/platform/polymarket"
)

// HistoryFetcher retrieves the full price history for one token.
type HistoryFetcher interface {
	GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) (polymarket.APIHistory, error)
}

// SeriesArchiver receives a collected series for cold storage. Archival
// failures are logged but never fail the run.
type SeriesArchiver interface {
	ArchiveSeries(ctx context.Context, market domain.Market, points []domain.PricePoint) error
}

// CollectorConfig tunes a collection run.
type CollectorConfig struct {
	// Interval is the history range passed to the API, e.g. "max".
	Interval string
	// Fidelity is the sample resolution in minutes.
	Fidelity int
	// Workers is the number of concurrent market fetches. Values above one
	// only make sense with a limiter shared across workers.
	Workers int
}

// Collector fetches price history for discovered markets, persists each
// series transactionally, and records per-market progress so interrupted
// runs resume where they left off.
type Collector struct {
	fetcher  HistoryFetcher
	prices   domain.PriceStore
	progress domain.ProgressStore
	archiver SeriesArchiver
	cfg      CollectorConfig
	logger   *slog.Logger
}

// NewCollector creates a Collector. The archiver may be nil.
func NewCollector(
	fetcher HistoryFetcher,
	prices domain.PriceStore,
	progress domain.ProgressStore,
	archiver SeriesArchiver,
	cfg CollectorConfig,
	logger *slog.Logger,
) *Collector {
	if cfg.Interval == "" {
		cfg.Interval = "max"
	}
	if cfg.Fidelity <= 0 {
		cfg.Fidelity = 60
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Collector{
		fetcher:  fetcher,
		prices:   prices,
		progress: progress,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run collects history for every market not yet marked as processed. Markets
// whose fetch or persist fails stay unmarked so the next run retries them;
// all other outcomes are recorded as processed. A cancelled context stops
// the run after in-flight markets finish, leaving progress consistent.
func (c *Collector) Run(ctx context.Context, markets []domain.Market) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:      uuid.NewString(),
		Discovered: len(markets),
	}

	processed, err := c.progress.ProcessedIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("collector: load progress: %w", err)
	}

	var remaining []domain.Market
	for _, m := range markets {
		if _, done := processed[m.ID]; done {
			continue
		}
		remaining = append(remaining, m)
	}
	summary.Remaining = len(remaining)

	c.logger.Info("collection run starting",
		slog.String("run_id", summary.RunID),
		slog.Int("discovered", summary.Discovered),
		slog.Int("remaining", summary.Remaining),
		slog.Int("workers", c.cfg.Workers),
	)

	var mu sync.Mutex
	record := func(status domain.CollectionStatus, points int) {
		mu.Lock()
		summary.Record(status, points)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for _, m := range remaining {
		m := m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, points := c.collectOne(gctx, m)
			record(status, points)
			return nil
		})
	}

	runErr := g.Wait()

	c.logger.Info("collection run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("collected", summary.Collected),
		slog.Int("no_token", summary.NoToken),
		slog.Int("fetch_failed", summary.FetchFailed),
		slog.Int("empty_history", summary.EmptyHistory),
		slog.Int("points_stored", summary.PointsStored),
	)

	if runErr != nil {
		return summary, fmt.Errorf("collector: %w", runErr)
	}
	return summary, nil
}

// collectOne handles a single market and returns its outcome status and the
// number of points stored. Only fetch and persist failures leave the market
// unmarked.
func (c *Collector) collectOne(ctx context.Context, m domain.Market) (domain.CollectionStatus, int) {
	log := c.logger.With(slog.String("market_id", m.ID))

	tokenID := m.TokenID()
	if tokenID == "" {
		log.Warn("market has no token id, skipping")
		c.mark(ctx, m.ID, domain.StatusNoToken)
		return domain.StatusNoToken, 0
	}

	hist, err := c.fetcher.GetPriceHistory(ctx, tokenID, c.cfg.Interval, c.cfg.Fidelity)
	if err != nil {
		log.Warn("price history fetch failed", slog.String("error", err.Error()))
		return domain.StatusFetchFailed, 0
	}

	points, dropped := hist.ToDomainPoints(m.ID, m.Outcomes[0])
	if dropped > 0 {
		log.Warn("dropped invalid price points", slog.Int("dropped", dropped))
	}
	if len(points) == 0 {
		log.Info("empty price history")
		c.mark(ctx, m.ID, domain.StatusEmptyHistory)
		return domain.StatusEmptyHistory, 0
	}

	inserted, err := c.prices.InsertPoints(ctx, m.ID, points)
	if err != nil {
		log.Warn("persisting price points failed", slog.String("error", err.Error()))
		return domain.StatusFetchFailed, 0
	}

	// Marked only after the series is committed, so a crash between fetch
	// and persist re-collects the market instead of losing it.
	c.mark(ctx, m.ID, domain.StatusCollected)
	log.Info("market collected",
		slog.Int("points", len(points)),
		slog.Int("inserted", inserted),
	)

	if c.archiver != nil {
		if err := c.archiver.ArchiveSeries(ctx, m, points); err != nil {
			log.Warn("series archival failed", slog.String("error", err.Error()))
		}
	}

	return domain.StatusCollected, inserted
}

func (c *Collector) mark(ctx context.Context, marketID string, status domain.CollectionStatus) {
	if err := c.progress.MarkProcessed(ctx, marketID, status); err != nil {
		c.logger.Error("marking progress failed",
			slog.String("market_id", marketID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}
