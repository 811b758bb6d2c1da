// Package pipeline contains the market discovery and price collection
// pipelines plus their shared pacing and archival helpers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// MarketFetcher retrieves a page of markets from an external API.
type MarketFetcher interface {
	GetMarkets(ctx context.Context, limit, offset int, closedOnly bool) ([]domain.Market, error)
}

// DiscoveryConfig tunes a discovery run.
type DiscoveryConfig struct {
	// PageSize is the number of markets requested per API page.
	PageSize int
	// MaxPages caps the number of pages scanned in one run.
	MaxPages int
	// MaxMarkets, when > 0, stops discovery after that many candidates.
	MaxMarkets int
}

// Discovery paginates through closed markets, keeps the ones that resolved
// within a time window, and persists them.
type Discovery struct {
	fetcher MarketFetcher
	markets domain.MarketStore
	cfg     DiscoveryConfig
	logger  *slog.Logger
}

// NewDiscovery creates a Discovery. Zero config fields fall back to a page
// size of 100 and a cap of 200 pages.
func NewDiscovery(fetcher MarketFetcher, markets domain.MarketStore, cfg DiscoveryConfig, logger *slog.Logger) *Discovery {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	return &Discovery{
		fetcher: fetcher,
		markets: markets,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run scans pages of closed markets and returns the candidates whose end
// date falls inside window, persisting each accepted batch. Results from the
// API are not assumed to arrive in any date order, so the scan only stops on
// an empty page, a short page, or the page cap. Duplicate IDs across pages
// are kept once.
func (d *Discovery) Run(ctx context.Context, window domain.TimeRange) ([]domain.Market, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("discovery: window start after end: %w", domain.ErrInvalidInput)
	}

	seen := make(map[string]struct{})
	var candidates []domain.Market
	offset := 0
	scanned := 0

	for page := 0; page < d.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return candidates, fmt.Errorf("discovery cancelled: %w", err)
		}

		markets, err := d.fetcher.GetMarkets(ctx, d.cfg.PageSize, offset, true)
		if err != nil {
			return candidates, fmt.Errorf("discovery: page at offset %d: %w", offset, err)
		}
		if len(markets) == 0 {
			break
		}
		scanned += len(markets)

		var batch []domain.Market
		for _, m := range markets {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}

			if !m.Closed || m.EndDate == nil || !window.Contains(*m.EndDate) {
				continue
			}
			batch = append(batch, m)
		}

		if len(batch) > 0 {
			if err := d.markets.UpsertBatch(ctx, batch); err != nil {
				return candidates, fmt.Errorf("discovery: persist batch at offset %d: %w", offset, err)
			}
			candidates = append(candidates, batch...)
		}

		d.logger.Debug("discovery page scanned",
			slog.Int("offset", offset),
			slog.Int("page_size", len(markets)),
			slog.Int("accepted", len(batch)),
			slog.Int("candidates", len(candidates)),
		)

		if d.cfg.MaxMarkets > 0 && len(candidates) >= d.cfg.MaxMarkets {
			candidates = candidates[:d.cfg.MaxMarkets]
			break
		}
		if len(markets) < d.cfg.PageSize {
			break
		}
		offset += d.cfg.PageSize
	}

	d.logger.Info("discovery complete",
		slog.Int("scanned", scanned),
		slog.Int("candidates", len(candidates)),
	)
	return candidates, nil
}
