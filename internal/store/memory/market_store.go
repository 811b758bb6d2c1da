// Package memory provides in-memory implementations of the domain store
// interfaces, used in tests and for dry runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// MarketStore keeps markets in a map guarded by a mutex.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
	now     domain.Clock
}

// NewMarketStore creates an empty in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		markets: make(map[string]domain.Market),
		now:     time.Now,
	}
}

// Upsert inserts or updates a market keyed by ID.
func (s *MarketStore) Upsert(_ context.Context, m domain.Market) error {
	if m.ID == "" {
		return fmt.Errorf("upsert market: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.markets[m.ID]; ok {
		m.CreatedAt = existing.CreatedAt
	} else {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.markets[m.ID] = m
	return nil
}

// UpsertBatch writes all markets or none. Validation runs before any write
// so a bad record leaves the store untouched.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	for _, m := range markets {
		if m.ID == "" {
			return fmt.Errorf("upsert batch: %w", domain.ErrInvalidInput)
		}
	}
	for _, m := range markets {
		if err := s.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a market by its ID.
func (s *MarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// ListClosedWithin returns closed markets whose end date lies within window,
// ordered by end date ascending. A limit <= 0 means no limit.
func (s *MarketStore) ListClosedWithin(_ context.Context, window domain.TimeRange, limit int) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Market
	for _, m := range s.markets {
		if !m.Closed || m.EndDate == nil {
			continue
		}
		if !window.Contains(*m.EndDate) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndDate.Before(*out[j].EndDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the total number of stored markets.
func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}
