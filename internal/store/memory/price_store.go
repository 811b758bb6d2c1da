package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

type pointKey struct {
	ts      int64
	outcome string
}

// PriceStore keeps price points per market in memory.
type PriceStore struct {
	mu     sync.RWMutex
	series map[string]map[pointKey]domain.PricePoint

	// failNext, when set, makes the next InsertPoints call fail after
	// validating. Used in tests to exercise transactional behavior.
	failNext error
}

// NewPriceStore creates an empty in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{series: make(map[string]map[pointKey]domain.PricePoint)}
}

// FailNextInsert primes the store so the next InsertPoints call returns err
// without persisting anything.
func (s *PriceStore) FailNextInsert(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// InsertPoints stores a batch of points for one market. The batch is
// all-or-nothing: validation failures leave the store unchanged. Duplicate
// (ts, outcome) points are skipped. Returns the number of newly stored
// points.
func (s *PriceStore) InsertPoints(_ context.Context, marketID string, points []domain.PricePoint) (int, error) {
	if marketID == "" {
		return 0, fmt.Errorf("insert points: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return 0, err
	}

	for _, p := range points {
		if !p.Valid() {
			return 0, fmt.Errorf("insert points: point ts=%d: %w", p.Timestamp, domain.ErrInvalidInput)
		}
	}

	byKey := s.series[marketID]
	if byKey == nil {
		byKey = make(map[pointKey]domain.PricePoint)
		s.series[marketID] = byKey
	}

	inserted := 0
	for _, p := range points {
		key := pointKey{ts: p.Timestamp, outcome: p.Outcome}
		if _, exists := byKey[key]; exists {
			continue
		}
		byKey[key] = p
		inserted++
	}
	return inserted, nil
}

// GetSeries returns all points for a market ordered by timestamp ascending.
func (s *PriceStore) GetSeries(_ context.Context, marketID string) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.series[marketID]
	out := make([]domain.PricePoint, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out, nil
}

// CountPoints returns the number of stored points for a market.
func (s *PriceStore) CountPoints(_ context.Context, marketID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.series[marketID])), nil
}
