package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// ProgressStore tracks processed markets in memory.
type ProgressStore struct {
	mu        sync.RWMutex
	processed map[string]domain.CollectionStatus
}

// NewProgressStore creates an empty in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{processed: make(map[string]domain.CollectionStatus)}
}

// ProcessedIDs returns the set of market IDs marked as processed.
func (s *ProgressStore) ProcessedIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{}, len(s.processed))
	for id := range s.processed {
		out[id] = struct{}{}
	}
	return out, nil
}

// MarkProcessed records a market as handled with the given status.
func (s *ProgressStore) MarkProcessed(_ context.Context, marketID string, status domain.CollectionStatus) error {
	if marketID == "" {
		return fmt.Errorf("mark processed: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[marketID] = status
	return nil
}

// Status returns the recorded status for a market, if any.
func (s *ProgressStore) Status(marketID string) (domain.CollectionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.processed[marketID]
	return st, ok
}

// Reset clears all progress records.
func (s *ProgressStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[string]domain.CollectionStatus)
	return nil
}
