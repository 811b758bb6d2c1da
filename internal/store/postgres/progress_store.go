package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// ProgressStore tracks which markets a collection run has already handled.
type ProgressStore struct {
	pool *pgxpool.Pool
}

// NewProgressStore creates a ProgressStore backed by the given client.
func NewProgressStore(client *Client) *ProgressStore {
	return &ProgressStore{pool: client.Pool()}
}

// ProcessedIDs returns the set of market IDs marked as processed.
func (s *ProgressStore) ProcessedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, "SELECT market_id FROM collection_progress")
	if err != nil {
		return nil, fmt.Errorf("processed ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("processed ids: scan: %w", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("processed ids: %w", err)
	}
	return out, nil
}

// MarkProcessed records a market as handled with the given status. Calling
// it again for the same market overwrites the status.
func (s *ProgressStore) MarkProcessed(ctx context.Context, marketID string, status domain.CollectionStatus) error {
	if marketID == "" {
		return fmt.Errorf("mark processed: %w", domain.ErrInvalidInput)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collection_progress (market_id, status, processed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			status       = EXCLUDED.status,
			processed_at = NOW()`,
		marketID, string(status),
	)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", marketID, err)
	}
	return nil
}

// Reset clears all progress records, forcing the next run to re-collect
// everything.
func (s *ProgressStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE collection_progress"); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}
