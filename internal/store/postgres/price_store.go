package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// PriceStore persists price history points in PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given client.
func NewPriceStore(client *Client) *PriceStore {
	return &PriceStore{pool: client.Pool()}
}

// InsertPoints writes a batch of price points for one market in a single
// transaction. Points already present are skipped. Returns the number of
// newly inserted rows; on any error the transaction rolls back and nothing
// is persisted.
func (s *PriceStore) InsertPoints(ctx context.Context, marketID string, points []domain.PricePoint) (int, error) {
	if marketID == "" {
		return 0, fmt.Errorf("insert points: %w", domain.ErrInvalidInput)
	}
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert points: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertSQL = `
		INSERT INTO price_history (market_id, ts, price, outcome)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (market_id, ts, outcome) DO NOTHING`

	inserted := 0
	for _, p := range points {
		if !p.Valid() {
			return 0, fmt.Errorf("insert points: point ts=%d: %w", p.Timestamp, domain.ErrInvalidInput)
		}
		tag, err := tx.Exec(ctx, insertSQL, marketID, p.Timestamp, p.Price, p.Outcome)
		if err != nil {
			return 0, fmt.Errorf("insert points: ts=%d: %w", p.Timestamp, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("insert points: commit: %w", err)
	}
	return inserted, nil
}

// GetSeries returns all price points for a market ordered by timestamp
// ascending.
func (s *PriceStore) GetSeries(ctx context.Context, marketID string) ([]domain.PricePoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id, ts, price, outcome
		FROM price_history
		WHERE market_id = $1
		ORDER BY ts ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", marketID, err)
	}
	defer rows.Close()

	var out []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.MarketID, &p.Timestamp, &p.Price, &p.Outcome); err != nil {
			return nil, fmt.Errorf("get series %s: scan: %w", marketID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get series %s: %w", marketID, err)
	}
	return out, nil
}

// CountPoints returns the number of stored points for a market.
func (s *PriceStore) CountPoints(ctx context.Context, marketID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM price_history WHERE market_id = $1", marketID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count points %s: %w", marketID, err)
	}
	return n, nil
}
