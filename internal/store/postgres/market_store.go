package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// MarketStore persists markets in PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given client.
func NewMarketStore(client *Client) *MarketStore {
	return &MarketStore{pool: client.Pool()}
}

const upsertMarketSQL = `
	INSERT INTO markets (
		id, question, slug, outcome_yes, outcome_no, token_yes, token_no,
		volume, closed, end_date, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET
		question    = EXCLUDED.question,
		slug        = EXCLUDED.slug,
		outcome_yes = EXCLUDED.outcome_yes,
		outcome_no  = EXCLUDED.outcome_no,
		token_yes   = EXCLUDED.token_yes,
		token_no    = EXCLUDED.token_no,
		volume      = EXCLUDED.volume,
		closed      = EXCLUDED.closed,
		end_date    = EXCLUDED.end_date,
		updated_at  = NOW()`

// Upsert inserts or updates a single market keyed by its ID.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	if m.ID == "" {
		return fmt.Errorf("upsert market: %w", domain.ErrInvalidInput)
	}

	_, err := s.pool.Exec(ctx, upsertMarketSQL,
		m.ID, m.Question, m.Slug,
		m.Outcomes[0], m.Outcomes[1],
		m.TokenIDs[0], m.TokenIDs[1],
		m.Volume, m.Closed, m.EndDate,
	)
	if err != nil {
		return fmt.Errorf("upsert market %s: %w", m.ID, err)
	}
	return nil
}

// UpsertBatch writes a batch of markets inside one transaction. Either all
// rows land or none do.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upsert batch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range markets {
		if m.ID == "" {
			return fmt.Errorf("upsert batch: %w", domain.ErrInvalidInput)
		}
		_, err := tx.Exec(ctx, upsertMarketSQL,
			m.ID, m.Question, m.Slug,
			m.Outcomes[0], m.Outcomes[1],
			m.TokenIDs[0], m.TokenIDs[1],
			m.Volume, m.Closed, m.EndDate,
		)
		if err != nil {
			return fmt.Errorf("upsert batch: market %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("upsert batch: commit: %w", err)
	}
	return nil
}

const selectMarketSQL = `
	SELECT id, question, slug, outcome_yes, outcome_no, token_yes, token_no,
	       volume, closed, end_date, created_at, updated_at
	FROM markets`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var endDate *time.Time
	err := row.Scan(
		&m.ID, &m.Question, &m.Slug,
		&m.Outcomes[0], &m.Outcomes[1],
		&m.TokenIDs[0], &m.TokenIDs[1],
		&m.Volume, &m.Closed, &endDate,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.EndDate = endDate
	return m, nil
}

// GetByID fetches a market by its ID.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx, selectMarketSQL+" WHERE id = $1", id)
	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("get market %s: %w", id, err)
	}
	return m, nil
}

// ListClosedWithin returns closed markets whose end date lies within window,
// ordered by end date ascending. A limit <= 0 means no limit.
func (s *MarketStore) ListClosedWithin(ctx context.Context, window domain.TimeRange, limit int) ([]domain.Market, error) {
	query := selectMarketSQL + `
		WHERE closed = TRUE
		  AND end_date IS NOT NULL
		  AND end_date >= $1 AND end_date <= $2
		ORDER BY end_date ASC`
	args := []any{window.Start, window.End}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list closed markets: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("list closed markets: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list closed markets: %w", err)
	}
	return out, nil
}

// Count returns the total number of stored markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count markets: %w", err)
	}
	return n, nil
}
