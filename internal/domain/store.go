package domain

import (
	"context"
	"time"
)

// MarketStore persists discovered markets. Upsert semantics are
// last-write-wins on mutable fields (volume, closed, end date).
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListClosedWithin(ctx context.Context, window TimeRange, limit int) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PriceStore persists price history. InsertPoints stores all points for one
// market in a single transaction; duplicate (market_id, ts, outcome) keys
// are ignored, not replaced. GetSeries returns points ordered by timestamp
// ascending regardless of insertion order.
type PriceStore interface {
	InsertPoints(ctx context.Context, marketID string, points []PricePoint) (int, error)
	GetSeries(ctx context.Context, marketID string) ([]PricePoint, error)
	CountPoints(ctx context.Context, marketID string) (int64, error)
}

// ProgressStore tracks which market IDs have been fully processed so an
// interrupted run can resume. MarkProcessed must be called only after the
// market's points are durably stored.
type ProgressStore interface {
	ProcessedIDs(ctx context.Context) (map[string]struct{}, error)
	MarkProcessed(ctx context.Context, marketID string, status CollectionStatus) error
	Reset(ctx context.Context) error
}

// Limiter gates outbound requests against the upstream API. Wait blocks
// until the caller may issue one request; the inter-request pacing it
// enforces is a correctness requirement, not an optimization.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time
