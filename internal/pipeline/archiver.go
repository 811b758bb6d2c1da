package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// multipartThreshold is the payload size above which the archiver switches
// to multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// archivedPoint is the JSONL row format for archived series.
type archivedPoint struct {
	MarketID  string  `json:"market_id"`
	Timestamp int64   `json:"ts"`
	Price     float64 `json:"price"`
	Outcome   string  `json:"outcome,omitempty"`
}

// Archiver serializes collected price series to JSONL and uploads them to an
// object store, one object per market.
type Archiver struct {
	writer BlobWriter
	prefix string
	logger *slog.Logger
}

// NewArchiver creates an Archiver that writes objects under the given key
// prefix.
func NewArchiver(writer BlobWriter, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "series"
	}
	return &Archiver{writer: writer, prefix: prefix, logger: logger}
}

// ArchiveSeries uploads one market's series as a JSONL object keyed by the
// market ID. Re-archiving the same market overwrites the previous object.
func (a *Archiver) ArchiveSeries(ctx context.Context, market domain.Market, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range points {
		row := archivedPoint{
			MarketID:  p.MarketID,
			Timestamp: p.Timestamp,
			Price:     p.Price,
			Outcome:   p.Outcome,
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("archive series %s: encode: %w", market.ID, err)
		}
	}

	key := fmt.Sprintf("%s/%s.jsonl", a.prefix, market.ID)
	size := buf.Len()

	var err error
	if int64(size) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, &buf, 0)
	} else {
		err = a.writer.Put(ctx, key, &buf, "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("archive series %s: %w", market.ID, err)
	}

	a.logger.Debug("series archived",
		slog.String("market_id", market.ID),
		slog.String("key", key),
		slog.Int("bytes", size),
		slog.Int("points", len(points)),
	)
	return nil
}
