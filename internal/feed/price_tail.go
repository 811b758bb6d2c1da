// Package feed tails live trade prices over the CLOB WebSocket and appends
// them to the stored history of tracked markets.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/platform/polymarket"
)

const (
	// reconnectDelay is the base delay before a reconnect attempt.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the reconnect backoff.
	maxReconnectDelay = 60 * time.Second
)

// PriceTail subscribes to last trade prices for a set of token IDs and
// persists each print as a price point for its market. It reconnects with
// exponential backoff until the context is cancelled.
type PriceTail struct {
	wsURL   string
	tokens  map[string]domain.Market // token ID -> market
	prices  domain.PriceStore
	logger  *slog.Logger
}

// NewPriceTail creates a PriceTail for the given markets. Markets without a
// token ID are skipped.
func NewPriceTail(wsURL string, markets []domain.Market, prices domain.PriceStore, logger *slog.Logger) *PriceTail {
	tokens := make(map[string]domain.Market)
	for _, m := range markets {
		if tok := m.TokenID(); tok != "" {
			tokens[tok] = m
		}
	}
	return &PriceTail{
		wsURL:  wsURL,
		tokens: tokens,
		prices: prices,
		logger: logger.With(slog.String("component", "price_tail")),
	}
}

// Run connects and streams until ctx is cancelled. Connection drops trigger
// reconnects with exponential backoff; persistence errors for individual
// prints are logged and skipped.
func (t *PriceTail) Run(ctx context.Context) error {
	if len(t.tokens) == 0 {
		t.logger.Info("no token ids to tail, exiting")
		return nil
	}

	assetIDs := make([]string, 0, len(t.tokens))
	for tok := range t.tokens {
		assetIDs = append(assetIDs, tok)
	}

	delay := reconnectDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := t.runConnection(ctx, assetIDs)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.Warn("ws disconnected, reconnecting",
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (t *PriceTail) runConnection(ctx context.Context, assetIDs []string) error {
	client := polymarket.NewWSClient(t.wsURL, func(trade polymarket.LastTrade) {
		t.store(ctx, trade)
	})
	defer client.Close()

	if err := client.Connect(ctx, assetIDs); err != nil {
		return err
	}
	t.logger.Info("subscribed to last trade prices", slog.Int("assets", len(assetIDs)))

	return client.Listen(ctx)
}

func (t *PriceTail) store(ctx context.Context, trade polymarket.LastTrade) {
	market, ok := t.tokens[trade.AssetID]
	if !ok {
		return
	}

	point := domain.PricePoint{
		MarketID:  market.ID,
		Timestamp: trade.Timestamp,
		Price:     trade.Price,
		Outcome:   market.Outcomes[0],
	}
	if !point.Valid() {
		return
	}

	if _, err := t.prices.InsertPoints(ctx, market.ID, []domain.PricePoint{point}); err != nil {
		t.logger.Warn("storing trade print failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	t.logger.Debug("trade print stored",
		slog.String("market_id", market.ID),
		slog.Float64("price", trade.Price),
		slog.String("side", trade.Side),
	)
}
