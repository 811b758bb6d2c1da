package domain

// PricePoint is one observation of a market's implied probability.
// Points are append-only: the store keeps at most one value per
// (MarketID, Timestamp, Outcome) and orders reads by Timestamp ascending.
type PricePoint struct {
	MarketID  string
	Timestamp int64 // seconds since epoch
	Price     float64
	Outcome   string // which side the price belongs to, may be empty
}

// Valid reports whether the point carries the fields required for replay.
// Price is an implied probability and must lie in [0,1].
func (p PricePoint) Valid() bool {
	return p.MarketID != "" && p.Timestamp > 0 && p.Price >= 0 && p.Price <= 1
}
