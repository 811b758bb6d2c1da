package domain

import "time"

// Market represents a Polymarket prediction market as stored locally.
// ID is the upstream primary key and is stable across re-runs; re-fetching
// the same market upserts rather than duplicating.
type Market struct {
	ID        string
	Question  string
	Slug      string
	Outcomes  [2]string // e.g. ["Yes","No"] or ["Up","Down"]
	TokenIDs  [2]string // CLOB token IDs, used to query price history
	Volume    float64
	Closed    bool
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenID returns the series identifier used to fetch a market's price
// history. The first CLOB token corresponds to the first outcome (usually
// "Yes"). An empty return means the upstream record had no usable token.
func (m *Market) TokenID() string {
	return m.TokenIDs[0]
}

// TimeRange is a closed interval of wall-clock time used to filter markets
// by end date during discovery.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range, inclusive of both ends.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Valid reports whether the range is well-formed.
func (r TimeRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}
