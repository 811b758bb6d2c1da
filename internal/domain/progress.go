package domain

// CollectionStatus records how a market left the collection pipeline. A
// skipped market is not the same thing as a market that genuinely has no
// history; the distinction is kept so run summaries stay honest.
type CollectionStatus string

const (
	// StatusCollected means points were fetched and durably stored.
	StatusCollected CollectionStatus = "collected"
	// StatusNoToken means the market record had no parseable token ID, so
	// its series can never be fetched. Marked processed to avoid retrying
	// the same malformed input forever.
	StatusNoToken CollectionStatus = "no_token"
	// StatusFetchFailed means the upstream fetch failed after retries. The
	// market is NOT marked processed and becomes eligible on the next run.
	StatusFetchFailed CollectionStatus = "fetch_failed"
	// StatusEmptyHistory means the upstream responded with zero points.
	StatusEmptyHistory CollectionStatus = "empty_history"
)

// RunSummary aggregates per-market outcomes for one collection run.
type RunSummary struct {
	RunID        string
	Discovered   int
	Remaining    int
	Collected    int
	NoToken      int
	FetchFailed  int
	EmptyHistory int
	PointsStored int
}

// Record tallies one market outcome into the summary.
func (s *RunSummary) Record(status CollectionStatus, points int) {
	switch status {
	case StatusCollected:
		s.Collected++
		s.PointsStored += points
	case StatusNoToken:
		s.NoToken++
	case StatusFetchFailed:
		s.FetchFailed++
	case StatusEmptyHistory:
		s.EmptyHistory++
	}
}
