package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "closed" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma sends
// volume both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Tolerate junk volume rather than dropping the whole record.
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Upstream field names drift between deployments (endDate vs end_date_iso,
// closedTime); all known spellings are mapped here so nothing past this
// boundary sees a raw upstream shape.
type APIMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	Closed        flexBool  `json:"closed"`
	Volume        flexFloat `json:"volume"`
	Outcomes      string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	ClobTokenIDs  string    `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	EndDate       string    `json:"endDate"`
	EndDateISO    string    `json:"end_date_iso"`
	ClosedTime    string    `json:"closedTime"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded terminal prices
}

// endDateCandidates returns the raw end-date strings in precedence order.
func (m *APIMarket) endDateCandidates() []string {
	return []string{m.EndDateISO, m.EndDate, m.ClosedTime}
}

// parseTimeFlexible accepts RFC 3339 plus the legacy "2006-01-02 15:04:05+00"
// shape seen in closedTime fields.
func parseTimeFlexible(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05-07", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decodeStringArray parses Gamma's JSON-encoded-string arrays
// ("[\"Yes\",\"No\"]"). A missing or malformed value yields nil.
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// ToDomainMarket normalizes a Gamma APIMarket into the canonical store shape.
// Records with an empty ID are unusable and should be skipped by the caller.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:       m.ID,
		Question: m.Question,
		Slug:     m.Slug,
		Closed:   bool(m.Closed),
		Volume:   float64(m.Volume),
		Outcomes: [2]string{"Yes", "No"},
	}
	if dm.Question == "" {
		dm.Question = "Unknown"
	}

	if outcomes := decodeStringArray(m.Outcomes); len(outcomes) > 0 {
		for i := 0; i < len(outcomes) && i < 2; i++ {
			dm.Outcomes[i] = outcomes[i]
		}
	}
	if tokens := decodeStringArray(m.ClobTokenIDs); len(tokens) > 0 {
		for i := 0; i < len(tokens) && i < 2; i++ {
			dm.TokenIDs[i] = tokens[i]
		}
	}

	for _, raw := range m.endDateCandidates() {
		if t, ok := parseTimeFlexible(raw); ok {
			dm.EndDate = &t
			break
		}
	}
	if t, ok := parseTimeFlexible(m.CreatedAt); ok {
		dm.CreatedAt = t
	}
	if t, ok := parseTimeFlexible(m.UpdatedAt); ok {
		dm.UpdatedAt = t
	}

	return dm
}

// TerminalPrices returns the final outcome prices for a resolved market, in
// outcome order. Nil when absent or malformed.
func (m *APIMarket) TerminalPrices() []float64 {
	raw := decodeStringArray(m.OutcomePrices)
	if raw == nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		out = append(out, p)
	}
	return out
}

// --------------------------------------------------------------------------
// CLOB prices-history DTOs
// --------------------------------------------------------------------------

// APIHistory is the envelope of the CLOB prices-history endpoint.
type APIHistory struct {
	History []APIPricePoint `json:"history"`
}

// APIPricePoint is one {t, p} observation. The price arrives as a number in
// practice but is accepted as a string too.
type APIPricePoint struct {
	T int64     `json:"t"`
	P flexFloat `json:"p"`
}

// ToDomainPoints converts history entries into validated PricePoints for the
// given market. Entries missing a timestamp or carrying an out-of-range
// price are dropped individually; the rest of the batch survives.
func (h *APIHistory) ToDomainPoints(marketID, outcome string) (points []domain.PricePoint, dropped int) {
	for _, raw := range h.History {
		pt := domain.PricePoint{
			MarketID:  marketID,
			Timestamp: raw.T,
			Price:     float64(raw.P),
			Outcome:   outcome,
		}
		if !pt.Valid() {
			dropped++
			continue
		}
		points = append(points, pt)
	}
	return points, dropped
}
