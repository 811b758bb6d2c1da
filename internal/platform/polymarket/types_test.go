package polymarket

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToDomainMarketNormalizesFieldSpellings(t *testing.T) {
	raw := `{
		"id": "512123",
		"question": "Will it happen?",
		"slug": "will-it-happen",
		"closed": "true",
		"volume": "123456.78",
		"outcomes": "[\"Yes\",\"No\"]",
		"clobTokenIds": "[\"111\",\"222\"]",
		"end_date_iso": "2025-06-15T00:00:00Z"
	}`
	var m APIMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	dm := m.ToDomainMarket()
	if dm.ID != "512123" {
		t.Errorf("ID = %q", dm.ID)
	}
	if !dm.Closed {
		t.Error("closed string \"true\" should normalize to bool true")
	}
	if dm.Volume != 123456.78 {
		t.Errorf("Volume = %f", dm.Volume)
	}
	if dm.TokenIDs[0] != "111" || dm.TokenIDs[1] != "222" {
		t.Errorf("TokenIDs = %v", dm.TokenIDs)
	}
	if dm.Outcomes[0] != "Yes" || dm.Outcomes[1] != "No" {
		t.Errorf("Outcomes = %v", dm.Outcomes)
	}
	if dm.EndDate == nil || !dm.EndDate.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EndDate = %v", dm.EndDate)
	}
}

func TestToDomainMarketEndDateFallbacks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"endDate only", `{"id":"1","endDate":"2024-12-31T12:00:00Z"}`, "2024-12-31"},
		{"closedTime legacy", `{"id":"1","closedTime":"2024-12-31 12:00:00+00"}`, "2024-12-31"},
		{"iso wins over endDate", `{"id":"1","end_date_iso":"2025-01-01T00:00:00Z","endDate":"2024-12-31T00:00:00Z"}`, "2025-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m APIMarket
			if err := json.Unmarshal([]byte(tc.raw), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			dm := m.ToDomainMarket()
			if dm.EndDate == nil {
				t.Fatal("EndDate is nil")
			}
			if got := dm.EndDate.UTC().Format("2006-01-02"); got != tc.want {
				t.Errorf("EndDate = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestToDomainMarketMissingFieldsAreTolerated(t *testing.T) {
	var m APIMarket
	if err := json.Unmarshal([]byte(`{"id":"42","volume":"not-a-number"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dm := m.ToDomainMarket()
	if dm.Question != "Unknown" {
		t.Errorf("Question default = %q", dm.Question)
	}
	if dm.Volume != 0 {
		t.Errorf("junk volume should fall back to 0, got %f", dm.Volume)
	}
	if dm.EndDate != nil {
		t.Errorf("absent end date should stay nil, got %v", dm.EndDate)
	}
	if dm.TokenID() != "" {
		t.Errorf("TokenID = %q", dm.TokenID())
	}
}

func TestToDomainPointsDropsMalformedIndividually(t *testing.T) {
	var h APIHistory
	raw := `{"history":[
		{"t": 1700000000, "p": "0.42"},
		{"t": 0, "p": "0.50"},
		{"t": 1700000600, "p": 1.7},
		{"t": 1700001200, "p": "0.44"}
	]}`
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	points, dropped := h.ToDomainPoints("m1", "Yes")
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2 (zero timestamp + out-of-range price)", dropped)
	}
	if points[0].Price != 0.42 || points[1].Price != 0.44 {
		t.Errorf("surviving points = %+v", points)
	}
	for _, p := range points {
		if p.MarketID != "m1" || p.Outcome != "Yes" {
			t.Errorf("point not tagged with market/outcome: %+v", p)
		}
	}
}

func TestTerminalPrices(t *testing.T) {
	var m APIMarket
	if err := json.Unmarshal([]byte(`{"id":"9","outcomePrices":"[\"0.99\",\"0.01\"]"}`), &m); err != nil {
		t.Fatal(err)
	}
	got := m.TerminalPrices()
	if len(got) != 2 || got[0] != 0.99 || got[1] != 0.01 {
		t.Errorf("TerminalPrices = %v", got)
	}

	var bad APIMarket
	_ = json.Unmarshal([]byte(`{"id":"9","outcomePrices":"oops"}`), &bad)
	if bad.TerminalPrices() != nil {
		t.Error("malformed prices should yield nil")
	}
}
