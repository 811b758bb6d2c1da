package domain

// TradeSide is the direction of a simulated position.
type TradeSide string

const (
	SideLong  TradeSide = "LONG"
	SideShort TradeSide = "SHORT"
)

// Trade is a simulated position opened and closed against a price series.
// ExitTime is always >= EntryTime; a series that ends with the position
// still held is force-closed at the last observed price with Open set.
type Trade struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	Side       TradeSide `json:"side"`
	EntryTime  int64     `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   int64     `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`
	Won        bool      `json:"won"`
	Open       bool      `json:"open"` // forced close at end of series
	ExitReason string    `json:"exit_reason"`
}

// SummaryStats aggregates the outcome of a backtest run.
type SummaryStats struct {
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	WinRate        float64 `json:"win_rate"` // wins/trades, 0 when no trades
	TotalPnL       float64 `json:"total_pnl"`
	FinalBankroll  float64 `json:"final_bankroll"`
	MeanBankroll   float64 `json:"mean_bankroll"`
	MedianBankroll float64 `json:"median_bankroll"`
	P10Bankroll    float64 `json:"p10_bankroll"`
	P90Bankroll    float64 `json:"p90_bankroll"`
	MaxDrawdown    float64 `json:"max_drawdown"` // peak-to-trough fraction, 0..1
	Blown          bool    `json:"blown"`        // bankroll reached zero
}
