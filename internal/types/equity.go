package types

import "time"

// EquityPoint is one sample of the equity curve, appended once per
// processed candle.
type EquityPoint struct {
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Balance is the free cash balance (margin posted for open positions
	// excluded).
	Balance float64 `yaml:"balance" json:"balance" csv:"balance"`
	// Equity is balance plus posted margin plus unrealized PnL.
	Equity        float64 `yaml:"equity" json:"equity" csv:"equity"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
	RealizedPnL   float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	CumulativePnL float64 `yaml:"cumulative_pnl" json:"cumulative_pnl" csv:"cumulative_pnl"`
	// MaxEquity is the running high-water mark; it never decreases.
	MaxEquity       float64 `yaml:"max_equity" json:"max_equity" csv:"max_equity"`
	Drawdown        float64 `yaml:"drawdown" json:"drawdown" csv:"drawdown"`
	DrawdownPercent float64 `yaml:"drawdown_percent" json:"drawdown_percent" csv:"drawdown_percent"`
	OpenPositions   int     `yaml:"open_positions" json:"open_positions" csv:"open_positions"`
	Trades          int     `yaml:"trades" json:"trades" csv:"trades"`
	Wins            int     `yaml:"wins" json:"wins" csv:"wins"`
	Losses          int     `yaml:"losses" json:"losses" csv:"losses"`
}
