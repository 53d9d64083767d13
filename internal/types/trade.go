package types

import (
	"time"
)

// CloseReason explains why a position (or part of one) was closed.
type CloseReason string

const (
	CloseReasonTakeProfit   CloseReason = "TP"
	CloseReasonStopLoss     CloseReason = "SL"
	CloseReasonSignal       CloseReason = "SIGNAL"
	CloseReasonManual       CloseReason = "MANUAL"
	CloseReasonLiquidation  CloseReason = "LIQUIDATION"
	CloseReasonTime         CloseReason = "TIME"
	CloseReasonTrailingStop CloseReason = "TRAILING_STOP"
)

// Trade is an immutable record of a fully closed position.
type Trade struct {
	ID         string      `yaml:"id" json:"id" csv:"id"`
	PositionID string      `yaml:"position_id" json:"position_id" csv:"position_id"`
	Symbol     string      `yaml:"symbol" json:"symbol" csv:"symbol"`
	Direction  Direction   `yaml:"direction" json:"direction" csv:"direction"`
	EntryPrice float64     `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	// ExitPrice is the size-weighted average across all partial exits.
	ExitPrice  float64     `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Size       float64     `yaml:"size" json:"size" csv:"size"`
	EntryTime  time.Time   `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime   time.Time   `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	PnL        float64     `yaml:"pnl" json:"pnl" csv:"pnl"`
	PnLPercent float64     `yaml:"pnl_percent" json:"pnl_percent" csv:"pnl_percent"`
	Fees       float64     `yaml:"fees" json:"fees" csv:"fees"`
	// Reason is the close reason of the exit that brought the size to zero.
	Reason CloseReason `yaml:"reason" json:"reason" csv:"reason"`
	// Liquidated marks trades whose margin was forfeited.
	Liquidated bool `yaml:"liquidated" json:"liquidated" csv:"liquidated"`
}

// Duration returns the holding time of the trade.
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// IsWinner reports whether the trade realized a positive PnL.
func (t Trade) IsWinner() bool {
	return t.PnL > 0
}
