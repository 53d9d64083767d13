package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type Direction string

type PositionStatus string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

const (
	PositionStatusOpen       PositionStatus = "OPEN"
	PositionStatusClosed     PositionStatus = "CLOSED"
	PositionStatusLiquidated PositionStatus = "LIQUIDATED"
)

// Sign returns +1 for long and -1 for short. PnL formulas multiply the
// price difference by this factor instead of branching on direction.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}

	return 1
}

// EntryFill records a single entry execution contributing to a position.
type EntryFill struct {
	Price float64   `yaml:"price" json:"price" csv:"price"`
	Size  float64   `yaml:"size" json:"size" csv:"size"`
	Time  time.Time `yaml:"time" json:"time" csv:"time"`
	Fee   float64   `yaml:"fee" json:"fee" csv:"fee"`
}

// TakeProfitTarget is one rung of a position's take-profit ladder.
// Targets are evaluated in slice order; Filled rungs are skipped.
type TakeProfitTarget struct {
	Price        float64 `yaml:"price" json:"price" csv:"price"`
	ClosePercent float64 `yaml:"close_percent" json:"close_percent" csv:"close_percent"`
	Filled       bool    `yaml:"filled" json:"filled" csv:"filled"`
}

// TrailingState is the runtime state of a position's trailing stop.
// Watermark is the best price seen since activation (highest for long,
// lowest for short). Stop only ever tightens once set.
type TrailingState struct {
	Activated bool    `yaml:"activated" json:"activated"`
	Watermark float64 `yaml:"watermark" json:"watermark"`
	Stop      float64 `yaml:"stop" json:"stop"`
}

// Position is the in-memory state of one open position. It is created when
// an accepted entry signal opens a slot, mutated every candle, and converted
// into a Trade once its remaining size reaches zero.
type Position struct {
	ID        string         `yaml:"id" json:"id"`
	Symbol    string         `yaml:"symbol" json:"symbol"`
	Direction Direction      `yaml:"direction" json:"direction"`
	Status    PositionStatus `yaml:"status" json:"status"`

	Fills         []EntryFill `yaml:"fills" json:"fills"`
	AvgEntryPrice float64     `yaml:"avg_entry_price" json:"avg_entry_price"`
	// OpenedSize is the total size recorded at open. The sum of all exit
	// sizes over the position's life must equal this value exactly.
	OpenedSize float64 `yaml:"opened_size" json:"opened_size"`
	// Size is the remaining open size; partial closes reduce it.
	Size float64 `yaml:"size" json:"size"`

	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfits []TakeProfitTarget       `yaml:"take_profits" json:"take_profits"`
	Trailing    TrailingState            `yaml:"trailing" json:"trailing"`

	Leverage         float64 `yaml:"leverage" json:"leverage"`
	Margin           float64 `yaml:"margin" json:"margin"`
	LiquidationPrice float64 `yaml:"liquidation_price" json:"liquidation_price"`

	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	RealizedPnL   float64 `yaml:"realized_pnl" json:"realized_pnl"`
	Fees          float64 `yaml:"fees" json:"fees"`

	OpenTime time.Time `yaml:"open_time" json:"open_time"`
}

// AddFill appends an entry fill and recomputes the volume-weighted average
// entry price using decimal arithmetic.
func (p *Position) AddFill(fill EntryFill) {
	p.Fills = append(p.Fills, fill)

	totalCost := decimal.Zero
	totalSize := decimal.Zero

	for _, f := range p.Fills {
		sizeDec := decimal.NewFromFloat(f.Size)
		totalCost = totalCost.Add(sizeDec.Mul(decimal.NewFromFloat(f.Price)))
		totalSize = totalSize.Add(sizeDec)
	}

	if !totalSize.IsZero() {
		p.AvgEntryPrice, _ = totalCost.Div(totalSize).Float64()
	}

	p.OpenedSize += fill.Size
	p.Size += fill.Size
	p.Fees += fill.Fee
}

// MarkToPrice recomputes the unrealized PnL of the remaining size against
// the given price.
func (p *Position) MarkToPrice(price float64) {
	p.UnrealizedPnL = p.PnLAt(price, p.Size)
}

// PnLAt returns the profit of closing the given size at the given price,
// before fees.
func (p *Position) PnLAt(price, size float64) float64 {
	priceDec := decimal.NewFromFloat(price)
	entryDec := decimal.NewFromFloat(p.AvgEntryPrice)
	sizeDec := decimal.NewFromFloat(size)

	pnl, _ := priceDec.Sub(entryDec).Mul(sizeDec).Mul(decimal.NewFromFloat(p.Direction.Sign())).Float64()

	return pnl
}

// ComputeLiquidationPrice returns entry*(1 - 1/leverage) for longs and
// entry*(1 + 1/leverage) for shorts. Leverage below or equal to 1 yields a
// price that an ordinary series cannot reach (0 for longs).
func ComputeLiquidationPrice(entryPrice float64, direction Direction, leverage float64) float64 {
	if leverage <= 0 {
		return 0
	}

	if direction == DirectionLong {
		return entryPrice * (1 - 1/leverage)
	}

	return entryPrice * (1 + 1/leverage)
}

// IsLiquidatedBy reports whether the candle's adverse extreme breaches the
// liquidation price: the low for longs, the high for shorts.
func (p *Position) IsLiquidatedBy(candle Candle) bool {
	if p.Leverage <= 1 {
		return false
	}

	if p.Direction == DirectionLong {
		return candle.Low <= p.LiquidationPrice
	}

	return candle.High >= p.LiquidationPrice
}
