package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddFillComputesWeightedEntry(t *testing.T) {
	pos := &Position{Direction: DirectionLong}

	now := time.Now()
	pos.AddFill(EntryFill{Price: 100, Size: 2, Time: now, Fee: 0.2})
	pos.AddFill(EntryFill{Price: 110, Size: 1, Time: now, Fee: 0.1})

	// (100*2 + 110*1) / 3
	assert.InDelta(t, 103.3333333333, pos.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 3.0, pos.Size, 1e-9)
	assert.InDelta(t, 3.0, pos.OpenedSize, 1e-9)
	assert.InDelta(t, 0.3, pos.Fees, 1e-9)
}

func TestPnLAtRespectsDirection(t *testing.T) {
	long := &Position{Direction: DirectionLong, AvgEntryPrice: 100}
	short := &Position{Direction: DirectionShort, AvgEntryPrice: 100}

	assert.InDelta(t, 50.0, long.PnLAt(105, 10), 1e-9)
	assert.InDelta(t, -50.0, long.PnLAt(95, 10), 1e-9)
	assert.InDelta(t, -50.0, short.PnLAt(105, 10), 1e-9)
	assert.InDelta(t, 50.0, short.PnLAt(95, 10), 1e-9)
}

func TestMarkToPriceUpdatesUnrealized(t *testing.T) {
	pos := &Position{Direction: DirectionLong, AvgEntryPrice: 100, Size: 4}

	pos.MarkToPrice(103)
	assert.InDelta(t, 12.0, pos.UnrealizedPnL, 1e-9)

	pos.MarkToPrice(98)
	assert.InDelta(t, -8.0, pos.UnrealizedPnL, 1e-9)
}

func TestComputeLiquidationPrice(t *testing.T) {
	assert.InDelta(t, 90.0, ComputeLiquidationPrice(100, DirectionLong, 10), 1e-9)
	assert.InDelta(t, 110.0, ComputeLiquidationPrice(100, DirectionShort, 10), 1e-9)
	assert.InDelta(t, 0.0, ComputeLiquidationPrice(100, DirectionLong, 1), 1e-9)
}

func TestIsLiquidatedBy(t *testing.T) {
	long := &Position{Direction: DirectionLong, Leverage: 10, LiquidationPrice: 90}

	assert.False(t, long.IsLiquidatedBy(Candle{Low: 91, High: 100}))
	assert.True(t, long.IsLiquidatedBy(Candle{Low: 90, High: 100}))

	short := &Position{Direction: DirectionShort, Leverage: 10, LiquidationPrice: 110}
	assert.True(t, short.IsLiquidatedBy(Candle{Low: 100, High: 110}))

	unleveraged := &Position{Direction: DirectionLong, Leverage: 1, LiquidationPrice: 0}
	assert.False(t, unleveraged.IsLiquidatedBy(Candle{Low: 0}))
}
