package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

func hourlyCandles(n int) []Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	candles := make([]Candle, n)
	for i := range candles {
		candles[i] = Candle{Time: start.Add(time.Duration(i) * time.Hour), Close: 100}
	}

	return candles
}

func TestValidateCandlesEmpty(t *testing.T) {
	err := ValidateCandles(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoDataFound))
}

func TestValidateCandlesOrdered(t *testing.T) {
	require.NoError(t, ValidateCandles(hourlyCandles(5)))
}

func TestValidateCandlesRejectsDuplicateTimestamps(t *testing.T) {
	candles := hourlyCandles(3)
	candles[2].Time = candles[1].Time

	err := ValidateCandles(candles)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCandlesOutOfOrder))
}

func TestSliceCandlesByTimeHalfOpen(t *testing.T) {
	candles := hourlyCandles(6)

	sliced := SliceCandlesByTime(candles, candles[2].Time, candles[5].Time)

	require.Len(t, sliced, 3)
	assert.Equal(t, candles[2].Time, sliced[0].Time)
	assert.Equal(t, candles[4].Time, sliced[2].Time)
}

func TestSliceCandlesByTimeOutsideRange(t *testing.T) {
	candles := hourlyCandles(3)

	assert.Empty(t, SliceCandlesByTime(candles, candles[2].Time.Add(time.Hour), candles[2].Time.Add(2*time.Hour)))
	assert.Len(t, SliceCandlesByTime(candles, time.Time{}, candles[2].Time.Add(time.Hour)), 3)
}
