package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// TrueRange returns the true range of cur given the previous candle.
func TrueRange(prev, cur types.Candle) float64 {
	highLow := cur.High - cur.Low
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR returns the Average True Range of the last candle using Wilder's
// smoothing. Requires period+1 candles to form period true ranges.
func ATR(candles []types.Candle, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(candles) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(candles), "",
			"insufficient data for ATR: required %d, got %d", period+1, len(candles))
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += TrueRange(candles[i-1], candles[i])
	}

	atr /= float64(period)

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + TrueRange(candles[i-1], candles[i])) / float64(period)
	}

	return atr, nil
}

// ATRSeries returns the rolling ATR per candle. Entries before index period
// are NaN since no full window exists yet.
func ATRSeries(candles []types.Candle, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}

	if len(candles) < period+1 {
		return out, nil
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += TrueRange(candles[i-1], candles[i])
	}

	atr /= float64(period)
	out[period] = atr

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + TrueRange(candles[i-1], candles[i])) / float64(period)
		out[i] = atr
	}

	return out, nil
}
