// Package indicator provides technical indicator calculations over
// in-memory candle slices. All functions are pure: they read only the
// candles passed in, which keeps the simulation loop free of lookahead by
// construction.
package indicator

import (
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// Closes extracts the close prices of a candle series.
func Closes(candles []types.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return closes
}

func validatePeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return nil
}
