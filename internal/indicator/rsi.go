package indicator

import (
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// RSI returns the Relative Strength Index of the last value using Wilder's
// smoothing. Requires at least period+1 values to form period deltas.
func RSI(values []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(values) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(values), "",
			"insufficient data for RSI: required %d, got %d", period+1, len(values))
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]

		gain := 0.0
		loss := 0.0

		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs), nil
}
