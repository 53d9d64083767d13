package indicator

import (
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// EMASeries returns the exponential moving average over the whole series,
// seeded with the SMA of the first period values. Entries before the seed
// window completes are zero.
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	series := make([]float64, len(values))
	if len(values) < period {
		return series, nil
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	seed /= float64(period)
	series[period-1] = seed

	multiplier := 2.0 / float64(period+1)
	prev := seed

	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*multiplier + prev
		series[i] = prev
	}

	return series, nil
}

// EMA returns the latest exponential moving average value.
func EMA(values []float64, period int) (float64, error) {
	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values), "",
			"insufficient data for EMA: required %d, got %d", period, len(values))
	}

	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}
