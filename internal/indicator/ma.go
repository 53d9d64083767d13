package indicator

import (
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values), "",
			"insufficient data for SMA: required %d, got %d", period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// SMASeries returns the rolling simple moving average. The first period-1
// entries are zero since no full window exists yet.
func SMASeries(values []float64, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	series := make([]float64, len(values))
	if len(values) < period {
		return series, nil
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			series[i] = sum / float64(period)
		}
	}

	return series, nil
}
