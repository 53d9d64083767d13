package types

import (
	"time"

	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// Candle represents one OHLCV bar for a fixed time interval.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// ValidateCandles checks that a candle series is non-empty and that
// timestamps are strictly increasing. The simulation loop relies on this
// ordering and never re-checks it per candle.
func ValidateCandles(candles []Candle) error {
	if len(candles) == 0 {
		return errors.New(errors.ErrCodeNoDataFound, "candle series is empty")
	}

	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return errors.Newf(errors.ErrCodeCandlesOutOfOrder,
				"candle timestamps must be strictly increasing: index %d (%s) is not after index %d (%s)",
				i, candles[i].Time.Format(time.RFC3339), i-1, candles[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}

// SliceCandlesByTime returns the sub-series with Time in [start, end).
// Candles must already be ordered; the returned slice shares backing storage.
func SliceCandlesByTime(candles []Candle, start, end time.Time) []Candle {
	lo := 0
	for lo < len(candles) && candles[lo].Time.Before(start) {
		lo++
	}

	hi := lo
	for hi < len(candles) && candles[hi].Time.Before(end) {
		hi++
	}

	return candles[lo:hi]
}
