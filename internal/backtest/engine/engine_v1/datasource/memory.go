package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// InMemorySource serves a pre-loaded candle slice. Library callers that
// already hold their data in memory use this instead of DuckDB.
type InMemorySource struct {
	symbol  string
	candles []types.Candle
}

// NewInMemorySource wraps an already time-ordered candle slice. The series
// is validated once here so every later load can trust the ordering.
func NewInMemorySource(symbol string, candles []types.Candle) (*InMemorySource, error) {
	if err := types.ValidateCandles(candles); err != nil {
		return nil, err
	}

	return &InMemorySource{symbol: symbol, candles: candles}, nil
}

// LoadCandles implements CandleSource.
func (s *InMemorySource) LoadCandles(symbol string, start, end optional.Option[time.Time]) ([]types.Candle, error) {
	if symbol != "" && symbol != s.symbol {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no candles found for symbol %q", symbol)
	}

	candles := s.slice(start, end)
	if len(candles) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no candles in the requested range for %q", s.symbol)
	}

	out := make([]types.Candle, len(candles))
	copy(out, candles)

	return out, nil
}

// Count implements CandleSource.
func (s *InMemorySource) Count(symbol string, start, end optional.Option[time.Time]) (int, error) {
	if symbol != "" && symbol != s.symbol {
		return 0, nil
	}

	return len(s.slice(start, end)), nil
}

// Close implements CandleSource.
func (s *InMemorySource) Close() error {
	return nil
}

func (s *InMemorySource) slice(start, end optional.Option[time.Time]) []types.Candle {
	if start.IsNone() && end.IsNone() {
		return s.candles
	}

	lo := start.TakeOr(s.candles[0].Time)
	hi := end.TakeOr(s.candles[len(s.candles)-1].Time.Add(time.Nanosecond))

	return types.SliceCandlesByTime(s.candles, lo, hi)
}
