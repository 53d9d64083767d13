// Package datasource loads candle series for the backtest CLI. The engine
// itself never touches I/O; it receives a fully materialized series, so
// sources live here at the edge.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/types"
)

// CandleSource supplies time-ordered candle series.
type CandleSource interface {
	// LoadCandles returns the candles for a symbol inside the optional
	// time bounds, ordered by timestamp ascending.
	LoadCandles(symbol string, start, end optional.Option[time.Time]) ([]types.Candle, error)
	// Count returns the number of candles available for a symbol inside
	// the optional time bounds.
	Count(symbol string, start, end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the source.
	Close() error
}
