// Package engine defines the backtest engine contract. Versioned
// implementations live in subpackages so the simulation semantics can evolve
// without breaking callers pinned to an older engine.
package engine

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/strategy"
	"github.com/rxtech-lab/argo-quant/internal/types"
)

// ProgressCallback is invoked at fixed candle intervals with the number of
// candles processed so far and the total. It must not mutate simulation
// state; the engine only reports through it.
type ProgressCallback func(current, total int)

// Engine runs one simulation over a candle series. Run never returns an
// error: every failure mode is encoded in the result's status so partial
// trades and equity survive the failure. The context cancels the run
// cooperatively between candles, yielding status CANCELLED.
type Engine interface {
	Run(ctx context.Context, candles []types.Candle, strat strategy.Strategy, onProgress optional.Option[ProgressCallback]) *types.BacktestResult
}
