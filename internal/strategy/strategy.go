// Package strategy defines the pluggable signal-generation interface the
// backtest engine drives, plus the builtin strategies shipped with the CLI.
//
// The engine treats a Strategy as an opaque black box: it hands over the
// already-seen candle history and the current position, and receives entry
// and exit signals back. Strategies are injected into the engine directly;
// there is no process-wide registry.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/types"
)

// IndicatorResult carries the indicator values a strategy computed for the
// current candle, keyed by name. Strategies decide their own keys; the
// engine never interprets them.
type IndicatorResult map[string]float64

// Strategy is the signal-generation collaborator of the backtest engine.
//
// Implementations must only read the candles passed in: the engine hands
// over candles[0..i] at step i, so an implementation cannot look ahead
// unless it cheats by retaining state across calls.
type Strategy interface {
	// Name returns a human-readable strategy name.
	Name() string
	// APIVersion returns the strategy API version this implementation was
	// built against, as a semver string.
	APIVersion() string
	// Initialize validates and applies the strategy parameters. Called once
	// before the first candle; parameter errors must surface here, not
	// during signal generation.
	Initialize(params map[string]any) error
	// MinCandlesRequired returns the minimum history length the strategy
	// needs before it can produce signals.
	MinCandlesRequired() int
	// PopulateIndicators computes the indicator values for the latest
	// candle of the given history.
	PopulateIndicators(candles []types.Candle) (IndicatorResult, error)
	// PopulateEntrySignal returns an entry signal for the current price, or
	// None when the strategy sees no entry.
	PopulateEntrySignal(candles []types.Candle, indicators IndicatorResult, price float64) (optional.Option[types.Signal], error)
	// PopulateExitSignal returns an exit signal for the given open
	// position, or None to keep holding.
	PopulateExitSignal(candles []types.Candle, indicators IndicatorResult, position *types.Position) (optional.Option[types.Signal], error)
}
