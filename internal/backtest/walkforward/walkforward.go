// Package walkforward validates a strategy out-of-sample: it slices the
// candle series into rolling (train, test) windows, backtests each window
// pair, and scores how well in-sample performance carries over.
package walkforward

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-quant/internal/logger"
	"github.com/rxtech-lab/argo-quant/internal/strategy"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
	"go.uber.org/zap"
)

// ParameterOptimizer tunes the backtest configuration on a segment's train
// result before the test run.
type ParameterOptimizer interface {
	Optimize(trainResult *types.BacktestResult, config types.BacktestConfig) (types.BacktestConfig, error)
}

// NoopOptimizer returns the configuration unchanged. Real parameter search
// plugs in behind the same interface.
type NoopOptimizer struct{}

// Optimize implements ParameterOptimizer without changing anything.
func (NoopOptimizer) Optimize(_ *types.BacktestResult, config types.BacktestConfig) (types.BacktestConfig, error) {
	return config, nil
}

// WalkForwardOptimizer runs the rolling-window validation. Each segment
// gets fresh engine and strategy instances, so segments share no state and
// a caller may run optimizers for different parameter sets concurrently.
type WalkForwardOptimizer struct {
	baseConfig types.BacktestConfig
	wfConfig   types.WalkForwardConfig
	factory    strategy.Factory
	optimizer  ParameterOptimizer
	log        *logger.Logger
}

// NewWalkForwardOptimizer creates an optimizer. A nil ParameterOptimizer
// falls back to NoopOptimizer, a nil logger to a no-op logger.
func NewWalkForwardOptimizer(baseConfig types.BacktestConfig, wfConfig types.WalkForwardConfig, factory strategy.Factory, optimizer ParameterOptimizer, log *logger.Logger) *WalkForwardOptimizer {
	if optimizer == nil {
		optimizer = NoopOptimizer{}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &WalkForwardOptimizer{
		baseConfig: baseConfig,
		wfConfig:   wfConfig,
		factory:    factory,
		optimizer:  optimizer,
		log:        log,
	}
}

// Run executes the full walk-forward validation over the candle series.
// Zero producible segments is a hard failure; anything that goes wrong
// inside one segment only invalidates that segment.
func (w *WalkForwardOptimizer) Run(ctx context.Context, candles []types.Candle) (*types.WalkForwardResult, error) {
	if w.factory == nil {
		return nil, errors.New(errors.ErrCodeWalkForwardConfigError, "no strategy factory provided")
	}

	if err := w.wfConfig.Validate(); err != nil {
		return nil, err
	}

	if err := types.ValidateCandles(candles); err != nil {
		return nil, err
	}

	windows := generateWindows(candles, w.wfConfig)
	if len(windows) == 0 {
		return nil, errors.Newf(errors.ErrCodeWalkForwardNoSegments,
			"series spanning %s to %s cannot fit one train(%dd)+test(%dd) window",
			candles[0].Time.Format("2006-01-02"), candles[len(candles)-1].Time.Format("2006-01-02"),
			w.wfConfig.TrainPeriodDays, w.wfConfig.TestPeriodDays)
	}

	w.log.Debug("walk-forward windows generated", zap.Int("segments", len(windows)))

	segments := make([]types.SegmentResult, 0, len(windows))
	for i, window := range windows {
		segments = append(segments, w.runSegment(ctx, candles, i, window))
	}

	result := aggregate(segments)

	return result, nil
}

// runSegment backtests one (train, test) window pair. Failures are folded
// into the segment's validity instead of propagating.
func (w *WalkForwardOptimizer) runSegment(ctx context.Context, candles []types.Candle, index int, window types.SegmentWindow) types.SegmentResult {
	segment := types.SegmentResult{
		Index:  index,
		Window: window,
	}

	trainCandles := types.SliceCandlesByTime(candles, window.TrainStart, window.TrainEnd)
	testCandles := types.SliceCandlesByTime(candles, window.TestStart, window.TestEnd)

	trainConfig := w.baseConfig
	trainConfig.StartTime = optional.None[time.Time]()
	trainConfig.EndTime = optional.None[time.Time]()

	trainResult := w.runBacktest(ctx, trainConfig, trainCandles)
	segment.TrainResult = trainResult

	if trainResult.Status != types.BacktestStatusCompleted {
		segment.Valid = false
		segment.InvalidReason = fmt.Sprintf("train run ended %s: %s", trainResult.Status, trainResult.ErrorMessage)

		return segment
	}

	testConfig, err := w.optimizer.Optimize(trainResult, trainConfig)
	if err != nil {
		segment.Valid = false
		segment.InvalidReason = fmt.Sprintf("parameter optimization failed: %v", err)

		return segment
	}

	testResult := w.runBacktest(ctx, testConfig, testCandles)
	segment.TestResult = testResult

	if testResult.Status != types.BacktestStatusCompleted {
		segment.Valid = false
		segment.InvalidReason = fmt.Sprintf("test run ended %s: %s", testResult.Status, testResult.ErrorMessage)

		return segment
	}

	if testResult.Metrics.TotalTrades < w.wfConfig.MinTrades {
		segment.Valid = false
		segment.InvalidReason = fmt.Sprintf("only %d test trades, %d required",
			testResult.Metrics.TotalTrades, w.wfConfig.MinTrades)

		return segment
	}

	segment.Valid = true
	segment.Degradation = degradation(trainResult.Metrics.TotalReturnPercent, testResult.Metrics.TotalReturnPercent)
	segment.MetricStability = 1 - math.Abs(trainResult.Metrics.WinRate-testResult.Metrics.WinRate)/100

	return segment
}

func (w *WalkForwardOptimizer) runBacktest(ctx context.Context, config types.BacktestConfig, candles []types.Candle) *types.BacktestResult {
	e := enginev1.NewBacktestEngineV1(config, w.log)

	return e.Run(ctx, candles, w.factory(), optional.None[engine.ProgressCallback]())
}

// degradation measures how much of the in-sample return evaporated
// out-of-sample, clamped to [0, 100]. An unprofitable train window or a
// test window that held up reports zero.
func degradation(trainReturn, testReturn float64) float64 {
	if trainReturn <= 0 || testReturn >= trainReturn {
		return 0
	}

	d := (trainReturn - testReturn) / trainReturn * 100
	if d < 0 {
		return 0
	}

	if d > 100 {
		return 100
	}

	return d
}
