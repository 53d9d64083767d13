package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	backtestengine "github.com/rxtech-lab/argo-quant/internal/backtest/engine"
	"github.com/rxtech-lab/argo-quant/internal/strategy"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/internal/version"
)

// scriptedStrategy issues predetermined signals by candle index so engine
// behavior can be tested without real indicator math.
type scriptedStrategy struct {
	minCandles int
	entries    map[int]types.SignalType
	exitAt     map[int]bool
}

func newScriptedStrategy(minCandles int) *scriptedStrategy {
	return &scriptedStrategy{
		minCandles: minCandles,
		entries:    make(map[int]types.SignalType),
		exitAt:     make(map[int]bool),
	}
}

func (s *scriptedStrategy) Name() string                        { return "scripted" }
func (s *scriptedStrategy) APIVersion() string                  { return version.StrategyAPIVersion }
func (s *scriptedStrategy) Initialize(params map[string]any) error { return nil }
func (s *scriptedStrategy) MinCandlesRequired() int             { return s.minCandles }

func (s *scriptedStrategy) PopulateIndicators(candles []types.Candle) (strategy.IndicatorResult, error) {
	return strategy.IndicatorResult{}, nil
}

func (s *scriptedStrategy) PopulateEntrySignal(candles []types.Candle, indicators strategy.IndicatorResult, price float64) (optional.Option[types.Signal], error) {
	idx := len(candles) - 1
	if sigType, ok := s.entries[idx]; ok {
		return optional.Some(types.Signal{
			Time: candles[idx].Time,
			Type: sigType,
			Name: s.Name(),
		}), nil
	}

	return optional.None[types.Signal](), nil
}

func (s *scriptedStrategy) PopulateExitSignal(candles []types.Candle, indicators strategy.IndicatorResult, position *types.Position) (optional.Option[types.Signal], error) {
	idx := len(candles) - 1
	if s.exitAt[idx] {
		return optional.Some(types.Signal{
			Time: candles[idx].Time,
			Type: types.SignalTypeExit,
			Name: s.Name(),
		}), nil
	}

	return optional.None[types.Signal](), nil
}

// makeCandles builds a flat-bodied series from closes; highs and lows sit
// slightly outside the body unless overridden afterwards.
func makeCandles(closes []float64) []types.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))

	for i, c := range closes {
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}

	return candles
}

func testConfig() types.BacktestConfig {
	return types.DefaultBacktestConfig("BTCUSDT", 1000)
}

func runEngine(config types.BacktestConfig, candles []types.Candle, strat strategy.Strategy) *types.BacktestResult {
	e := NewBacktestEngineV1(config, nil)

	return e.Run(context.Background(), candles, strat, optional.None[backtestengine.ProgressCallback]())
}

func TestRunFailsFastWithoutStrategy(t *testing.T) {
	result := runEngine(testConfig(), makeCandles([]float64{100, 101}), nil)

	assert.Equal(t, types.BacktestStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "no strategy")
}

func TestRunFailsFastOnInsufficientCandles(t *testing.T) {
	strat := newScriptedStrategy(10)
	result := runEngine(testConfig(), makeCandles([]float64{100, 101}), strat)

	assert.Equal(t, types.BacktestStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "insufficient candles")
}

func TestRunClosesOpenPositionManuallyAtSeriesEnd(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	result := runEngine(testConfig(), makeCandles([]float64{100, 102, 104}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	assert.Equal(t, 100.0, result.Progress)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonManual, result.Trades[0].Reason)
	assert.InDelta(t, 104.0, result.Trades[0].ExitPrice, 1e-9)
	assert.Greater(t, result.Trades[0].PnL, 0.0)
	assert.Len(t, result.EquityCurve, 3)
}

func TestRunSignalExit(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong
	strat.exitAt[2] = true

	result := runEngine(testConfig(), makeCandles([]float64{100, 105, 110, 120}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonSignal, result.Trades[0].Reason)
	assert.InDelta(t, 110.0, result.Trades[0].ExitPrice, 1e-9)
}

func TestRunShortEntryRequiresAllowShort(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryShort

	result := runEngine(testConfig(), makeCandles([]float64{100, 99, 98}), strat)
	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	assert.Empty(t, result.Trades)

	config := testConfig()
	config.AllowShort = true
	result = runEngine(config, makeCandles([]float64{100, 99, 98}), strat)
	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.DirectionShort, result.Trades[0].Direction)
	assert.Greater(t, result.Trades[0].PnL, 0.0)
}

func TestRunLiquidatesLeveragedLong(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.Leverage = 10

	candles := makeCandles([]float64{100, 91})
	candles[1].Low = 89
	candles[1].High = 95

	result := runEngine(config, candles, strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.Equal(t, types.CloseReasonLiquidation, trade.Reason)
	assert.True(t, trade.Liquidated)
	assert.InDelta(t, 90.0, trade.ExitPrice, 1e-9)

	// Entry: size 10 at price 100 (notional 1000), margin 100 posted out
	// of 1000. The margin is forfeited, so the final balance stays at 900.
	last := result.EquityCurve[len(result.EquityCurve)-1]
	assert.InDelta(t, 900.0, last.Balance, 1e-9)
	assert.InDelta(t, 900.0, last.Equity, 1e-9)
}

func TestRunAbortsOnMaxDrawdown(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.MaxDrawdownPercent = optional.Some(5.0)

	// Monotonic 10% slide.
	result := runEngine(config, makeCandles([]float64{100, 98, 96, 94, 92, 90}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	assert.Less(t, result.Progress, 100.0)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonManual, result.Trades[0].Reason)

	last := result.EquityCurve[len(result.EquityCurve)-1]
	assert.Greater(t, last.DrawdownPercent, 5.0)
}

func TestRunStopLossWinsOverTakeProfitOnSameCandle(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.Tactics.StopLossPercent = optional.Some(5.0)
	config.Tactics.TakeProfits = []types.TakeProfitConfig{{OffsetPercent: 5, ClosePercent: 100}}

	// One candle spans both the stop at 95 and the target at 105.
	candles := makeCandles([]float64{100, 100})
	candles[1].High = 106
	candles[1].Low = 94

	result := runEngine(config, candles, strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonStopLoss, result.Trades[0].Reason)
	assert.InDelta(t, 95.0, result.Trades[0].ExitPrice, 1e-9)
}

func TestRunTakeProfitLadderPartialExits(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.Tactics.TakeProfits = []types.TakeProfitConfig{
		{OffsetPercent: 5, ClosePercent: 40},
		{OffsetPercent: 10, ClosePercent: 60},
	}

	candles := makeCandles([]float64{100, 104, 106, 111})
	candles[2].High = 106
	candles[3].High = 111

	result := runEngine(config, candles, strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.Equal(t, types.CloseReasonTakeProfit, trade.Reason)

	// 40% out at 105, 60% out at 110: exit sizes sum to the opened size and
	// the blended exit price lands between the rungs.
	assert.InDelta(t, 10.0, trade.Size, 1e-9)
	assert.InDelta(t, 0.4*105+0.6*110, trade.ExitPrice, 1e-9)
}

func TestRunTimeLimitExit(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.Tactics.MaxHoldingCandles = optional.Some(2)

	result := runEngine(config, makeCandles([]float64{100, 101, 102, 103, 104}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonTime, result.Trades[0].Reason)
	assert.InDelta(t, 102.0, result.Trades[0].ExitPrice, 1e-9)
}

func TestRunEquityCurveInvariants(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong
	strat.exitAt[3] = true
	strat.entries[5] = types.SignalTypeEntryLong

	closes := []float64{100, 103, 99, 104, 101, 98, 102, 97, 105, 100}
	result := runEngine(testConfig(), makeCandles(closes), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.EquityCurve, len(closes))

	prevMax := 0.0
	for _, point := range result.EquityCurve {
		assert.GreaterOrEqual(t, point.MaxEquity, prevMax, "watermark must never decrease")
		assert.GreaterOrEqual(t, point.DrawdownPercent, 0.0)
		assert.LessOrEqual(t, point.DrawdownPercent, 100.0)
		prevMax = point.MaxEquity
	}
}

func TestRunSlippageAndFeesApplied(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.FeePercent = 0.1
	config.SlippagePercent = 0.5

	result := runEngine(config, makeCandles([]float64{100, 100}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	// Long entry fills above the close, the forced exit at the close.
	assert.InDelta(t, 100.5, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 100.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.Fees, 0.0)
	assert.Less(t, trade.PnL, 0.0)
}

func TestRunRespectsMaxOpenPositions(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong
	strat.entries[1] = types.SignalTypeEntryLong
	strat.entries[2] = types.SignalTypeEntryLong

	config := testConfig()
	config.Tactics.Sizing = types.EntrySizing{Mode: types.SizingModePercent, Value: 10}
	config.MaxOpenPositions = 2

	result := runEngine(config, makeCandles([]float64{100, 100, 100, 100}), strat)

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	assert.Len(t, result.Trades, 2)
}

func TestRunCancellation(t *testing.T) {
	strat := newScriptedStrategy(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewBacktestEngineV1(testConfig(), nil)
	result := e.Run(ctx, makeCandles([]float64{100, 101, 102}), strat,
		optional.None[backtestengine.ProgressCallback]())

	assert.Equal(t, types.BacktestStatusCancelled, result.Status)
	assert.Less(t, result.Progress, 100.0)
}

func TestRunProgressCallback(t *testing.T) {
	strat := newScriptedStrategy(1)

	var calls []int
	callback := backtestengine.ProgressCallback(func(current, total int) {
		calls = append(calls, current)
	})

	e := NewBacktestEngineV1(testConfig(), nil)
	result := e.Run(context.Background(), makeCandles([]float64{100, 101, 102}), strat,
		optional.Some(callback))

	require.Equal(t, types.BacktestStatusCompleted, result.Status)
	require.NotEmpty(t, calls)
	assert.Equal(t, 3, calls[len(calls)-1])
}

func TestTrailingStopMonotonicity(t *testing.T) {
	strat := newScriptedStrategy(1)
	strat.entries[0] = types.SignalTypeEntryLong

	config := testConfig()
	config.Tactics.Trailing = types.TrailingConfig{
		Enabled: true,
		Kind:    types.TrailingKindPercent,
		Value:   5,
	}

	e := NewBacktestEngineV1(config, nil)

	state := &runState{
		strat:  strat,
		ledger: NewLedger(1000),
	}

	pos, err := state.ledger.OpenPosition("BTCUSDT", types.DirectionLong, 100, 5, 0, 1,
		time.Now(), optional.None[float64](), nil)
	require.NoError(t, err)

	closes := []float64{101, 105, 110, 104, 100, 96, 108}
	candles := makeCandles(closes)

	prevStop := 0.0
	for i, candle := range candles {
		pos.MarkToPrice(candle.Close)
		e.updateTrailingStops(state, candle, i)

		assert.GreaterOrEqual(t, pos.Trailing.Stop, prevStop,
			"long trailing stop must never loosen")
		prevStop = pos.Trailing.Stop
	}

	// The watermark peaked at 110, so the stop sits at 110 * 0.95.
	assert.InDelta(t, 104.5, pos.Trailing.Stop, 1e-9)
}

func TestTrailingStopShortOnlyFalls(t *testing.T) {
	config := testConfig()
	config.AllowShort = true
	config.Tactics.Trailing = types.TrailingConfig{
		Enabled: true,
		Kind:    types.TrailingKindFixed,
		Value:   3,
	}

	e := NewBacktestEngineV1(config, nil)

	state := &runState{ledger: NewLedger(1000)}
	pos, err := state.ledger.OpenPosition("BTCUSDT", types.DirectionShort, 100, 5, 0, 1,
		time.Now(), optional.None[float64](), nil)
	require.NoError(t, err)

	closes := []float64{98, 94, 90, 95, 99}
	candles := makeCandles(closes)

	prevStop := 0.0
	for i, candle := range candles {
		pos.MarkToPrice(candle.Close)
		e.updateTrailingStops(state, candle, i)

		if prevStop > 0 {
			assert.LessOrEqual(t, pos.Trailing.Stop, prevStop,
				"short trailing stop must never loosen")
		}
		prevStop = pos.Trailing.Stop
	}

	// Lowest low 90 plus the fixed distance.
	assert.InDelta(t, 93.0, pos.Trailing.Stop, 1e-9)
}

func TestStrategyLifecycleCalls(t *testing.T) {
	config := testConfig()
	config.StrategyParams = map[string]any{"short_period": 2}

	strat := new(strategy.MockStrategy)
	strat.On("Name").Return("mocked").Maybe()
	strat.On("APIVersion").Return(version.StrategyAPIVersion).Once()
	strat.On("Initialize", config.StrategyParams).Return(nil).Once()
	strat.On("MinCandlesRequired").Return(1).Once()
	strat.On("PopulateIndicators", mock.Anything).
		Return(strategy.IndicatorResult{}, nil).Times(3)
	strat.On("PopulateEntrySignal", mock.Anything, mock.Anything, mock.Anything).
		Return(optional.None[types.Signal](), nil).Times(3)

	result := runEngine(config, makeCandles([]float64{100, 101, 102}), strat)

	assert.Equal(t, types.BacktestStatusCompleted, result.Status)
	strat.AssertExpectations(t)
	strat.AssertNotCalled(t, "PopulateExitSignal", mock.Anything, mock.Anything, mock.Anything)
}

func TestStrategyInitializeFailureFailsRun(t *testing.T) {
	config := testConfig()

	strat := new(strategy.MockStrategy)
	strat.On("Name").Return("mocked").Maybe()
	strat.On("APIVersion").Return(version.StrategyAPIVersion).Once()
	strat.On("Initialize", mock.Anything).Return(assert.AnError).Once()

	result := runEngine(config, makeCandles([]float64{100, 101, 102}), strat)

	assert.Equal(t, types.BacktestStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "failed to initialize")
	strat.AssertNotCalled(t, "PopulateIndicators", mock.Anything)
}

// panickingStrategy behaves like scriptedStrategy until the given candle
// index, then panics inside PopulateIndicators.
type panickingStrategy struct {
	*scriptedStrategy
	panicAt int
}

func (s *panickingStrategy) PopulateIndicators(candles []types.Candle) (strategy.IndicatorResult, error) {
	if len(candles)-1 >= s.panicAt {
		panic("indicator blew up")
	}

	return s.scriptedStrategy.PopulateIndicators(candles)
}

func TestRunPanicKeepsPartialResults(t *testing.T) {
	inner := newScriptedStrategy(1)
	inner.entries[0] = types.SignalTypeEntryLong
	inner.exitAt[1] = true
	strat := &panickingStrategy{scriptedStrategy: inner, panicAt: 3}

	result := runEngine(testConfig(), makeCandles([]float64{100, 105, 110, 120}), strat)

	require.Equal(t, types.BacktestStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "panic")

	// The trade closed before the panic and the equity points already
	// recorded survive in the failed result.
	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.CloseReasonSignal, result.Trades[0].Reason)
	assert.Len(t, result.EquityCurve, 3)
}
