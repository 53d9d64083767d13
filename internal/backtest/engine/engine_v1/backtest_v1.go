// Package engine implements the v1 backtest engine: a single-threaded,
// deterministic candle-by-candle simulation with leverage, liquidation,
// stop-loss / take-profit-ladder / trailing-stop exits, and a max-drawdown
// circuit breaker.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-quant/internal/indicator"
	"github.com/rxtech-lab/argo-quant/internal/logger"
	"github.com/rxtech-lab/argo-quant/internal/strategy"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/internal/version"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
	"go.uber.org/zap"
)

// progressSteps controls how often the progress callback fires: roughly
// once per percent of the series.
const progressSteps = 100

// BacktestEngineV1 is the v1 implementation of engine.Engine. One instance
// serves one configuration; each Run owns its state exclusively, so
// separate instances can run concurrently without coordination.
type BacktestEngineV1 struct {
	config types.BacktestConfig
	fees   commission_fee.CommissionFee
	log    *logger.Logger
}

// Assert interface compliance.
var _ engine.Engine = (*BacktestEngineV1)(nil)

// NewBacktestEngineV1 creates an engine for the given configuration. A nil
// logger falls back to a no-op logger.
func NewBacktestEngineV1(config types.BacktestConfig, log *logger.Logger) *BacktestEngineV1 {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{
		config: config,
		fees:   commission_fee.ForRate(config.FeePercent),
		log:    log,
	}
}

// runState carries the mutable state of one simulation run.
type runState struct {
	strat     strategy.Strategy
	ledger    *Ledger
	equity    []types.EquityPoint
	maxEquity float64
	atrSeries []float64
}

// Run simulates the strategy over the candle series. Setup problems
// (missing strategy, invalid config, insufficient history) fail fast before
// any candle is processed. Errors or panics mid-simulation preserve the
// trades and equity produced so far under status FAILED. The drawdown
// circuit breaker and normal completion both end with status COMPLETED.
func (e *BacktestEngineV1) Run(ctx context.Context, candles []types.Candle, strat strategy.Strategy, onProgress optional.Option[engine.ProgressCallback]) *types.BacktestResult {
	result := &types.BacktestResult{
		ID:     uuid.New().String(),
		Status: types.BacktestStatusRunning,
	}

	// Declared before the recover handler so a panic mid-simulation still
	// hands the trades and equity produced so far to finish.
	var state *runState

	defer func() {
		if r := recover(); r != nil {
			e.fail(result, fmt.Sprintf("panic during simulation: %v", r))
			if state != nil {
				e.finish(result, state, candles, len(state.equity), len(candles))
			}
		}
	}()

	if strat == nil {
		e.fail(result, "no strategy provided")

		return result
	}

	if err := e.config.Validate(); err != nil {
		e.fail(result, fmt.Sprintf("invalid configuration: %v", err))

		return result
	}

	if err := version.CheckCompatibility(version.StrategyAPIVersion, strat.APIVersion()); err != nil {
		e.fail(result, fmt.Sprintf("strategy %s is incompatible: %v", strat.Name(), err))

		return result
	}

	if err := strat.Initialize(e.config.StrategyParams); err != nil {
		e.fail(result, fmt.Sprintf("strategy %s failed to initialize: %v", strat.Name(), err))

		return result
	}

	if err := types.ValidateCandles(candles); err != nil {
		e.fail(result, fmt.Sprintf("invalid candle series: %v", err))

		return result
	}

	if e.config.StartTime.IsSome() || e.config.EndTime.IsSome() {
		start := e.config.StartTime.TakeOr(candles[0].Time)
		end := e.config.EndTime.TakeOr(candles[len(candles)-1].Time.Add(time.Nanosecond))
		candles = types.SliceCandlesByTime(candles, start, end)
	}

	minCandles := strat.MinCandlesRequired()
	if len(candles) < minCandles {
		e.fail(result, fmt.Sprintf("insufficient candles: strategy %s requires %d, got %d",
			strat.Name(), minCandles, len(candles)))

		return result
	}

	state = &runState{
		strat:  strat,
		ledger: NewLedger(e.config.InitialBalance),
		equity: make([]types.EquityPoint, 0, len(candles)),
	}

	if e.config.Tactics.Trailing.Enabled && e.config.Tactics.Trailing.Kind == types.TrailingKindATR {
		series, err := indicator.ATRSeries(candles, e.config.Tactics.Trailing.ATRPeriod)
		if err != nil {
			e.fail(result, fmt.Sprintf("trailing ATR precomputation failed: %v", err))

			return result
		}

		state.atrSeries = series
	}

	e.log.Debug("starting backtest",
		zap.String("strategy", strat.Name()),
		zap.String("symbol", e.config.Symbol),
		zap.Int("candles", len(candles)))

	total := len(candles)
	interval := total / progressSteps
	if interval == 0 {
		interval = 1
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			e.logRun(result, types.LogLevelWarn, "run cancelled by caller")
			result.Status = types.BacktestStatusCancelled
			e.finish(result, state, candles, i, total)

			return result
		}

		candle := candles[i]

		// 1. Mark to close and check liquidation on the candle extremes.
		state.ledger.MarkAll(candle.Close)
		if err := e.checkLiquidations(result, state, candle); err != nil {
			e.fail(result, err.Error())
			e.finish(result, state, candles, i, total)

			return result
		}

		// 2. Price-triggered exits from intra-candle extremes.
		if err := e.processExits(state, candle); err != nil {
			e.fail(result, err.Error())
			e.finish(result, state, candles, i, total)

			return result
		}

		// 3. Trailing-stop watermark and tightening.
		e.updateTrailingStops(state, candle, i)

		// 4. Strategy signals, exits before entries.
		if i+1 >= minCandles {
			if err := e.processSignals(result, state, candles[:i+1]); err != nil {
				e.fail(result, fmt.Sprintf("strategy error at candle %d: %v", i, err))
				e.finish(result, state, candles, i, total)

				return result
			}
		}

		// 5. One equity point per candle.
		point := e.appendEquityPoint(state, candle)

		// 6. Drawdown circuit breaker.
		if e.config.MaxDrawdownPercent.IsSome() && point.DrawdownPercent > e.config.MaxDrawdownPercent.Unwrap() {
			e.logRun(result, types.LogLevelWarn, fmt.Sprintf(
				"drawdown %.2f%% breached limit %.2f%%, closing all positions and stopping",
				point.DrawdownPercent, e.config.MaxDrawdownPercent.Unwrap()))

			if err := state.ledger.ForceCloseAll(candle.Close, e.fees, candle.Time, types.CloseReasonManual); err != nil {
				e.fail(result, err.Error())
			}

			e.reportProgress(onProgress, i+1, total)
			e.finish(result, state, candles, i+1, total)

			return result
		}

		if (i+1)%interval == 0 || i == total-1 {
			e.reportProgress(onProgress, i+1, total)
		}
	}

	// Anything still open at series end closes at the last candle's close.
	last := candles[total-1]
	if state.ledger.OpenCount() > 0 {
		if err := state.ledger.ForceCloseAll(last.Close, e.fees, last.Time, types.CloseReasonManual); err != nil {
			e.fail(result, err.Error())
			e.finish(result, state, candles, total, total)

			return result
		}
	}

	e.finish(result, state, candles, total, total)

	return result
}

// finish computes metrics from whatever the run produced and stamps the
// final status and progress.
func (e *BacktestEngineV1) finish(result *types.BacktestResult, state *runState, candles []types.Candle, processed, total int) {
	result.Trades = state.ledger.Trades()
	result.EquityCurve = state.equity
	result.Metrics = CalculateMetrics(result.Trades, result.EquityCurve, e.config.InitialBalance, candles)
	result.Progress = float64(processed) / float64(total) * 100

	if result.Status == types.BacktestStatusRunning {
		result.Status = types.BacktestStatusCompleted
	}

	e.log.Debug("backtest finished",
		zap.String("status", string(result.Status)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("progress", result.Progress))
}

func (e *BacktestEngineV1) fail(result *types.BacktestResult, message string) {
	result.Status = types.BacktestStatusFailed
	result.ErrorMessage = message
	e.logRun(result, types.LogLevelError, message)
	e.log.Error("backtest failed", zap.String("reason", message))
}

func (e *BacktestEngineV1) logRun(result *types.BacktestResult, level types.LogLevel, message string) {
	result.Logs = append(result.Logs, types.RunLog{
		Time:    time.Now().UTC(),
		Level:   level,
		Message: message,
	})
}

func (e *BacktestEngineV1) reportProgress(onProgress optional.Option[engine.ProgressCallback], current, total int) {
	if onProgress.IsSome() {
		onProgress.Unwrap()(current, total)
	}
}

// checkLiquidations closes any position whose liquidation price the candle
// extremes touched. The margin is forfeited.
func (e *BacktestEngineV1) checkLiquidations(result *types.BacktestResult, state *runState, candle types.Candle) error {
	for _, op := range snapshot(state.ledger.OpenPositions()) {
		pos := op.Position
		if !pos.IsLiquidatedBy(candle) {
			continue
		}

		e.logRun(result, types.LogLevelWarn, fmt.Sprintf(
			"position %s liquidated at %.4f, margin forfeited", pos.ID, pos.LiquidationPrice))

		if err := state.ledger.Liquidate(pos, candle.Time); err != nil {
			return err
		}
	}

	return nil
}

// processExits evaluates price-triggered exits against the candle extremes.
// Order inside one candle: stop-loss first, then an already-armed trailing
// stop, then the take-profit ladder in rung order, then the holding-time
// limit. The stop-loss wins over a take-profit that would trigger on the
// same candle.
func (e *BacktestEngineV1) processExits(state *runState, candle types.Candle) error {
	for _, op := range snapshot(state.ledger.OpenPositions()) {
		pos := op.Position

		if pos.StopLoss.IsSome() && touchedAdverse(pos.Direction, candle, pos.StopLoss.Unwrap()) {
			if err := e.closeAt(state, pos, pos.Size, pos.StopLoss.Unwrap(), candle.Time, types.CloseReasonStopLoss); err != nil {
				return err
			}

			continue
		}

		if pos.Trailing.Activated && pos.Trailing.Stop > 0 && touchedAdverse(pos.Direction, candle, pos.Trailing.Stop) {
			if err := e.closeAt(state, pos, pos.Size, pos.Trailing.Stop, candle.Time, types.CloseReasonTrailingStop); err != nil {
				return err
			}

			continue
		}

		closed, err := e.processTakeProfits(state, pos, candle)
		if err != nil {
			return err
		}

		if closed {
			continue
		}

		if e.config.Tactics.MaxHoldingCandles.IsSome() && op.CandlesHeld >= e.config.Tactics.MaxHoldingCandles.Unwrap() {
			if err := e.closeAt(state, pos, pos.Size, candle.Close, candle.Time, types.CloseReasonTime); err != nil {
				return err
			}
		}
	}

	return nil
}

// processTakeProfits walks the unfilled rungs in order and partially closes
// on each touched one. Reports whether the position fully closed.
func (e *BacktestEngineV1) processTakeProfits(state *runState, pos *types.Position, candle types.Candle) (bool, error) {
	for i := range pos.TakeProfits {
		target := &pos.TakeProfits[i]
		if target.Filled || !touchedFavorable(pos.Direction, candle, target.Price) {
			continue
		}

		size := pos.OpenedSize * target.ClosePercent / 100
		if size > pos.Size {
			size = pos.Size
		}

		target.Filled = true

		if err := e.closeAt(state, pos, size, target.Price, candle.Time, types.CloseReasonTakeProfit); err != nil {
			return false, err
		}

		if pos.Status != types.PositionStatusOpen {
			return true, nil
		}
	}

	return false, nil
}

// closeAt closes the given size at the given price, charging the exit fee.
// Stop and target fills execute exactly at the trigger price; slippage is
// modeled on signal-based fills only.
func (e *BacktestEngineV1) closeAt(state *runState, pos *types.Position, size, price float64, at time.Time, reason types.CloseReason) error {
	fee := e.fees.Calculate(price, size)

	return state.ledger.ClosePartial(pos, size, price, fee, at, reason)
}

// updateTrailingStops advances each position's watermark and tightens the
// stop. A LONG stop only ever rises and a SHORT stop only ever falls.
func (e *BacktestEngineV1) updateTrailingStops(state *runState, candle types.Candle, idx int) {
	cfg := e.config.Tactics.Trailing
	if !cfg.Enabled {
		return
	}

	for _, op := range state.ledger.OpenPositions() {
		pos := op.Position

		if !pos.Trailing.Activated {
			profitPercent := pos.PnLAt(candle.Close, pos.Size) / (pos.AvgEntryPrice * pos.Size) * 100
			if profitPercent < cfg.ActivationPercent {
				continue
			}

			pos.Trailing.Activated = true
			pos.Trailing.Watermark = candle.Close
		}

		if pos.Direction == types.DirectionLong {
			pos.Trailing.Watermark = math.Max(pos.Trailing.Watermark, candle.High)
		} else {
			if pos.Trailing.Watermark == 0 {
				pos.Trailing.Watermark = candle.Low
			}

			pos.Trailing.Watermark = math.Min(pos.Trailing.Watermark, candle.Low)
		}

		distance, ok := e.trailingDistance(pos.Trailing.Watermark, idx, state)
		if !ok {
			continue
		}

		if pos.Direction == types.DirectionLong {
			candidate := pos.Trailing.Watermark - distance
			if candidate > pos.Trailing.Stop {
				pos.Trailing.Stop = candidate
			}
		} else {
			candidate := pos.Trailing.Watermark + distance
			if pos.Trailing.Stop == 0 || candidate < pos.Trailing.Stop {
				pos.Trailing.Stop = candidate
			}
		}
	}
}

// trailingDistance resolves the configured trailing distance at the given
// candle index. ATR-based trailing reports not-ok until the ATR window has
// filled.
func (e *BacktestEngineV1) trailingDistance(watermark float64, idx int, state *runState) (float64, bool) {
	cfg := e.config.Tactics.Trailing

	switch cfg.Kind {
	case types.TrailingKindPercent:
		return watermark * cfg.Value / 100, true
	case types.TrailingKindFixed:
		return cfg.Value, true
	case types.TrailingKindATR:
		if state.atrSeries == nil || idx >= len(state.atrSeries) || math.IsNaN(state.atrSeries[idx]) {
			return 0, false
		}

		return state.atrSeries[idx] * cfg.Value, true
	default:
		return 0, false
	}
}

// processSignals asks the strategy for exit signals on each open position
// and then for at most one entry signal, using only the candles seen so
// far. Signal fills execute at the candle close with slippage applied.
func (e *BacktestEngineV1) processSignals(result *types.BacktestResult, state *runState, seen []types.Candle) error {
	candle := seen[len(seen)-1]

	indicators, err := state.strat.PopulateIndicators(seen)
	if err != nil {
		return err
	}

	for _, op := range snapshot(state.ledger.OpenPositions()) {
		pos := op.Position

		sig, err := state.strat.PopulateExitSignal(seen, indicators, pos)
		if err != nil {
			return err
		}

		if sig.IsNone() || sig.Unwrap().Type != types.SignalTypeExit {
			continue
		}

		price := e.applySlippage(candle.Close, exitSide(pos.Direction))
		if err := e.closeAt(state, pos, pos.Size, price, candle.Time, types.CloseReasonSignal); err != nil {
			return err
		}
	}

	if state.ledger.OpenCount() >= e.config.MaxOpenPositions {
		return nil
	}

	sig, err := state.strat.PopulateEntrySignal(seen, indicators, candle.Close)
	if err != nil {
		return err
	}

	if sig.IsNone() || !sig.Unwrap().IsEntry() {
		return nil
	}

	signal := sig.Unwrap()
	direction := types.DirectionLong
	if signal.Type == types.SignalTypeEntryShort {
		if !e.config.AllowShort {
			return nil
		}

		direction = types.DirectionShort
	}

	return e.openFromSignal(result, state, signal, direction, candle)
}

// openFromSignal sizes and opens a position for an accepted entry signal.
// Insufficient funds skip the entry with a log entry instead of failing the
// run.
func (e *BacktestEngineV1) openFromSignal(result *types.BacktestResult, state *runState, signal types.Signal, direction types.Direction, candle types.Candle) error {
	price := e.applySlippage(candle.Close, entrySide(direction))

	size := e.entrySize(state.ledger.Balance(), price)
	if size <= 0 {
		return nil
	}

	fee := e.fees.Calculate(price, size)
	stopLoss := e.stopLossPrice(price, direction)
	targets := e.takeProfitTargets(price, direction)

	pos, err := state.ledger.OpenPosition(e.config.Symbol, direction, price, size, fee,
		e.config.Leverage, candle.Time, stopLoss, targets)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientFunds) {
			e.logRun(result, types.LogLevelWarn, fmt.Sprintf("entry skipped: %v", err))

			return nil
		}

		return err
	}

	e.log.Debug("opened position",
		zap.String("id", pos.ID),
		zap.String("direction", string(direction)),
		zap.Float64("price", price),
		zap.Float64("size", size),
		zap.String("reason", signal.Reason))

	return nil
}

// entrySize resolves the configured sizing mode into a base-asset size:
// PERCENT commits balance%/price, FIXED amount/price, RISK_BASED a flat 2%
// of the balance (a stop-distance formula would need the stop known before
// sizing). When margin plus entry fee would overdraw the balance the size
// is scaled down to fit instead of skipping the entry.
func (e *BacktestEngineV1) entrySize(balance, price float64) float64 {
	sizing := e.config.Tactics.Sizing

	allocated := 0.0

	switch sizing.Mode {
	case types.SizingModePercent:
		allocated = balance * sizing.Value / 100
	case types.SizingModeFixed:
		allocated = sizing.Value
	case types.SizingModeRiskBased:
		allocated = balance * 0.02
	default:
		return 0
	}

	if price <= 0 {
		return 0
	}

	size := allocated / price

	// Converges in one pass for notional-proportional fees.
	for i := 0; i < 10; i++ {
		cost := price*size/e.config.Leverage + e.fees.Calculate(price, size)
		if cost <= balance || cost <= 0 {
			break
		}

		size *= balance / cost
	}

	return size
}

// stopLossPrice offsets the configured percentage against the direction;
// a 5% stop on a LONG entry at 100 sits at 95.
func (e *BacktestEngineV1) stopLossPrice(entryPrice float64, direction types.Direction) optional.Option[float64] {
	slPercent := e.config.Tactics.StopLossPercent
	if slPercent.IsNone() {
		return optional.None[float64]()
	}

	offset := entryPrice * slPercent.Unwrap() / 100

	if direction == types.DirectionLong {
		return optional.Some(entryPrice - offset)
	}

	return optional.Some(entryPrice + offset)
}

// takeProfitTargets materializes the configured ladder into absolute
// prices, in rung order.
func (e *BacktestEngineV1) takeProfitTargets(entryPrice float64, direction types.Direction) []types.TakeProfitTarget {
	configs := e.config.Tactics.TakeProfits
	if len(configs) == 0 {
		return nil
	}

	targets := make([]types.TakeProfitTarget, 0, len(configs))
	for _, tp := range configs {
		offset := entryPrice * tp.OffsetPercent / 100
		price := entryPrice + offset
		if direction == types.DirectionShort {
			price = entryPrice - offset
		}

		targets = append(targets, types.TakeProfitTarget{
			Price:        price,
			ClosePercent: tp.ClosePercent,
		})
	}

	return targets
}

type orderSide int

const (
	sideBuy orderSide = iota
	sideSell
)

func entrySide(direction types.Direction) orderSide {
	if direction == types.DirectionLong {
		return sideBuy
	}

	return sideSell
}

func exitSide(direction types.Direction) orderSide {
	if direction == types.DirectionLong {
		return sideSell
	}

	return sideBuy
}

// applySlippage moves the fill against the taker: buys fill above the
// close, sells below it.
func (e *BacktestEngineV1) applySlippage(price float64, side orderSide) float64 {
	slip := price * e.config.SlippagePercent / 100
	if side == sideBuy {
		return price + slip
	}

	return price - slip
}

// appendEquityPoint samples the run state after the candle's exits and
// entries settled. The maxEquity watermark never decreases.
func (e *BacktestEngineV1) appendEquityPoint(state *runState, candle types.Candle) types.EquityPoint {
	equity := state.ledger.Equity()
	if equity > state.maxEquity {
		state.maxEquity = equity
	}

	drawdown := state.maxEquity - equity
	drawdownPercent := 0.0
	if state.maxEquity > 0 {
		drawdownPercent = drawdown / state.maxEquity * 100
	}

	wins, losses := state.ledger.WinLossCounts()

	point := types.EquityPoint{
		Time:            candle.Time,
		Balance:         state.ledger.Balance(),
		Equity:          equity,
		UnrealizedPnL:   state.ledger.UnrealizedPnL(),
		RealizedPnL:     state.ledger.RealizedPnL(),
		CumulativePnL:   equity - e.config.InitialBalance,
		MaxEquity:       state.maxEquity,
		Drawdown:        drawdown,
		DrawdownPercent: drawdownPercent,
		OpenPositions:   state.ledger.OpenCount(),
		Trades:          len(state.ledger.Trades()),
		Wins:            wins,
		Losses:          losses,
	}

	state.equity = append(state.equity, point)

	return point
}

// snapshot copies the open-position slice so exit processing can mutate the
// ledger while iterating.
func snapshot(open []*openPosition) []*openPosition {
	return append([]*openPosition(nil), open...)
}

// touchedAdverse reports whether the candle moved against the position far
// enough to touch the given stop price.
func touchedAdverse(direction types.Direction, candle types.Candle, price float64) bool {
	if direction == types.DirectionLong {
		return candle.Low <= price
	}

	return candle.High >= price
}

// touchedFavorable reports whether the candle moved in the position's favor
// far enough to touch the given target price.
func touchedFavorable(direction types.Direction, candle types.Candle, price float64) bool {
	if direction == types.DirectionLong {
		return candle.High >= price
	}

	return candle.Low <= price
}
