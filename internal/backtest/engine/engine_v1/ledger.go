package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// exitFill records one partial or full exit against an open position.
type exitFill struct {
	Price  float64
	Size   float64
	Fee    float64
	PnL    float64
	Time   time.Time
	Reason types.CloseReason
}

// openPosition pairs a live position with the per-run bookkeeping the
// ledger needs to finalize it into a trade.
type openPosition struct {
	Position *types.Position
	Exits    []exitFill
	// CandlesHeld counts fully processed candles since the entry candle.
	CandlesHeld int
}

// Ledger is the in-memory position state machine of one simulation run. It
// owns the cash balance, the set of open positions, and the finalized trade
// list. It performs accounting only; trigger detection and fee policy are
// the engine's job.
//
// Margin model: opening a position posts notional/leverage as margin,
// deducted from the balance along with the entry fee. Closes return the
// proportional margin share plus realized PnL minus the exit fee.
// Liquidation is the exception: the margin is forfeited and the balance is
// not touched, the posted margin absorbs the loss.
type Ledger struct {
	balance     float64
	open        []*openPosition
	trades      []types.Trade
	realizedPnL float64
	wins        int
	losses      int
}

// NewLedger creates a ledger with the given starting cash balance.
func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{balance: initialBalance}
}

// Balance returns the free cash balance, posted margin excluded.
func (l *Ledger) Balance() float64 {
	return l.balance
}

// Equity returns balance plus posted margin plus unrealized PnL across all
// open positions.
func (l *Ledger) Equity() float64 {
	equity := decimal.NewFromFloat(l.balance)
	for _, op := range l.open {
		equity = equity.Add(decimal.NewFromFloat(op.Position.Margin))
		equity = equity.Add(decimal.NewFromFloat(op.Position.UnrealizedPnL))
	}

	result, _ := equity.Float64()

	return result
}

// UnrealizedPnL sums the unrealized PnL of all open positions.
func (l *Ledger) UnrealizedPnL() float64 {
	total := 0.0
	for _, op := range l.open {
		total += op.Position.UnrealizedPnL
	}

	return total
}

// RealizedPnL returns the cumulative realized PnL of the run, fees
// excluded.
func (l *Ledger) RealizedPnL() float64 {
	return l.realizedPnL
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	return len(l.open)
}

// OpenPositions returns the live open positions. Callers must treat the
// slice as read-only.
func (l *Ledger) OpenPositions() []*openPosition {
	return l.open
}

// Trades returns the finalized trades so far.
func (l *Ledger) Trades() []types.Trade {
	return l.trades
}

// WinLossCounts returns the number of winning and losing finalized trades.
func (l *Ledger) WinLossCounts() (wins, losses int) {
	return l.wins, l.losses
}

// OpenPosition opens a new position. The entry fee and margin
// (price*size/leverage) are deducted from the balance immediately.
func (l *Ledger) OpenPosition(symbol string, direction types.Direction, price, size, fee, leverage float64, at time.Time, stopLoss optional.Option[float64], takeProfits []types.TakeProfitTarget) (*types.Position, error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "position size must be positive, got %f", size)
	}

	margin := price * size / leverage
	cost := margin + fee

	// Small tolerance so a size computed to exactly exhaust the balance is
	// not rejected on float roundoff.
	if cost > l.balance*(1+1e-9) {
		return nil, errors.Newf(errors.ErrCodeInsufficientFunds,
			"opening requires %.2f (margin %.2f + fee %.2f) but balance is %.2f", cost, margin, fee, l.balance)
	}

	pos := &types.Position{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Direction: direction,
		Status:    types.PositionStatusOpen,
		StopLoss:  stopLoss,
		Leverage:  leverage,
		Margin:    margin,
		OpenTime:  at,
	}
	pos.AddFill(types.EntryFill{Price: price, Size: size, Time: at, Fee: fee})
	pos.LiquidationPrice = types.ComputeLiquidationPrice(pos.AvgEntryPrice, direction, leverage)
	pos.TakeProfits = append(pos.TakeProfits, takeProfits...)

	l.balance -= cost
	l.open = append(l.open, &openPosition{Position: pos})

	return pos, nil
}

// ClosePartial closes the given size of an open position at the given
// price. The proportional margin share plus realized PnL minus the exit fee
// is credited to the balance. When the remaining size reaches zero the
// position is finalized into a trade with the given reason.
func (l *Ledger) ClosePartial(pos *types.Position, size, price, fee float64, at time.Time, reason types.CloseReason) error {
	op := l.find(pos.ID)
	if op == nil {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s is not open", pos.ID)
	}

	if size <= 0 || size > pos.Size+sizeEpsilon {
		return errors.Newf(errors.ErrCodeOversizedExit,
			"exit size %f exceeds remaining position size %f", size, pos.Size)
	}

	if size > pos.Size {
		size = pos.Size
	}

	pnl := pos.PnLAt(price, size)
	marginShare := pos.Margin * (size / pos.Size)

	pos.Size -= size
	pos.Margin -= marginShare
	pos.RealizedPnL += pnl
	pos.Fees += fee
	l.realizedPnL += pnl
	l.balance += marginShare + pnl - fee

	op.Exits = append(op.Exits, exitFill{
		Price: price, Size: size, Fee: fee, PnL: pnl, Time: at, Reason: reason,
	})

	if pos.Size <= sizeEpsilon {
		pos.Size = 0
		pos.Status = types.PositionStatusClosed
		l.finalize(op, at, reason, false)
	}

	return nil
}

// Liquidate force-closes the full remaining size at the position's
// liquidation price and forfeits the posted margin: the balance is not
// credited, the loss is absorbed by the margin itself.
func (l *Ledger) Liquidate(pos *types.Position, at time.Time) error {
	op := l.find(pos.ID)
	if op == nil {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s is not open", pos.ID)
	}

	pnl := pos.PnLAt(pos.LiquidationPrice, pos.Size)

	op.Exits = append(op.Exits, exitFill{
		Price: pos.LiquidationPrice, Size: pos.Size, PnL: pnl, Time: at,
		Reason: types.CloseReasonLiquidation,
	})

	l.realizedPnL += pnl
	pos.RealizedPnL += pnl
	pos.Size = 0
	pos.Margin = 0
	pos.Status = types.PositionStatusLiquidated

	l.finalize(op, at, types.CloseReasonLiquidation, true)

	return nil
}

// ForceCloseAll closes every open position fully at the given price.
func (l *Ledger) ForceCloseAll(price float64, fees commission_fee.CommissionFee, at time.Time, reason types.CloseReason) error {
	for _, op := range append([]*openPosition(nil), l.open...) {
		pos := op.Position
		fee := fees.Calculate(price, pos.Size)

		if err := l.ClosePartial(pos, pos.Size, price, fee, at, reason); err != nil {
			return err
		}
	}

	return nil
}

// MarkAll recomputes every open position's unrealized PnL against the given
// price and advances its holding-time counter.
func (l *Ledger) MarkAll(price float64) {
	for _, op := range l.open {
		op.Position.MarkToPrice(price)
		op.CandlesHeld++
	}
}

const sizeEpsilon = 1e-9

func (l *Ledger) find(id string) *openPosition {
	for _, op := range l.open {
		if op.Position.ID == id {
			return op
		}
	}

	return nil
}

// finalize converts a fully-exited position into an immutable trade and
// removes it from the open set.
func (l *Ledger) finalize(op *openPosition, at time.Time, reason types.CloseReason, liquidated bool) {
	pos := op.Position

	exitNotional := decimal.Zero
	exitSize := decimal.Zero
	for _, e := range op.Exits {
		sizeDec := decimal.NewFromFloat(e.Size)
		exitNotional = exitNotional.Add(sizeDec.Mul(decimal.NewFromFloat(e.Price)))
		exitSize = exitSize.Add(sizeDec)
	}

	exitPrice := 0.0
	if !exitSize.IsZero() {
		exitPrice, _ = exitNotional.Div(exitSize).Float64()
	}

	netPnL := pos.RealizedPnL - pos.Fees
	marginAtOpen := pos.AvgEntryPrice * pos.OpenedSize / pos.Leverage
	pnlPercent := 0.0
	if marginAtOpen > 0 {
		pnlPercent = netPnL / marginAtOpen * 100
	}

	trade := types.Trade{
		ID:         uuid.New().String(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.AvgEntryPrice,
		ExitPrice:  exitPrice,
		Size:       pos.OpenedSize,
		EntryTime:  pos.OpenTime,
		ExitTime:   at,
		PnL:        netPnL,
		PnLPercent: pnlPercent,
		Fees:       pos.Fees,
		Reason:     reason,
		Liquidated: liquidated,
	}

	l.trades = append(l.trades, trade)
	if trade.IsWinner() {
		l.wins++
	} else {
		l.losses++
	}

	for i, candidate := range l.open {
		if candidate == op {
			l.open = append(l.open[:i], l.open[i+1:]...)

			break
		}
	}
}
