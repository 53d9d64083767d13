package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
	now    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.ledger = NewLedger(1000)
	suite.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *LedgerTestSuite) openLong(price, size, fee, leverage float64) *types.Position {
	pos, err := suite.ledger.OpenPosition("BTCUSDT", types.DirectionLong, price, size, fee,
		leverage, suite.now, optional.None[float64](), nil)
	suite.Require().NoError(err)

	return pos
}

func (suite *LedgerTestSuite) TestOpenDeductsMarginAndFee() {
	pos := suite.openLong(100, 5, 2, 1)

	suite.Equal(500.0, pos.Margin)
	suite.Equal(498.0, suite.ledger.Balance())
	suite.Equal(1, suite.ledger.OpenCount())
	suite.Equal(types.PositionStatusOpen, pos.Status)
	suite.Equal(5.0, pos.OpenedSize)
}

func (suite *LedgerTestSuite) TestLeverageReducesMargin() {
	pos := suite.openLong(100, 10, 0, 10)

	suite.Equal(100.0, pos.Margin)
	suite.Equal(900.0, suite.ledger.Balance())
	suite.InDelta(90.0, pos.LiquidationPrice, 1e-9)
}

func (suite *LedgerTestSuite) TestOpenInsufficientFunds() {
	_, err := suite.ledger.OpenPosition("BTCUSDT", types.DirectionLong, 100, 50, 0,
		1, suite.now, optional.None[float64](), nil)

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	suite.Equal(1000.0, suite.ledger.Balance())
	suite.Equal(0, suite.ledger.OpenCount())
}

func (suite *LedgerTestSuite) TestFullCloseReturnsMarginAndPnL() {
	pos := suite.openLong(100, 5, 0, 1)

	err := suite.ledger.ClosePartial(pos, 5, 110, 0, suite.now.Add(time.Hour), types.CloseReasonSignal)
	suite.Require().NoError(err)

	suite.Equal(0, suite.ledger.OpenCount())
	suite.InDelta(1050.0, suite.ledger.Balance(), 1e-9)

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.CloseReasonSignal, trades[0].Reason)
	suite.InDelta(50.0, trades[0].PnL, 1e-9)
	suite.Equal(types.PositionStatusClosed, pos.Status)
}

func (suite *LedgerTestSuite) TestPartialClosesConserveSize() {
	pos := suite.openLong(100, 10, 0, 1)

	suite.Require().NoError(suite.ledger.ClosePartial(pos, 4, 105, 0, suite.now, types.CloseReasonTakeProfit))
	suite.Equal(1, suite.ledger.OpenCount())
	suite.InDelta(6.0, pos.Size, 1e-9)

	suite.Require().NoError(suite.ledger.ClosePartial(pos, 3, 110, 0, suite.now, types.CloseReasonTakeProfit))
	suite.Require().NoError(suite.ledger.ClosePartial(pos, 3, 95, 0, suite.now, types.CloseReasonManual))

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)

	// Exit sizes sum exactly to the size recorded at open.
	suite.InDelta(pos.OpenedSize, trades[0].Size, 1e-9)
	suite.Equal(0.0, pos.Size)

	// 4*5 + 3*10 + 3*(-5) = 35 total PnL.
	suite.InDelta(35.0, trades[0].PnL, 1e-9)
	suite.InDelta(1035.0, suite.ledger.Balance(), 1e-9)
}

func (suite *LedgerTestSuite) TestOversizedExitRejected() {
	pos := suite.openLong(100, 5, 0, 1)

	err := suite.ledger.ClosePartial(pos, 6, 110, 0, suite.now, types.CloseReasonSignal)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOversizedExit))
	suite.Equal(5.0, pos.Size)
}

func (suite *LedgerTestSuite) TestLiquidationForfeitsMargin() {
	pos := suite.openLong(100, 10, 0, 10)
	suite.Equal(900.0, suite.ledger.Balance())

	err := suite.ledger.Liquidate(pos, suite.now.Add(time.Hour))
	suite.Require().NoError(err)

	// The margin is gone: nothing is credited back.
	suite.Equal(900.0, suite.ledger.Balance())
	suite.Equal(types.PositionStatusLiquidated, pos.Status)
	suite.Equal(0, suite.ledger.OpenCount())

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.CloseReasonLiquidation, trades[0].Reason)
	suite.True(trades[0].Liquidated)
	suite.InDelta(90.0, trades[0].ExitPrice, 1e-9)
	suite.InDelta(-100.0, trades[0].PnL, 1e-9)
}

func (suite *LedgerTestSuite) TestNormalCloseReturnsMarginUnlikeLiquidation() {
	pos := suite.openLong(100, 10, 0, 10)

	// Closing at the same adverse price through a normal exit credits the
	// margin share back, so only the PnL is lost.
	err := suite.ledger.ClosePartial(pos, 10, 95, 0, suite.now, types.CloseReasonStopLoss)
	suite.Require().NoError(err)

	// 900 + margin 100 + pnl -50.
	suite.InDelta(950.0, suite.ledger.Balance(), 1e-9)
}

func (suite *LedgerTestSuite) TestShortPositionPnL() {
	pos, err := suite.ledger.OpenPosition("BTCUSDT", types.DirectionShort, 100, 5, 0,
		1, suite.now, optional.None[float64](), nil)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.ledger.ClosePartial(pos, 5, 90, 0, suite.now, types.CloseReasonSignal))

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	suite.InDelta(50.0, trades[0].PnL, 1e-9)
	suite.InDelta(1050.0, suite.ledger.Balance(), 1e-9)
}

func (suite *LedgerTestSuite) TestForceCloseAll() {
	suite.openLong(100, 2, 0, 1)
	suite.openLong(100, 3, 0, 1)

	err := suite.ledger.ForceCloseAll(101, commission_fee.NewZeroCommissionFee(), suite.now.Add(time.Hour), types.CloseReasonManual)
	suite.Require().NoError(err)

	suite.Equal(0, suite.ledger.OpenCount())
	suite.Len(suite.ledger.Trades(), 2)

	for _, trade := range suite.ledger.Trades() {
		suite.Equal(types.CloseReasonManual, trade.Reason)
	}
}

func (suite *LedgerTestSuite) TestEquityIncludesMarginAndUnrealized() {
	pos := suite.openLong(100, 10, 0, 10)

	pos.MarkToPrice(105)
	// balance 900 + margin 100 + unrealized 50.
	suite.InDelta(1050.0, suite.ledger.Equity(), 1e-9)

	wins, losses := suite.ledger.WinLossCounts()
	suite.Equal(0, wins)
	suite.Equal(0, losses)
}

func (suite *LedgerTestSuite) TestFeesReduceTradePnL() {
	pos := suite.openLong(100, 5, 1, 1)

	suite.Require().NoError(suite.ledger.ClosePartial(pos, 5, 110, 2, suite.now, types.CloseReasonSignal))

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	suite.InDelta(3.0, trades[0].Fees, 1e-9)
	// Gross 50 minus 3 in fees.
	suite.InDelta(47.0, trades[0].PnL, 1e-9)
}
