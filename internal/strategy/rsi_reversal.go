package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/indicator"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/internal/version"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// RSIReversalStrategy buys oversold conditions and sells overbought ones:
// long when RSI drops below the oversold level, short when it rises above
// the overbought level, exiting when RSI swings back to the opposite level.
type RSIReversalStrategy struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIReversalStrategy creates an uninitialized RSI reversal strategy.
func NewRSIReversalStrategy() *RSIReversalStrategy {
	return &RSIReversalStrategy{}
}

func (s *RSIReversalStrategy) Name() string {
	return "rsi_reversal"
}

func (s *RSIReversalStrategy) APIVersion() string {
	return version.StrategyAPIVersion
}

func (s *RSIReversalStrategy) paramSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "period", Type: ParamInt, Default: 14},
		{Name: "oversold", Type: ParamFloat, Default: 30.0},
		{Name: "overbought", Type: ParamFloat, Default: 70.0},
	}
}

func (s *RSIReversalStrategy) Initialize(params map[string]any) error {
	resolved, err := ResolveParams(s.paramSpecs(), params)
	if err != nil {
		return err
	}
	s.period = IntParam(resolved, "period")
	s.oversold = FloatParam(resolved, "oversold")
	s.overbought = FloatParam(resolved, "overbought")
	if s.period <= 0 {
		return errors.New(errors.ErrCodeInvalidPeriod, "period must be positive")
	}
	if s.oversold <= 0 || s.overbought >= 100 || s.oversold >= s.overbought {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"need 0 < oversold (%.1f) < overbought (%.1f) < 100", s.oversold, s.overbought)
	}
	return nil
}

func (s *RSIReversalStrategy) MinCandlesRequired() int {
	return s.period + 1
}

func (s *RSIReversalStrategy) PopulateIndicators(candles []types.Candle) (IndicatorResult, error) {
	closes := indicator.Closes(candles)
	if len(closes) < s.MinCandlesRequired() {
		return nil, errors.NewInsufficientDataErrorf(s.MinCandlesRequired(), len(closes), "",
			"insufficient history for %s: required %d, got %d", s.Name(), s.MinCandlesRequired(), len(closes))
	}
	rsi, err := indicator.RSI(closes, s.period)
	if err != nil {
		return nil, err
	}
	return IndicatorResult{"rsi": rsi}, nil
}

func (s *RSIReversalStrategy) PopulateEntrySignal(candles []types.Candle, indicators IndicatorResult, price float64) (optional.Option[types.Signal], error) {
	last := candles[len(candles)-1]
	rsi := indicators["rsi"]

	if rsi < s.oversold {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeEntryLong,
			Name:   s.Name(),
			Reason: fmt.Sprintf("RSI %.1f below oversold level %.1f", rsi, s.oversold),
		}), nil
	}
	if rsi > s.overbought {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeEntryShort,
			Name:   s.Name(),
			Reason: fmt.Sprintf("RSI %.1f above overbought level %.1f", rsi, s.overbought),
		}), nil
	}
	return optional.None[types.Signal](), nil
}

func (s *RSIReversalStrategy) PopulateExitSignal(candles []types.Candle, indicators IndicatorResult, position *types.Position) (optional.Option[types.Signal], error) {
	last := candles[len(candles)-1]
	rsi := indicators["rsi"]

	if position.Direction == types.DirectionLong && rsi > s.overbought {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeExit,
			Name:   s.Name(),
			Reason: fmt.Sprintf("RSI %.1f reached overbought level %.1f", rsi, s.overbought),
		}), nil
	}
	if position.Direction == types.DirectionShort && rsi < s.oversold {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeExit,
			Name:   s.Name(),
			Reason: fmt.Sprintf("RSI %.1f reached oversold level %.1f", rsi, s.oversold),
		}), nil
	}
	return optional.None[types.Signal](), nil
}
