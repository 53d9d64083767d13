package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/indicator"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/internal/version"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// SMACrossoverStrategy goes long when the short moving average crosses above
// the long one and short when it crosses below. Open positions are closed on
// the opposite cross.
type SMACrossoverStrategy struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACrossoverStrategy creates an uninitialized SMA crossover strategy.
func NewSMACrossoverStrategy() *SMACrossoverStrategy {
	return &SMACrossoverStrategy{}
}

func (s *SMACrossoverStrategy) Name() string {
	return "sma_crossover"
}

func (s *SMACrossoverStrategy) APIVersion() string {
	return version.StrategyAPIVersion
}

func (s *SMACrossoverStrategy) paramSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "short_period", Type: ParamInt, Default: 10},
		{Name: "long_period", Type: ParamInt, Default: 30},
	}
}

func (s *SMACrossoverStrategy) Initialize(params map[string]any) error {
	resolved, err := ResolveParams(s.paramSpecs(), params)
	if err != nil {
		return err
	}
	s.shortPeriod = IntParam(resolved, "short_period")
	s.longPeriod = IntParam(resolved, "long_period")
	if s.shortPeriod <= 0 || s.longPeriod <= 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "periods must be positive")
	}
	if s.shortPeriod >= s.longPeriod {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"short_period (%d) must be less than long_period (%d)", s.shortPeriod, s.longPeriod)
	}
	return nil
}

func (s *SMACrossoverStrategy) MinCandlesRequired() int {
	// One extra candle so the previous averages exist for cross detection.
	return s.longPeriod + 1
}

func (s *SMACrossoverStrategy) PopulateIndicators(candles []types.Candle) (IndicatorResult, error) {
	closes := indicator.Closes(candles)
	if len(closes) < s.MinCandlesRequired() {
		return nil, errors.NewInsufficientDataErrorf(s.MinCandlesRequired(), len(closes), "",
			"insufficient history for %s: required %d, got %d", s.Name(), s.MinCandlesRequired(), len(closes))
	}

	shortNow, err := indicator.SMA(closes, s.shortPeriod)
	if err != nil {
		return nil, err
	}
	longNow, err := indicator.SMA(closes, s.longPeriod)
	if err != nil {
		return nil, err
	}
	prev := closes[:len(closes)-1]
	shortPrev, err := indicator.SMA(prev, s.shortPeriod)
	if err != nil {
		return nil, err
	}
	longPrev, err := indicator.SMA(prev, s.longPeriod)
	if err != nil {
		return nil, err
	}

	return IndicatorResult{
		"sma_short":      shortNow,
		"sma_long":       longNow,
		"sma_short_prev": shortPrev,
		"sma_long_prev":  longPrev,
	}, nil
}

func (s *SMACrossoverStrategy) PopulateEntrySignal(candles []types.Candle, indicators IndicatorResult, price float64) (optional.Option[types.Signal], error) {
	last := candles[len(candles)-1]

	crossedUp := indicators["sma_short_prev"] <= indicators["sma_long_prev"] &&
		indicators["sma_short"] > indicators["sma_long"]
	crossedDown := indicators["sma_short_prev"] >= indicators["sma_long_prev"] &&
		indicators["sma_short"] < indicators["sma_long"]

	if crossedUp {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeEntryLong,
			Name:   s.Name(),
			Reason: fmt.Sprintf("SMA(%d) crossed above SMA(%d)", s.shortPeriod, s.longPeriod),
		}), nil
	}
	if crossedDown {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeEntryShort,
			Name:   s.Name(),
			Reason: fmt.Sprintf("SMA(%d) crossed below SMA(%d)", s.shortPeriod, s.longPeriod),
		}), nil
	}
	return optional.None[types.Signal](), nil
}

func (s *SMACrossoverStrategy) PopulateExitSignal(candles []types.Candle, indicators IndicatorResult, position *types.Position) (optional.Option[types.Signal], error) {
	last := candles[len(candles)-1]

	crossedUp := indicators["sma_short_prev"] <= indicators["sma_long_prev"] &&
		indicators["sma_short"] > indicators["sma_long"]
	crossedDown := indicators["sma_short_prev"] >= indicators["sma_long_prev"] &&
		indicators["sma_short"] < indicators["sma_long"]

	if position.Direction == types.DirectionLong && crossedDown {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeExit,
			Name:   s.Name(),
			Reason: "opposite cross against long position",
		}), nil
	}
	if position.Direction == types.DirectionShort && crossedUp {
		return optional.Some(types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeExit,
			Name:   s.Name(),
			Reason: "opposite cross against short position",
		}), nil
	}
	return optional.None[types.Signal](), nil
}
