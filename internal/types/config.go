package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

type SizingMode string

type TrailingKind string

type MarginMode string

const (
	// SizingModePercent sizes the entry as a percentage of the current balance.
	SizingModePercent SizingMode = "PERCENT"
	// SizingModeFixed sizes the entry as a fixed quote amount.
	SizingModeFixed SizingMode = "FIXED"
	// SizingModeRiskBased sizes the entry as a flat 2% of the current
	// balance. A stop-distance-aware formula would need the stop price at
	// entry time; the flat rate is a documented simplification.
	SizingModeRiskBased SizingMode = "RISK_BASED"
)

const (
	// TrailingKindPercent trails at price * value / 100.
	TrailingKindPercent TrailingKind = "PERCENT"
	// TrailingKindFixed trails at a constant price distance.
	TrailingKindFixed TrailingKind = "FIXED"
	// TrailingKindATR trails at ATR(period) * value.
	TrailingKindATR TrailingKind = "ATR_BASED"
)

const (
	MarginModeIsolated MarginMode = "ISOLATED"
	MarginModeCross    MarginMode = "CROSS"
)

// EntrySizing selects how much of the balance a new position commits.
type EntrySizing struct {
	Mode SizingMode `yaml:"mode" json:"mode" validate:"required,oneof=PERCENT FIXED RISK_BASED" jsonschema:"title=Sizing Mode"`
	// Value is a percentage for PERCENT and a quote amount for FIXED.
	// RISK_BASED ignores it.
	Value float64 `yaml:"value" json:"value" validate:"gte=0"`
}

// TakeProfitConfig is one rung of the take-profit ladder, expressed as an
// offset from the entry price.
type TakeProfitConfig struct {
	OffsetPercent float64 `yaml:"offset_percent" json:"offset_percent" validate:"gt=0"`
	ClosePercent  float64 `yaml:"close_percent" json:"close_percent" validate:"gt=0,lte=100"`
}

// TrailingConfig configures the trailing stop.
type TrailingConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Kind    TrailingKind `yaml:"kind" json:"kind" validate:"omitempty,oneof=PERCENT FIXED ATR_BASED"`
	// Value is a percentage for PERCENT, a price distance for FIXED, and an
	// ATR multiplier for ATR_BASED.
	Value     float64 `yaml:"value" json:"value" validate:"gte=0"`
	ATRPeriod int     `yaml:"atr_period" json:"atr_period" validate:"gte=0"`
	// ActivationPercent delays trailing until the position is up by this
	// percentage. Zero activates immediately.
	ActivationPercent float64 `yaml:"activation_percent" json:"activation_percent" validate:"gte=0"`
}

// TacticsConfig bundles the execution tactics applied to every position the
// engine opens: sizing, stop loss, take-profit ladder, trailing stop, and
// the optional holding-time limit.
type TacticsConfig struct {
	Sizing          EntrySizing              `yaml:"sizing" json:"sizing" validate:"required"`
	StopLossPercent optional.Option[float64] `yaml:"stop_loss_percent" json:"stop_loss_percent"`
	TakeProfits     []TakeProfitConfig       `yaml:"take_profits" json:"take_profits" validate:"dive"`
	Trailing        TrailingConfig           `yaml:"trailing" json:"trailing"`
	// MaxHoldingCandles closes a position with reason TIME once it has been
	// open for this many candles. None disables the limit.
	MaxHoldingCandles optional.Option[int] `yaml:"max_holding_candles" json:"max_holding_candles"`
}

// BacktestConfig is the full configuration for one backtest run. It is
// plain data: validated once at construction, never mutated by the engine.
type BacktestConfig struct {
	Symbol    string `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol"`
	Timeframe string `yaml:"timeframe" json:"timeframe"`

	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`

	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance" validate:"required,gt=0" jsonschema:"title=Initial Balance,description=Starting balance in quote currency,minimum=0"`

	// Strategy names the strategy for CLI lookup; the engine itself receives
	// the strategy instance by injection and ignores this field.
	Strategy       string         `yaml:"strategy" json:"strategy"`
	StrategyParams map[string]any `yaml:"strategy_params" json:"strategy_params"`

	Tactics TacticsConfig `yaml:"tactics" json:"tactics" validate:"required"`

	FeePercent      float64 `yaml:"fee_percent" json:"fee_percent" validate:"gte=0"`
	SlippagePercent float64 `yaml:"slippage_percent" json:"slippage_percent" validate:"gte=0"`

	Leverage   float64    `yaml:"leverage" json:"leverage" validate:"gte=1"`
	MarginMode MarginMode `yaml:"margin_mode" json:"margin_mode" validate:"omitempty,oneof=ISOLATED CROSS"`

	AllowShort       bool `yaml:"allow_short" json:"allow_short"`
	MaxOpenPositions int  `yaml:"max_open_positions" json:"max_open_positions" validate:"gte=1"`

	// MaxDrawdownPercent aborts the run once the drawdown exceeds this
	// threshold. None disables the circuit breaker.
	MaxDrawdownPercent optional.Option[float64] `yaml:"max_drawdown_percent" json:"max_drawdown_percent"`
}

// DefaultBacktestConfig returns a config with neutral execution parameters:
// 100% balance sizing, no stop loss, no take profits, no trailing, no
// leverage, one position slot.
func DefaultBacktestConfig(symbol string, initialBalance float64) BacktestConfig {
	return BacktestConfig{
		Symbol:         symbol,
		InitialBalance: initialBalance,
		Tactics: TacticsConfig{
			Sizing: EntrySizing{
				Mode:  SizingModePercent,
				Value: 100,
			},
		},
		Leverage:         1,
		MarginMode:       MarginModeIsolated,
		MaxOpenPositions: 1,
	}
}

// Validate validates the BacktestConfig struct.
func (c *BacktestConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.EndTime.Unwrap().After(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidDateRange, "end_time must be after start_time")
	}

	if c.Tactics.StopLossPercent.IsSome() && c.Tactics.StopLossPercent.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidStopLoss, "stop_loss_percent must be positive")
	}

	if c.Tactics.Trailing.Enabled {
		if c.Tactics.Trailing.Kind == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "trailing.kind is required when trailing is enabled")
		}

		if c.Tactics.Trailing.Value <= 0 {
			return errors.New(errors.ErrCodeInvalidConfiguration, "trailing.value must be positive when trailing is enabled")
		}

		if c.Tactics.Trailing.Kind == TrailingKindATR && c.Tactics.Trailing.ATRPeriod <= 0 {
			return errors.New(errors.ErrCodeInvalidPeriod, "trailing.atr_period must be positive for ATR_BASED trailing")
		}
	}

	if c.MaxDrawdownPercent.IsSome() {
		threshold := c.MaxDrawdownPercent.Unwrap()
		if threshold <= 0 || threshold > 100 {
			return errors.New(errors.ErrCodeInvalidConfiguration, "max_drawdown_percent must be in (0, 100]")
		}
	}

	return nil
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfig so that
// nullable fields map onto optional.Option values.
func (c *BacktestConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type tacticsShadow struct {
		Sizing            EntrySizing        `yaml:"sizing"`
		StopLossPercent   *float64           `yaml:"stop_loss_percent"`
		TakeProfits       []TakeProfitConfig `yaml:"take_profits"`
		Trailing          TrailingConfig     `yaml:"trailing"`
		MaxHoldingCandles *int               `yaml:"max_holding_candles"`
	}

	type shadow struct {
		Symbol             string             `yaml:"symbol"`
		Timeframe          string             `yaml:"timeframe"`
		StartTime          *time.Time         `yaml:"start_time"`
		EndTime            *time.Time         `yaml:"end_time"`
		InitialBalance     float64            `yaml:"initial_balance"`
		Strategy           string             `yaml:"strategy"`
		StrategyParams     map[string]any     `yaml:"strategy_params"`
		Tactics            tacticsShadow      `yaml:"tactics"`
		FeePercent         float64            `yaml:"fee_percent"`
		SlippagePercent    float64            `yaml:"slippage_percent"`
		Leverage           float64            `yaml:"leverage"`
		MarginMode         MarginMode         `yaml:"margin_mode"`
		AllowShort         bool               `yaml:"allow_short"`
		MaxOpenPositions   int                `yaml:"max_open_positions"`
		MaxDrawdownPercent *float64           `yaml:"max_drawdown_percent"`
	}

	var s shadow
	if err := unmarshal(&s); err != nil {
		return err
	}

	c.Symbol = s.Symbol
	c.Timeframe = s.Timeframe
	c.InitialBalance = s.InitialBalance
	c.Strategy = s.Strategy
	c.StrategyParams = s.StrategyParams
	c.FeePercent = s.FeePercent
	c.SlippagePercent = s.SlippagePercent
	c.Leverage = s.Leverage
	c.MarginMode = s.MarginMode
	c.AllowShort = s.AllowShort
	c.MaxOpenPositions = s.MaxOpenPositions

	c.Tactics = TacticsConfig{
		Sizing:      s.Tactics.Sizing,
		TakeProfits: s.Tactics.TakeProfits,
		Trailing:    s.Tactics.Trailing,
	}

	c.StartTime = optional.FromNillable(s.StartTime)
	c.EndTime = optional.FromNillable(s.EndTime)
	c.Tactics.StopLossPercent = optional.FromNillable(s.Tactics.StopLossPercent)
	c.Tactics.MaxHoldingCandles = optional.FromNillable(s.Tactics.MaxHoldingCandles)
	c.MaxDrawdownPercent = optional.FromNillable(s.MaxDrawdownPercent)

	return nil
}
