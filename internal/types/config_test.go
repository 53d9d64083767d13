package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

func TestDefaultBacktestConfigIsValid(t *testing.T) {
	config := DefaultBacktestConfig("BTCUSDT", 10000)

	require.NoError(t, config.Validate())
	assert.Equal(t, SizingModePercent, config.Tactics.Sizing.Mode)
	assert.Equal(t, 1.0, config.Leverage)
	assert.Equal(t, 1, config.MaxOpenPositions)
}

func TestValidateRejectsMissingSymbol(t *testing.T) {
	config := DefaultBacktestConfig("", 10000)

	err := config.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestValidateRejectsInvertedDateRange(t *testing.T) {
	config := DefaultBacktestConfig("BTCUSDT", 10000)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	config.StartTime = optional.Some(start)
	config.EndTime = optional.Some(start.Add(-time.Hour))

	err := config.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

func TestValidateRejectsNonPositiveStopLoss(t *testing.T) {
	config := DefaultBacktestConfig("BTCUSDT", 10000)
	config.Tactics.StopLossPercent = optional.Some(0.0)

	err := config.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidStopLoss))
}

func TestValidateTrailingRequirements(t *testing.T) {
	config := DefaultBacktestConfig("BTCUSDT", 10000)
	config.Tactics.Trailing = TrailingConfig{Enabled: true}
	require.Error(t, config.Validate(), "kind is required")

	config.Tactics.Trailing = TrailingConfig{Enabled: true, Kind: TrailingKindPercent}
	require.Error(t, config.Validate(), "value must be positive")

	config.Tactics.Trailing = TrailingConfig{Enabled: true, Kind: TrailingKindATR, Value: 2}
	err := config.Validate()
	require.Error(t, err, "ATR trailing needs a period")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	config.Tactics.Trailing = TrailingConfig{Enabled: true, Kind: TrailingKindATR, Value: 2, ATRPeriod: 14}
	require.NoError(t, config.Validate())
}

func TestValidateMaxDrawdownBounds(t *testing.T) {
	config := DefaultBacktestConfig("BTCUSDT", 10000)

	config.MaxDrawdownPercent = optional.Some(0.0)
	require.Error(t, config.Validate())

	config.MaxDrawdownPercent = optional.Some(101.0)
	require.Error(t, config.Validate())

	config.MaxDrawdownPercent = optional.Some(25.0)
	require.NoError(t, config.Validate())
}

func TestUnmarshalYAMLMapsNullableFields(t *testing.T) {
	content := `
symbol: ETHUSDT
initial_balance: 5000
strategy: sma_crossover
strategy_params:
  short_period: 5
tactics:
  sizing:
    mode: PERCENT
    value: 50
  stop_loss_percent: 4
  max_holding_candles: 48
fee_percent: 0.1
leverage: 3
max_open_positions: 2
max_drawdown_percent: 30
`

	var config BacktestConfig
	require.NoError(t, yaml.Unmarshal([]byte(content), &config))

	assert.Equal(t, "ETHUSDT", config.Symbol)
	assert.Equal(t, 5000.0, config.InitialBalance)
	assert.Equal(t, 50.0, config.Tactics.Sizing.Value)
	assert.Equal(t, 4.0, config.Tactics.StopLossPercent.Unwrap())
	assert.Equal(t, 48, config.Tactics.MaxHoldingCandles.Unwrap())
	assert.Equal(t, 30.0, config.MaxDrawdownPercent.Unwrap())
	assert.True(t, config.StartTime.IsNone())
	assert.True(t, config.EndTime.IsNone())
}

func TestUnmarshalYAMLOmittedNullablesAreNone(t *testing.T) {
	var config BacktestConfig
	require.NoError(t, yaml.Unmarshal([]byte("symbol: BTCUSDT\ninitial_balance: 1000\n"), &config))

	assert.True(t, config.Tactics.StopLossPercent.IsNone())
	assert.True(t, config.Tactics.MaxHoldingCandles.IsNone())
	assert.True(t, config.MaxDrawdownPercent.IsNone())
}
