package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/mock"

	"github.com/rxtech-lab/argo-quant/internal/types"
)

// MockStrategy is a testify mock of the Strategy interface for use in
// engine and walk-forward tests.
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Name() string {
	return m.Called().String(0)
}

func (m *MockStrategy) APIVersion() string {
	return m.Called().String(0)
}

func (m *MockStrategy) Initialize(params map[string]any) error {
	return m.Called(params).Error(0)
}

func (m *MockStrategy) MinCandlesRequired() int {
	return m.Called().Int(0)
}

func (m *MockStrategy) PopulateIndicators(candles []types.Candle) (IndicatorResult, error) {
	args := m.Called(candles)

	result, _ := args.Get(0).(IndicatorResult)

	return result, args.Error(1)
}

func (m *MockStrategy) PopulateEntrySignal(candles []types.Candle, indicators IndicatorResult, price float64) (optional.Option[types.Signal], error) {
	args := m.Called(candles, indicators, price)

	sig, _ := args.Get(0).(optional.Option[types.Signal])

	return sig, args.Error(1)
}

func (m *MockStrategy) PopulateExitSignal(candles []types.Candle, indicators IndicatorResult, position *types.Position) (optional.Option[types.Signal], error) {
	args := m.Called(candles, indicators, position)

	sig, _ := args.Get(0).(optional.Option[types.Signal])

	return sig, args.Error(1)
}
