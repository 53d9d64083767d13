package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// WalkForwardConfig describes the rolling train/test segmentation.
// All periods are in days.
type WalkForwardConfig struct {
	TrainPeriodDays int `yaml:"train_period_days" json:"train_period_days" validate:"required,gt=0"`
	TestPeriodDays  int `yaml:"test_period_days" json:"test_period_days" validate:"required,gt=0"`
	StepPeriodDays  int `yaml:"step_period_days" json:"step_period_days" validate:"required,gt=0"`
	// MinTrades is the minimum test-window trade count for a segment to be
	// counted in aggregation.
	MinTrades int `yaml:"min_trades" json:"min_trades" validate:"gte=0"`
}

// Validate validates the WalkForwardConfig struct.
func (c *WalkForwardConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeWalkForwardConfigError, "invalid walk-forward config", err)
	}

	return nil
}

// SegmentWindow holds the time bounds of one train/test pair. The test
// window starts exactly where the train window ends.
type SegmentWindow struct {
	TrainStart time.Time `yaml:"train_start" json:"train_start"`
	TrainEnd   time.Time `yaml:"train_end" json:"train_end"`
	TestStart  time.Time `yaml:"test_start" json:"test_start"`
	TestEnd    time.Time `yaml:"test_end" json:"test_end"`
}

// SegmentResult is the outcome of one walk-forward segment.
type SegmentResult struct {
	Index  int           `yaml:"index" json:"index"`
	Window SegmentWindow `yaml:"window" json:"window"`

	TrainResult *BacktestResult `yaml:"train_result" json:"train_result"`
	TestResult  *BacktestResult `yaml:"test_result" json:"test_result"`

	// Valid segments participate in aggregation. Invalid ones are retained
	// with a reason but excluded.
	Valid         bool   `yaml:"valid" json:"valid"`
	InvalidReason string `yaml:"invalid_reason,omitempty" json:"invalid_reason,omitempty"`

	// Degradation is the out-of-sample performance decay in [0, 100].
	Degradation float64 `yaml:"degradation" json:"degradation"`
	// MetricStability compares train/test win rates in [0, 1].
	MetricStability float64 `yaml:"metric_stability" json:"metric_stability"`
}

// WalkForwardResult aggregates all segments of one optimization run.
type WalkForwardResult struct {
	Segments      []SegmentResult `yaml:"segments" json:"segments"`
	ValidSegments int             `yaml:"valid_segments" json:"valid_segments"`

	// TestMetrics and TrainMetrics aggregate the valid segments only.
	TestMetrics  BacktestMetrics `yaml:"test_metrics" json:"test_metrics"`
	TrainMetrics BacktestMetrics `yaml:"train_metrics" json:"train_metrics"`

	// ConsistencyRatio is the fraction of valid segments with positive
	// test PnL, in [0, 1].
	ConsistencyRatio float64 `yaml:"consistency_ratio" json:"consistency_ratio"`
	AvgDegradation   float64 `yaml:"avg_degradation" json:"avg_degradation"`
	// ReturnStdDev is the standard deviation of per-segment test return
	// percentages.
	ReturnStdDev float64 `yaml:"return_std_dev" json:"return_std_dev"`
	// RobustnessScore combines consistency, degradation, and return
	// variance with fixed weights, clamped to [0, 1].
	RobustnessScore float64 `yaml:"robustness_score" json:"robustness_score"`

	// CombinedEquityCurve chains the test windows of valid segments.
	CombinedEquityCurve []EquityPoint `yaml:"combined_equity_curve" json:"combined_equity_curve"`
}
