package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// MonteCarloConfig describes one resampling experiment over a realized
// trade-PnL list.
type MonteCarloConfig struct {
	Iterations int `yaml:"iterations" json:"iterations" validate:"gte=0"`
	// RuinThreshold is the catastrophic-loss fraction: a path ends in ruin
	// when its final equity is below initialEquity * (1 - ruinThreshold).
	RuinThreshold float64 `yaml:"ruin_threshold" json:"ruin_threshold" validate:"gte=0,lte=1"`
	InitialEquity float64 `yaml:"initial_equity" json:"initial_equity" validate:"required,gt=0"`
	// Seed makes the run fully deterministic when set.
	Seed optional.Option[uint32] `yaml:"seed" json:"seed"`
}

// DefaultMonteCarloConfig returns the standard configuration: 1000
// iterations and a 50% ruin threshold.
func DefaultMonteCarloConfig(initialEquity float64) MonteCarloConfig {
	return MonteCarloConfig{
		Iterations:    1000,
		RuinThreshold: 0.5,
		InitialEquity: initialEquity,
		Seed:          optional.None[uint32](),
	}
}

// Validate validates the MonteCarloConfig struct.
func (c *MonteCarloConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMonteCarloConfigError, "invalid monte carlo config", err)
	}

	return nil
}

// UnmarshalYAML implements custom unmarshaling for MonteCarloConfig so the
// optional seed maps onto an optional.Option value.
func (c *MonteCarloConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type shadow struct {
		Iterations    int     `yaml:"iterations"`
		RuinThreshold float64 `yaml:"ruin_threshold"`
		InitialEquity float64 `yaml:"initial_equity"`
		Seed          *uint32 `yaml:"seed"`
	}

	var s shadow
	if err := unmarshal(&s); err != nil {
		return err
	}

	c.Iterations = s.Iterations
	c.RuinThreshold = s.RuinThreshold
	c.InitialEquity = s.InitialEquity
	c.Seed = optional.FromNillable(s.Seed)

	return nil
}

// EquityPercentiles holds the distribution bands of final equity across
// iterations.
type EquityPercentiles struct {
	P5  float64 `yaml:"p5" json:"p5"`
	P25 float64 `yaml:"p25" json:"p25"`
	P50 float64 `yaml:"p50" json:"p50"`
	P75 float64 `yaml:"p75" json:"p75"`
	P95 float64 `yaml:"p95" json:"p95"`
}

// MonteCarloResult aggregates all iterations of one simulation.
type MonteCarloResult struct {
	Iterations int `yaml:"iterations" json:"iterations"`

	Percentiles EquityPercentiles `yaml:"percentiles" json:"percentiles"`

	// RuinProbability is the fraction of paths ending below
	// initialEquity * (1 - ruinThreshold).
	RuinProbability float64 `yaml:"ruin_probability" json:"ruin_probability"`
	// ProfitProbability is the fraction of paths ending above initialEquity.
	ProfitProbability float64 `yaml:"profit_probability" json:"profit_probability"`

	MeanFinalEquity   float64 `yaml:"mean_final_equity" json:"mean_final_equity"`
	StdDevFinalEquity float64 `yaml:"std_dev_final_equity" json:"std_dev_final_equity"`

	// MeanMaxDrawdownPercent averages each path's peak-to-trough drawdown.
	MeanMaxDrawdownPercent float64 `yaml:"mean_max_drawdown_percent" json:"mean_max_drawdown_percent"`

	BestCase  float64 `yaml:"best_case" json:"best_case"`
	WorstCase float64 `yaml:"worst_case" json:"worst_case"`
}
