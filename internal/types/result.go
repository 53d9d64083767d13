package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type BacktestStatus string

const (
	BacktestStatusPending   BacktestStatus = "PENDING"
	BacktestStatusRunning   BacktestStatus = "RUNNING"
	BacktestStatusCompleted BacktestStatus = "COMPLETED"
	BacktestStatusFailed    BacktestStatus = "FAILED"
	BacktestStatusCancelled BacktestStatus = "CANCELLED"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunLog is one structured log entry captured during a simulation run.
type RunLog struct {
	Time    time.Time `yaml:"time" json:"time"`
	Level   LogLevel  `yaml:"level" json:"level"`
	Message string    `yaml:"message" json:"message"`
}

// BacktestMetrics holds the performance statistics computed once at the end
// of a run.
type BacktestMetrics struct {
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`

	TotalPnL    float64 `yaml:"total_pnl" json:"total_pnl"`
	AvgPnL      float64 `yaml:"avg_pnl" json:"avg_pnl"`
	MaxWin      float64 `yaml:"max_win" json:"max_win"`
	MaxLoss     float64 `yaml:"max_loss" json:"max_loss"`
	GrossProfit float64 `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss   float64 `yaml:"gross_loss" json:"gross_loss"`
	// ProfitFactor is grossProfit/grossLoss; 0 when both are zero and +Inf
	// when only grossLoss is zero.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	TotalFees    float64 `yaml:"total_fees" json:"total_fees"`

	TotalReturnPercent      float64 `yaml:"total_return_percent" json:"total_return_percent"`
	AnnualizedReturnPercent float64 `yaml:"annualized_return_percent" json:"annualized_return_percent"`
	FinalEquity             float64 `yaml:"final_equity" json:"final_equity"`
	BuyAndHoldPnL           float64 `yaml:"buy_and_hold_pnl" json:"buy_and_hold_pnl"`

	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio  float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	// ValueAtRisk is a placeholder and always zero; a historical-simulation
	// VaR needs a return-window convention this engine does not define yet.
	ValueAtRisk float64 `yaml:"value_at_risk" json:"value_at_risk"`

	Expectancy      float64 `yaml:"expectancy" json:"expectancy"`
	RiskRewardRatio float64 `yaml:"risk_reward_ratio" json:"risk_reward_ratio"`

	MaxDrawdown        float64 `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPercent float64 `yaml:"max_drawdown_percent" json:"max_drawdown_percent"`
	AvgDrawdownPercent float64 `yaml:"avg_drawdown_percent" json:"avg_drawdown_percent"`
	// MaxDrawdownDuration counts consecutive candles spent below the equity
	// high-water mark.
	MaxDrawdownDuration int `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`

	MaxConsecutiveWins   int `yaml:"max_consecutive_wins" json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `yaml:"max_consecutive_losses" json:"max_consecutive_losses"`

	AvgHoldingTimeHours float64 `yaml:"avg_holding_time_hours" json:"avg_holding_time_hours"`
	TradesPerDay        float64 `yaml:"trades_per_day" json:"trades_per_day"`
}

// BacktestResult is the complete outcome of one simulation run.
type BacktestResult struct {
	ID     string         `yaml:"id" json:"id"`
	Status BacktestStatus `yaml:"status" json:"status"`
	// ErrorMessage is set when Status is FAILED.
	ErrorMessage string          `yaml:"error_message,omitempty" json:"error_message,omitempty"`
	Trades       []Trade         `yaml:"trades" json:"trades"`
	EquityCurve  []EquityPoint   `yaml:"equity_curve" json:"equity_curve"`
	Metrics      BacktestMetrics `yaml:"metrics" json:"metrics"`
	Logs         []RunLog        `yaml:"logs" json:"logs"`
	// Progress is the percentage of candles processed; below 100 when the
	// drawdown circuit breaker stopped the run early.
	Progress float64 `yaml:"progress" json:"progress"`
}

// WriteBacktestResult writes a result summary to a YAML file.
func WriteBacktestResult(path string, result *BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
