package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-quant/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-quant/internal/backtest/engine/engine_v1/writers"
	"github.com/rxtech-lab/argo-quant/internal/backtest/montecarlo"
	"github.com/rxtech-lab/argo-quant/internal/backtest/walkforward"
	"github.com/rxtech-lab/argo-quant/internal/logger"
	"github.com/rxtech-lab/argo-quant/internal/strategy"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/internal/version"
)

// newCLILogger builds the process logger, honoring the global verbosity
// flag.
func newCLILogger(cmd *cli.Command) (*logger.Logger, error) {
	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	return logger.NewLoggerWithLevel(level)
}

// loadRunInputs reads the config file and loads the candles it refers to.
// Shared by the run and walkforward commands.
func loadRunInputs(cmd *cli.Command, log *logger.Logger) (types.BacktestConfig, []types.Candle, error) {
	content, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return types.BacktestConfig{}, nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := enginev1.ParseConfig(content)
	if err != nil {
		return types.BacktestConfig{}, nil, err
	}

	source, err := datasource.NewDuckDBSource(cmd.String("data"), log)
	if err != nil {
		return types.BacktestConfig{}, nil, err
	}
	defer source.Close()

	candles, err := source.LoadCandles(config.Symbol, config.StartTime, config.EndTime)
	if err != nil {
		return types.BacktestConfig{}, nil, err
	}

	return config, candles, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newCLILogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	config, candles, err := loadRunInputs(cmd, log)
	if err != nil {
		return err
	}

	strat, err := strategy.NewRegistry().Create(config.Strategy)
	if err != nil {
		return err
	}

	bar := progressbar.New(len(candles))
	callback := engine.ProgressCallback(func(current, total int) {
		_ = bar.Set(current)
	})

	e := enginev1.NewBacktestEngineV1(config, log)
	result := e.Run(ctx, candles, strat, optional.Some(callback))

	fmt.Println()

	if result.Status == types.BacktestStatusFailed {
		return fmt.Errorf("backtest failed: %s", result.ErrorMessage)
	}

	if output := cmd.String("output"); output != "" {
		if err := types.WriteBacktestResult(output, result); err != nil {
			return err
		}

		fmt.Printf("Result written to %s\n", output)
	}

	if dir := cmd.String("export-dir"); dir != "" {
		if err := writers.WriteResult(dir, result); err != nil {
			return err
		}

		fmt.Printf("Trades and equity curve exported to %s\n", dir)
	}

	printSummary(result)

	return nil
}

func walkforwardAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newCLILogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	config, candles, err := loadRunInputs(cmd, log)
	if err != nil {
		return err
	}

	registry := strategy.NewRegistry()
	if _, err := registry.Create(config.Strategy); err != nil {
		return err
	}

	wfConfig := types.WalkForwardConfig{
		TrainPeriodDays: int(cmd.Int("train-days")),
		TestPeriodDays:  int(cmd.Int("test-days")),
		StepPeriodDays:  int(cmd.Int("step-days")),
		MinTrades:       int(cmd.Int("min-trades")),
	}

	factory := func() strategy.Strategy {
		strat, _ := registry.Create(config.Strategy)

		return strat
	}

	optimizer := walkforward.NewWalkForwardOptimizer(config, wfConfig, factory, nil, log)

	result, err := optimizer.Run(ctx, candles)
	if err != nil {
		return err
	}

	fmt.Printf("Segments:           %d (%d valid)\n", len(result.Segments), result.ValidSegments)
	fmt.Printf("Consistency ratio:  %.2f\n", result.ConsistencyRatio)
	fmt.Printf("Avg degradation:    %.1f%%\n", result.AvgDegradation)
	fmt.Printf("Robustness score:   %.3f\n", result.RobustnessScore)

	if output := cmd.String("output"); output != "" {
		if err := writeYAML(output, result); err != nil {
			return err
		}

		fmt.Printf("Result written to %s\n", output)
	}

	return nil
}

func montecarloAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newCLILogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	content, err := os.ReadFile(cmd.String("result"))
	if err != nil {
		return fmt.Errorf("failed to read backtest result: %w", err)
	}

	var backtestResult types.BacktestResult
	if err := yaml.Unmarshal(content, &backtestResult); err != nil {
		return fmt.Errorf("failed to parse backtest result: %w", err)
	}

	config := types.MonteCarloConfig{
		Iterations:    int(cmd.Int("iterations")),
		RuinThreshold: cmd.Float("ruin-threshold"),
		InitialEquity: cmd.Float("initial-equity"),
		Seed:          optional.None[uint32](),
	}
	if cmd.IsSet("seed") {
		config.Seed = optional.Some(uint32(cmd.Uint("seed")))
	}

	sim := montecarlo.NewMonteCarloSimulator(config, log)

	result, err := sim.Simulate(backtestResult.Trades)
	if err != nil {
		return err
	}

	fmt.Printf("Iterations:         %d\n", result.Iterations)
	fmt.Printf("Final equity p5:    %.2f\n", result.Percentiles.P5)
	fmt.Printf("Final equity p50:   %.2f\n", result.Percentiles.P50)
	fmt.Printf("Final equity p95:   %.2f\n", result.Percentiles.P95)
	fmt.Printf("Ruin probability:   %.3f\n", result.RuinProbability)
	fmt.Printf("Profit probability: %.3f\n", result.ProfitProbability)
	fmt.Printf("Mean max drawdown:  %.1f%%\n", result.MeanMaxDrawdownPercent)

	if output := cmd.String("output"); output != "" {
		if err := writeYAML(output, result); err != nil {
			return err
		}

		fmt.Printf("Result written to %s\n", output)
	}

	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema := enginev1.GenerateConfigSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}

func printSummary(result *types.BacktestResult) {
	m := result.Metrics

	fmt.Printf("Status:        %s (%.0f%%)\n", result.Status, result.Progress)
	fmt.Printf("Trades:        %d (win rate %.1f%%)\n", m.TotalTrades, m.WinRate)
	fmt.Printf("Total PnL:     %.2f (%.2f%%)\n", m.TotalPnL, m.TotalReturnPercent)
	fmt.Printf("Profit factor: %.2f\n", m.ProfitFactor)
	fmt.Printf("Sharpe:        %.2f\n", m.SharpeRatio)
	fmt.Printf("Max drawdown:  %.2f%%\n", m.MaxDrawdownPercent)
}

func writeYAML(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the backtest config YAML",
		Required: true,
	}
	dataFlag := &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "Path to the candle data file (Parquet or CSV, glob patterns allowed)",
		Required: true,
	}
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write the full result to this YAML file",
	}

	cmd := &cli.Command{
		Name:    "argo-quant",
		Usage:   "Backtest and validate trading strategies",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single backtest",
				Flags: []cli.Flag{
					configFlag, dataFlag, outputFlag,
					&cli.StringFlag{
						Name:  "export-dir",
						Usage: "Export trades.csv, equity.csv, and summary.yaml to this directory",
					},
				},
				Action: runAction,
			},
			{
				Name:  "walkforward",
				Usage: "Validate a strategy with rolling train/test windows",
				Flags: []cli.Flag{
					configFlag, dataFlag, outputFlag,
					&cli.IntFlag{Name: "train-days", Value: 90, Usage: "Train window length in days"},
					&cli.IntFlag{Name: "test-days", Value: 30, Usage: "Test window length in days"},
					&cli.IntFlag{Name: "step-days", Value: 30, Usage: "Days between successive train windows"},
					&cli.IntFlag{Name: "min-trades", Value: 1, Usage: "Minimum test trades for a segment to count"},
				},
				Action: walkforwardAction,
			},
			{
				Name:  "montecarlo",
				Usage: "Resample the trades of a finished backtest",
				Flags: []cli.Flag{
					outputFlag,
					&cli.StringFlag{
						Name:     "result",
						Aliases:  []string{"r"},
						Usage:    "Path to a backtest result YAML produced by run",
						Required: true,
					},
					&cli.IntFlag{Name: "iterations", Value: 1000, Usage: "Number of shuffled paths"},
					&cli.FloatFlag{Name: "ruin-threshold", Value: 0.5, Usage: "Catastrophic-loss fraction"},
					&cli.FloatFlag{Name: "initial-equity", Value: 10000, Usage: "Starting equity per path"},
					&cli.UintFlag{Name: "seed", Usage: "Fixed RNG seed for reproducible output"},
				},
				Action: montecarloAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
