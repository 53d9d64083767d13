// Package montecarlo estimates the distribution of backtest outcomes by
// resampling the realized trade-PnL sequence. It consumes trade lists only
// and knows nothing about engine internals.
package montecarlo

import (
	"math"
	"sort"

	"github.com/rxtech-lab/argo-quant/internal/logger"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"go.uber.org/zap"
)

// MonteCarloSimulator reshuffles a trade-PnL list to estimate how much of
// a backtest's outcome is sequence luck. With a seed configured the whole
// simulation is bit-identical across runs.
type MonteCarloSimulator struct {
	config types.MonteCarloConfig
	log    *logger.Logger
}

// NewMonteCarloSimulator creates a simulator. A nil logger falls back to a
// no-op logger.
func NewMonteCarloSimulator(config types.MonteCarloConfig, log *logger.Logger) *MonteCarloSimulator {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &MonteCarloSimulator{config: config, log: log}
}

// Simulate runs the configured number of shuffled-path iterations. An empty
// trade list or zero iterations short-circuits to a neutral result with
// every band pinned at the initial equity.
func (s *MonteCarloSimulator) Simulate(trades []types.Trade) (*types.MonteCarloResult, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	pnls := tradePnLs(trades)
	if len(pnls) == 0 || s.config.Iterations == 0 {
		return s.neutralResult(), nil
	}

	gen := s.newGenerator()

	iterations := s.config.Iterations
	finals := make([]float64, iterations)
	drawdowns := make([]float64, iterations)

	// The PnL buffer is shuffled in place across iterations; each pass is
	// a fresh permutation of the same multiset.
	for it := 0; it < iterations; it++ {
		gen.shuffle(pnls)
		finals[it], drawdowns[it] = walkPath(pnls, s.config.InitialEquity)
	}

	result := s.aggregate(finals, drawdowns)

	s.log.Debug("monte carlo simulation finished",
		zap.Int("iterations", iterations),
		zap.Int("trades", len(pnls)),
		zap.Float64("ruin_probability", result.RuinProbability))

	return result, nil
}

// CalculateTargetProbability estimates the probability of hitting a profit
// target before a maximum loss, racing the two absorbing barriers along
// each shuffled path. Paths exhausting their trades without touching either
// barrier count as misses.
func (s *MonteCarloSimulator) CalculateTargetProbability(trades []types.Trade, targetProfit, maxLoss float64) (float64, error) {
	if err := s.config.Validate(); err != nil {
		return 0, err
	}

	pnls := tradePnLs(trades)
	if len(pnls) == 0 || s.config.Iterations == 0 {
		return 0, nil
	}

	gen := s.newGenerator()

	hits := 0
	for it := 0; it < s.config.Iterations; it++ {
		gen.shuffle(pnls)

		cumulative := 0.0
		for _, pnl := range pnls {
			cumulative += pnl

			if cumulative >= targetProfit {
				hits++

				break
			}

			if cumulative <= -maxLoss {
				break
			}
		}
	}

	return float64(hits) / float64(s.config.Iterations), nil
}

func (s *MonteCarloSimulator) newGenerator() *rng {
	if s.config.Seed.IsSome() {
		return newRng(s.config.Seed.Unwrap())
	}

	return newUnseededRng()
}

// walkPath builds the cumulative equity path of one shuffled ordering and
// returns its final equity and peak-to-trough max drawdown percentage.
func walkPath(pnls []float64, initialEquity float64) (finalEquity, maxDrawdownPercent float64) {
	equity := initialEquity
	peak := initialEquity

	for _, pnl := range pnls {
		equity += pnl

		if equity > peak {
			peak = equity
		} else if peak > 0 {
			dd := (peak - equity) / peak * 100
			if dd > maxDrawdownPercent {
				maxDrawdownPercent = dd
			}
		}
	}

	return equity, maxDrawdownPercent
}

func (s *MonteCarloSimulator) aggregate(finals, drawdowns []float64) *types.MonteCarloResult {
	n := len(finals)

	sorted := make([]float64, n)
	copy(sorted, finals)
	sort.Float64s(sorted)

	ruinLevel := s.config.InitialEquity * (1 - s.config.RuinThreshold)

	ruined, profitable := 0, 0
	sumDD := 0.0

	for i, final := range finals {
		if final < ruinLevel {
			ruined++
		}

		if final > s.config.InitialEquity {
			profitable++
		}

		sumDD += drawdowns[i]
	}

	mean, stdDev := meanStdDev(finals)

	return &types.MonteCarloResult{
		Iterations: n,
		Percentiles: types.EquityPercentiles{
			P5:  percentile(sorted, 5),
			P25: percentile(sorted, 25),
			P50: percentile(sorted, 50),
			P75: percentile(sorted, 75),
			P95: percentile(sorted, 95),
		},
		RuinProbability:        float64(ruined) / float64(n),
		ProfitProbability:      float64(profitable) / float64(n),
		MeanFinalEquity:        mean,
		StdDevFinalEquity:      stdDev,
		MeanMaxDrawdownPercent: sumDD / float64(n),
		BestCase:               sorted[n-1],
		WorstCase:              sorted[0],
	}
}

// neutralResult pins every band at the initial equity: nothing to shuffle
// means nothing can be won, lost, or ruined.
func (s *MonteCarloSimulator) neutralResult() *types.MonteCarloResult {
	equity := s.config.InitialEquity

	return &types.MonteCarloResult{
		Iterations: 0,
		Percentiles: types.EquityPercentiles{
			P5: equity, P25: equity, P50: equity, P75: equity, P95: equity,
		},
		MeanFinalEquity: equity,
		BestCase:        equity,
		WorstCase:       equity,
	}
}

func tradePnLs(trades []types.Trade) []float64 {
	if len(trades) == 0 {
		return nil
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnL
	}

	return pnls
}

// percentile reads the p-th percentile from an ascending slice with linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func meanStdDev(values []float64) (mean, stdDev float64) {
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}

	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}
