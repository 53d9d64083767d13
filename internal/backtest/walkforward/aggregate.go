package walkforward

import (
	"math"

	"github.com/rxtech-lab/argo-quant/internal/types"
)

// Robustness score weights. A fixed, documented policy rather than
// anything data-derived.
const (
	consistencyWeight = 0.40
	degradationWeight = 0.35
	stabilityWeight   = 0.25

	// stdDevScale normalizes the test-return standard deviation: 50
	// percentage points of spread count as fully unstable.
	stdDevScale = 50
)

// aggregate folds the per-segment results into one WalkForwardResult.
// Only valid segments contribute to the aggregated metrics; invalid ones
// are retained for inspection.
func aggregate(segments []types.SegmentResult) *types.WalkForwardResult {
	result := &types.WalkForwardResult{
		Segments: segments,
	}

	var (
		valid           []types.SegmentResult
		testReturns     []float64
		profitable      int
		sumDegradation  float64
	)

	for _, s := range segments {
		if !s.Valid {
			continue
		}

		valid = append(valid, s)
		testReturns = append(testReturns, s.TestResult.Metrics.TotalReturnPercent)
		sumDegradation += s.Degradation

		if s.TestResult.Metrics.TotalPnL > 0 {
			profitable++
		}

		result.CombinedEquityCurve = append(result.CombinedEquityCurve, s.TestResult.EquityCurve...)
	}

	result.ValidSegments = len(valid)

	if len(valid) == 0 {
		return result
	}

	result.TestMetrics = aggregateMetrics(valid, func(s types.SegmentResult) types.BacktestMetrics {
		return s.TestResult.Metrics
	})
	result.TrainMetrics = aggregateMetrics(valid, func(s types.SegmentResult) types.BacktestMetrics {
		return s.TrainResult.Metrics
	})

	result.ConsistencyRatio = float64(profitable) / float64(len(valid))
	result.AvgDegradation = sumDegradation / float64(len(valid))
	_, result.ReturnStdDev = meanStdDev(testReturns)
	result.RobustnessScore = robustnessScore(result.ConsistencyRatio, result.AvgDegradation, result.ReturnStdDev)

	return result
}

// aggregateMetrics combines per-segment metrics by type: counts and totals
// sum, rates are volume-weighted across segments, extremes take the worst
// or best, and ratio metrics use a plain arithmetic mean as a documented
// approximation rather than a recomputation over the combined series.
func aggregateMetrics(segments []types.SegmentResult, pick func(types.SegmentResult) types.BacktestMetrics) types.BacktestMetrics {
	var agg types.BacktestMetrics

	var (
		sumSharpe, sumSortino, sumCalmar float64
		sumReturn                        float64
	)

	for _, s := range segments {
		m := pick(s)

		agg.TotalTrades += m.TotalTrades
		agg.WinningTrades += m.WinningTrades
		agg.LosingTrades += m.LosingTrades
		agg.TotalPnL += m.TotalPnL
		agg.GrossProfit += m.GrossProfit
		agg.GrossLoss += m.GrossLoss
		agg.TotalFees += m.TotalFees

		if m.MaxWin > agg.MaxWin {
			agg.MaxWin = m.MaxWin
		}

		if m.MaxLoss < agg.MaxLoss {
			agg.MaxLoss = m.MaxLoss
		}

		if m.MaxDrawdown > agg.MaxDrawdown {
			agg.MaxDrawdown = m.MaxDrawdown
		}

		if m.MaxDrawdownPercent > agg.MaxDrawdownPercent {
			agg.MaxDrawdownPercent = m.MaxDrawdownPercent
		}

		sumSharpe += m.SharpeRatio
		sumSortino += m.SortinoRatio
		sumCalmar += m.CalmarRatio
		sumReturn += m.TotalReturnPercent
	}

	n := float64(len(segments))

	// Volume-weighted win rate: total wins over total trades, never a mean
	// of per-segment rates.
	if agg.TotalTrades > 0 {
		agg.WinRate = float64(agg.WinningTrades) / float64(agg.TotalTrades) * 100
		agg.AvgPnL = agg.TotalPnL / float64(agg.TotalTrades)
	}

	if agg.GrossLoss == 0 {
		if agg.GrossProfit > 0 {
			agg.ProfitFactor = math.Inf(1)
		}
	} else {
		agg.ProfitFactor = agg.GrossProfit / agg.GrossLoss
	}

	agg.SharpeRatio = sumSharpe / n
	agg.SortinoRatio = sumSortino / n
	agg.CalmarRatio = sumCalmar / n
	agg.TotalReturnPercent = sumReturn / n

	return agg
}

// robustnessScore blends out-of-sample consistency, average degradation,
// and return spread into a single [0, 1] score.
func robustnessScore(consistency, avgDegradation, returnStdDev float64) float64 {
	score := consistencyWeight*consistency +
		degradationWeight*(1-avgDegradation/100) +
		stabilityWeight*(1-math.Min(returnStdDev/stdDevScale, 1))

	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}

func meanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}

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
