package engine

import (
	"math"

	"github.com/rxtech-lab/argo-quant/internal/types"
)

// annualizationFactor scales per-candle return statistics to a yearly
// horizon, following the trading-days convention.
const annualizationFactor = 252

// CalculateMetrics computes the full performance statistics of a run from
// its trade list and equity curve. It is a pure function: callers can feed
// it any trades/curve pair, the walk-forward optimizer relies on that.
func CalculateMetrics(trades []types.Trade, equityCurve []types.EquityPoint, initialBalance float64, candles []types.Candle) types.BacktestMetrics {
	m := types.BacktestMetrics{}

	m.TotalTrades = len(trades)

	var (
		grossProfit, grossLoss float64
		sumWin, sumLoss        float64
		holdingHours           float64
	)

	for _, t := range trades {
		m.TotalPnL += t.PnL
		m.TotalFees += t.Fees
		holdingHours += t.Duration().Hours()

		if t.IsWinner() {
			m.WinningTrades++
			grossProfit += t.PnL
			sumWin += t.PnL

			if t.PnL > m.MaxWin {
				m.MaxWin = t.PnL
			}
		} else {
			m.LosingTrades++
			grossLoss += -t.PnL
			sumLoss += t.PnL

			if t.PnL < m.MaxLoss {
				m.MaxLoss = t.PnL
			}
		}
	}

	m.GrossProfit = grossProfit
	m.GrossLoss = grossLoss
	m.ProfitFactor = profitFactor(grossProfit, grossLoss)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AvgPnL = m.TotalPnL / float64(m.TotalTrades)
		m.AvgHoldingTimeHours = holdingHours / float64(m.TotalTrades)
	}

	avgWin := 0.0
	if m.WinningTrades > 0 {
		avgWin = sumWin / float64(m.WinningTrades)
	}

	avgLoss := 0.0
	if m.LosingTrades > 0 {
		avgLoss = sumLoss / float64(m.LosingTrades)
	}

	if avgLoss != 0 {
		m.RiskRewardRatio = avgWin / math.Abs(avgLoss)
	}

	if m.TotalTrades > 0 {
		winRate := float64(m.WinningTrades) / float64(m.TotalTrades)
		m.Expectancy = winRate*avgWin + (1-winRate)*avgLoss
	}

	m.MaxConsecutiveWins, m.MaxConsecutiveLosses = streaks(trades)

	if len(equityCurve) > 0 {
		last := equityCurve[len(equityCurve)-1]
		m.FinalEquity = last.Equity

		if initialBalance > 0 {
			m.TotalReturnPercent = (last.Equity - initialBalance) / initialBalance * 100
		}

		m.MaxDrawdown, m.MaxDrawdownPercent = maxDrawdown(equityCurve)
		m.AvgDrawdownPercent = avgDrawdown(equityCurve)
		m.MaxDrawdownDuration = maxDrawdownDuration(equityCurve)
		m.SharpeRatio = sharpeRatio(equityCurve)
		m.SortinoRatio = sortinoRatio(equityCurve)

		days := equityCurve[len(equityCurve)-1].Time.Sub(equityCurve[0].Time).Hours() / 24
		if days > 0 {
			m.TradesPerDay = float64(m.TotalTrades) / days

			if initialBalance > 0 && last.Equity > 0 {
				m.AnnualizedReturnPercent = (math.Pow(last.Equity/initialBalance, 365/days) - 1) * 100
			}
		}

		if m.MaxDrawdownPercent > 0 {
			m.CalmarRatio = m.AnnualizedReturnPercent / m.MaxDrawdownPercent
		}
	}

	if len(candles) > 1 && candles[0].Close > 0 && initialBalance > 0 {
		first := candles[0].Close
		lastClose := candles[len(candles)-1].Close
		m.BuyAndHoldPnL = (lastClose - first) / first * initialBalance
	}

	return m
}

// profitFactor follows the fixed convention: zero when there is nothing on
// either side, +Inf when there are profits but no losses.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}

		return math.Inf(1)
	}

	return grossProfit / grossLoss
}

// streaks returns the longest winning and losing runs in trade order.
func streaks(trades []types.Trade) (maxWins, maxLosses int) {
	curWins, curLosses := 0, 0

	for _, t := range trades {
		if t.IsWinner() {
			curWins++
			curLosses = 0
		} else {
			curLosses++
			curWins = 0
		}

		if curWins > maxWins {
			maxWins = curWins
		}

		if curLosses > maxLosses {
			maxLosses = curLosses
		}
	}

	return maxWins, maxLosses
}

func maxDrawdown(curve []types.EquityPoint) (maxAbs, maxPercent float64) {
	for _, p := range curve {
		if p.Drawdown > maxAbs {
			maxAbs = p.Drawdown
		}

		if p.DrawdownPercent > maxPercent {
			maxPercent = p.DrawdownPercent
		}
	}

	return maxAbs, maxPercent
}

// avgDrawdown averages the drawdown percentage over the points actually in
// drawdown; an always-at-highs curve reports zero.
func avgDrawdown(curve []types.EquityPoint) float64 {
	sum := 0.0
	count := 0

	for _, p := range curve {
		if p.DrawdownPercent > 0 {
			sum += p.DrawdownPercent
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// maxDrawdownDuration counts the longest run of consecutive equity points
// spent below the high-water mark.
func maxDrawdownDuration(curve []types.EquityPoint) int {
	max, cur := 0, 0

	for _, p := range curve {
		if p.Drawdown > 0 {
			cur++
			if cur > max {
				max = cur
			}
		} else {
			cur = 0
		}
	}

	return max
}

// equityReturns computes the per-candle simple returns of the equity curve,
// dropping zero returns so idle stretches do not dilute the ratio.
func equityReturns(curve []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve))

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}

		r := (curve[i].Equity - prev) / prev
		if r != 0 {
			returns = append(returns, r)
		}
	}

	return returns
}

func sharpeRatio(curve []types.EquityPoint) float64 {
	returns := equityReturns(curve)
	if len(returns) < 2 {
		return 0
	}

	mean, stdDev := meanStdDev(returns)
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(annualizationFactor)
}

// sortinoRatio penalizes downside volatility only.
func sortinoRatio(curve []types.EquityPoint) float64 {
	returns := equityReturns(curve)
	if len(returns) < 2 {
		return 0
	}

	mean, _ := meanStdDev(returns)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}

	downsideDev := math.Sqrt(downside / float64(len(returns)))
	if downsideDev == 0 {
		return 0
	}

	return mean / downsideDev * math.Sqrt(annualizationFactor)
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
