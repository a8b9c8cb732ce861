package analytics

import (
	"math"
	"sort"
	"time"

	"listingBot/internal/domain"
)

// varianceEpsilon treats float noise around identical returns as zero variance.
const varianceEpsilon = 1e-12

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Time     time.Time
	TradeID  int64
	Value    float64
	Drawdown float64 // percent below the running peak
}

// ClosedInOrder returns the terminal trades sorted by exit time, then ID.
// The input slice is not modified.
func ClosedInOrder(trades []*domain.Trade) []*domain.Trade {
	closed := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status.IsTerminal() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		if !closed[i].ExitTime.Equal(closed[j].ExitTime) {
			return closed[i].ExitTime.Before(closed[j].ExitTime)
		}
		return closed[i].ID < closed[j].ID
	})
	return closed
}

// EquityCurve walks closed trades in close order starting from initialBalance.
func EquityCurve(trades []*domain.Trade, initialBalance float64) []EquityPoint {
	closed := ClosedInOrder(trades)
	curve := make([]EquityPoint, 0, len(closed))

	balance := initialBalance
	peak := initialBalance
	for _, t := range closed {
		balance += t.ProfitLoss()
		if balance > peak {
			peak = balance
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - balance) / peak * 100
		}
		curve = append(curve, EquityPoint{Time: t.ExitTime, TradeID: t.ID, Value: balance, Drawdown: dd})
	}
	return curve
}

// Aggregate calculates the run metrics for a set of trades. Only terminal
// trades are counted. finalBalance is the simulated account value after every
// position has been closed.
func Aggregate(trades []*domain.Trade, initialBalance, finalBalance float64) domain.RunMetrics {
	metrics := domain.RunMetrics{FinalBalance: finalBalance}
	if initialBalance > 0 {
		metrics.TotalReturn = (finalBalance - initialBalance) / initialBalance * 100
	}

	closed := ClosedInOrder(trades)
	if len(closed) == 0 {
		return metrics
	}

	var sumWin, sumLoss float64
	returns := make([]float64, 0, len(closed))
	for i, t := range closed {
		pnl := t.ProfitLossPercent
		returns = append(returns, pnl)
		metrics.TotalTrades++

		switch {
		case pnl > 0:
			metrics.WinningTrades++
			sumWin += pnl
		case pnl < 0:
			metrics.LosingTrades++
			sumLoss += -pnl
		}

		if i == 0 || pnl > metrics.BestTrade {
			metrics.BestTrade = pnl
			metrics.BestSymbol = t.Symbol
		}
		if i == 0 || pnl < metrics.WorstTrade {
			metrics.WorstTrade = pnl
			metrics.WorstSymbol = t.Symbol
		}
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades) * 100
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = sumWin / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = sumLoss / float64(metrics.LosingTrades)
	}

	for _, p := range EquityCurve(closed, initialBalance) {
		if p.Drawdown > metrics.MaxDrawdown {
			metrics.MaxDrawdown = p.Drawdown
		}
	}

	metrics.SharpeRatio = SharpeRatio(returns)
	return metrics
}

// SharpeRatio is mean / population standard deviation, 0 without variance.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	stddev := math.Sqrt(sq / float64(len(returns)))
	if stddev < varianceEpsilon {
		return 0
	}
	return mean / stddev
}
