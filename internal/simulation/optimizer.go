package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"listingBot/internal/analytics"
	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// ParameterRange is an inclusive grid axis.
type ParameterRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Values expands the range. A zero step yields only Min.
func (r ParameterRange) Values() []float64 {
	if r.Step <= 0 || r.Max <= r.Min {
		return []float64{r.Min}
	}
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round((r.Min+float64(i)*r.Step)*1e9) / 1e9
	}
	return out
}

// OptimizationResult is one grid point.
type OptimizationResult struct {
	TakeProfitPct float64
	StopLossPct   float64
	Metrics       domain.RunMetrics
	Score         float64
}

// OptimizerConfig holds the grid and scoring for the optimizer.
type OptimizerConfig struct {
	TakeProfit    ParameterRange
	StopLoss      ParameterRange
	Workers       int // Defaults to GOMAXPROCS
	ScoreFunction func(domain.RunMetrics) float64
}

// Optimizer searches take-profit / stop-loss combinations over a fixed event set.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance.
func NewOptimizer(config OptimizerConfig, logger ports.Logger) *Optimizer {
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Optimizer{config: config, logger: logger}
}

// Optimize replays events once per combination and returns the results
// ranked by score, then take-profit, then stop-loss.
func (o *Optimizer) Optimize(ctx context.Context, events []*domain.ListingEvent, base domain.SimulationParams) ([]OptimizationResult, error) {
	var combos []OptimizationResult
	for _, tp := range o.config.TakeProfit.Values() {
		for _, sl := range o.config.StopLoss.Values() {
			combos = append(combos, OptimizationResult{TakeProfitPct: tp, StopLossPct: sl})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i := range combos {
		g.Go(func() error {
			params := base
			params.TakeProfitPct = combos[i].TakeProfitPct
			params.StopLossPct = combos[i].StopLossPct

			res, err := Replay(gctx, events, params, o.logger)
			if err != nil {
				return fmt.Errorf("tp=%.4f sl=%.4f: %w", params.TakeProfitPct, params.StopLossPct, err)
			}
			combos[i].Metrics = analytics.Aggregate(res.Trades, params.InitialBalance, res.FinalBalance)
			combos[i].Score = o.config.ScoreFunction(combos[i].Metrics)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortResultsByScore(combos)
	o.logger.Info(ctx, "Optimize: Grid search complete", map[string]interface{}{
		"combinations": len(combos), "events": len(events),
	})
	return combos, nil
}

func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TakeProfitPct != b.TakeProfitPct {
			return a.TakeProfitPct < b.TakeProfitPct
		}
		return a.StopLossPct < b.StopLossPct
	})
}

// DefaultScoreFunction rewards total return and penalises drawdown.
func DefaultScoreFunction(m domain.RunMetrics) float64 {
	return m.TotalReturn - 0.5*m.MaxDrawdown
}
