package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"listingBot/config"
	"listingBot/internal/analytics"
	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// Simulator loads recorded events, replays them and persists the aggregate result.
type Simulator struct {
	listings ports.ListingRepository
	runs     ports.SimulationRepository
	metrics  ports.Metrics
	logger   ports.Logger
	now      func() time.Time
	newID    func() string
}

// NewSimulator validates dependencies and creates a simulator.
func NewSimulator(listings ports.ListingRepository, runs ports.SimulationRepository, metrics ports.Metrics, logger ports.Logger) (*Simulator, error) {
	if listings == nil || runs == nil || metrics == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Simulator")
	}
	return &Simulator{
		listings: listings,
		runs:     runs,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}, nil
}

// ValidateParams rejects date ranges that are empty, inverted or in the
// future, and brackets the gate cannot use.
func ValidateParams(p domain.SimulationParams, now time.Time) error {
	if err := config.ValidateDateRange(p.Start, p.End, now); err != nil {
		return err
	}
	if p.InitialBalance <= 0 {
		return fmt.Errorf("%w: initial balance must be positive", ports.ErrConfigurationError)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown cannot be negative", ports.ErrConfigurationError)
	}
	if err := RiskConfig(p).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	return nil
}

// Run executes one simulation over the events listed within [params.Start, params.End].
func (s *Simulator) Run(ctx context.Context, params domain.SimulationParams) (*domain.SimulationRun, []*domain.Trade, error) {
	op := "Run"
	if err := ValidateParams(params, s.now()); err != nil {
		return nil, nil, err
	}

	events, err := s.listings.GetListingEvents(ctx, params.Start, params.End)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: load listing events: %w", op, err)
	}
	s.logger.Info(ctx, op+": Replaying listing events", map[string]interface{}{
		"events": len(events), "start": params.Start, "end": params.End,
	})

	result, err := Replay(ctx, events, params, s.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: replay: %w", op, err)
	}

	run := &domain.SimulationRun{
		ID:        s.newID(),
		Params:    params,
		Metrics:   analytics.Aggregate(result.Trades, params.InitialBalance, result.FinalBalance),
		CreatedAt: s.now(),
	}
	if err := s.runs.InsertSimulationRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("%s: save run: %w", op, err)
	}
	s.metrics.SimulationRun()

	s.logger.Info(ctx, op+": Simulation complete", map[string]interface{}{
		"runID":        run.ID,
		"trades":       run.Metrics.TotalTrades,
		"winRate":      run.Metrics.WinRate,
		"totalReturn":  run.Metrics.TotalReturn,
		"maxDrawdown":  run.Metrics.MaxDrawdown,
		"finalBalance": run.Metrics.FinalBalance,
		"rejections":   result.Rejections,
	})
	return run, result.Trades, nil
}
