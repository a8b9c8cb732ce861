package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// InsertSimulationRun persists a run. Runs are immutable; a second insert with the same ID fails.
func (r *Repository) InsertSimulationRun(ctx context.Context, run *domain.SimulationRun) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to encode simulation params: %w: %w", ports.ErrInvalidRequest, err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode simulation metrics: %w: %w", ports.ErrInvalidRequest, err)
	}

	const query = `
	INSERT INTO simulation_runs (id, created_at, start_date, end_date, total_trades, total_return, sharpe_ratio, params, metrics)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.CreatedAt.UTC(), run.Params.Start.UTC(), run.Params.End.UTC(),
		run.Metrics.TotalTrades, run.Metrics.TotalReturn, run.Metrics.SharpeRatio, string(params), string(metrics))
	if err != nil {
		return fmt.Errorf("failed to insert simulation run %s: %w: %w", run.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Simulation run saved", map[string]interface{}{"runID": run.ID, "trades": run.Metrics.TotalTrades})
	return nil
}

// FindSimulationRun retrieves a run by ID.
func (r *Repository) FindSimulationRun(ctx context.Context, id string) (*domain.SimulationRun, error) {
	const query = `SELECT id, created_at, params, metrics FROM simulation_runs WHERE id = ?`

	run := &domain.SimulationRun{}
	var params, metrics string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&run.ID, &run.CreatedAt, &params, &metrics)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query simulation run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params of run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return nil, fmt.Errorf("failed to decode metrics of run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return run, nil
}
