package sqlite

import (
	"context"
	"fmt"

	"listingBot/internal/ports"
)

// GetKnownSymbols returns the persisted baseline in alphabetical order.
func (r *Repository) GetKnownSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol FROM known_symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query known symbols: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan known symbol: %w: %w", ports.ErrQueryFailed, err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating known symbols: %w: %w", ports.ErrQueryFailed, err)
	}
	return symbols, nil
}

// SetKnownSymbols replaces the baseline in a single transaction.
func (r *Repository) SetKnownSymbols(ctx context.Context, symbols []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin baseline update: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM known_symbols`); err != nil {
		return fmt.Errorf("failed to clear known symbols: %w: %w", ports.ErrUpdateFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO known_symbols (symbol) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare known symbol insert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	for _, s := range symbols {
		if _, err = stmt.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to insert known symbol %s: %w: %w", s, ports.ErrUpdateFailed, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit baseline update: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Known symbols replaced", map[string]interface{}{"count": len(symbols)})
	return nil
}
