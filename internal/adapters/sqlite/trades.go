package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

const tradeColumns = `id, symbol, entry_price, quantity, entry_time, take_profit, stop_loss,
	       COALESCE(exit_price, 0), exit_time, COALESCE(pnl_percent, 0), status,
	       entry_order_id, tp_order_id, sl_order_id`

// InsertTrade saves a new open trade and returns its assigned ID.
func (r *Repository) InsertTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	if !trade.IsOpen() {
		return 0, fmt.Errorf("insert trade for %s: %w", trade.Symbol, ports.ErrInvalidRequest)
	}
	const query = `
	INSERT INTO trades (symbol, entry_price, quantity, entry_time, take_profit, stop_loss, status,
	                    entry_order_id, tp_order_id, sl_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.EntryPrice, trade.Quantity, trade.EntryTime.UTC(), trade.TakeProfit, trade.StopLoss,
		trade.Status, trade.EntryOrderID, trade.TakeProfitOrderID, trade.StopLossOrderID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w: %w", trade.Symbol, ports.ErrUpdateFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w: %w", trade.Symbol, ports.ErrUpdateFailed, err)
	}
	trade.ID = id
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol})
	return id, nil
}

// CloseTrade applies a terminal transition. The status guard makes a second
// close a no-op that reports domain.ErrTradeNotOpen.
func (r *Repository) CloseTrade(ctx context.Context, id int64, tr domain.TerminalTransition) error {
	if !tr.Reason.IsTerminal() {
		return fmt.Errorf("close trade ID %d: %w", id, domain.ErrInvalidTransition)
	}
	const query = `
	UPDATE trades
	SET status = ?, exit_price = ?, exit_time = ?,
	    pnl_percent = (? - entry_price) / entry_price * 100
	WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		tr.Reason, tr.ExitPrice, tr.ExitTime.UTC(), tr.ExitPrice, id, domain.ReasonOpen)
	if err != nil {
		return fmt.Errorf("failed to close trade ID %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for close trade ID %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	if rowsAffected == 0 {
		existing, err := r.FindTradeByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("trade ID %d not found for close: %w", id, ports.ErrNotFound)
		}
		return fmt.Errorf("trade ID %d already %s: %w", id, existing.Status, domain.ErrTradeNotOpen)
	}
	r.logger.Debug(ctx, "Trade closed", map[string]interface{}{"tradeID": id, "status": tr.Reason, "exitPrice": tr.ExitPrice})
	return nil
}

// ListActiveTrades returns all OPEN trades ordered by ID.
func (r *Repository) ListActiveTrades(ctx context.Context) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, domain.ReasonOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query active trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during ListActiveTrades: %w: %w", ports.ErrQueryFailed, err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// FindTradeByID retrieves a trade by its unique ID.
func (r *Repository) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", map[string]interface{}{"tradeID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return trade, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var exitTime sql.NullTime
	var status string
	err := s.Scan(
		&t.ID, &t.Symbol, &t.EntryPrice, &t.Quantity, &t.EntryTime, &t.TakeProfit, &t.StopLoss,
		&t.ExitPrice, &exitTime, &t.ProfitLossPercent, &status,
		&t.EntryOrderID, &t.TakeProfitOrderID, &t.StopLossOrderID)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if exitTime.Valid {
		t.ExitTime = exitTime.Time.UTC()
	}
	t.EntryTime = t.EntryTime.UTC()
	t.Status = domain.CloseReason(status)
	return t, nil
}
