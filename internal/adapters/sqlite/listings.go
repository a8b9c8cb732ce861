package sqlite

import (
	"context"
	"fmt"
	"time"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// RecordListing stores one detection of a symbol. Repeating the same detection is a no-op.
func (r *Repository) RecordListing(ctx context.Context, symbol string, detectedAt time.Time) error {
	const query = `INSERT OR IGNORE INTO listing_history (symbol, detected_at) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, symbol, toMillis(detectedAt)); err != nil {
		return fmt.Errorf("failed to record listing %s: %w: %w", symbol, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Listing recorded", map[string]interface{}{"symbol": symbol, "detectedAt": detectedAt})
	return nil
}

// ListListings returns listings detected within [start, end], oldest first.
func (r *Repository) ListListings(ctx context.Context, start, end time.Time) ([]domain.Listing, error) {
	const query = `
	SELECT symbol, detected_at FROM listing_history
	WHERE detected_at BETWEEN ? AND ?
	ORDER BY detected_at, symbol`

	rows, err := r.db.QueryContext(ctx, query, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query listing history: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0)
	for rows.Next() {
		var l domain.Listing
		var ms int64
		if err := rows.Scan(&l.Symbol, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w: %w", ports.ErrQueryFailed, err)
		}
		l.DetectedAt = fromMillis(ms)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return listings, nil
}

// SaveListingEvent inserts or replaces the event keyed by symbol and listing time.
func (r *Repository) SaveListingEvent(ctx context.Context, ev *domain.ListingEvent) error {
	const query = `
	INSERT OR REPLACE INTO listing_events
	    (symbol, listing_time, open_price, price_1h, price_24h, price_48h, volume, high, low)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		ev.Symbol, toMillis(ev.ListingTime), ev.OpenPrice, ev.Price1h, ev.Price24h, ev.Price48h, ev.Volume, ev.High, ev.Low)
	if err != nil {
		return fmt.Errorf("failed to save listing event %s: %w: %w", ev.Symbol, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Listing event saved", map[string]interface{}{"symbol": ev.Symbol, "listingTime": ev.ListingTime})
	return nil
}

// GetListingEvents returns events within [start, end] ordered by listing time, then symbol.
func (r *Repository) GetListingEvents(ctx context.Context, start, end time.Time) ([]*domain.ListingEvent, error) {
	const query = `
	SELECT symbol, listing_time, open_price, price_1h, price_24h, price_48h, volume, high, low
	FROM listing_events
	WHERE listing_time BETWEEN ? AND ?
	ORDER BY listing_time, symbol`

	rows, err := r.db.QueryContext(ctx, query, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query listing events: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	events := make([]*domain.ListingEvent, 0)
	for rows.Next() {
		ev := &domain.ListingEvent{}
		var ms int64
		if err := rows.Scan(&ev.Symbol, &ms, &ev.OpenPrice, &ev.Price1h, &ev.Price24h, &ev.Price48h,
			&ev.Volume, &ev.High, &ev.Low); err != nil {
			return nil, fmt.Errorf("failed to scan listing event: %w: %w", ports.ErrQueryFailed, err)
		}
		ev.ListingTime = fromMillis(ms)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing event rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return events, nil
}
