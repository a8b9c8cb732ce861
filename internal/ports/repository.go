package ports

import (
	"context"
	"time"

	"listingBot/internal/domain"
)

// SymbolRepository stores the baseline of symbols already seen by the scanner.
type SymbolRepository interface {
	// GetKnownSymbols returns the last persisted baseline. Empty on first run.
	GetKnownSymbols(ctx context.Context) ([]string, error)
	// SetKnownSymbols atomically replaces the baseline.
	SetKnownSymbols(ctx context.Context, symbols []string) error
}

// TradeRepository defines the interface for storing and retrieving trades.
type TradeRepository interface {
	// InsertTrade saves a new open trade and returns its assigned ID.
	InsertTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// CloseTrade applies a terminal transition to an OPEN trade.
	// Returns domain.ErrTradeNotOpen if the trade was already closed.
	CloseTrade(ctx context.Context, id int64, tr domain.TerminalTransition) error
	// ListActiveTrades returns all OPEN trades ordered by ID.
	ListActiveTrades(ctx context.Context) ([]*domain.Trade, error)
	// FindTradeByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error)
}

// ListingRepository stores detected listings and their recorded price events.
type ListingRepository interface {
	// RecordListing stores one detection of a symbol. A relisting is stored as a
	// separate detection; repeating an identical detection is a no-op.
	RecordListing(ctx context.Context, symbol string, detectedAt time.Time) error
	// ListListings returns listings detected within [start, end], oldest first.
	ListListings(ctx context.Context, start, end time.Time) ([]domain.Listing, error)
	// SaveListingEvent inserts or replaces the event for (symbol, listing time).
	SaveListingEvent(ctx context.Context, ev *domain.ListingEvent) error
	// GetListingEvents returns events listed within [start, end] ordered by listing time, then symbol.
	GetListingEvents(ctx context.Context, start, end time.Time) ([]*domain.ListingEvent, error)
}

// SimulationRepository persists simulation runs.
type SimulationRepository interface {
	InsertSimulationRun(ctx context.Context, run *domain.SimulationRun) error
	// FindSimulationRun returns nil, nil if not found.
	FindSimulationRun(ctx context.Context, id string) (*domain.SimulationRun, error)
}
