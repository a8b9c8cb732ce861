package app

import (
	"context"
	"fmt"
	"sort"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// EntryHandler is invoked for every newly listed symbol.
type EntryHandler interface {
	TryEnter(ctx context.Context, symbol string) (*domain.Trade, error)
}

// ScanResult summarises one scan.
type ScanResult struct {
	Current      int
	New          []string
	Entered      []string
	Bootstrapped bool
}

// ListingScanner diffs the venue's tradable symbols against the persisted baseline.
type ListingScanner struct {
	exchange ports.ExchangeClient
	symbols  ports.SymbolRepository
	listings ports.ListingRepository
	handler  EntryHandler
	metrics  ports.Metrics
	logger   ports.Logger
	now      Clock
}

// NewListingScanner validates dependencies and creates a scanner.
func NewListingScanner(exchange ports.ExchangeClient, symbols ports.SymbolRepository, listings ports.ListingRepository, handler EntryHandler, metrics ports.Metrics, logger ports.Logger, clock Clock) (*ListingScanner, error) {
	if exchange == nil || symbols == nil || listings == nil || handler == nil || metrics == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for ListingScanner")
	}
	if clock == nil {
		clock = systemClock
	}
	return &ListingScanner{
		exchange: exchange,
		symbols:  symbols,
		listings: listings,
		handler:  handler,
		metrics:  metrics,
		logger:   logger,
		now:      clock,
	}, nil
}

// Scan runs one detection pass. A failure to read either the venue or the
// baseline skips the pass and leaves the baseline untouched.
func (s *ListingScanner) Scan(ctx context.Context) (ScanResult, error) {
	op := "Scan"
	var res ScanResult

	current, err := s.exchange.GetTradableSymbols(ctx)
	if err != nil {
		s.metrics.VenueError("GetTradableSymbols")
		return res, fmt.Errorf("%s: fetch tradable symbols: %w", op, err)
	}
	res.Current = len(current)

	known, err := s.symbols.GetKnownSymbols(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: load known symbols: %w", op, err)
	}

	if len(known) == 0 {
		if err := s.symbols.SetKnownSymbols(ctx, current); err != nil {
			return res, fmt.Errorf("%s: initialize baseline: %w", op, err)
		}
		res.Bootstrapped = true
		s.logger.Info(ctx, op+": Baseline initialized, no symbols treated as new", map[string]interface{}{"symbols": len(current)})
		return res, nil
	}

	res.New = newSymbols(current, known)
	for _, symbol := range res.New {
		if ctx.Err() != nil {
			break
		}
		s.processNew(ctx, symbol, &res)
	}

	if err := s.symbols.SetKnownSymbols(ctx, current); err != nil {
		return res, fmt.Errorf("%s: save baseline: %w", op, err)
	}
	if len(res.New) > 0 {
		s.logger.Info(ctx, op+": Scan complete", map[string]interface{}{
			"current": res.Current, "new": res.New, "entered": res.Entered,
		})
	}
	return res, nil
}

func (s *ListingScanner) processNew(ctx context.Context, symbol string, res *ScanResult) {
	op := "processNew"
	detectedAt := s.now()
	s.metrics.ListingDetected(symbol)
	s.logger.Info(ctx, op+": New listing detected", map[string]interface{}{"symbol": symbol, "detectedAt": detectedAt})

	if err := s.listings.RecordListing(ctx, symbol, detectedAt); err != nil {
		s.logger.Error(ctx, err, op+": Failed to record listing", map[string]interface{}{"symbol": symbol})
	}

	trade, err := s.handler.TryEnter(ctx, symbol)
	if err != nil {
		s.logger.Error(ctx, err, op+": Entry failed", map[string]interface{}{"symbol": symbol})
		return
	}
	if trade != nil {
		res.Entered = append(res.Entered, symbol)
	}
}

// newSymbols returns current minus known, sorted.
func newSymbols(current, known []string) []string {
	seen := make(map[string]struct{}, len(known))
	for _, s := range known {
		seen[s] = struct{}{}
	}
	var out []string
	for _, s := range current {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
