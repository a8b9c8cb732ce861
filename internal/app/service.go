package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listingBot/internal/ports"
	"listingBot/internal/state"
)

// Scanner runs one listing detection pass.
type Scanner interface {
	Scan(ctx context.Context) (ScanResult, error)
}

// Poller runs one pass over active positions.
type Poller interface {
	Poll(ctx context.Context) PollResult
}

// ServiceConfig holds the loop cadence.
type ServiceConfig struct {
	ScanInterval time.Duration
	PollInterval time.Duration
}

// TradingService orchestrates the live bot: listing scans and position polls on one loop.
type TradingService struct {
	cfg     ServiceConfig
	logger  ports.Logger
	trades  ports.TradeRepository
	book    *state.Book
	scanner Scanner
	monitor Poller
	metrics ports.Metrics
	now     Clock
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg ServiceConfig,
	logger ports.Logger,
	trades ports.TradeRepository,
	book *state.Book,
	scanner Scanner,
	monitor Poller,
	metrics ports.Metrics,
	clock Clock,
) (*TradingService, error) {
	if logger == nil || trades == nil || book == nil || scanner == nil || monitor == nil || metrics == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.ScanInterval <= 0 || cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: scan and poll intervals must be positive", ports.ErrConfigurationError)
	}
	if clock == nil {
		clock = systemClock
	}
	return &TradingService{
		cfg:     cfg,
		logger:  logger,
		trades:  trades,
		book:    book,
		scanner: scanner,
		monitor: monitor,
		metrics: metrics,
		now:     clock,
	}, nil
}

// Start runs the service until ctx is cancelled or SIGINT/SIGTERM is received.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.Run(ctx)
}

// Run reseeds the book from the store, runs an immediate scan and poll, then
// serves both tickers until ctx is done.
func (s *TradingService) Run(ctx context.Context) error {
	if err := s.Reseed(ctx); err != nil {
		return err
	}

	s.scan(ctx)
	s.poll(ctx)

	scanTicker := time.NewTicker(s.cfg.ScanInterval)
	defer scanTicker.Stop()
	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Trading Service stopped.", map[string]interface{}{"activePositions": s.book.ActiveCount()})
			return nil
		case <-scanTicker.C:
			s.scan(ctx)
		case <-pollTicker.C:
			s.poll(ctx)
		}
	}
}

// Reseed loads every OPEN trade from the store into the book.
func (s *TradingService) Reseed(ctx context.Context) error {
	active, err := s.trades.ListActiveTrades(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load active trades")
		return fmt.Errorf("failed to load active trades: %w", err)
	}
	s.book.Seed(active)
	s.metrics.ActivePositions(s.book.ActiveCount())
	s.logger.Info(ctx, "Active trades loaded", map[string]interface{}{"count": len(active)})
	return nil
}

func (s *TradingService) scan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if n := s.book.PruneCooldowns(s.now()); n > 0 {
		s.logger.Debug(ctx, "Expired cooldowns pruned", map[string]interface{}{"count": n})
	}
	if _, err := s.scanner.Scan(ctx); err != nil {
		s.logger.Error(ctx, err, "Listing scan skipped")
	}
}

func (s *TradingService) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := s.monitor.Poll(ctx)
	if res.Closed > 0 || res.Failed > 0 {
		s.logger.Info(ctx, "Position poll complete", map[string]interface{}{
			"checked": res.Checked, "closed": res.Closed, "failed": res.Failed, "skipped": res.Skipped,
		})
	}
}
