package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"listingBot/internal/adapters/metrics"
	"listingBot/internal/app"
	"listingBot/internal/ports"
	"listingBot/internal/risk"
	"listingBot/internal/state"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan for new listings and trade them live",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.cfg.ValidateLive(); err != nil {
				return err
			}
			return runLive(cmd.Context(), e)
		},
	}
}

func runLive(ctx context.Context, e *env) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exchange, err := e.exchange()
	if err != nil {
		return err
	}

	var sink ports.Metrics = metrics.Nop{}
	if e.cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus()
		sink = prom
		go func() {
			if err := prom.Serve(ctx, e.cfg.MetricsAddr, e.logger); err != nil {
				e.logger.Error(ctx, err, "Metrics endpoint stopped")
			}
		}()
	}

	book := state.NewBook(e.cfg.Cooldown)
	executor, err := app.NewPositionExecutor(app.ExecutorConfig{
		Exchange:          exchange,
		Trades:            e.repo,
		Gate:              risk.NewGate(e.cfg.RiskConfig()),
		Book:              book,
		Metrics:           sink,
		Logger:            e.logger.With("executor"),
		QuoteAsset:        e.cfg.QuoteAsset,
		StopLimitSlippage: e.cfg.StopLimitSlippage,
		UnwindOnFailure:   e.cfg.UnwindOnBracketFailure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize position executor: %w", err)
	}
	monitor, err := app.NewPositionMonitor(exchange, e.repo, book, sink, e.logger.With("monitor"), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize position monitor: %w", err)
	}
	scanner, err := app.NewListingScanner(exchange, e.repo, e.repo, executor, sink, e.logger.With("scanner"), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize listing scanner: %w", err)
	}

	service, err := app.NewTradingService(
		app.ServiceConfig{ScanInterval: e.cfg.ScanInterval, PollInterval: e.cfg.PollInterval},
		e.logger,
		e.repo,
		book,
		scanner,
		monitor,
		sink,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize trading service: %w", err)
	}

	e.logger.Info(ctx, "Starting listing bot", map[string]interface{}{
		"testnet":          e.cfg.IsTestnet,
		"quoteAsset":       e.cfg.QuoteAsset,
		"maxOpenPositions": e.cfg.MaxOpenPositions,
		"buyAmount":        e.cfg.BuyAmount,
	})
	return service.Start(ctx)
}
