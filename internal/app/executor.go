package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
	"listingBot/internal/risk"
	"listingBot/internal/state"
)

// ErrBracketIncomplete means an entry filled but its exit orders or its record could not be completed.
var ErrBracketIncomplete = errors.New("bracket incomplete after entry")

// ExecutorConfig wires a PositionExecutor.
type ExecutorConfig struct {
	Exchange ports.ExchangeClient
	Trades   ports.TradeRepository
	Gate     *risk.Gate
	Book     *state.Book
	Metrics  ports.Metrics
	Logger   ports.Logger
	Clock    Clock

	QuoteAsset        string
	StopLimitSlippage float64
	// UnwindOnFailure sells the entry back when the bracket cannot be completed.
	// When false the position is left on the exchange for manual repair.
	UnwindOnFailure bool
}

// PositionExecutor opens bracketed positions for symbols that pass the entry gate.
type PositionExecutor struct {
	exchange ports.ExchangeClient
	trades   ports.TradeRepository
	gate     *risk.Gate
	book     *state.Book
	metrics  ports.Metrics
	logger   ports.Logger
	now      Clock

	quoteAsset string
	slippage   float64
	unwind     bool
}

// NewPositionExecutor validates dependencies and creates an executor.
func NewPositionExecutor(cfg ExecutorConfig) (*PositionExecutor, error) {
	if cfg.Exchange == nil || cfg.Trades == nil || cfg.Gate == nil || cfg.Book == nil || cfg.Metrics == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for PositionExecutor")
	}
	if cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("%w: quote asset is required", ports.ErrConfigurationError)
	}
	if err := cfg.Gate.Config().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	now := cfg.Clock
	if now == nil {
		now = systemClock
	}
	return &PositionExecutor{
		exchange:   cfg.Exchange,
		trades:     cfg.Trades,
		gate:       cfg.Gate,
		book:       cfg.Book,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        now,
		quoteAsset: cfg.QuoteAsset,
		slippage:   cfg.StopLimitSlippage,
		unwind:     cfg.UnwindOnFailure,
	}, nil
}

// TryEnter evaluates symbol against the gate and, when accepted, buys it and
// places its take-profit and stop-loss. It returns nil, nil on rejection.
func (e *PositionExecutor) TryEnter(ctx context.Context, symbol string) (*domain.Trade, error) {
	op := "TryEnter"
	candidate := risk.Candidate{
		Symbol:        symbol,
		Now:           e.now(),
		ActiveCount:   e.book.ActiveCount(),
		CooldownUntil: e.book.CooldownUntil(symbol),
	}

	decision, err := e.gate.Evaluate(ctx, candidate, venueMarket{exchange: e.exchange, asset: e.quoteAsset})
	if err != nil {
		e.metrics.VenueError("EntryGate")
		return nil, fmt.Errorf("%s %s: %w", op, symbol, err)
	}
	e.metrics.EntryDecision(decision.Outcome())
	if !decision.Accepted() {
		e.logger.Info(ctx, op+": Entry rejected", map[string]interface{}{
			"symbol": symbol, "reason": decision.Reason, "activeCount": candidate.ActiveCount,
			"balance": decision.Balance, "liquidity": decision.Liquidity,
		})
		return nil, nil
	}

	cfg := e.gate.Config()
	fill, err := e.exchange.MarketBuy(ctx, symbol, cfg.BuyAmount)
	if err != nil {
		e.metrics.VenueError("MarketBuy")
		return nil, fmt.Errorf("entry market order for %s failed: %w", symbol, err)
	}
	bracket := e.gate.Bracket(fill.Price)
	e.logger.Info(ctx, op+": Entry filled", map[string]interface{}{
		"symbol": symbol, "orderID": fill.OrderID, "price": fill.Price, "quantity": fill.ExecutedQty,
		"takeProfit": bracket.TakeProfit, "stopLoss": bracket.StopLoss,
	})

	tp, sl, err := e.placeBracket(ctx, symbol, fill.ExecutedQty, bracket)
	if err != nil {
		e.logger.Error(ctx, err, op+": Failed to place exit orders", map[string]interface{}{"symbol": symbol, "entryOrderID": fill.OrderID})
		e.unwindEntry(ctx, symbol, fill, tp, sl)
		return nil, fmt.Errorf("%w: %s: %w", ErrBracketIncomplete, symbol, err)
	}

	trade := &domain.Trade{
		Symbol:            symbol,
		EntryPrice:        fill.Price,
		Quantity:          fill.ExecutedQty,
		EntryTime:         candidate.Now,
		TakeProfit:        bracket.TakeProfit,
		StopLoss:          bracket.StopLoss,
		Status:            domain.ReasonOpen,
		EntryOrderID:      fill.OrderID,
		TakeProfitOrderID: tp.OrderID,
		StopLossOrderID:   sl.OrderID,
	}

	if _, err := e.trades.InsertTrade(ctx, trade); err != nil {
		e.logger.Error(ctx, err, op+": Failed to save new trade, exit orders are live", map[string]interface{}{
			"symbol": symbol, "tpOrderID": tp.OrderID, "slOrderID": sl.OrderID,
		})
		e.unwindEntry(ctx, symbol, fill, tp, sl)
		return nil, fmt.Errorf("%w: saving %s: %w", ErrBracketIncomplete, symbol, err)
	}

	e.book.Open(trade)
	e.metrics.PositionOpened(symbol)
	e.metrics.ActivePositions(e.book.ActiveCount())
	e.logger.Info(ctx, op+": Position opened", map[string]interface{}{
		"tradeID": trade.ID, "symbol": symbol, "entryPrice": trade.EntryPrice,
		"tpOrderID": tp.OrderID, "slOrderID": sl.OrderID,
	})
	return trade, nil
}

// placeBracket submits both exit legs concurrently and waits for both.
// A leg that succeeded is returned even when the other failed.
func (e *PositionExecutor) placeBracket(ctx context.Context, symbol string, qty float64, b risk.Bracket) (tp, sl *ports.PlacedOrder, err error) {
	var g errgroup.Group
	g.Go(func() error {
		var err error
		tp, err = e.exchange.PlaceTakeProfit(ctx, symbol, qty, b.TakeProfit)
		if err != nil {
			e.metrics.VenueError("PlaceTakeProfit")
		}
		return err
	})
	g.Go(func() error {
		var err error
		sl, err = e.exchange.PlaceStopLoss(ctx, symbol, qty, b.StopLoss, risk.StopLimitPrice(b.StopLoss, e.slippage))
		if err != nil {
			e.metrics.VenueError("PlaceStopLoss")
		}
		return err
	})
	err = g.Wait()
	return tp, sl, err
}

// unwindEntry handles an entry whose bracket or record could not be completed.
func (e *PositionExecutor) unwindEntry(ctx context.Context, symbol string, fill *ports.OrderFill, tp, sl *ports.PlacedOrder) {
	op := "unwindEntry"
	fields := map[string]interface{}{"symbol": symbol, "entryOrderID": fill.OrderID, "quantity": fill.ExecutedQty}
	if tp != nil {
		fields["tpOrderID"] = tp.OrderID
	}
	if sl != nil {
		fields["slOrderID"] = sl.OrderID
	}

	if !e.unwind {
		e.logger.Warn(ctx, op+": Unwind disabled, position requires manual repair", fields)
		return
	}

	e.logger.Warn(ctx, op+": Unwinding entry", fields)
	var cancelErrs []error
	if tp != nil {
		if err := cancelOrderWarn(ctx, e.exchange, e.logger, symbol, tp.OrderID, "TP"); err != nil {
			cancelErrs = append(cancelErrs, fmt.Errorf("cancel TP %s: %w", tp.OrderID, err))
		}
	}
	if sl != nil {
		if err := cancelOrderWarn(ctx, e.exchange, e.logger, symbol, sl.OrderID, "SL"); err != nil {
			cancelErrs = append(cancelErrs, fmt.Errorf("cancel SL %s: %w", sl.OrderID, err))
		}
	}
	// A leg that is still resting holds the quantity, so a market sell would be rejected.
	if len(cancelErrs) > 0 {
		e.metrics.VenueError("CancelOrder")
		e.logger.Error(ctx, errors.Join(cancelErrs...), op+": Exit leg cancel failed, emergency close skipped, position requires manual repair", fields)
		return
	}
	if err := e.emergencyClose(ctx, symbol, fill.ExecutedQty); err != nil {
		e.logger.Error(ctx, err, op+": EMERGENCY CLOSE FAILED", fields)
	}
}

// emergencyClose sells the entry quantity at market.
func (e *PositionExecutor) emergencyClose(ctx context.Context, symbol string, qty float64) error {
	op := "emergencyClose"
	e.logger.Warn(ctx, op+": Placing emergency closing order", map[string]interface{}{"symbol": symbol, "quantity": qty})
	fill, err := e.exchange.MarketSell(ctx, symbol, qty)
	if err != nil {
		e.metrics.VenueError("MarketSell")
		return fmt.Errorf("emergency close order placement failed: %w", err)
	}
	e.logger.Info(ctx, op+": Emergency close order placed successfully", map[string]interface{}{"symbol": symbol, "orderID": fill.OrderID, "price": fill.Price})
	return nil
}
