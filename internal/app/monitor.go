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

// ErrPositionStranded means both exit legs of an open trade ended without filling.
var ErrPositionStranded = errors.New("position has no working exit leg")

// PollResult summarises one monitor pass.
type PollResult struct {
	Checked  int
	Closed   int
	Skipped  int // Claimed by an overlapping pass
	Failed   int
	Stranded int // No working exit leg, needs manual repair
}

type checkOutcome int

const (
	outcomeOpen checkOutcome = iota
	outcomeClosed
	outcomeStranded
)

// PositionMonitor watches the exit legs of active trades and closes trades whose legs filled.
type PositionMonitor struct {
	exchange ports.ExchangeClient
	trades   ports.TradeRepository
	book     *state.Book
	metrics  ports.Metrics
	logger   ports.Logger
	now      Clock
}

// NewPositionMonitor validates dependencies and creates a monitor.
func NewPositionMonitor(exchange ports.ExchangeClient, trades ports.TradeRepository, book *state.Book, metrics ports.Metrics, logger ports.Logger, clock Clock) (*PositionMonitor, error) {
	if exchange == nil || trades == nil || book == nil || metrics == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for PositionMonitor")
	}
	if clock == nil {
		clock = systemClock
	}
	return &PositionMonitor{
		exchange: exchange,
		trades:   trades,
		book:     book,
		metrics:  metrics,
		logger:   logger,
		now:      clock,
	}, nil
}

// Poll checks every active trade once. Errors on one trade leave it active
// for the next pass and never abort the others.
func (m *PositionMonitor) Poll(ctx context.Context) PollResult {
	op := "Poll"
	var res PollResult

	for _, trade := range m.book.Active() {
		if ctx.Err() != nil {
			break
		}
		if !m.book.Claim(trade.ID) {
			res.Skipped++
			continue
		}
		res.Checked++

		outcome, err := m.check(ctx, trade)
		m.book.Release(trade.ID)
		if err != nil {
			res.Failed++
			m.logger.Error(ctx, err, op+": Failed to check position", map[string]interface{}{
				"tradeID": trade.ID, "symbol": trade.Symbol, "transient": ports.IsTransient(err),
			})
			continue
		}
		switch outcome {
		case outcomeClosed:
			res.Closed++
		case outcomeStranded:
			res.Stranded++
		}
	}

	m.metrics.ActivePositions(m.book.ActiveCount())
	m.metrics.StrandedPositions(res.Stranded)
	return res
}

// check queries both legs of trade and closes it when one of them filled.
func (m *PositionMonitor) check(ctx context.Context, trade *domain.Trade) (checkOutcome, error) {
	op := "check"
	var tp, sl *ports.OrderStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tp, err = m.exchange.GetOrderStatus(gctx, trade.Symbol, trade.TakeProfitOrderID)
		return err
	})
	g.Go(func() error {
		var err error
		sl, err = m.exchange.GetOrderStatus(gctx, trade.Symbol, trade.StopLossOrderID)
		return err
	})
	if err := g.Wait(); err != nil {
		m.metrics.VenueError("GetOrderStatus")
		return outcomeOpen, fmt.Errorf("order status for trade %d: %w", trade.ID, err)
	}

	reason, done := risk.ResolveFill(tp.Filled(), sl.Filled())
	if !done {
		if m.warnInactiveLegs(ctx, trade, tp, sl) {
			return outcomeStranded, nil
		}
		return outcomeOpen, nil
	}

	exit, exitPrice, siblingID, siblingType := tp, trade.TakeProfit, trade.StopLossOrderID, "SL"
	if reason == domain.ReasonFilledStopLoss {
		exit, exitPrice, siblingID, siblingType = sl, trade.StopLoss, trade.TakeProfitOrderID, "TP"
	}
	if exit.Price > 0 {
		exitPrice = exit.Price
	}

	if err := cancelOrderWarn(ctx, m.exchange, m.logger, trade.Symbol, siblingID, siblingType); err != nil {
		m.metrics.VenueError("CancelOrder")
		return outcomeOpen, fmt.Errorf("cancel %s sibling of trade %d: %w", siblingType, trade.ID, err)
	}

	transition := domain.TerminalTransition{Reason: reason, ExitPrice: exitPrice, ExitTime: m.now()}
	if err := trade.Close(transition); err != nil {
		return outcomeOpen, fmt.Errorf("close trade %d: %w", trade.ID, err)
	}

	if err := m.trades.CloseTrade(ctx, trade.ID, transition); err != nil {
		if errors.Is(err, domain.ErrTradeNotOpen) {
			m.logger.Warn(ctx, op+": Trade already closed in store, dropping from book", map[string]interface{}{"tradeID": trade.ID})
			m.book.Remove(trade.ID)
			return outcomeClosed, nil
		}
		return outcomeOpen, fmt.Errorf("persist close of trade %d: %w", trade.ID, err)
	}

	m.book.Remove(trade.ID)
	m.metrics.PositionClosed(string(reason), trade.ProfitLossPercent)
	m.logger.Info(ctx, op+": Position closed", map[string]interface{}{
		"tradeID":    trade.ID,
		"symbol":     trade.Symbol,
		"reason":     reason,
		"entryPrice": trade.EntryPrice,
		"exitPrice":  trade.ExitPrice,
		"pnlPercent": trade.ProfitLossPercent,
	})
	return outcomeClosed, nil
}

// warnInactiveLegs reports legs that ended without filling and returns true
// when neither leg is still working. The trade stays open in both cases
// because no leg produced an exit price.
func (m *PositionMonitor) warnInactiveLegs(ctx context.Context, trade *domain.Trade, tp, sl *ports.OrderStatus) bool {
	dead := 0
	for _, leg := range []struct {
		kind   string
		status *ports.OrderStatus
	}{{"TP", tp}, {"SL", sl}} {
		switch leg.status.State {
		case domain.OrderStateCanceled, domain.OrderStateRejected, domain.OrderStateExpired:
			dead++
			m.logger.Warn(ctx, "check: Exit leg is no longer working", map[string]interface{}{
				"tradeID": trade.ID, "symbol": trade.Symbol, "type": leg.kind,
				"orderID": leg.status.OrderID, "state": leg.status.State,
			})
		}
	}
	if dead < 2 {
		return false
	}
	m.logger.Error(ctx, ErrPositionStranded, "check: Position has no working exit leg, manual repair required", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "quantity": trade.Quantity,
	})
	return true
}
