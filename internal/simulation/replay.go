// Package simulation replays recorded listing events through the live entry
// and exit rules.
package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"listingBot/internal/analytics"
	"listingBot/internal/domain"
	"listingBot/internal/ports"
	"listingBot/internal/risk"
	"listingBot/internal/state"
)

// Result is the outcome of one replay.
type Result struct {
	Trades       []*domain.Trade // Terminal trades in close order
	FinalBalance float64
	Rejections   map[risk.RejectReason]int
}

// step is one checkpoint on the merged virtual timeline.
type step struct {
	at         time.Time
	event      int
	checkpoint domain.Checkpoint
}

// cashMarket answers the gate from the simulated account.
type cashMarket struct {
	cash      float64
	liquidity float64
}

func (m cashMarket) Balance(context.Context) (float64, error) {
	return m.cash, nil
}

func (m cashMarket) Liquidity(context.Context, string) (float64, error) {
	return m.liquidity, nil
}

// RiskConfig maps simulation parameters onto the gate configuration.
func RiskConfig(p domain.SimulationParams) risk.Config {
	return risk.Config{
		MaxOpenPositions: p.MaxOpenPositions,
		BuyAmount:        p.BuyAmount,
		MinLiquidity:     p.MinLiquidity,
		TakeProfitPct:    p.TakeProfitPct,
		StopLossPct:      p.StopLossPct,
		FeeRate:          p.FeeRate,
	}
}

// Replay walks every event's open, +1h, +24h and +48h checkpoints in time
// order. Entries go through the same gate as live trading against simulated
// cash; exits fire when a recorded price reaches a bracket leg. Positions
// still open at the end are force-closed at their entry price.
func Replay(ctx context.Context, events []*domain.ListingEvent, params domain.SimulationParams, logger ports.Logger) (*Result, error) {
	cfg := RiskConfig(params)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}

	gate := risk.NewGate(cfg)
	book := state.NewBook(params.Cooldown)
	cash := params.InitialBalance
	res := &Result{Rejections: make(map[risk.RejectReason]int)}

	open := make(map[int]*domain.Trade) // event index -> open trade
	var closed []*domain.Trade
	var seq int64
	var last time.Time

	for _, st := range timeline(events) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last = st.at
		ev := events[st.event]

		if st.checkpoint.Offset == domain.CheckpointOpen {
			if ev.OpenPrice <= 0 {
				logger.Warn(ctx, "Replay: Skipping event without open price", map[string]interface{}{"symbol": ev.Symbol, "listingTime": ev.ListingTime})
				continue
			}
			decision, err := gate.Evaluate(ctx, risk.Candidate{
				Symbol:        ev.Symbol,
				Now:           st.at,
				ActiveCount:   book.ActiveCount(),
				CooldownUntil: book.CooldownUntil(ev.Symbol),
			}, cashMarket{cash: cash, liquidity: ev.Volume})
			if err != nil {
				return nil, err
			}
			if !decision.Accepted() {
				res.Rejections[decision.Reason]++
				logger.Debug(ctx, "Replay: Entry rejected", map[string]interface{}{"symbol": ev.Symbol, "reason": decision.Reason})
				continue
			}

			seq++
			bracket := gate.Bracket(ev.OpenPrice)
			trade := &domain.Trade{
				ID:                seq,
				Symbol:            ev.Symbol,
				EntryPrice:        ev.OpenPrice,
				Quantity:          cfg.BuyAmount / ev.OpenPrice,
				EntryTime:         st.at,
				TakeProfit:        bracket.TakeProfit,
				StopLoss:          bracket.StopLoss,
				Status:            domain.ReasonOpen,
				EntryOrderID:      syntheticOrderID("E", seq),
				TakeProfitOrderID: syntheticOrderID("TP", seq),
				StopLossOrderID:   syntheticOrderID("SL", seq),
			}
			cash -= cfg.BuyAmount
			book.Open(trade)
			open[st.event] = trade
			continue
		}

		trade, ok := open[st.event]
		if !ok {
			continue
		}
		bracket := risk.Bracket{Entry: trade.EntryPrice, TakeProfit: trade.TakeProfit, StopLoss: trade.StopLoss}
		reason, hit := risk.EvaluateCheckpoint(st.checkpoint.Price, bracket)
		if !hit {
			continue
		}
		if err := closeTrade(trade, reason, st.checkpoint.Price, st.at); err != nil {
			return nil, err
		}
		cash += trade.Quantity * trade.ExitPrice
		book.Remove(trade.ID)
		delete(open, st.event)
		closed = append(closed, trade)
	}

	// Force-close in trade order so the result does not depend on map iteration.
	remaining := make([]*domain.Trade, 0, len(open))
	for _, t := range open {
		remaining = append(remaining, t)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].ID < remaining[j].ID })
	for _, t := range remaining {
		if err := closeTrade(t, domain.ReasonFilledForce, t.EntryPrice, last); err != nil {
			return nil, err
		}
		cash += t.Quantity * t.ExitPrice
		closed = append(closed, t)
	}

	res.Trades = analytics.ClosedInOrder(closed)
	res.FinalBalance = cash
	logger.Debug(ctx, "Replay: Complete", map[string]interface{}{
		"events": len(events), "trades": len(res.Trades), "forceClosed": len(remaining), "finalBalance": cash,
	})
	return res, nil
}

func closeTrade(t *domain.Trade, reason domain.CloseReason, price float64, at time.Time) error {
	if err := t.Close(domain.TerminalTransition{Reason: reason, ExitPrice: price, ExitTime: at}); err != nil {
		return fmt.Errorf("close simulated trade %d: %w", t.ID, err)
	}
	return nil
}

// timeline orders all checkpoints by time, then event order, then checkpoint order.
func timeline(events []*domain.ListingEvent) []step {
	steps := make([]step, 0, len(events)*4)
	for i, ev := range events {
		for _, cp := range ev.Checkpoints() {
			steps = append(steps, step{at: cp.Time(ev.ListingTime), event: i, checkpoint: cp})
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if a.event != b.event {
			return a.event < b.event
		}
		return a.checkpoint.Index < b.checkpoint.Index
	})
	return steps
}

func syntheticOrderID(kind string, seq int64) string {
	return fmt.Sprintf("SIM-%s-%d", kind, seq)
}
