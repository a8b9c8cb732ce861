package domain

import (
	"errors"
	"time"
)

var (
	// ErrTradeNotOpen is returned when a terminal transition targets a trade that already left OPEN.
	ErrTradeNotOpen = errors.New("trade is not open")
	// ErrInvalidTransition is returned when a transition does not carry a terminal reason.
	ErrInvalidTransition = errors.New("invalid trade transition")
)

// Trade is one bracketed position opened on a newly listed symbol.
type Trade struct {
	ID                int64       // Store-assigned identifier (sequence number in simulation)
	Symbol            string      // Trading symbol (e.g., "NEWUSDT")
	EntryPrice        float64     // Fill price of the market buy
	Quantity          float64     // Executed base quantity
	EntryTime         time.Time   // Time the entry filled
	TakeProfit        float64     // Take-profit limit price
	StopLoss          float64     // Stop-loss trigger price
	ExitPrice         float64     // 0 while open
	ExitTime          time.Time   // Zero while open
	ProfitLossPercent float64     // (exit - entry) / entry * 100, set on close
	Status            CloseReason // OPEN until exactly one terminal transition

	EntryOrderID      string
	TakeProfitOrderID string
	StopLossOrderID   string
}

// TerminalTransition is the only mutation a trade accepts after it has been opened.
type TerminalTransition struct {
	Reason    CloseReason
	ExitPrice float64
	ExitTime  time.Time
}

// IsOpen checks if the trade has not reached a terminal status.
func (t *Trade) IsOpen() bool {
	return t.Status == ReasonOpen
}

// Close applies tr to the trade and computes its profit percentage.
func (t *Trade) Close(tr TerminalTransition) error {
	if !t.IsOpen() {
		return ErrTradeNotOpen
	}
	if !tr.Reason.IsTerminal() {
		return ErrInvalidTransition
	}
	t.Status = tr.Reason
	t.ExitPrice = tr.ExitPrice
	t.ExitTime = tr.ExitTime
	t.ProfitLossPercent = ProfitLossPercent(t.EntryPrice, tr.ExitPrice)
	return nil
}

// Clone returns a copy that can be mutated without touching t.
func (t *Trade) Clone() *Trade {
	c := *t
	return &c
}

// ProfitLoss returns the realized quote-currency result of a closed trade.
func (t *Trade) ProfitLoss() float64 {
	return t.Quantity * (t.ExitPrice - t.EntryPrice)
}

// ProfitLossPercent returns the percentage move from entry to exit.
func ProfitLossPercent(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry * 100
}
