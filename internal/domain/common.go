package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderState is the venue-reported lifecycle state of an order.
type OrderState string

const (
	OrderStateNew             OrderState = "NEW"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCanceled        OrderState = "CANCELED"
	OrderStateRejected        OrderState = "REJECTED"
	OrderStateExpired         OrderState = "EXPIRED"
)

// CloseReason is the lifecycle status of a trade. OPEN is the only non-terminal value.
type CloseReason string

const (
	ReasonOpen             CloseReason = "OPEN"
	ReasonFilledTakeProfit CloseReason = "FILLED_TP"
	ReasonFilledStopLoss   CloseReason = "FILLED_SL"
	ReasonFilledForce      CloseReason = "FILLED_FORCE" // simulation end only
)

// IsTerminal reports whether r ends a trade's lifecycle.
func (r CloseReason) IsTerminal() bool {
	switch r {
	case ReasonFilledTakeProfit, ReasonFilledStopLoss, ReasonFilledForce:
		return true
	default:
		return false
	}
}
