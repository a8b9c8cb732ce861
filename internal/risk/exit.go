package risk

import "listingBot/internal/domain"

// ResolveFill maps the fill state of the two exit legs to a terminal reason.
// When both legs report filled, take-profit wins.
func ResolveFill(tpFilled, slFilled bool) (domain.CloseReason, bool) {
	switch {
	case tpFilled:
		return domain.ReasonFilledTakeProfit, true
	case slFilled:
		return domain.ReasonFilledStopLoss, true
	default:
		return domain.ReasonOpen, false
	}
}

// EvaluateCheckpoint treats a recorded price as having crossed each leg whose
// trigger it reached and resolves the result with ResolveFill.
func EvaluateCheckpoint(price float64, b Bracket) (domain.CloseReason, bool) {
	return ResolveFill(price >= b.TakeProfit, price <= b.StopLoss)
}
