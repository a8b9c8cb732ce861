package risk

// Bracket holds the exit prices protecting one entry.
type Bracket struct {
	Entry      float64
	TakeProfit float64
	StopLoss   float64
}

// ComputeBracket widens both exits by two fees so the round trip stays net of
// commission:
//
//	takeProfit = entry * (1 + tp + 2*fee)
//	stopLoss   = entry * (1 - sl - 2*fee)
func ComputeBracket(entry, tpPct, slPct, fee float64) Bracket {
	return Bracket{
		Entry:      entry,
		TakeProfit: entry * (1 + tpPct + 2*fee),
		StopLoss:   entry * (1 - slPct - 2*fee),
	}
}

// Bracket computes the exits for entry using the gate's parameters.
func (g *Gate) Bracket(entry float64) Bracket {
	return ComputeBracket(entry, g.config.TakeProfitPct, g.config.StopLossPct, g.config.FeeRate)
}

// StopLimitPrice is the limit attached to the stop trigger.
func StopLimitPrice(stop, slippage float64) float64 {
	return stop * (1 - slippage)
}
