package ports

// Metrics records operational counters for the trading loop.
type Metrics interface {
	ListingDetected(symbol string)
	EntryDecision(outcome string)
	PositionOpened(symbol string)
	PositionClosed(reason string, profitLossPercent float64)
	VenueError(operation string)
	ActivePositions(n int)
	StrandedPositions(n int)
	SimulationRun()
}
