package domain

import "time"

// SimulationParams is the snapshot of inputs for one historical replay.
type SimulationParams struct {
	Start            time.Time     `json:"start"`
	End              time.Time     `json:"end"`
	InitialBalance   float64       `json:"initial_balance"`
	BuyAmount        float64       `json:"buy_amount"`
	MaxOpenPositions int           `json:"max_open_positions"`
	TakeProfitPct    float64       `json:"take_profit_pct"`
	StopLossPct      float64       `json:"stop_loss_pct"`
	FeeRate          float64       `json:"fee_rate"`
	MinLiquidity     float64       `json:"min_liquidity"`
	Cooldown         time.Duration `json:"cooldown"`
}

// RunMetrics are the aggregate statistics over the trades of one run.
// Percentages are expressed in percent (12.5 means 12.5%).
type RunMetrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalReturn   float64 `json:"total_return"`
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"` // magnitude
	BestTrade     float64 `json:"best_trade"`
	BestSymbol    string  `json:"best_symbol"`
	WorstTrade    float64 `json:"worst_trade"`
	WorstSymbol   string  `json:"worst_symbol"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	FinalBalance  float64 `json:"final_balance"`
}

// SimulationRun is a persisted replay result.
type SimulationRun struct {
	ID        string
	Params    SimulationParams
	Metrics   RunMetrics
	CreatedAt time.Time
}
