package risk

import (
	"context"
	"fmt"
	"time"
)

// Config holds the entry and bracket parameters shared by live trading and simulation.
type Config struct {
	MaxOpenPositions int
	BuyAmount        float64 // Quote amount per entry
	MinLiquidity     float64 // Minimum quote volume
	TakeProfitPct    float64 // Fraction, e.g. 0.20
	StopLossPct      float64 // Fraction, e.g. 0.15
	FeeRate          float64 // Per-side fee fraction
}

// Validate checks that the parameters describe a usable bracket.
func (c Config) Validate() error {
	switch {
	case c.MaxOpenPositions <= 0:
		return fmt.Errorf("max open positions must be positive, got %d", c.MaxOpenPositions)
	case c.BuyAmount <= 0:
		return fmt.Errorf("buy amount must be positive, got %f", c.BuyAmount)
	case c.TakeProfitPct <= 0:
		return fmt.Errorf("take profit must be positive, got %f", c.TakeProfitPct)
	case c.StopLossPct <= 0 || c.StopLossPct+2*c.FeeRate >= 1:
		return fmt.Errorf("stop loss %f with fee %f leaves no positive stop price", c.StopLossPct, c.FeeRate)
	case c.FeeRate < 0:
		return fmt.Errorf("fee rate cannot be negative, got %f", c.FeeRate)
	}
	return nil
}

// RejectReason names the first gate check a candidate failed.
type RejectReason string

const (
	NoReject        RejectReason = ""
	RejectCooldown  RejectReason = "cooldown"
	RejectCapacity  RejectReason = "capacity"
	RejectBalance   RejectReason = "balance"
	RejectLiquidity RejectReason = "liquidity"
)

// Candidate is the portfolio state a symbol is judged against.
type Candidate struct {
	Symbol        string
	Now           time.Time
	ActiveCount   int
	CooldownUntil time.Time // Zero when no cooldown is armed
}

// MarketSource supplies the market-dependent inputs of the gate.
// Live trading reads the exchange; simulation returns replayed values.
type MarketSource interface {
	Balance(ctx context.Context) (float64, error)
	Liquidity(ctx context.Context, symbol string) (float64, error)
}

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Reason    RejectReason
	Balance   float64
	Liquidity float64
}

// Accepted reports whether every check passed.
func (d Decision) Accepted() bool {
	return d.Reason == NoReject
}

// Outcome is the label used in logs and metrics.
func (d Decision) Outcome() string {
	if d.Accepted() {
		return "accepted"
	}
	return string(d.Reason)
}

// Gate decides whether a newly listed symbol may be entered.
type Gate struct {
	config Config
}

// NewGate creates a gate with the given limits.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Config returns the gate's parameters.
func (g *Gate) Config() Config {
	return g.config
}

// Evaluate runs the checks in order: cooldown, capacity, balance, liquidity.
// It stops at the first failure and does not query the market source for
// candidates already rejected by portfolio state. Rejection has no side effects.
func (g *Gate) Evaluate(ctx context.Context, c Candidate, market MarketSource) (Decision, error) {
	if !c.CooldownUntil.IsZero() && c.Now.Before(c.CooldownUntil) {
		return Decision{Reason: RejectCooldown}, nil
	}
	if c.ActiveCount >= g.config.MaxOpenPositions {
		return Decision{Reason: RejectCapacity}, nil
	}

	balance, err := market.Balance(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("gate balance check for %s: %w", c.Symbol, err)
	}
	if balance < g.config.BuyAmount {
		return Decision{Reason: RejectBalance, Balance: balance}, nil
	}

	liquidity, err := market.Liquidity(ctx, c.Symbol)
	if err != nil {
		return Decision{}, fmt.Errorf("gate liquidity check for %s: %w", c.Symbol, err)
	}
	if liquidity < g.config.MinLiquidity {
		return Decision{Reason: RejectLiquidity, Balance: balance, Liquidity: liquidity}, nil
	}

	return Decision{Reason: NoReject, Balance: balance, Liquidity: liquidity}, nil
}
