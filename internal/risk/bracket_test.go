package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"listingBot/internal/domain"
)

func TestComputeBracket(t *testing.T) {
	b := ComputeBracket(100, 0.20, 0.15, 0.001)

	assert.Equal(t, 100.0, b.Entry)
	assert.InDelta(t, 120.2, b.TakeProfit, 1e-9)
	assert.InDelta(t, 84.8, b.StopLoss, 1e-9)
	assert.Greater(t, b.TakeProfit, b.Entry)
	assert.Less(t, b.StopLoss, b.Entry)
}

func TestComputeBracket_NoFee(t *testing.T) {
	b := ComputeBracket(2.5, 0.10, 0.05, 0)
	assert.InDelta(t, 2.75, b.TakeProfit, 1e-12)
	assert.InDelta(t, 2.375, b.StopLoss, 1e-12)
}

func TestGate_BracketUsesConfig(t *testing.T) {
	gate := NewGate(testConfig())
	assert.Equal(t, ComputeBracket(50, 0.20, 0.15, 0.001), gate.Bracket(50))
}

func TestStopLimitPrice(t *testing.T) {
	assert.InDelta(t, 84.376, StopLimitPrice(84.8, 0.005), 1e-9)
	assert.Equal(t, 84.8, StopLimitPrice(84.8, 0))
}

func TestResolveFill(t *testing.T) {
	tests := []struct {
		name     string
		tp, sl   bool
		want     domain.CloseReason
		terminal bool
	}{
		{"neither", false, false, domain.ReasonOpen, false},
		{"take profit", true, false, domain.ReasonFilledTakeProfit, true},
		{"stop loss", false, true, domain.ReasonFilledStopLoss, true},
		{"both prefer take profit", true, true, domain.ReasonFilledTakeProfit, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := ResolveFill(tt.tp, tt.sl)
			assert.Equal(t, tt.want, reason)
			assert.Equal(t, tt.terminal, ok)
		})
	}
}

func TestEvaluateCheckpoint(t *testing.T) {
	b := ComputeBracket(1.0, 0.20, 0.15, 0.001)

	tests := []struct {
		price float64
		want  domain.CloseReason
		ok    bool
	}{
		{1.25, domain.ReasonFilledTakeProfit, true},
		{b.TakeProfit, domain.ReasonFilledTakeProfit, true},
		{1.10, domain.ReasonOpen, false},
		{b.StopLoss, domain.ReasonFilledStopLoss, true},
		{0.80, domain.ReasonFilledStopLoss, true},
	}
	for _, tt := range tests {
		reason, ok := EvaluateCheckpoint(tt.price, b)
		assert.Equal(t, tt.want, reason, "price %f", tt.price)
		assert.Equal(t, tt.ok, ok, "price %f", tt.price)
	}
}
