package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTrade() *Trade {
	return &Trade{
		ID:         1,
		Symbol:     "NEWUSDT",
		EntryPrice: 100,
		Quantity:   0.2,
		EntryTime:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:     ReasonOpen,
	}
}

func TestTrade_Close(t *testing.T) {
	exitTime := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		transition  TerminalTransition
		wantErr     error
		wantPercent float64
	}{
		{"take profit", TerminalTransition{ReasonFilledTakeProfit, 125, exitTime}, nil, 25},
		{"stop loss", TerminalTransition{ReasonFilledStopLoss, 80, exitTime}, nil, -20},
		{"force close", TerminalTransition{ReasonFilledForce, 100, exitTime}, nil, 0},
		{"open is not terminal", TerminalTransition{ReasonOpen, 100, exitTime}, ErrInvalidTransition, 0},
		{"unknown reason", TerminalTransition{CloseReason("MANUAL"), 100, exitTime}, ErrInvalidTransition, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := openTrade()
			err := trade.Close(tt.transition)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, trade.IsOpen())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.transition.Reason, trade.Status)
			assert.Equal(t, exitTime, trade.ExitTime)
			assert.InDelta(t, tt.wantPercent, trade.ProfitLossPercent, 1e-9)
		})
	}
}

func TestTrade_CloseOnlyOnce(t *testing.T) {
	trade := openTrade()
	require.NoError(t, trade.Close(TerminalTransition{ReasonFilledTakeProfit, 120, time.Now()}))

	err := trade.Close(TerminalTransition{ReasonFilledStopLoss, 80, time.Now()})
	assert.ErrorIs(t, err, ErrTradeNotOpen)
	assert.Equal(t, ReasonFilledTakeProfit, trade.Status)
	assert.Equal(t, 120.0, trade.ExitPrice)
}

func TestTrade_CloneIsIndependent(t *testing.T) {
	trade := openTrade()
	clone := trade.Clone()
	require.NoError(t, clone.Close(TerminalTransition{ReasonFilledStopLoss, 90, time.Now()}))

	assert.True(t, trade.IsOpen())
	assert.False(t, clone.IsOpen())
}

func TestTrade_ProfitLoss(t *testing.T) {
	trade := openTrade()
	require.NoError(t, trade.Close(TerminalTransition{ReasonFilledTakeProfit, 125, time.Now()}))
	assert.InDelta(t, 5.0, trade.ProfitLoss(), 1e-9)
}

func TestProfitLossPercent_ZeroEntry(t *testing.T) {
	assert.Equal(t, 0.0, ProfitLossPercent(0, 10))
}

func TestListingEvent_Checkpoints(t *testing.T) {
	listed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := &ListingEvent{Symbol: "NEWUSDT", ListingTime: listed, OpenPrice: 1, Price1h: 1.1, Price24h: 1.2, Price48h: 0.9}

	cps := ev.Checkpoints()
	require.Len(t, cps, 4)
	assert.Equal(t, []float64{1, 1.1, 1.2, 0.9}, []float64{cps[0].Price, cps[1].Price, cps[2].Price, cps[3].Price})
	assert.Equal(t, listed, cps[0].Time(listed))
	assert.Equal(t, listed.Add(48*time.Hour), cps[3].Time(listed))
}
