package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
	"listingBot/internal/state"
)

type countingScanner struct {
	calls atomic.Int32
	err   error
}

func (c *countingScanner) Scan(ctx context.Context) (ScanResult, error) {
	c.calls.Add(1)
	return ScanResult{}, c.err
}

type countingPoller struct {
	calls atomic.Int32
}

func (c *countingPoller) Poll(ctx context.Context) PollResult {
	c.calls.Add(1)
	return PollResult{}
}

func newTestService(t *testing.T, trades *mockTradeRepo, book *state.Book, scanner Scanner, poller Poller) *TradingService {
	t.Helper()
	svc, err := NewTradingService(
		ServiceConfig{ScanInterval: 5 * time.Millisecond, PollInterval: 5 * time.Millisecond},
		&mockLogger{}, trades, book, scanner, poller, &mockMetrics{}, fixedClock(testNow),
	)
	require.NoError(t, err)
	return svc
}

func TestNewTradingService_Validation(t *testing.T) {
	_, err := NewTradingService(ServiceConfig{ScanInterval: time.Second, PollInterval: time.Second}, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewTradingService(ServiceConfig{}, &mockLogger{}, newMockTradeRepo(), state.NewBook(0),
		&countingScanner{}, &countingPoller{}, &mockMetrics{}, nil)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestTradingService_RunReseedsAndTicks(t *testing.T) {
	trades := newMockTradeRepo()
	trades.seed(activeTrade(1, "AUSDT"))
	trades.seed(activeTrade(2, "BUSDT"))
	book := state.NewBook(time.Hour)
	scanner := &countingScanner{err: ports.ErrExchangeUnavailable}
	poller := &countingPoller{}
	svc := newTestService(t, trades, book, scanner, poller)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	require.NoError(t, svc.Run(ctx))
	assert.Equal(t, 2, book.ActiveCount())
	assert.Equal(t, testNow.Add(time.Hour), book.CooldownUntil("AUSDT"))
	assert.GreaterOrEqual(t, scanner.calls.Load(), int32(2))
	assert.GreaterOrEqual(t, poller.calls.Load(), int32(2))
}

func TestTradingService_ReseedFailureStops(t *testing.T) {
	trades := newMockTradeRepo()
	trades.listErr = ports.ErrQueryFailed
	scanner := &countingScanner{}
	svc := newTestService(t, trades, state.NewBook(time.Hour), scanner, &countingPoller{})

	err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
	assert.Zero(t, scanner.calls.Load())
}

func TestTradingService_PrunesCooldownsOnScan(t *testing.T) {
	book := state.NewBook(time.Hour)
	book.Open(&domain.Trade{ID: 7, Symbol: "OLDUSDT", EntryTime: testNow.Add(-2 * time.Hour), Status: domain.ReasonOpen})
	book.Remove(7)
	svc := newTestService(t, newMockTradeRepo(), book, &countingScanner{}, &countingPoller{})

	svc.scan(context.Background())
	assert.True(t, book.CooldownUntil("OLDUSDT").IsZero())
}

func TestTradingService_StartStopsOnCancel(t *testing.T) {
	svc := newTestService(t, newMockTradeRepo(), state.NewBook(time.Hour), &countingScanner{}, &countingPoller{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop after cancel")
	}
}
