package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

type mockHandler struct {
	calls  []string
	errFor map[string]error
}

func (m *mockHandler) TryEnter(ctx context.Context, symbol string) (*domain.Trade, error) {
	m.calls = append(m.calls, symbol)
	if err := m.errFor[symbol]; err != nil {
		return nil, err
	}
	return &domain.Trade{Symbol: symbol, Status: domain.ReasonOpen}, nil
}

type scannerFixture struct {
	exchange *mockExchange
	symbols  *mockSymbolRepo
	listings *mockListingRepo
	handler  *mockHandler
	metrics  *mockMetrics
	scanner  *ListingScanner
}

func newScannerFixture(t *testing.T, known, current []string) *scannerFixture {
	t.Helper()
	f := &scannerFixture{
		exchange: newMockExchange(),
		symbols:  &mockSymbolRepo{known: known},
		listings: &mockListingRepo{},
		handler:  &mockHandler{errFor: map[string]error{}},
		metrics:  &mockMetrics{},
	}
	f.exchange.symbols = current
	s, err := NewListingScanner(f.exchange, f.symbols, f.listings, f.handler, f.metrics, &mockLogger{}, fixedClock(testNow))
	require.NoError(t, err)
	f.scanner = s
	return f
}

func TestScan_BootstrapsEmptyBaseline(t *testing.T) {
	f := newScannerFixture(t, nil, []string{"BTCUSDT", "ETHUSDT"})

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Bootstrapped)
	assert.Empty(t, res.New)
	assert.Empty(t, f.handler.calls)
	assert.Equal(t, [][]string{{"BTCUSDT", "ETHUSDT"}}, f.symbols.sets)
}

func TestScan_DetectsNewSymbolsInOrder(t *testing.T) {
	f := newScannerFixture(t, []string{"BTCUSDT"}, []string{"ZEDUSDT", "BTCUSDT", "ABCUSDT"})

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCUSDT", "ZEDUSDT"}, res.New)
	assert.Equal(t, []string{"ABCUSDT", "ZEDUSDT"}, res.Entered)
	assert.Equal(t, []string{"ABCUSDT", "ZEDUSDT"}, f.handler.calls)
	assert.Equal(t, []string{"ABCUSDT", "ZEDUSDT"}, f.listings.recorded)
	assert.Equal(t, []string{"ABCUSDT", "ZEDUSDT"}, f.metrics.detected)
	assert.Equal(t, []string{"ZEDUSDT", "BTCUSDT", "ABCUSDT"}, f.symbols.known)
}

func TestScan_DelistedSymbolsLeaveBaseline(t *testing.T) {
	f := newScannerFixture(t, []string{"BTCUSDT", "OLDUSDT"}, []string{"BTCUSDT"})

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.New)
	assert.Equal(t, []string{"BTCUSDT"}, f.symbols.known)
}

func TestScan_EntryFailuresAreIsolated(t *testing.T) {
	f := newScannerFixture(t, []string{"BTCUSDT"}, []string{"BTCUSDT", "AUSDT", "BUSDT"})
	f.handler.errFor["AUSDT"] = ErrBracketIncomplete
	f.listings.recordErr = errors.New("locked")

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AUSDT", "BUSDT"}, f.handler.calls)
	assert.Equal(t, []string{"BUSDT"}, res.Entered)
	assert.Len(t, f.symbols.sets, 1)
}

func TestScan_VenueFailureSkipsScan(t *testing.T) {
	f := newScannerFixture(t, []string{"BTCUSDT"}, nil)
	f.exchange.symbolsErr = ports.ErrExchangeUnavailable

	_, err := f.scanner.Scan(context.Background())
	assert.ErrorIs(t, err, ports.ErrExchangeUnavailable)
	assert.Empty(t, f.symbols.sets)
	assert.Equal(t, []string{"BTCUSDT"}, f.symbols.known)
	assert.Equal(t, []string{"GetTradableSymbols"}, f.metrics.venueErrors)
}

func TestScan_BaselineReadFailure(t *testing.T) {
	f := newScannerFixture(t, nil, []string{"BTCUSDT", "NEWUSDT"})
	f.symbols.getErr = ports.ErrQueryFailed

	_, err := f.scanner.Scan(context.Background())
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
	assert.Empty(t, f.handler.calls)
	assert.Empty(t, f.symbols.sets)
}

func TestNewSymbols(t *testing.T) {
	assert.Equal(t, []string{"A", "C"}, newSymbols([]string{"C", "B", "A", "C"}, []string{"B"}))
	assert.Nil(t, newSymbols([]string{"A"}, []string{"A"}))
}
