package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingBot/internal/ports"
)

// mockLogger implements ports.Logger and records error messages.
type mockLogger struct {
	errors []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errors = append(m.errors, msg)
}

func TestNew(t *testing.T) {
	_, err := New(Config{QuoteAsset: "USDT"})
	assert.Error(t, err, "logger is required")

	_, err = New(Config{Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	c, err := New(Config{Logger: &mockLogger{}, QuoteAsset: "usdt", UseTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, baseURLTestnet, c.spot.BaseURL)
	assert.Equal(t, "USDT", c.quoteAsset)
	assert.NotNil(t, c.spot.HTTPClient)

	c, err = New(Config{Logger: &mockLogger{}, QuoteAsset: "USDT"})
	require.NoError(t, err)
	assert.Equal(t, baseURLProduction, c.spot.BaseURL)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &common.APIError{Code: -1003}, ports.ErrRateLimited},
		{"unavailable", &common.APIError{Code: -1001}, ports.ErrExchangeUnavailable},
		{"recv window", &common.APIError{Code: -1021}, ports.ErrTimeout},
		{"bad signature", &common.APIError{Code: -1022}, ports.ErrAuthenticationFailed},
		{"filter failure", &common.APIError{Code: -1013}, ports.ErrInvalidRequest},
		{"order rejected", &common.APIError{Code: -2010, Message: "Market is closed."}, ports.ErrOrderPlacementFailed},
		{"order rejected balance", &common.APIError{Code: -2010, Message: "Account has insufficient balance for requested action."}, ports.ErrInsufficientFunds},
		{"cancel rejected", &common.APIError{Code: -2011}, ports.ErrOrderCancelFailed},
		{"no such order", &common.APIError{Code: -2013}, ports.ErrOrderNotFound},
		{"bad key", &common.APIError{Code: -2015}, ports.ErrInvalidAPIKeys},
		{"unmapped code", &common.APIError{Code: -9999}, ports.ErrUnknown},
		{"wrapped api error", fmt.Errorf("outer: %w", &common.APIError{Code: -1003}), ports.ErrRateLimited},
		{"deadline", context.DeadlineExceeded, ports.ErrTimeout},
		{"canceled", context.Canceled, ports.ErrContextCanceled},
		{"http timeout", errors.New("net/http: request canceled (Client.Timeout exceeded while awaiting headers)"), ports.ErrTimeout},
		{"refused", errors.New("dial tcp: connection refused"), ports.ErrConnectionFailed},
		{"other", errors.New("weird"), ports.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(tt.err), tt.want)
		})
	}
}

func TestHandleError_WrapsAndLogs(t *testing.T) {
	log := &mockLogger{}
	c := &Client{logger: log}

	apiErr := &common.APIError{Code: -1003, Message: "Too many requests"}
	err := c.handleError(context.Background(), apiErr, "GetLiquidity")

	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.True(t, ports.IsTransient(err))
	var got *common.APIError
	assert.True(t, errors.As(err, &got))
	assert.Contains(t, err.Error(), "GetLiquidity failed")
	assert.Equal(t, []string{"GetLiquidity failed with API error"}, log.errors)

	assert.NoError(t, c.handleError(context.Background(), nil, "noop"))
}

func TestSymbolFilters_Format(t *testing.T) {
	f := symbolFilters{
		tickSize: decimal.RequireFromString("0.0001"),
		stepSize: decimal.RequireFromString("0.1"),
	}

	assert.Equal(t, "166.6", f.formatQuantity(166.666666))
	assert.Equal(t, "0.1202", f.formatPrice(0.120238))
	assert.Equal(t, "0.0848", f.formatPrice(0.08477))
	assert.Equal(t, "20", f.formatQuote(20))

	none := symbolFilters{}
	assert.Equal(t, "1.2345", none.formatQuantity(1.2345))
	assert.Equal(t, "120.2", none.formatPrice(120.2))
}

func TestFiltersFromSymbol(t *testing.T) {
	s := &binance.Symbol{
		Symbol: "NEWUSDT",
		Filters: []map[string]interface{}{
			{"filterType": "PRICE_FILTER", "minPrice": "0.0001", "maxPrice": "1000", "tickSize": "0.0001"},
			{"filterType": "LOT_SIZE", "minQty": "1", "maxQty": "900000", "stepSize": "1"},
		},
	}
	f := filtersFromSymbol(s)
	assert.True(t, f.tickSize.Equal(decimal.RequireFromString("0.0001")))
	assert.True(t, f.stepSize.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "41", f.formatQuantity(41.9))
}

func TestAvgFillPrice(t *testing.T) {
	assert.InDelta(t, 0.125, avgFillPrice("20", "160"), 1e-12)
	assert.Zero(t, avgFillPrice("20", "0"))
	assert.Zero(t, avgFillPrice("20", "bad"))
}

func TestParseOrderID(t *testing.T) {
	id, err := parseOrderID("123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), id)

	_, err = parseOrderID("SIM-1")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestTranslateKline(t *testing.T) {
	bk := &binance.Kline{
		OpenTime: 1709251200000, CloseTime: 1709254799999,
		Open: "1.0", High: "1.5", Low: "0.9", Close: "1.2", Volume: "1000", QuoteAssetVolume: "1150.5",
	}
	k, err := translateKline(bk, "NEWUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, "NEWUSDT", k.Symbol)
	assert.Equal(t, 1.2, k.Close)
	assert.Equal(t, 1150.5, k.QuoteVolume)
	assert.Equal(t, int64(1709251200000), k.OpenTime.UnixMilli())

	bk.Close = "x"
	_, err = translateKline(bk, "NEWUSDT", "1h")
	assert.Error(t, err)
}

func TestNewClientOrderID(t *testing.T) {
	a, b := newClientOrderID("t"), newClientOrderID("t")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 27)
	assert.LessOrEqual(t, len(a), 36)
}
