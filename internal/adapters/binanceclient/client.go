package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"listingBot/internal/domain"
	"listingBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	statusTrading = "TRADING"
)

// Client implements the ports.ExchangeClient interface for Binance spot.
type Client struct {
	spot       *binance.Client
	logger     ports.Logger
	quoteAsset string

	filtersMu sync.RWMutex
	filters   map[string]symbolFilters
}

var _ ports.ExchangeClient = (*Client)(nil)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey         string
	SecretKey      string
	UseTestnet     bool
	QuoteAsset     string        // Only symbols quoted in this asset are tradable
	RequestTimeout time.Duration // Upper bound for every REST call
	Logger         ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("%w: quote asset is required for Binance client", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	cfg.Logger.Info(context.Background(), "Binance spot client configured", map[string]interface{}{
		"baseURL": client.BaseURL, "testnet": cfg.UseTestnet, "quoteAsset": cfg.QuoteAsset, "timeout": timeout.String(),
	})

	return &Client{
		spot:       client,
		logger:     cfg.Logger,
		quoteAsset: strings.ToUpper(cfg.QuoteAsset),
		filters:    make(map[string]symbolFilters),
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}
	mappedErr := classifyError(err)

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
	} else {
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	}

	if errors.Is(mappedErr, ports.ErrContextCanceled) {
		return fmt.Errorf("%s operation canceled: %w: %w", operation, mappedErr, err)
	}
	return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
}

// classifyError maps an error from the SDK or transport to a ports sentinel.
func classifyError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003, -1015: // Too many requests / too many new orders
			return ports.ErrRateLimited
		case -1000, -1001, -1006, -1007: // Unknown / disconnected / unexpected response / timeout
			return ports.ErrExchangeUnavailable
		case -1021: // Timestamp for this request is outside of the recvWindow
			return ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			return ports.ErrAuthenticationFailed
		case -1013, -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			// Parameter/Request format errors; -1013 is a filter failure (tick, step or notional)
			return ports.ErrInvalidRequest
		case -2010: // New order rejected
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance") {
				return ports.ErrInsufficientFunds
			}
			return ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected (unknown order or already closed)
			return ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			return ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP, or permissions
			return ports.ErrInvalidAPIKeys
		case -3005: // Insufficient balance
			return ports.ErrInsufficientFunds
		default:
			return ports.ErrUnknown
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Client.Timeout exceeded"), strings.Contains(msg, "i/o timeout"):
		return ports.ErrTimeout
	case strings.Contains(msg, "use of closed network connection"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset by peer"),
		strings.Contains(msg, "no such host"):
		return ports.ErrConnectionFailed
	}
	return ports.ErrUnknown
}

// GetTradableSymbols lists TRADING spot symbols quoted in the configured asset and refreshes the filter cache.
func (c *Client) GetTradableSymbols(ctx context.Context) ([]string, error) {
	op := "GetTradableSymbols"
	info, err := c.spot.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	symbols := make([]string, 0, len(info.Symbols))
	cache := make(map[string]symbolFilters, len(info.Symbols))
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Status != statusTrading || s.QuoteAsset != c.quoteAsset {
			continue
		}
		symbols = append(symbols, s.Symbol)
		cache[s.Symbol] = filtersFromSymbol(s)
	}

	c.filtersMu.Lock()
	for k, v := range cache {
		c.filters[k] = v
	}
	c.filtersMu.Unlock()

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(symbols)})
	return symbols, nil
}

// GetAvailableBalance retrieves the free balance for a specific asset.
// An asset absent from the account has a zero balance.
func (c *Client) GetAvailableBalance(ctx context.Context, asset string) (float64, error) {
	op := "GetAvailableBalance"
	account, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Balances {
		if bal.Asset == asset {
			free, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", bal.Free, asset, err)
				return 0, c.handleError(ctx, parseErr, op)
			}
			return free, nil
		}
	}
	c.logger.Debug(ctx, op+": asset not held", map[string]interface{}{"asset": asset})
	return 0, nil
}

// GetLiquidity returns the rolling 24h quote volume of symbol.
func (c *Client) GetLiquidity(ctx context.Context, symbol string) (float64, error) {
	op := "GetLiquidity"
	stats, err := c.spot.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(stats) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s: %w", symbol, ports.ErrSymbolNotFound), op)
	}

	volume, err := strconv.ParseFloat(stats[0].QuoteVolume, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse quote volume '%s': %w", stats[0].QuoteVolume, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return volume, nil
}

// GetOrderStatus queries an order by its exchange ID.
func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (*ports.OrderStatus, error) {
	op := "GetOrderStatus"
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	order, err := c.spot.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	status := &ports.OrderStatus{
		OrderID:     orderID,
		Symbol:      order.Symbol,
		State:       domain.OrderState(order.Status),
		ExecutedQty: parseFloatOrZero(order.ExecutedQuantity),
	}
	status.Price = avgFillPrice(order.CummulativeQuoteQuantity, order.ExecutedQuantity)
	if status.Price == 0 {
		status.Price = parseFloatOrZero(order.Price)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID, "state": status.State})
	return status, nil
}

// CancelOrder cancels an existing open order by its ID.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	op := "CancelOrder"
	id, err := parseOrderID(orderID)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, "Attempting to cancel order", map[string]interface{}{"symbol": symbol, "orderID": orderID})

	if _, err := c.spot.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	return nil
}

// GetHourlyKlines retrieves up to limit hourly candles starting at start.
func (c *Client) GetHourlyKlines(ctx context.Context, symbol string, start time.Time, limit int) ([]*domain.Kline, error) {
	op := "GetHourlyKlines"
	const interval = "1h"

	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(start.UnixMilli()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]*domain.Kline, 0, len(klines))
	for _, bk := range klines {
		dk, err := translateKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		out = append(out, dk)
	}
	return out, nil
}

// newClientOrderID tags orders so they can be traced back to the bot.
func newClientOrderID(kind string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "lb" + kind + id[:24]
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order ID '%s': %w: %w", orderID, ports.ErrInvalidRequest, err)
	}
	return id, nil
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func translateKline(bk *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	values := []string{bk.Open, bk.High, bk.Low, bk.Close, bk.Volume, bk.QuoteAssetVolume}
	parsed := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse kline value '%s': %w", v, err)
		}
		parsed[i] = f
	}
	return &domain.Kline{
		OpenTime:    time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime:   time.UnixMilli(bk.CloseTime).UTC(),
		Symbol:      symbol,
		Interval:    interval,
		Open:        parsed[0],
		High:        parsed[1],
		Low:         parsed[2],
		Close:       parsed[3],
		Volume:      parsed[4],
		QuoteVolume: parsed[5],
	}, nil
}
