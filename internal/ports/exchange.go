package ports

import (
	"context"
	"time"

	"listingBot/internal/domain"
)

// OrderFill describes an executed market order.
type OrderFill struct {
	OrderID     string
	Symbol      string
	Price       float64 // Average fill price
	ExecutedQty float64 // Base quantity filled
	QuoteQty    float64 // Quote amount spent or received
	Timestamp   time.Time
}

// PlacedOrder describes a resting order accepted by the exchange.
type PlacedOrder struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Price         float64
	StopPrice     float64
	Quantity      float64
}

// OrderStatus is the current state of an order as reported by the exchange.
type OrderStatus struct {
	OrderID     string
	Symbol      string
	State       domain.OrderState
	Price       float64 // Average fill price when executed, otherwise the limit price
	ExecutedQty float64
}

// Filled reports whether the order is completely executed.
func (s *OrderStatus) Filled() bool {
	return s != nil && s.State == domain.OrderStateFilled
}

// ExchangeClient defines the market venue operations the bot relies on.
// Implementations are responsible for their own request timeouts.
type ExchangeClient interface {
	// GetTradableSymbols lists symbols currently open for trading in the configured quote asset.
	GetTradableSymbols(ctx context.Context) ([]string, error)

	// GetAvailableBalance retrieves the free balance for a specific asset (e.g., "USDT").
	GetAvailableBalance(ctx context.Context, asset string) (float64, error)

	// GetLiquidity returns the 24h quote volume of a symbol.
	GetLiquidity(ctx context.Context, symbol string) (float64, error)

	// MarketBuy spends quoteAmount of the quote asset on symbol at market.
	MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (*OrderFill, error)

	// MarketSell sells quantity of symbol at market.
	MarketSell(ctx context.Context, symbol string, quantity float64) (*OrderFill, error)

	// PlaceTakeProfit places a resting limit sell.
	PlaceTakeProfit(ctx context.Context, symbol string, quantity, price float64) (*PlacedOrder, error)

	// PlaceStopLoss places a stop-limit sell triggered at stopPrice.
	PlaceStopLoss(ctx context.Context, symbol string, quantity, stopPrice, limitPrice float64) (*PlacedOrder, error)

	// GetOrderStatus queries an order by its exchange ID.
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderStatus, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// GetHourlyKlines retrieves up to limit hourly candles starting at start.
	GetHourlyKlines(ctx context.Context, symbol string, start time.Time, limit int) ([]*domain.Kline, error)
}
