package binanceclient

import (
	"context"
	"fmt"
	"time"

	"listingBot/internal/ports"

	"github.com/adshao/go-binance/v2"
)

// MarketBuy spends quoteAmount of the quote asset on symbol.
func (c *Client) MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (*ports.OrderFill, error) {
	op := "MarketBuy"
	f, err := c.symbolFilters(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(f.formatQuote(quoteAmount)).
		NewClientOrderID(newClientOrderID("b")).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	fill := translateFill(order)
	if fill.ExecutedQty == 0 || fill.Price == 0 {
		return nil, c.handleError(ctx, fmt.Errorf("market buy %s returned no fill: %w", symbol, ports.ErrOrderPlacementFailed), op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": symbol, "orderID": fill.OrderID, "price": fill.Price, "quantity": fill.ExecutedQty, "quote": fill.QuoteQty,
	})
	return fill, nil
}

// MarketSell sells quantity of symbol at market.
func (c *Client) MarketSell(ctx context.Context, symbol string, quantity float64) (*ports.OrderFill, error) {
	op := "MarketSell"
	f, err := c.symbolFilters(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(f.formatQuantity(quantity)).
		NewClientOrderID(newClientOrderID("s")).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	fill := translateFill(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": symbol, "orderID": fill.OrderID, "price": fill.Price, "quantity": fill.ExecutedQty,
	})
	return fill, nil
}

// PlaceTakeProfit places a GTC limit sell at price.
func (c *Client) PlaceTakeProfit(ctx context.Context, symbol string, quantity, price float64) (*ports.PlacedOrder, error) {
	op := "PlaceTakeProfit"
	f, err := c.symbolFilters(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	qty, px := f.formatQuantity(quantity), f.formatPrice(price)

	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(qty).
		Price(px).
		NewClientOrderID(newClientOrderID("t")).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	placed := translatePlaced(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": placed.OrderID, "price": px, "quantity": qty})
	return placed, nil
}

// PlaceStopLoss places a GTC stop-limit sell triggered at stopPrice.
func (c *Client) PlaceStopLoss(ctx context.Context, symbol string, quantity, stopPrice, limitPrice float64) (*ports.PlacedOrder, error) {
	op := "PlaceStopLoss"
	f, err := c.symbolFilters(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	qty, stop, limit := f.formatQuantity(quantity), f.formatPrice(stopPrice), f.formatPrice(limitPrice)

	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeStopLossLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(qty).
		StopPrice(stop).
		Price(limit).
		NewClientOrderID(newClientOrderID("l")).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	placed := translatePlaced(order)
	placed.StopPrice = parseFloatOrZero(stop)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": symbol, "orderID": placed.OrderID, "stopPrice": stop, "limitPrice": limit, "quantity": qty,
	})
	return placed, nil
}

func translateFill(order *binance.CreateOrderResponse) *ports.OrderFill {
	return &ports.OrderFill{
		OrderID:     fmt.Sprintf("%d", order.OrderID),
		Symbol:      order.Symbol,
		Price:       avgFillPrice(order.CummulativeQuoteQuantity, order.ExecutedQuantity),
		ExecutedQty: parseFloatOrZero(order.ExecutedQuantity),
		QuoteQty:    parseFloatOrZero(order.CummulativeQuoteQuantity),
		Timestamp:   time.UnixMilli(order.TransactTime).UTC(),
	}
}

func translatePlaced(order *binance.CreateOrderResponse) *ports.PlacedOrder {
	return &ports.PlacedOrder{
		OrderID:       fmt.Sprintf("%d", order.OrderID),
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Price:         parseFloatOrZero(order.Price),
		Quantity:      parseFloatOrZero(order.OrigQuantity),
	}
}
