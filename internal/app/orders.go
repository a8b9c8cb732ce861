package app

import (
	"context"
	"errors"
	"time"

	"listingBot/internal/ports"
)

// Clock returns the current time. Tests and the simulator substitute their own.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// venueMarket feeds the entry gate from the exchange.
type venueMarket struct {
	exchange ports.ExchangeClient
	asset    string
}

func (m venueMarket) Balance(ctx context.Context) (float64, error) {
	return m.exchange.GetAvailableBalance(ctx, m.asset)
}

func (m venueMarket) Liquidity(ctx context.Context, symbol string) (float64, error) {
	return m.exchange.GetLiquidity(ctx, symbol)
}

// cancelOrderWarn attempts to cancel an order and logs a warning on failure.
// Orders the exchange no longer knows, or that already reached a final state,
// count as cancelled.
func cancelOrderWarn(ctx context.Context, exchange ports.ExchangeClient, logger ports.Logger, symbol, orderID, orderType string) error {
	op := "cancelOrderWarn"
	fields := map[string]interface{}{"symbol": symbol, "orderID": orderID, "type": orderType}

	err := exchange.CancelOrder(ctx, symbol, orderID)
	switch {
	case err == nil:
		logger.Info(ctx, op+": Order cancelled successfully", fields)
		return nil
	case errors.Is(err, ports.ErrOrderNotFound), errors.Is(err, ports.ErrOrderCancelFailed):
		logger.Warn(ctx, op+": Order not cancellable, likely already filled or cancelled", fields)
		return nil
	default:
		logger.Error(ctx, err, op+": Failed to cancel order", fields)
		return err
	}
}
