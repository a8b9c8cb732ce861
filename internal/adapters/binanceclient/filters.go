package binanceclient

import (
	"context"
	"fmt"

	"listingBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// quotePrecision is used for quote amounts, which have no exchange filter.
const quotePrecision = 8

// symbolFilters hold the PRICE_FILTER tick and LOT_SIZE step of a symbol.
// Zero values mean the filter is absent.
type symbolFilters struct {
	tickSize decimal.Decimal
	stepSize decimal.Decimal
}

func filtersFromSymbol(s *binance.Symbol) symbolFilters {
	var f symbolFilters
	if pf := s.PriceFilter(); pf != nil {
		f.tickSize = parseDecimalOrZero(pf.TickSize)
	}
	if lf := s.LotSizeFilter(); lf != nil {
		f.stepSize = parseDecimalOrZero(lf.StepSize)
	}
	return f
}

func (c *Client) symbolFilters(ctx context.Context, symbol string) (symbolFilters, error) {
	c.filtersMu.RLock()
	f, ok := c.filters[symbol]
	c.filtersMu.RUnlock()
	if ok {
		return f, nil
	}

	info, err := c.spot.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return symbolFilters{}, err
	}
	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			f = filtersFromSymbol(&info.Symbols[i])
			c.filtersMu.Lock()
			c.filters[symbol] = f
			c.filtersMu.Unlock()
			return f, nil
		}
	}
	return symbolFilters{}, fmt.Errorf("symbol %s: %w", symbol, ports.ErrSymbolNotFound)
}

// formatQuantity rounds down to the lot step so the order never exceeds holdings.
func (f symbolFilters) formatQuantity(qty float64) string {
	d := decimal.NewFromFloat(qty)
	if f.stepSize.IsPositive() {
		d = d.Div(f.stepSize).Floor().Mul(f.stepSize)
	}
	return d.String()
}

// formatPrice rounds to the nearest tick.
func (f symbolFilters) formatPrice(price float64) string {
	d := decimal.NewFromFloat(price)
	if f.tickSize.IsPositive() {
		d = d.Div(f.tickSize).Round(0).Mul(f.tickSize)
	}
	return d.String()
}

func (f symbolFilters) formatQuote(amount float64) string {
	return decimal.NewFromFloat(amount).Truncate(quotePrecision).String()
}

// avgFillPrice divides cumulative quote by executed quantity.
func avgFillPrice(cumQuote, executedQty string) float64 {
	q := parseDecimalOrZero(executedQty)
	if !q.IsPositive() {
		return 0
	}
	return parseDecimalOrZero(cumQuote).Div(q).InexactFloat64()
}

func parseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
