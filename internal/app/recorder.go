package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// RecordWindow is the number of hourly candles an event covers.
const RecordWindow = 48

// RecordResult summarises one recorder pass.
type RecordResult struct {
	Recorded int
	Skipped  int
	Failed   int
}

// ListingRecorder turns detected listings into listing events once their
// 48 hour window has closed.
type ListingRecorder struct {
	exchange ports.ExchangeClient
	listings ports.ListingRepository
	logger   ports.Logger
	now      Clock
}

// NewListingRecorder validates dependencies and creates a recorder.
func NewListingRecorder(exchange ports.ExchangeClient, listings ports.ListingRepository, logger ports.Logger, clock Clock) (*ListingRecorder, error) {
	if exchange == nil || listings == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for ListingRecorder")
	}
	if clock == nil {
		clock = systemClock
	}
	return &ListingRecorder{exchange: exchange, listings: listings, logger: logger, now: clock}, nil
}

// eventKey identifies one listing of a symbol; a relisting has a later hour.
type eventKey struct {
	symbol string
	hourMs int64
}

// Record builds events for listings detected within [start, end].
func (r *ListingRecorder) Record(ctx context.Context, start, end time.Time) (RecordResult, error) {
	op := "Record"
	var res RecordResult

	listings, err := r.listings.ListListings(ctx, start, end)
	if err != nil {
		return res, fmt.Errorf("%s: list listings: %w", op, err)
	}
	// Event listing times are truncated to the candle hour, which can precede start.
	existing, err := r.listings.GetListingEvents(ctx, start.Add(-time.Hour), end)
	if err != nil {
		return res, fmt.Errorf("%s: load events: %w", op, err)
	}
	recorded := make(map[eventKey]struct{}, len(existing))
	for _, ev := range existing {
		recorded[eventKey{ev.Symbol, ev.ListingTime.UnixMilli()}] = struct{}{}
	}

	cutoff := r.now().Add(-domain.Checkpoint48h)
	for _, l := range listings {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		listingHour := l.DetectedAt.Truncate(time.Hour)
		if _, ok := recorded[eventKey{l.Symbol, listingHour.UnixMilli()}]; ok || l.DetectedAt.After(cutoff) {
			res.Skipped++
			continue
		}

		klines, err := r.exchange.GetHourlyKlines(ctx, l.Symbol, listingHour, RecordWindow)
		if err != nil {
			res.Failed++
			r.logger.Error(ctx, err, op+": Failed to fetch klines", map[string]interface{}{"symbol": l.Symbol})
			continue
		}
		ev, err := ListingEventFromKlines(l.Symbol, klines)
		if err != nil {
			res.Skipped++
			r.logger.Warn(ctx, op+": Skipping listing", map[string]interface{}{"symbol": l.Symbol, "reason": err.Error()})
			continue
		}
		if err := r.listings.SaveListingEvent(ctx, ev); err != nil {
			res.Failed++
			r.logger.Error(ctx, err, op+": Failed to save listing event", map[string]interface{}{"symbol": l.Symbol})
			continue
		}
		res.Recorded++
		r.logger.Info(ctx, op+": Listing event recorded", map[string]interface{}{
			"symbol": ev.Symbol, "listingTime": ev.ListingTime, "open": ev.OpenPrice, "price48h": ev.Price48h,
		})
	}
	return res, nil
}

// ListingEventFromKlines builds an event from the first 48 hourly candles of a listing.
func ListingEventFromKlines(symbol string, klines []*domain.Kline) (*domain.ListingEvent, error) {
	if len(klines) < RecordWindow {
		return nil, fmt.Errorf("need %d hourly klines, got %d", RecordWindow, len(klines))
	}
	window := klines[:RecordWindow]

	ev := &domain.ListingEvent{
		Symbol:      symbol,
		ListingTime: window[0].OpenTime,
		OpenPrice:   window[0].Open,
		Price1h:     window[0].Close,
		Price24h:    window[23].Close,
		Price48h:    window[RecordWindow-1].Close,
		High:        window[0].High,
		Low:         window[0].Low,
	}
	for _, k := range window {
		ev.Volume += k.QuoteVolume
		ev.High = math.Max(ev.High, k.High)
		ev.Low = math.Min(ev.Low, k.Low)
	}
	return ev, nil
}
