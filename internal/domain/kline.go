package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime    time.Time // Start time of the interval
	CloseTime   time.Time // End time of the interval
	Symbol      string    // Trading symbol
	Interval    string    // Kline interval (e.g., "1h")
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // Base asset volume
	QuoteVolume float64 // Quote asset volume
}
