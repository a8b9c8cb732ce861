package domain

import "time"

// Checkpoint offsets from the listing time at which prices are recorded.
const (
	CheckpointOpen time.Duration = 0
	Checkpoint1h   = time.Hour
	Checkpoint24h  = 24 * time.Hour
	Checkpoint48h  = 48 * time.Hour
)

// ListingEvent is the recorded price history of one listing. Immutable after recording.
type ListingEvent struct {
	Symbol      string
	ListingTime time.Time
	OpenPrice   float64
	Price1h     float64
	Price24h    float64
	Price48h    float64
	Volume      float64 // Quote volume over the recorded window
	High        float64
	Low         float64
}

// Checkpoint is one recorded price at a fixed offset from listing.
type Checkpoint struct {
	Index  int // 0 is the open
	Offset time.Duration
	Price  float64
}

// Time returns the wall time of the checkpoint for the given listing.
func (c Checkpoint) Time(listing time.Time) time.Time {
	return listing.Add(c.Offset)
}

// Checkpoints returns open, +1h, +24h and +48h in order.
func (e *ListingEvent) Checkpoints() []Checkpoint {
	return []Checkpoint{
		{Index: 0, Offset: CheckpointOpen, Price: e.OpenPrice},
		{Index: 1, Offset: Checkpoint1h, Price: e.Price1h},
		{Index: 2, Offset: Checkpoint24h, Price: e.Price24h},
		{Index: 3, Offset: Checkpoint48h, Price: e.Price48h},
	}
}

// Listing is a symbol first seen by the scanner.
type Listing struct {
	Symbol     string
	DetectedAt time.Time
}
