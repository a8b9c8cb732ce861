package utils

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"listingBot/config"
	"listingBot/internal/domain"
)

type listingEventDoc struct {
	Symbol      string  `yaml:"symbol"`
	ListingTime string  `yaml:"listing_time"`
	OpenPrice   float64 `yaml:"open_price"`
	Price1h     float64 `yaml:"price_1h"`
	Price24h    float64 `yaml:"price_24h"`
	Price48h    float64 `yaml:"price_48h"`
	Volume      float64 `yaml:"volume"`
	High        float64 `yaml:"high"`
	Low         float64 `yaml:"low"`
}

type listingEventsFile struct {
	Events []listingEventDoc `yaml:"events"`
}

// ReadListingEventsYAML decodes a document of the form
//
//	events:
//	  - symbol: NEWUSDT
//	    listing_time: 2024-03-01T10:00:00Z
//	    open_price: 1.0
//	    price_1h: 1.2
//	    ...
//
// listing_time accepts a date or RFC3339. Every event needs a symbol and a
// positive open price.
func ReadListingEventsYAML(r io.Reader) ([]*domain.ListingEvent, error) {
	var doc listingEventsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode listing events: %w", err)
	}

	events := make([]*domain.ListingEvent, 0, len(doc.Events))
	for i, d := range doc.Events {
		if d.Symbol == "" {
			return nil, fmt.Errorf("event %d: symbol is required", i)
		}
		if d.OpenPrice <= 0 {
			return nil, fmt.Errorf("event %d (%s): open_price must be positive", i, d.Symbol)
		}
		listed, err := config.ParseDate(d.ListingTime)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): listing_time: %w", i, d.Symbol, err)
		}
		events = append(events, &domain.ListingEvent{
			Symbol:      d.Symbol,
			ListingTime: listed,
			OpenPrice:   d.OpenPrice,
			Price1h:     d.Price1h,
			Price24h:    d.Price24h,
			Price48h:    d.Price48h,
			Volume:      d.Volume,
			High:        d.High,
			Low:         d.Low,
		})
	}
	return events, nil
}
