// Package state owns the in-memory portfolio: the active trade set and the
// per-symbol entry cooldowns. All reads and writes go through Book.
package state

import (
	"sort"
	"sync"
	"time"

	"listingBot/internal/domain"
)

// Book is the single serialized access path to open positions and cooldowns.
type Book struct {
	mu        sync.Mutex
	active    map[int64]*domain.Trade
	cooldowns map[string]time.Time
	inFlight  map[int64]struct{}
	cooldown  time.Duration
}

// NewBook creates an empty book arming cooldowns of the given length.
func NewBook(cooldown time.Duration) *Book {
	return &Book{
		active:    make(map[int64]*domain.Trade),
		cooldowns: make(map[string]time.Time),
		inFlight:  make(map[int64]struct{}),
		cooldown:  cooldown,
	}
}

// Seed replaces the active set with persisted open trades and re-arms their cooldowns from entry time.
func (b *Book) Seed(trades []*domain.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active = make(map[int64]*domain.Trade, len(trades))
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		b.active[t.ID] = t.Clone()
		b.armLocked(t.Symbol, t.EntryTime)
	}
}

// Open records a newly opened trade and arms the symbol's cooldown from its entry time.
func (b *Book) Open(t *domain.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active[t.ID] = t.Clone()
	b.armLocked(t.Symbol, t.EntryTime)
}

func (b *Book) armLocked(symbol string, from time.Time) {
	until := from.Add(b.cooldown)
	if cur, ok := b.cooldowns[symbol]; !ok || until.After(cur) {
		b.cooldowns[symbol] = until
	}
}

// Remove drops a trade from the active set. Cooldowns are unaffected.
func (b *Book) Remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.active, id)
	delete(b.inFlight, id)
}

// ActiveCount returns the number of open positions.
func (b *Book) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.active)
}

// CooldownUntil returns the symbol's cooldown expiry, or the zero time.
func (b *Book) CooldownUntil(symbol string) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cooldowns[symbol]
}

// Active returns copies of the open trades ordered by ID.
func (b *Book) Active() []*domain.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.Trade, 0, len(b.active))
	for _, t := range b.active {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of an active trade.
func (b *Book) Get(id int64) (*domain.Trade, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.active[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Claim marks an active trade as being processed. It returns false if the
// trade is unknown or already claimed by an overlapping poll.
func (b *Book) Claim(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.active[id]; !ok {
		return false
	}
	if _, busy := b.inFlight[id]; busy {
		return false
	}
	b.inFlight[id] = struct{}{}
	return true
}

// Release clears a claim taken with Claim.
func (b *Book) Release(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, id)
}

// PruneCooldowns drops expired cooldowns and returns how many were removed.
func (b *Book) PruneCooldowns(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for symbol, until := range b.cooldowns {
		if !now.Before(until) {
			delete(b.cooldowns, symbol)
			n++
		}
	}
	return n
}
