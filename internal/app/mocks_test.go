package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"listingBot/internal/domain"
	"listingBot/internal/ports"
)

// Mock implementations

type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockExchange struct {
	mu sync.Mutex

	symbols    []string
	symbolsErr error
	balance    float64
	balanceErr error
	liquidity  float64
	buyFill    *ports.OrderFill
	buyErr     error
	sellErr    error
	tpErr      error
	slErr      error
	statuses   map[string]*ports.OrderStatus
	statusErrs map[string]error
	cancelErrs map[string]error
	klines     []*domain.Kline
	klinesErr  error

	buys       []string
	sells      []float64
	cancelled  []string
	placed     int
	stopLimits []float64
	klineCalls []time.Time
}

func newMockExchange() *mockExchange {
	return &mockExchange{
		balance:    1000,
		liquidity:  1_000_000,
		statuses:   map[string]*ports.OrderStatus{},
		statusErrs: map[string]error{},
		cancelErrs: map[string]error{},
	}
}

func (m *mockExchange) GetTradableSymbols(ctx context.Context) ([]string, error) {
	return m.symbols, m.symbolsErr
}

func (m *mockExchange) GetAvailableBalance(ctx context.Context, asset string) (float64, error) {
	return m.balance, m.balanceErr
}

func (m *mockExchange) GetLiquidity(ctx context.Context, symbol string) (float64, error) {
	return m.liquidity, nil
}

func (m *mockExchange) MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (*ports.OrderFill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buys = append(m.buys, symbol)
	if m.buyErr != nil {
		return nil, m.buyErr
	}
	if m.buyFill != nil {
		return m.buyFill, nil
	}
	return &ports.OrderFill{OrderID: "entry-1", Symbol: symbol, Price: 100, ExecutedQty: quoteAmount / 100, QuoteQty: quoteAmount}, nil
}

func (m *mockExchange) MarketSell(ctx context.Context, symbol string, quantity float64) (*ports.OrderFill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sells = append(m.sells, quantity)
	if m.sellErr != nil {
		return nil, m.sellErr
	}
	return &ports.OrderFill{OrderID: "unwind-1", Symbol: symbol, ExecutedQty: quantity}, nil
}

func (m *mockExchange) PlaceTakeProfit(ctx context.Context, symbol string, quantity, price float64) (*ports.PlacedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tpErr != nil {
		return nil, m.tpErr
	}
	m.placed++
	return &ports.PlacedOrder{OrderID: "tp-1", Symbol: symbol, Price: price, Quantity: quantity}, nil
}

func (m *mockExchange) PlaceStopLoss(ctx context.Context, symbol string, quantity, stopPrice, limitPrice float64) (*ports.PlacedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLimits = append(m.stopLimits, limitPrice)
	if m.slErr != nil {
		return nil, m.slErr
	}
	m.placed++
	return &ports.PlacedOrder{OrderID: "sl-1", Symbol: symbol, Price: limitPrice, StopPrice: stopPrice, Quantity: quantity}, nil
}

func (m *mockExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (*ports.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.statusErrs[orderID]; err != nil {
		return nil, err
	}
	if st, ok := m.statuses[orderID]; ok {
		return st, nil
	}
	return &ports.OrderStatus{OrderID: orderID, Symbol: symbol, State: domain.OrderStateNew}, nil
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, orderID)
	return m.cancelErrs[orderID]
}

func (m *mockExchange) GetHourlyKlines(ctx context.Context, symbol string, start time.Time, limit int) ([]*domain.Kline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.klineCalls = append(m.klineCalls, start)
	return m.klines, m.klinesErr
}

func (m *mockExchange) setFilled(orderID string, price float64) {
	m.statuses[orderID] = &ports.OrderStatus{OrderID: orderID, State: domain.OrderStateFilled, Price: price}
}

type mockTradeRepo struct {
	mu        sync.Mutex
	trades    map[int64]*domain.Trade
	nextID    int64
	insertErr error
	closeErr  error
	listErr   error
	closes    []domain.TerminalTransition
}

func newMockTradeRepo() *mockTradeRepo {
	return &mockTradeRepo{trades: map[int64]*domain.Trade{}}
}

func (m *mockTradeRepo) InsertTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	trade.ID = m.nextID
	m.trades[trade.ID] = trade.Clone()
	return trade.ID, nil
}

func (m *mockTradeRepo) CloseTrade(ctx context.Context, id int64, tr domain.TerminalTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	t, ok := m.trades[id]
	if !ok {
		return fmt.Errorf("trade %d: %w", id, ports.ErrNotFound)
	}
	if err := t.Close(tr); err != nil {
		return err
	}
	m.closes = append(m.closes, tr)
	return nil
}

func (m *mockTradeRepo) ListActiveTrades(ctx context.Context) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.IsOpen() {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockTradeRepo) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trades[id]; ok {
		return t.Clone(), nil
	}
	return nil, nil
}

// seed stores an open trade as if it had been inserted earlier.
func (m *mockTradeRepo) seed(t *domain.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = t.Clone()
	if t.ID > m.nextID {
		m.nextID = t.ID
	}
}

type mockSymbolRepo struct {
	known  []string
	getErr error
	setErr error
	sets   [][]string
}

func (m *mockSymbolRepo) GetKnownSymbols(ctx context.Context) ([]string, error) {
	return m.known, m.getErr
}

func (m *mockSymbolRepo) SetKnownSymbols(ctx context.Context, symbols []string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets = append(m.sets, symbols)
	m.known = symbols
	return nil
}

type mockListingRepo struct {
	listings  []domain.Listing
	events    []*domain.ListingEvent
	recorded  []string
	recordErr error
	saveErr   error
}

func (m *mockListingRepo) RecordListing(ctx context.Context, symbol string, detectedAt time.Time) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recorded = append(m.recorded, symbol)
	return nil
}

func (m *mockListingRepo) ListListings(ctx context.Context, start, end time.Time) ([]domain.Listing, error) {
	return m.listings, nil
}

func (m *mockListingRepo) SaveListingEvent(ctx context.Context, ev *domain.ListingEvent) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockListingRepo) GetListingEvents(ctx context.Context, start, end time.Time) ([]*domain.ListingEvent, error) {
	return m.events, nil
}

type mockMetrics struct {
	mu          sync.Mutex
	detected    []string
	decisions   []string
	opened      []string
	closed      []string
	venueErrors []string
	active      int
	stranded    int
}

func (m *mockMetrics) ListingDetected(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detected = append(m.detected, symbol)
}

func (m *mockMetrics) EntryDecision(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, outcome)
}

func (m *mockMetrics) PositionOpened(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, symbol)
}

func (m *mockMetrics) PositionClosed(reason string, profitLossPercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, reason)
}

func (m *mockMetrics) VenueError(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venueErrors = append(m.venueErrors, operation)
}

func (m *mockMetrics) ActivePositions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

func (m *mockMetrics) StrandedPositions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stranded = n
}

func (m *mockMetrics) SimulationRun() {}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
