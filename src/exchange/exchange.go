package exchange

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// instrumentBook pairs one instrument with its book and the lock that is the
// sole concurrency boundary for both. Submit, cancel and amend hold this lock
// for the insertion/removal plus the full matching pass it triggers. Operations
// on different instruments never contend.
type instrumentBook struct {
	mu         sync.Mutex
	instrument *Instrument
	book       *OrderBook
}

// Exchange is the public API and concurrency boundary of the matching core.
// All logic runs synchronously in the caller's goroutine; there is no
// background scheduler.
type Exchange struct {
	mu    sync.RWMutex // guards the books map; per-instrument state has its own lock
	books map[string]*instrumentBook

	registry *OrderRegistry
	ledger   *TransactionLedger
	engine   *MatchingEngine
	audit    AuditSink

	orderIDs atomic.Uint64
	running  atomic.Bool
}

func NewExchange(audit AuditSink) *Exchange {
	if audit == nil {
		audit = NopSink{}
	}
	registry := NewOrderRegistry()
	ledger := NewTransactionLedger()
	return &Exchange{
		books:    make(map[string]*instrumentBook),
		registry: registry,
		ledger:   ledger,
		engine:   NewMatchingEngine(ledger, registry, audit),
		audit:    audit,
	}
}

// AddInstrument seeds a tradable symbol with its initial price. Seeding is a
// bootstrap concern and is only allowed while the exchange is stopped.
func (e *Exchange) AddInstrument(symbol string, initialPrice decimal.Decimal) error {
	if e.running.Load() {
		return ErrExchangeRunning
	}
	if symbol == "" || initialPrice.Sign() <= 0 {
		return ErrInvalidOrder
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.books[symbol]; exists {
		return ErrInstrumentExists
	}
	e.books[symbol] = &instrumentBook{
		instrument: NewInstrument(symbol, initialPrice),
		book:       NewOrderBook(symbol),
	}
	return nil
}

func (e *Exchange) lookupBook(symbol string) *instrumentBook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.books[symbol]
}

// SubmitOrder validates and books a new limit order, then runs the matching
// pass for its instrument before returning. The returned id can be used to
// cancel or amend the order for as long as it rests.
func (e *Exchange) SubmitOrder(trader, symbol string, side Side, quantity int64, limitPrice decimal.Decimal) (uint64, error) {
	if !e.running.Load() {
		return 0, ErrExchangeClosed
	}
	if trader == "" || (side != SideBuy && side != SideSell) {
		return 0, ErrInvalidOrder
	}
	if quantity <= 0 || limitPrice.Sign() <= 0 {
		return 0, ErrInvalidOrder
	}
	ib := e.lookupBook(symbol)
	if ib == nil {
		return 0, ErrUnknownInstrument
	}

	ib.mu.Lock()
	defer ib.mu.Unlock()

	order := &Order{
		ID:          e.orderIDs.Add(1),
		Trader:      trader,
		Symbol:      symbol,
		Side:        side,
		Price:       limitPrice,
		Quantity:    quantity,
		Remaining:   quantity,
		SubmittedAt: time.Now(),
		Status:      StatusActive,
	}
	e.registry.Register(order)
	ib.book.Insert(order)
	e.audit.OrderSubmitted(order.view())

	e.engine.MatchBook(ib.book, ib.instrument)
	return order.ID, nil
}

// CancelOrder removes a resting order. A cancel racing a fill is resolved by
// the instrument lock: whichever gets there first wins, and the loser sees
// ErrOrderNotFound with no partial state.
func (e *Exchange) CancelOrder(id uint64) (bool, error) {
	if !e.running.Load() {
		return false, ErrExchangeClosed
	}
	order, ok := e.registry.Lookup(id)
	if !ok {
		return false, ErrOrderNotFound
	}
	ib := e.lookupBook(order.Symbol)
	if ib == nil {
		return false, ErrOrderNotFound
	}

	ib.mu.Lock()
	defer ib.mu.Unlock()

	// The order may have filled between the lookup and the lock.
	if _, ok := e.registry.Lookup(id); !ok {
		return false, ErrOrderNotFound
	}
	ib.book.Remove(order)
	e.registry.Unregister(id)
	order.Status = StatusCancelled
	e.audit.OrderCancelled(order.view())
	return true, nil
}

// AmendOrder changes a resting order's quantity. A decrease applies in place
// and keeps time priority; an increase is new exposure, so the order is
// re-timestamped and requeued behind everything at its price. The matching
// pass re-runs before returning either way.
func (e *Exchange) AmendOrder(id uint64, newQuantity int64) (bool, error) {
	if !e.running.Load() {
		return false, ErrExchangeClosed
	}
	if newQuantity <= 0 {
		return false, ErrInvalidOrder
	}
	order, ok := e.registry.Lookup(id)
	if !ok {
		return false, ErrOrderNotFound
	}
	ib := e.lookupBook(order.Symbol)
	if ib == nil {
		return false, ErrOrderNotFound
	}

	ib.mu.Lock()
	defer ib.mu.Unlock()

	if _, ok := e.registry.Lookup(id); !ok {
		return false, ErrOrderNotFound
	}

	oldQuantity := order.Remaining
	filled := order.filledQuantity()
	switch {
	case newQuantity == order.Remaining:
		// nothing to do, priority untouched
	case newQuantity < order.Remaining:
		order.Remaining = newQuantity
		order.Quantity = filled + newQuantity
	default:
		ib.book.Remove(order)
		order.Remaining = newQuantity
		order.Quantity = filled + newQuantity
		order.SubmittedAt = time.Now()
		ib.book.Insert(order)
	}
	e.audit.OrderAmended(order.view(), oldQuantity, newQuantity)

	e.engine.MatchBook(ib.book, ib.instrument)
	return true, nil
}

// GetOrder returns a copy of a live order, read under its instrument lock.
// Filled and cancelled orders are gone from the registry and report false.
func (e *Exchange) GetOrder(id uint64) (OrderView, bool) {
	order, ok := e.registry.Lookup(id)
	if !ok {
		return OrderView{}, false
	}
	ib := e.lookupBook(order.Symbol)
	if ib == nil {
		return OrderView{}, false
	}
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if _, ok := e.registry.Lookup(id); !ok {
		return OrderView{}, false
	}
	return order.view(), true
}

// OrderBookSnapshot returns both sides of an instrument's book in matching
// order: best price first, oldest first within a price.
func (e *Exchange) OrderBookSnapshot(symbol string) (buys, sells []OrderView, err error) {
	ib := e.lookupBook(symbol)
	if ib == nil {
		return nil, nil, ErrUnknownInstrument
	}
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.book.SideOrders(SideBuy), ib.book.SideOrders(SideSell), nil
}

// BookLevels aggregates both sides of the book into at most depth price levels
// per side.
func (e *Exchange) BookLevels(symbol string, depth int) (bids, asks []LevelView, err error) {
	ib := e.lookupBook(symbol)
	if ib == nil {
		return nil, nil, ErrUnknownInstrument
	}
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.book.Levels(SideBuy, depth), ib.book.Levels(SideSell, depth), nil
}

// TransactionHistory snapshots the full global trade history in seq order.
func (e *Exchange) TransactionHistory() []Transaction {
	return e.ledger.All()
}

// TransactionHistoryFor snapshots one instrument's trade history.
func (e *Exchange) TransactionHistoryFor(symbol string) []Transaction {
	return e.ledger.BySymbol(symbol)
}

func (e *Exchange) Instruments() []InstrumentView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]InstrumentView, 0, len(e.books))
	for _, ib := range e.books {
		out = append(out, ib.instrument.view())
	}
	return out
}

func (e *Exchange) Instrument(symbol string) (InstrumentView, bool) {
	ib := e.lookupBook(symbol)
	if ib == nil {
		return InstrumentView{}, false
	}
	return ib.instrument.view(), true
}

func (e *Exchange) Start() {
	if e.running.CompareAndSwap(false, true) {
		e.audit.ExchangeEvent("exchange started")
	}
}

// Stop rejects all further mutating operations. In-flight calls that already
// passed the running check drain under their instrument locks.
func (e *Exchange) Stop() {
	if e.running.CompareAndSwap(true, false) {
		e.audit.ExchangeEvent("exchange stopped")
	}
}

func (e *Exchange) IsRunning() bool {
	return e.running.Load()
}

// Summary totals the exchange state: used by the metrics endpoint and the
// simulator's end-of-run report.
type Summary struct {
	Transactions int              `json:"transactions"`
	RestingBuys  int              `json:"resting_buy_orders"`
	RestingSells int              `json:"resting_sell_orders"`
	Instruments  []InstrumentView `json:"instruments"`
}

func (e *Exchange) Summary() Summary {
	e.mu.RLock()
	books := make([]*instrumentBook, 0, len(e.books))
	for _, ib := range e.books {
		books = append(books, ib)
	}
	e.mu.RUnlock()

	s := Summary{Transactions: e.ledger.Len()}
	for _, ib := range books {
		ib.mu.Lock()
		s.RestingBuys += ib.book.SideLen(SideBuy)
		s.RestingSells += ib.book.SideLen(SideSell)
		s.Instruments = append(s.Instruments, ib.instrument.view())
		ib.mu.Unlock()
	}
	return s
}
