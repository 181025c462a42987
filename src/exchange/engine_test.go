package exchange

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// captureSink records events so tests can assert on the audit side channel.
type captureSink struct {
	NopSink
	trades       []Transaction
	priceChanges []string
}

func (s *captureSink) TradeExecuted(t Transaction) {
	s.trades = append(s.trades, t)
}

func (s *captureSink) PriceChanged(symbol string, _, _ decimal.Decimal) {
	s.priceChanges = append(s.priceChanges, symbol)
}

func newTestEngine() (*MatchingEngine, *OrderBook, *Instrument, *TransactionLedger, *OrderRegistry, *captureSink) {
	ledger := NewTransactionLedger()
	registry := NewOrderRegistry()
	sink := &captureSink{}
	engine := NewMatchingEngine(ledger, registry, sink)
	book := NewOrderBook("AAPL")
	inst := NewInstrument("AAPL", decimal.RequireFromString("100.00"))
	return engine, book, inst, ledger, registry, sink
}

func submitToBook(book *OrderBook, registry *OrderRegistry, o *Order) {
	registry.Register(o)
	book.Insert(o)
}

// Resting buy 10@150.00, then sell 10@149.00: one trade of 10 at the resting
// order's price, both orders filled and gone.
func TestFullMatchAtRestingPrice(t *testing.T) {
	engine, book, inst, ledger, registry, _ := newTestEngine()
	base := time.Now()

	buy := newTestOrder(SideBuy, "150.00", 10, base)
	sell := newTestOrder(SideSell, "149.00", 10, base.Add(time.Millisecond))
	submitToBook(book, registry, buy)
	trades := engine.MatchBook(book, inst)
	if len(trades) != 0 {
		t.Fatalf("Expected no trades with one side empty, got %d", len(trades))
	}
	submitToBook(book, registry, sell)
	trades = engine.MatchBook(book, inst)

	if len(trades) != 1 {
		t.Fatalf("Expected exactly 1 trade, got %d", len(trades))
	}
	trade := trades[0]
	if trade.Quantity != 10 {
		t.Errorf("Expected trade quantity 10, got %d", trade.Quantity)
	}
	if !trade.Price.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("Expected execution at resting price 150.00, got %s", trade.Price)
	}
	if trade.BuyOrderID != buy.ID || trade.SellOrderID != sell.ID {
		t.Errorf("Trade references wrong orders: buy %d sell %d", trade.BuyOrderID, trade.SellOrderID)
	}
	if !inst.LastPrice().Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("Expected last price 150.00, got %s", inst.LastPrice())
	}
	if buy.Status != StatusFilled || sell.Status != StatusFilled {
		t.Errorf("Expected both orders FILLED, got %s / %s", buy.Status, sell.Status)
	}
	if book.SideLen(SideBuy) != 0 || book.SideLen(SideSell) != 0 {
		t.Error("Expected an empty book after a full match")
	}
	if registry.Len() != 0 {
		t.Errorf("Expected an empty registry, got %d entries", registry.Len())
	}
	if ledger.Len() != 1 {
		t.Errorf("Expected 1 ledger entry, got %d", ledger.Len())
	}
}

// Buy 5@100.00 and sell 5@200.00 do not cross: both rest.
func TestNoCrossNoTrade(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	buy := newTestOrder(SideBuy, "100.00", 5, base)
	sell := newTestOrder(SideSell, "200.00", 5, base.Add(time.Millisecond))
	submitToBook(book, registry, buy)
	submitToBook(book, registry, sell)

	trades := engine.MatchBook(book, inst)
	if len(trades) != 0 {
		t.Fatalf("Expected no trades, got %d", len(trades))
	}
	if buy.Status != StatusActive || sell.Status != StatusActive {
		t.Errorf("Expected both orders ACTIVE, got %s / %s", buy.Status, sell.Status)
	}
	if book.SideLen(SideBuy) != 1 || book.SideLen(SideSell) != 1 {
		t.Error("Expected both orders resting")
	}
}

// Resting sell 10@50.00, aggressor buy 4@55.00: partial fill of 4 at 50.00,
// sell stays active with 6 remaining, buy is filled.
func TestPartialFill(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	sell := newTestOrder(SideSell, "50.00", 10, base)
	submitToBook(book, registry, sell)
	engine.MatchBook(book, inst)

	buy := newTestOrder(SideBuy, "55.00", 4, base.Add(time.Millisecond))
	submitToBook(book, registry, buy)
	trades := engine.MatchBook(book, inst)

	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].Quantity != 4 {
		t.Errorf("Expected trade quantity 4, got %d", trades[0].Quantity)
	}
	if !trades[0].Price.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("Expected execution at resting price 50.00, got %s", trades[0].Price)
	}
	if sell.Remaining != 6 || sell.Status != StatusActive {
		t.Errorf("Expected sell remaining 6 and ACTIVE, got %d %s", sell.Remaining, sell.Status)
	}
	if buy.Status != StatusFilled {
		t.Errorf("Expected buy FILLED, got %s", buy.Status)
	}
}

// One aggressor sweeping several resting levels produces one trade per fill,
// best prices first.
func TestSweepMultipleLevels(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	submitToBook(book, registry, newTestOrder(SideSell, "100.00", 3, base))
	submitToBook(book, registry, newTestOrder(SideSell, "101.00", 3, base.Add(time.Millisecond)))
	submitToBook(book, registry, newTestOrder(SideSell, "102.00", 3, base.Add(2*time.Millisecond)))
	engine.MatchBook(book, inst)

	buy := newTestOrder(SideBuy, "101.50", 7, base.Add(3*time.Millisecond))
	submitToBook(book, registry, buy)
	trades := engine.MatchBook(book, inst)

	if len(trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(trades))
	}
	if !trades[0].Price.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("Expected first trade at 100.00, got %s", trades[0].Price)
	}
	if !trades[1].Price.Equal(decimal.RequireFromString("101.00")) {
		t.Errorf("Expected second trade at 101.00, got %s", trades[1].Price)
	}
	if buy.Remaining != 1 || buy.Status != StatusActive {
		t.Errorf("Expected buy resting with 1 remaining, got %d %s", buy.Remaining, buy.Status)
	}
	// 102.00 ask must survive: 101.50 bid does not reach it
	if book.SideLen(SideSell) != 1 {
		t.Errorf("Expected 1 resting ask, got %d", book.SideLen(SideSell))
	}
}

// At equal prices the older resting order trades first.
func TestTimePriorityAtEqualPrice(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	first := newTestOrder(SideSell, "100.00", 5, base)
	second := newTestOrder(SideSell, "100.00", 5, base.Add(time.Millisecond))
	submitToBook(book, registry, first)
	submitToBook(book, registry, second)
	engine.MatchBook(book, inst)

	buy := newTestOrder(SideBuy, "100.00", 5, base.Add(2*time.Millisecond))
	submitToBook(book, registry, buy)
	trades := engine.MatchBook(book, inst)

	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].SellOrderID != first.ID {
		t.Errorf("Expected the older sell %d to trade, got %d", first.ID, trades[0].SellOrderID)
	}
	if second.Remaining != 5 {
		t.Errorf("Expected the younger sell untouched, remaining %d", second.Remaining)
	}
}

// A repeat trade at the current price must not count as a price change.
func TestPriceEpsilonSuppressesNoise(t *testing.T) {
	engine, book, inst, _, registry, sink := newTestEngine()
	base := time.Now()

	for i := 0; i < 2; i++ {
		sell := newTestOrder(SideSell, "150.00", 5, base.Add(time.Duration(i)*time.Millisecond))
		submitToBook(book, registry, sell)
		engine.MatchBook(book, inst)
		buy := newTestOrder(SideBuy, "150.00", 5, base.Add(time.Duration(i)*time.Millisecond+time.Microsecond))
		submitToBook(book, registry, buy)
		engine.MatchBook(book, inst)
	}

	if len(sink.trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(sink.trades))
	}
	if len(sink.priceChanges) != 1 {
		t.Errorf("Expected exactly 1 price change (100.00 -> 150.00), got %d", len(sink.priceChanges))
	}
	if !inst.LastPrice().Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("Expected last price 150.00, got %s", inst.LastPrice())
	}
}

// The same trader on both sides still trades: no self-trade prevention.
func TestSelfTradePermitted(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	sell := newTestOrder(SideSell, "100.00", 5, base)
	buy := newTestOrder(SideBuy, "100.00", 5, base.Add(time.Millisecond))
	submitToBook(book, registry, sell)
	submitToBook(book, registry, buy)

	trades := engine.MatchBook(book, inst)
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade between the same trader's orders, got %d", len(trades))
	}
	if trades[0].Buyer != trades[0].Seller {
		t.Errorf("Expected self-trade, got %s vs %s", trades[0].Buyer, trades[0].Seller)
	}
}

// After any matching pass: either a side is empty or bestBid < bestAsk.
func TestNoCrossInvariantAfterPass(t *testing.T) {
	engine, book, inst, _, registry, _ := newTestEngine()
	base := time.Now()

	prices := []string{"99.00", "101.00", "100.00", "102.00", "98.00", "100.50"}
	for i, p := range prices {
		side := SideBuy
		if i%2 == 0 {
			side = SideSell
		}
		submitToBook(book, registry, newTestOrder(side, p, 4, base.Add(time.Duration(i)*time.Millisecond)))
		engine.MatchBook(book, inst)

		bestBuy := book.PeekBest(SideBuy)
		bestSell := book.PeekBest(SideSell)
		if bestBuy != nil && bestSell != nil && bestBuy.Price.Cmp(bestSell.Price) >= 0 {
			t.Fatalf("Crossed book after pass %d: bid %s >= ask %s", i, bestBuy.Price, bestSell.Price)
		}
	}
}

func TestRestingOfPrefersEarlierSubmission(t *testing.T) {
	base := time.Now()
	buy := newTestOrder(SideBuy, "101.00", 5, base)
	sell := newTestOrder(SideSell, "100.00", 5, base.Add(time.Millisecond))

	if got := restingOf(buy, sell); got != buy {
		t.Errorf("Expected the earlier buy to be resting, got order %d", got.ID)
	}
	sell.SubmittedAt = buy.SubmittedAt.Add(-time.Millisecond)
	if got := restingOf(buy, sell); got != sell {
		t.Errorf("Expected the earlier sell to be resting, got order %d", got.ID)
	}
	// equal timestamps fall back to the lower (older) id
	sell.SubmittedAt = buy.SubmittedAt
	want := buy
	if sell.ID < buy.ID {
		want = sell
	}
	if got := restingOf(buy, sell); got != want {
		t.Errorf("Expected id tie-break to pick order %d, got %d", want.ID, got.ID)
	}
}
