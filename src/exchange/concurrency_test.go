package exchange_test

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"stock-exchange/src/exchange"
)

// Hammers one instrument from many goroutines and checks that the book comes
// out consistent: no crossed prices, every share accounted for.
func TestConcurrentSubmitsSingleInstrument(t *testing.T) {
	ex := newRunningExchange(t, "AAPL")

	const workers = 8
	const ordersPerWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			trader := fmt.Sprintf("trader-%d", w)
			for i := 0; i < ordersPerWorker; i++ {
				side := exchange.SideBuy
				if rng.Intn(2) == 1 {
					side = exchange.SideSell
				}
				p := decimal.NewFromInt(int64(95 + rng.Intn(11)))
				if _, err := ex.SubmitOrder(trader, "AAPL", side, int64(1+rng.Intn(20)), p); err != nil {
					t.Errorf("Submit failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	buys, sells, err := ex.OrderBookSnapshot("AAPL")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(buys) > 0 && len(sells) > 0 {
		bestBid := buys[0].Price
		bestAsk := sells[0].Price
		if bestBid.GreaterThanOrEqual(bestAsk) {
			t.Errorf("Book left crossed: best bid %s >= best ask %s", bestBid, bestAsk)
		}
	}

	// every submitted share is either traded or resting
	var traded, resting int64
	for _, tr := range ex.TransactionHistory() {
		traded += tr.Quantity
	}
	for _, o := range buys {
		resting += o.Remaining
	}
	for _, o := range sells {
		resting += o.Remaining
	}
	summary := ex.Summary()
	if summary.RestingBuys != len(buys) || summary.RestingSells != len(sells) {
		t.Errorf("Summary disagrees with snapshot: %d/%d vs %d/%d",
			summary.RestingBuys, summary.RestingSells, len(buys), len(sells))
	}
	if traded == 0 {
		t.Error("Expected at least one trade across 400 overlapping orders")
	}
	if resting == 0 && summary.Transactions == 0 {
		t.Error("Exchange swallowed every order without a trace")
	}
}

// Instruments lock independently: trades on one symbol never reference another.
func TestConcurrentInstrumentIsolation(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "TSLA", "NVDA"}
	ex := newRunningExchange(t, symbols...)

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				_, _ = ex.SubmitOrder("seller", symbol, exchange.SideSell, 2, price("100.00"))
				_, _ = ex.SubmitOrder("buyer", symbol, exchange.SideBuy, 2, price("100.00"))
			}
		}(symbol)
	}
	wg.Wait()

	for _, symbol := range symbols {
		trades := ex.TransactionHistoryFor(symbol)
		if len(trades) != 40 {
			t.Errorf("%s: expected 40 trades, got %d", symbol, len(trades))
		}
		for _, tr := range trades {
			if tr.Symbol != symbol {
				t.Errorf("%s history contains trade for %s", symbol, tr.Symbol)
			}
		}
	}
}

// A cancel racing a matching fill must land exactly one way: either the cancel
// wins and no trade happens, or the fill wins and the cancel reports not found.
func TestConcurrentCancelAgainstFill(t *testing.T) {
	ex := newRunningExchange(t, "AAPL")

	for i := 0; i < 100; i++ {
		id, err := ex.SubmitOrder("alice", "AAPL", exchange.SideSell, 1, price("100.00"))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		var wg sync.WaitGroup
		var cancelled bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			ok, err := ex.CancelOrder(id)
			if err != nil && !errors.Is(err, exchange.ErrOrderNotFound) {
				t.Errorf("Unexpected cancel error: %v", err)
			}
			cancelled = ok
		}()
		go func() {
			defer wg.Done()
			if _, err := ex.SubmitOrder("bob", "AAPL", exchange.SideBuy, 1, price("100.00")); err != nil {
				t.Errorf("Submit failed: %v", err)
			}
		}()
		wg.Wait()

		// exactly one of the two outcomes per round
		_, stillLive := ex.GetOrder(id)
		if cancelled && stillLive {
			t.Fatal("Order reported cancelled but is still live")
		}
		if !cancelled && stillLive {
			t.Fatal("Cancel lost the race but the order never filled")
		}

		// drain the buy if it rested so the next round starts clean
		buys, _, _ := ex.OrderBookSnapshot("AAPL")
		for _, o := range buys {
			_, _ = ex.CancelOrder(o.ID)
		}
	}

	// after every round either the sell traded or it was cancelled, so the
	// book must be empty now
	buys, sells, _ := ex.OrderBookSnapshot("AAPL")
	if len(buys) != 0 || len(sells) != 0 {
		t.Errorf("Expected an empty book, got %d buys and %d sells", len(buys), len(sells))
	}
}
