package agents_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange/src/agents"
	"stock-exchange/src/exchange"
)

func newTestExchange(t *testing.T) *exchange.Exchange {
	t.Helper()
	ex := exchange.NewExchange(nil)
	if err := ex.AddInstrument("AAPL", decimal.RequireFromString("100.00")); err != nil {
		t.Fatalf("Failed to seed instrument: %v", err)
	}
	ex.Start()
	return ex
}

func fastConfig(name string, side exchange.Side, maxOrders int) agents.Config {
	return agents.Config{
		Name:      name,
		Side:      side,
		MinShares: 1,
		MaxShares: 10,
		MinDelay:  time.Microsecond,
		MaxDelay:  10 * time.Microsecond,
		MaxOrders: maxOrders,
	}
}

func TestTraderRespectsMaxOrders(t *testing.T) {
	ex := newTestExchange(t)

	trader := agents.New(fastConfig("Buyer-Test", exchange.SideBuy, 25), ex)
	trader.Run()

	summary := ex.Summary()
	// a buyer alone never trades, so every placed order rests unless it
	// cancelled some of its own
	if summary.RestingBuys > 25 {
		t.Errorf("Trader placed more than its MaxOrders: %d resting", summary.RestingBuys)
	}
	if summary.RestingBuys == 0 {
		t.Error("Expected the trader to place at least one order")
	}
	if summary.Transactions != 0 {
		t.Errorf("A single buyer should not trade, got %d transactions", summary.Transactions)
	}
}

func TestTraderStopsWhenExchangeStops(t *testing.T) {
	ex := newTestExchange(t)

	cfg := fastConfig("Buyer-Test", exchange.SideBuy, 1_000_000)
	cfg.MinDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	trader := agents.New(cfg, ex)

	done := make(chan struct{})
	go func() {
		trader.Run()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	ex.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Trader did not stop after the exchange stopped")
	}
}

func TestOpposingTradersProduceTrades(t *testing.T) {
	ex := newTestExchange(t)

	buyer := agents.New(fastConfig("Buyer-Test", exchange.SideBuy, 50), ex)
	seller := agents.New(fastConfig("Seller-Test", exchange.SideSell, 50), ex)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); buyer.Run() }()
	go func() { defer wg.Done(); seller.Run() }()
	wg.Wait()

	// prices jitter around the same last price, so opposing flows cross
	if ex.Summary().Transactions == 0 {
		t.Error("Expected opposing traders to produce at least one trade")
	}

	for _, tr := range ex.TransactionHistory() {
		if tr.Buyer != "Buyer-Test" || tr.Seller != "Seller-Test" {
			t.Errorf("Unexpected counterparties %s/%s", tr.Buyer, tr.Seller)
		}
	}
}
