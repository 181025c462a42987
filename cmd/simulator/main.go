package main

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"stock-exchange/src/agents"
	"stock-exchange/src/audit"
	"stock-exchange/src/exchange"
	"stock-exchange/src/logger"
)

// The simulation runs a fixed cast of buyers and sellers against a seeded
// exchange, then stops it and prints the end-of-run summary.
func main() {
	_ = godotenv.Load()

	logger.InitLogger()
	log := logger.GetLogger()

	auditDir := os.Getenv("AUDIT_DIR")
	if auditDir == "" {
		auditDir = "logs"
	}
	sink, err := audit.NewFileSink(auditDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", auditDir).Msg("Failed to open audit logs")
	}
	defer sink.Close()

	ex := exchange.NewExchange(sink)
	seed := map[string]float64{
		"AAPL":  178.50,
		"GOOGL": 141.80,
		"MSFT":  378.91,
		"TSLA":  242.84,
		"AMZN":  178.25,
		"NVDA":  495.22,
		"META":  512.32,
		"NFLX":  628.73,
	}
	for symbol, price := range seed {
		if err := ex.AddInstrument(symbol, decimal.NewFromFloat(price)); err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("Failed to seed instrument")
		}
	}

	ex.Start()
	log.Info().Int("instruments", len(seed)).Msg("Simulation started")

	ms := time.Millisecond
	traders := []agents.Config{
		{Name: "Buyer-Alice", Side: exchange.SideBuy, MinShares: 5, MaxShares: 50, MinDelay: 200 * ms, MaxDelay: 1000 * ms, MaxOrders: 8},
		{Name: "Buyer-Bob", Side: exchange.SideBuy, MinShares: 10, MaxShares: 100, MinDelay: 300 * ms, MaxDelay: 1200 * ms, MaxOrders: 7},
		{Name: "Buyer-Charlie", Side: exchange.SideBuy, MinShares: 3, MaxShares: 30, MinDelay: 150 * ms, MaxDelay: 800 * ms, MaxOrders: 10},
		{Name: "Buyer-Diana", Side: exchange.SideBuy, MinShares: 8, MaxShares: 60, MinDelay: 250 * ms, MaxDelay: 1100 * ms, MaxOrders: 9},
		{Name: "Buyer-Ethan", Side: exchange.SideBuy, MinShares: 15, MaxShares: 80, MinDelay: 400 * ms, MaxDelay: 1500 * ms, MaxOrders: 6},
		{Name: "Seller-Frank", Side: exchange.SideSell, MinShares: 5, MaxShares: 50, MinDelay: 250 * ms, MaxDelay: 1000 * ms, MaxOrders: 8},
		{Name: "Seller-Grace", Side: exchange.SideSell, MinShares: 10, MaxShares: 100, MinDelay: 350 * ms, MaxDelay: 1200 * ms, MaxOrders: 7},
		{Name: "Seller-Henry", Side: exchange.SideSell, MinShares: 3, MaxShares: 30, MinDelay: 200 * ms, MaxDelay: 800 * ms, MaxOrders: 10},
		{Name: "Seller-Ivy", Side: exchange.SideSell, MinShares: 8, MaxShares: 60, MinDelay: 300 * ms, MaxDelay: 1100 * ms, MaxOrders: 9},
		{Name: "Seller-Jack", Side: exchange.SideSell, MinShares: 15, MaxShares: 80, MinDelay: 450 * ms, MaxDelay: 1500 * ms, MaxOrders: 6},
	}

	var wg sync.WaitGroup
	for _, cfg := range traders {
		wg.Add(1)
		go func(cfg agents.Config) {
			defer wg.Done()
			agents.New(cfg, ex).Run()
		}(cfg)
	}
	wg.Wait()

	// let trailing matching passes settle before stopping
	time.Sleep(time.Second)
	ex.Stop()

	printSummary(ex)
}

func printSummary(ex *exchange.Exchange) {
	summary := ex.Summary()

	fmt.Println("SIMULATION SUMMARY")
	fmt.Printf("  Total transactions:  %d\n", summary.Transactions)
	fmt.Printf("  Resting buy orders:  %d\n", summary.RestingBuys)
	fmt.Printf("  Resting sell orders: %d\n", summary.RestingSells)

	fmt.Println("FINAL PRICES")
	instruments := summary.Instruments
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].Symbol < instruments[j].Symbol })
	for _, inst := range instruments {
		fmt.Printf("  %-6s $%s\n", inst.Symbol, inst.LastPrice.StringFixed(2))
	}
}
