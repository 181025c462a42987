package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"stock-exchange/src/audit"
	"stock-exchange/src/exchange"
	"stock-exchange/src/handlers"
	"stock-exchange/src/logger"
	"stock-exchange/src/routes"
)

// defaultInstruments seeds the exchange when INSTRUMENTS is not set.
var defaultInstruments = map[string]string{
	"AAPL":  "178.50",
	"GOOGL": "141.80",
	"MSFT":  "378.91",
	"TSLA":  "242.84",
	"AMZN":  "178.25",
	"NVDA":  "495.22",
	"META":  "512.32",
	"NFLX":  "628.73",
}

func main() {
	_ = godotenv.Load()

	logger.InitLogger()
	log := logger.GetLogger()

	log.Info().Msg("Initializing Stock Exchange")

	auditDir := os.Getenv("AUDIT_DIR")
	if auditDir == "" {
		auditDir = "logs"
	}
	sink, err := audit.NewFileSink(auditDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", auditDir).Msg("Failed to open audit logs")
	}

	ex := exchange.NewExchange(sink)
	if err := seedInstruments(ex); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed instruments")
	}
	ex.Start()

	orderHandler := handlers.NewOrderHandler(ex)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler)

	port := ":8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = ":" + envPort
	}

	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			if err.Error() != "server is shutting down" {
				serverError <- err
			}
		}
	}()

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PORT=3000 go run main.go").
			Msg("Server failed to start")
	default:
		log.Info().
			Str("port", port).
			Int("instruments", len(ex.Instruments())).
			Msg("Stock Exchange started")

		log.Info().
			Strs("endpoints", []string{
				"POST   /api/v1/orders",
				"DELETE /api/v1/orders/:id",
				"PATCH  /api/v1/orders/:id",
				"GET    /api/v1/orders/:id",
				"GET    /api/v1/orderbook/:symbol",
				"GET    /api/v1/trades",
				"GET    /api/v1/instruments",
				"GET    /health",
				"GET    /metrics",
			}).
			Msg("API endpoints registered")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info().Msg("Received shutdown signal, shutting down...")

	shutdownTimeout := 10 * time.Second
	if envTimeout := os.Getenv("SHUTDOWN_TIMEOUT"); envTimeout != "" {
		if parsed, err := time.ParseDuration(envTimeout); err == nil && parsed > 0 {
			shutdownTimeout = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", shutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}

	ex.Stop()
	summary := ex.Summary()
	log.Info().
		Int("transactions", summary.Transactions).
		Int("resting_buy_orders", summary.RestingBuys).
		Int("resting_sell_orders", summary.RestingSells).
		Msg("Final exchange state")

	if err := sink.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing audit logs")
	}
	logger.CloseLogger()
}

// seedInstruments reads SYMBOL:price pairs from INSTRUMENTS (comma separated),
// falling back to the built-in list.
func seedInstruments(ex *exchange.Exchange) error {
	seeds := defaultInstruments
	if env := os.Getenv("INSTRUMENTS"); env != "" {
		seeds = make(map[string]string)
		for _, pair := range strings.Split(env, ",") {
			parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
			if len(parts) != 2 {
				continue
			}
			seeds[strings.ToUpper(parts[0])] = parts[1]
		}
	}
	for symbol, priceStr := range seeds {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return err
		}
		if err := ex.AddInstrument(symbol, price); err != nil {
			return err
		}
	}
	return nil
}
