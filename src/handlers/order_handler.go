package handlers

import (
	"errors"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"stock-exchange/src/exchange"
	"stock-exchange/src/models"
)

type OrderHandler struct {
	Exchange        *exchange.Exchange
	StartTime       time.Time
	OrdersReceived  int64
	OrdersCancelled int64
	OrdersAmended   int64
	TradesExecuted  int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewOrderHandler(ex *exchange.Exchange) *OrderHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &OrderHandler{
		Exchange:     ex,
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

// statusFromErr maps the exchange's error taxonomy onto HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, exchange.ErrInvalidOrder):
		return fiber.StatusBadRequest
	case errors.Is(err, exchange.ErrUnknownInstrument), errors.Is(err, exchange.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, exchange.ErrExchangeClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	side := exchange.Side(req.Side)

	log.Info().
		Str("trader", req.Trader).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Str("price", req.Price.String()).
		Int64("quantity", req.Quantity).
		Str("ip", c.IP()).
		Msg("Order submitted")

	atomic.AddInt64(&h.OrdersReceived, 1)

	startTime := time.Now()
	orderID, err := h.Exchange.SubmitOrder(req.Trader, req.Symbol, side, req.Quantity, req.Price)
	h.recordLatency(time.Since(startTime))

	if err != nil {
		log.Warn().
			Err(err).
			Str("trader", req.Trader).
			Str("symbol", req.Symbol).
			Msg("Order rejected")
		return c.Status(statusFromErr(err)).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	// A fully filled order is already gone from the registry; an order that
	// still resolves is resting either untouched or partially filled.
	response := models.SubmitOrderResponse{OrderID: orderID}
	if view, ok := h.Exchange.GetOrder(orderID); ok {
		response.Status = string(view.Status)
		response.RemainingQuantity = view.Remaining
		response.Message = "Order resting in book"
	} else {
		response.Status = string(exchange.StatusFilled)
	}

	log.Info().
		Uint64("order_id", orderID).
		Str("status", response.Status).
		Int64("remaining_quantity", response.RemainingQuantity).
		Msg("Order processed")

	if response.Status == string(exchange.StatusFilled) {
		return c.Status(fiber.StatusOK).JSON(response)
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	ok, err := h.Exchange.CancelOrder(orderID)
	if err != nil || !ok {
		log.Warn().
			Uint64("order_id", orderID).
			Str("ip", c.IP()).
			Msg("Cancel order: order not found")
		return c.Status(statusFromErr(err)).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	atomic.AddInt64(&h.OrdersCancelled, 1)

	log.Info().
		Uint64("order_id", orderID).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID: orderID,
		Status:  string(exchange.StatusCancelled),
	})
}

func (h *OrderHandler) AmendOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	var req models.AmendOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	ok, err := h.Exchange.AmendOrder(orderID, req.Quantity)
	if err != nil || !ok {
		log.Warn().
			Err(err).
			Uint64("order_id", orderID).
			Int64("quantity", req.Quantity).
			Msg("Amend order rejected")
		return c.Status(statusFromErr(err)).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	atomic.AddInt64(&h.OrdersAmended, 1)

	log.Info().
		Uint64("order_id", orderID).
		Int64("quantity", req.Quantity).
		Msg("Order amended")

	return c.Status(fiber.StatusOK).JSON(models.AmendOrderResponse{
		OrderID:  orderID,
		Status:   string(exchange.StatusActive),
		Quantity: req.Quantity,
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	view, ok := h.Exchange.GetOrder(orderID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:           view.ID,
		Trader:            view.Trader,
		Symbol:            view.Symbol,
		Side:              string(view.Side),
		Price:             view.Price,
		Quantity:          view.Quantity,
		RemainingQuantity: view.Remaining,
		Status:            string(view.Status),
		SubmittedAt:       view.SubmittedAt,
	})
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	defaultDepth := 10
	if envDepth := os.Getenv("ORDERBOOK_DEFAULT_DEPTH"); envDepth != "" {
		if parsed, err := strconv.Atoi(envDepth); err == nil && parsed > 0 {
			defaultDepth = parsed
		}
	}

	maxDepth := 1000
	if envMaxDepth := os.Getenv("ORDERBOOK_MAX_DEPTH"); envMaxDepth != "" {
		if parsed, err := strconv.Atoi(envMaxDepth); err == nil && parsed > 0 {
			maxDepth = parsed
		}
	}

	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(defaultDepth)))
	if err != nil || depth <= 0 {
		depth = defaultDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	bidLevels, askLevels, err := h.Exchange.BookLevels(symbol, depth)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	bids := make([]models.PriceLevelInfo, 0, len(bidLevels))
	for _, level := range bidLevels {
		bids = append(bids, models.PriceLevelInfo{
			Price:    level.Price,
			Quantity: level.Quantity,
			Orders:   level.Orders,
		})
	}

	asks := make([]models.PriceLevelInfo, 0, len(askLevels))
	for _, level := range askLevels {
		asks = append(asks, models.PriceLevelInfo{
			Price:    level.Price,
			Quantity: level.Quantity,
			Orders:   level.Orders,
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Symbol:    symbol,
		Timestamp: time.Now().UnixMilli(),
		Bids:      bids,
		Asks:      asks,
	})
}

func (h *OrderHandler) GetTrades(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	var history []exchange.Transaction
	if symbol == "" {
		history = h.Exchange.TransactionHistory()
	} else {
		history = h.Exchange.TransactionHistoryFor(symbol)
	}

	trades := make([]models.TradeInfo, 0, len(history))
	for _, t := range history {
		trades = append(trades, models.TradeInfo{
			Seq:         t.Seq,
			TradeID:     t.TradeID,
			Symbol:      t.Symbol,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Buyer:       t.Buyer,
			Seller:      t.Seller,
			Price:       t.Price,
			Quantity:    t.Quantity,
			Timestamp:   t.Timestamp,
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.TradeHistoryResponse{
		Symbol: symbol,
		Trades: trades,
	})
}

func (h *OrderHandler) GetInstruments(c *fiber.Ctx) error {
	views := h.Exchange.Instruments()
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })

	instruments := make([]models.InstrumentInfo, 0, len(views))
	for _, v := range views {
		instruments = append(instruments, models.InstrumentInfo{
			Symbol:    v.Symbol,
			LastPrice: v.LastPrice,
		})
	}
	return c.Status(fiber.StatusOK).JSON(instruments)
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	summary := h.Exchange.Summary()

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        "healthy",
		Running:       h.Exchange.IsRunning(),
		UptimeSeconds: int64(time.Since(h.StartTime).Seconds()),
		RestingOrders: int64(summary.RestingBuys + summary.RestingSells),
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	summary := h.Exchange.Summary()
	p50, p99 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         atomic.LoadInt64(&h.OrdersReceived),
		OrdersCancelled:        atomic.LoadInt64(&h.OrdersCancelled),
		OrdersAmended:          atomic.LoadInt64(&h.OrdersAmended),
		OrdersInBook:           int64(summary.RestingBuys + summary.RestingSells),
		TradesExecuted:         int64(summary.Transactions),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		ThroughputOrdersPerSec: h.calculateThroughput(),
	})
}

func (h *OrderHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// rolling window: drop the oldest measurements
	if len(h.latencies) > h.maxLatencies {
		removeCount := len(h.latencies) - h.maxLatencies
		h.latencies = h.latencies[removeCount:]
	}
}

func (h *OrderHandler) calculateLatencyPercentiles() (p50, p99 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0
	}

	latenciesCopy := make([]time.Duration, len(h.latencies))
	copy(latenciesCopy, h.latencies)

	sort.Slice(latenciesCopy, func(i, j int) bool {
		return latenciesCopy[i] < latenciesCopy[j]
	})

	idx := func(q float64) int {
		i := int(float64(len(latenciesCopy)) * q)
		if i >= len(latenciesCopy) {
			i = len(latenciesCopy) - 1
		}
		return i
	}

	p50 = float64(latenciesCopy[idx(0.50)].Nanoseconds()) / 1e6
	p99 = float64(latenciesCopy[idx(0.99)].Nanoseconds()) / 1e6
	return p50, p99
}

func (h *OrderHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&h.OrdersReceived)) / uptime
}
