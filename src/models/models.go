package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmitOrderRequest struct {
	Trader   string          `json:"trader"`
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID           uint64 `json:"order_id"`
	Status            string `json:"status"`
	RemainingQuantity int64  `json:"remaining_quantity"`
	Message           string `json:"message,omitempty"`
}

type AmendOrderRequest struct {
	Quantity int64 `json:"quantity"`
}

type AmendOrderResponse struct {
	OrderID  uint64 `json:"order_id"`
	Status   string `json:"status"`
	Quantity int64  `json:"quantity"`
}

type CancelOrderResponse struct {
	OrderID uint64 `json:"order_id"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OrderBookResponse struct {
	Symbol    string           `json:"symbol"`
	Timestamp int64            `json:"timestamp"` // unix milliseconds
	Bids      []PriceLevelInfo `json:"bids"`      // highest price first
	Asks      []PriceLevelInfo `json:"asks"`      // lowest price first
}

type PriceLevelInfo struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"` // aggregated remaining quantity
	Orders   int             `json:"orders"`
}

type OrderStatusResponse struct {
	OrderID           uint64          `json:"order_id"`
	Trader            string          `json:"trader"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	Status            string          `json:"status"`
	SubmittedAt       time.Time       `json:"submitted_at"`
}

type TradeInfo struct {
	Seq         uint64          `json:"seq"`
	TradeID     string          `json:"trade_id"`
	Symbol      string          `json:"symbol"`
	BuyOrderID  uint64          `json:"buy_order_id"`
	SellOrderID uint64          `json:"sell_order_id"`
	Buyer       string          `json:"buyer"`
	Seller      string          `json:"seller"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Timestamp   time.Time       `json:"timestamp"`
}

type TradeHistoryResponse struct {
	Symbol string      `json:"symbol,omitempty"`
	Trades []TradeInfo `json:"trades"`
}

type InstrumentInfo struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Running       bool   `json:"running"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	RestingOrders int64  `json:"resting_orders"`
}

type MetricsResponse struct {
	OrdersReceived         int64   `json:"orders_received"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	OrdersAmended          int64   `json:"orders_amended"`
	OrdersInBook           int64   `json:"orders_in_book"`
	TradesExecuted         int64   `json:"trades_executed"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
