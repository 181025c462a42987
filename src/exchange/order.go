package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderStatus string

const (
	StatusActive    OrderStatus = "ACTIVE"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order is a limit order resting in (or entering) an order book. The id is
// unique across all instruments and increases with submission order. Every
// mutable field is written only while holding the owning instrument's lock;
// external callers only ever see copies via OrderView.
type Order struct {
	ID          uint64
	Trader      string
	Symbol      string
	Side        Side
	Price       decimal.Decimal
	Quantity    int64 // original quantity, re-based on amend
	Remaining   int64
	SubmittedAt time.Time
	Status      OrderStatus
}

func (o *Order) filledQuantity() int64 {
	return o.Quantity - o.Remaining
}

// OrderView is a point-in-time copy of an order, safe to hand out.
type OrderView struct {
	ID          uint64          `json:"order_id"`
	Trader      string          `json:"trader"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Remaining   int64           `json:"remaining"`
	Status      OrderStatus     `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

func (o *Order) view() OrderView {
	return OrderView{
		ID:          o.ID,
		Trader:      o.Trader,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Price:       o.Price,
		Quantity:    o.Quantity,
		Remaining:   o.Remaining,
		Status:      o.Status,
		SubmittedAt: o.SubmittedAt,
	}
}
