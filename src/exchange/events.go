package exchange

import "github.com/shopspring/decimal"

// AuditSink consumes the lifecycle events the exchange emits as a side channel:
// order submitted/cancelled/amended, executed trades, and price changes. Every
// call happens synchronously under the instrument lock that produced the event,
// so implementations must not block on I/O they cannot bound.
type AuditSink interface {
	OrderSubmitted(o OrderView)
	OrderCancelled(o OrderView)
	OrderAmended(o OrderView, oldQuantity, newQuantity int64)
	TradeExecuted(t Transaction)
	PriceChanged(symbol string, oldPrice, newPrice decimal.Decimal)
	ExchangeEvent(event string)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) OrderSubmitted(OrderView)                            {}
func (NopSink) OrderCancelled(OrderView)                            {}
func (NopSink) OrderAmended(OrderView, int64, int64)                {}
func (NopSink) TradeExecuted(Transaction)                           {}
func (NopSink) PriceChanged(string, decimal.Decimal, decimal.Decimal) {}
func (NopSink) ExchangeEvent(string)                                {}
