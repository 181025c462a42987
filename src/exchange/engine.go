package exchange

import (
	"time"

	"github.com/google/uuid"
)

// MatchingEngine crosses the two sides of an order book until no cross
// remains. It owns no locks of its own: every call runs under the instrument
// lock held by the facade, which makes the book, the registry entries and the
// instrument price a single consistent unit for the duration of a pass.
type MatchingEngine struct {
	ledger   *TransactionLedger
	registry *OrderRegistry
	audit    AuditSink
}

func NewMatchingEngine(ledger *TransactionLedger, registry *OrderRegistry, audit AuditSink) *MatchingEngine {
	return &MatchingEngine{ledger: ledger, registry: registry, audit: audit}
}

// MatchBook runs one matching pass: while the best bid prices at or above the
// best ask, trade them at the resting order's limit price, oldest first at
// equal prices. Each iteration strictly reduces the remaining quantity on at
// least one side, so the loop terminates. On return either side is empty or
// bestBid < bestAsk.
func (e *MatchingEngine) MatchBook(book *OrderBook, inst *Instrument) []Transaction {
	var trades []Transaction

	for {
		buy := book.PeekBest(SideBuy)
		sell := book.PeekBest(SideSell)
		if buy == nil || sell == nil {
			break
		}
		if buy.Price.Cmp(sell.Price) < 0 {
			break
		}

		qty := min(buy.Remaining, sell.Remaining)
		price := restingOf(buy, sell).Price

		buy.Remaining -= qty
		sell.Remaining -= qty

		tx := Transaction{
			Seq:         e.ledger.NextSeq(),
			TradeID:     uuid.New().String(),
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Buyer:       buy.Trader,
			Seller:      sell.Trader,
			Symbol:      book.Symbol(),
			Quantity:    qty,
			Price:       price,
			Timestamp:   time.Now(),
		}
		e.ledger.Append(tx)
		trades = append(trades, tx)
		e.audit.TradeExecuted(tx)

		for _, o := range [2]*Order{buy, sell} {
			if o.Remaining == 0 {
				o.Status = StatusFilled
				book.Remove(o)
				e.registry.Unregister(o.ID)
			}
		}

		if old, changed := inst.setLastPrice(price); changed {
			e.audit.PriceChanged(inst.Symbol(), old, price)
		}
	}

	return trades
}

// restingOf picks the passive side of a cross: whichever order entered the
// book earlier. Submission timestamps can collide, in which case the lower id
// is older (ids increase with submission).
func restingOf(buy, sell *Order) *Order {
	if buy.SubmittedAt.Before(sell.SubmittedAt) {
		return buy
	}
	if sell.SubmittedAt.Before(buy.SubmittedAt) {
		return sell
	}
	if buy.ID < sell.ID {
		return buy
	}
	return sell
}
