package exchange

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// priceLevel is the FIFO queue of resting orders at one price. Insertion order
// of the linked map is the time priority at that price.
type priceLevel struct {
	price  decimal.Decimal
	orders *linkedhashmap.Map // order id -> *Order
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price, orders: linkedhashmap.New()}
}

func (pl *priceLevel) oldest() *Order {
	it := pl.orders.Iterator()
	if !it.First() {
		return nil
	}
	return it.Value().(*Order)
}

func (pl *priceLevel) totalRemaining() int64 {
	var total int64
	it := pl.orders.Iterator()
	for it.Next() {
		total += it.Value().(*Order).Remaining
	}
	return total
}

type bidLevel struct {
	*priceLevel
}

// Less inverts the comparison so tree.Min() is the highest bid.
func (l *bidLevel) Less(than btree.Item) bool {
	return l.price.Cmp(than.(*bidLevel).price) > 0
}

type askLevel struct {
	*priceLevel
}

func (l *askLevel) Less(than btree.Item) bool {
	return l.price.Cmp(than.(*askLevel).price) < 0
}

func levelOf(item btree.Item) *priceLevel {
	switch it := item.(type) {
	case *bidLevel:
		return it.priceLevel
	case *askLevel:
		return it.priceLevel
	}
	return nil
}

// OrderBook holds the resting active orders for one instrument, one price-level
// tree per side. It is pure ordered storage: no matching happens here, and it
// is not safe for concurrent use on its own — the owning instrument's lock
// serializes all access.
type OrderBook struct {
	symbol string
	bids   *btree.BTree // Min() = highest price
	asks   *btree.BTree // Min() = lowest price
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   btree.New(32),
		asks:   btree.New(32),
	}
}

func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

func (ob *OrderBook) probe(side Side, price decimal.Decimal) (*btree.BTree, btree.Item) {
	pl := &priceLevel{price: price}
	if side == SideBuy {
		return ob.bids, &bidLevel{pl}
	}
	return ob.asks, &askLevel{pl}
}

// Insert adds the order to its side, behind any earlier orders at the same price.
func (ob *OrderBook) Insert(o *Order) {
	tree, probe := ob.probe(o.Side, o.Price)
	var pl *priceLevel
	if item := tree.Get(probe); item != nil {
		pl = levelOf(item)
	} else {
		pl = newPriceLevel(o.Price)
		if o.Side == SideBuy {
			tree.ReplaceOrInsert(&bidLevel{pl})
		} else {
			tree.ReplaceOrInsert(&askLevel{pl})
		}
	}
	pl.orders.Put(o.ID, o)
}

// PeekBest returns the best-priced, then oldest, order on a side without
// removing it, or nil when the side is empty.
func (ob *OrderBook) PeekBest(side Side) *Order {
	tree := ob.bids
	if side == SideSell {
		tree = ob.asks
	}
	item := tree.Min()
	if item == nil {
		return nil
	}
	return levelOf(item).oldest()
}

// Remove takes a specific order out of the book, dropping its price level when
// it empties. Reports whether the order was present.
func (ob *OrderBook) Remove(o *Order) bool {
	tree, probe := ob.probe(o.Side, o.Price)
	item := tree.Get(probe)
	if item == nil {
		return false
	}
	pl := levelOf(item)
	if _, ok := pl.orders.Get(o.ID); !ok {
		return false
	}
	pl.orders.Remove(o.ID)
	if pl.orders.Size() == 0 {
		tree.Delete(probe)
	}
	return true
}

// SideOrders returns copies of every resting order on a side in matching order:
// best price first, oldest first within a price.
func (ob *OrderBook) SideOrders(side Side) []OrderView {
	tree := ob.bids
	if side == SideSell {
		tree = ob.asks
	}
	out := make([]OrderView, 0)
	tree.Ascend(func(item btree.Item) bool {
		it := levelOf(item).orders.Iterator()
		for it.Next() {
			out = append(out, it.Value().(*Order).view())
		}
		return true
	})
	return out
}

// SideLen counts resting orders on a side.
func (ob *OrderBook) SideLen(side Side) int {
	tree := ob.bids
	if side == SideSell {
		tree = ob.asks
	}
	n := 0
	tree.Ascend(func(item btree.Item) bool {
		n += levelOf(item).orders.Size()
		return true
	})
	return n
}

// LevelView aggregates one price level for depth snapshots.
type LevelView struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

// Levels aggregates up to depth price levels on a side, best price first.
func (ob *OrderBook) Levels(side Side, depth int) []LevelView {
	tree := ob.bids
	if side == SideSell {
		tree = ob.asks
	}
	out := make([]LevelView, 0, depth)
	tree.Ascend(func(item btree.Item) bool {
		if len(out) >= depth {
			return false
		}
		pl := levelOf(item)
		out = append(out, LevelView{
			Price:    pl.price,
			Quantity: pl.totalRemaining(),
			Orders:   pl.orders.Size(),
		})
		return true
	})
	return out
}
