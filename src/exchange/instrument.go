package exchange

import (
	"sync"

	"github.com/shopspring/decimal"
)

// priceEpsilon bounds how small a move still counts as a price change. Updates
// within the epsilon are dropped so equal-price trade runs do not spam the
// price-change audit log.
var priceEpsilon = decimal.NewFromFloat(0.01)

// Instrument is a tradable symbol with its last-traded price. The price is
// mutated only as a side effect of a completed trade, but can be read by any
// goroutine, so it carries its own lock.
type Instrument struct {
	symbol string

	mu        sync.RWMutex
	lastPrice decimal.Decimal
}

func NewInstrument(symbol string, initialPrice decimal.Decimal) *Instrument {
	return &Instrument{symbol: symbol, lastPrice: initialPrice}
}

func (i *Instrument) Symbol() string {
	return i.symbol
}

func (i *Instrument) LastPrice() decimal.Decimal {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastPrice
}

// setLastPrice applies the execution price of a trade. It reports the previous
// price and whether the move exceeded priceEpsilon and was applied.
func (i *Instrument) setLastPrice(price decimal.Decimal) (decimal.Decimal, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	old := i.lastPrice
	if price.Sub(old).Abs().Cmp(priceEpsilon) <= 0 {
		return old, false
	}
	i.lastPrice = price
	return old, true
}

type InstrumentView struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
}

func (i *Instrument) view() InstrumentView {
	return InstrumentView{Symbol: i.symbol, LastPrice: i.LastPrice()}
}
