package agents

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stock-exchange/src/exchange"
)

// Config shapes one trader's behaviour: how much it trades, how fast, and for
// how long.
type Config struct {
	Name      string
	Side      exchange.Side
	MinShares int64
	MaxShares int64
	MinDelay  time.Duration
	MaxDelay  time.Duration
	MaxOrders int
}

// Trader is an order producer that runs at its own pace against the exchange's
// public API — it has no access to exchange internals. Each trader places
// orders near the instrument's last price and occasionally cancels or amends
// one of its earlier orders.
type Trader struct {
	cfg    Config
	ex     *exchange.Exchange
	rng    *rand.Rand
	active []uint64
}

func New(cfg Config, ex *exchange.Exchange) *Trader {
	return &Trader{
		cfg: cfg,
		ex:  ex,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run places up to MaxOrders orders, returning early if the exchange stops.
func (t *Trader) Run() {
	instruments := t.ex.Instruments()
	if len(instruments) == 0 {
		return
	}

	placed := 0
	for t.ex.IsRunning() && placed < t.cfg.MaxOrders {
		time.Sleep(t.randomDelay())
		if !t.ex.IsRunning() {
			break
		}

		symbol := instruments[t.rng.Intn(len(instruments))].Symbol
		quantity := t.randomQuantity()
		price := t.randomPrice(symbol)

		id, err := t.ex.SubmitOrder(t.cfg.Name, symbol, t.cfg.Side, quantity, price)
		if err != nil {
			log.Debug().
				Err(err).
				Str("trader", t.cfg.Name).
				Str("symbol", symbol).
				Msg("order rejected")
			continue
		}
		t.active = append(t.active, id)
		placed++

		// 20% of the time, revisit a previous order.
		if len(t.active) > 0 && t.rng.Float64() < 0.2 {
			t.cancelOrAmend()
		}
	}

	log.Info().
		Str("trader", t.cfg.Name).
		Int("orders_placed", placed).
		Msg("trader finished")
}

func (t *Trader) cancelOrAmend() {
	idx := t.rng.Intn(len(t.active))
	id := t.active[idx]

	if t.rng.Float64() < 0.5 {
		if ok, _ := t.ex.CancelOrder(id); !ok {
			t.dropActive(idx)
		}
		return
	}

	if ok, _ := t.ex.AmendOrder(id, t.randomQuantity()); !ok {
		t.dropActive(idx)
	}
}

func (t *Trader) dropActive(idx int) {
	t.active = append(t.active[:idx], t.active[idx+1:]...)
}

func (t *Trader) randomDelay() time.Duration {
	span := t.cfg.MaxDelay - t.cfg.MinDelay
	if span <= 0 {
		return t.cfg.MinDelay
	}
	return t.cfg.MinDelay + time.Duration(t.rng.Int63n(int64(span)))
}

func (t *Trader) randomQuantity() int64 {
	span := t.cfg.MaxShares - t.cfg.MinShares
	if span <= 0 {
		return t.cfg.MinShares
	}
	return t.cfg.MinShares + t.rng.Int63n(span+1)
}

// randomPrice jitters the instrument's last price by up to ±1% so buys and
// sells cross often enough to trade.
func (t *Trader) randomPrice(symbol string) decimal.Decimal {
	view, ok := t.ex.Instrument(symbol)
	if !ok {
		return decimal.NewFromInt(1)
	}
	jitter := decimal.NewFromFloat((t.rng.Float64() - 0.5) * 0.02)
	price := view.LastPrice.Mul(decimal.NewFromInt(1).Add(jitter)).Round(2)
	if price.Sign() <= 0 {
		return view.LastPrice
	}
	return price
}
