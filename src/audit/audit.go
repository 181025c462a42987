package audit

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stock-exchange/src/exchange"
)

const (
	transactionsFile = "transactions.log"
	eventsFile       = "events.log"
	priceChangesFile = "price_changes.log"
)

// FileSink is the audit collaborator at the exchange boundary: it consumes
// trade and lifecycle events and appends them to three JSON log files, one per
// stream. Writes happen on the caller's goroutine under the instrument lock,
// so only local file appends are performed here.
type FileSink struct {
	transactions zerolog.Logger
	events       zerolog.Logger
	prices       zerolog.Logger
	files        []*os.File
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &FileSink{}
	for _, f := range []struct {
		name   string
		logger *zerolog.Logger
	}{
		{transactionsFile, &s.transactions},
		{eventsFile, &s.events},
		{priceChangesFile, &s.prices},
	} {
		file, err := os.OpenFile(filepath.Join(dir, f.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.files = append(s.files, file)
		*f.logger = zerolog.New(file).With().Timestamp().Logger()
	}
	return s, nil
}

func (s *FileSink) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.files = nil
	return first
}

func (s *FileSink) OrderSubmitted(o exchange.OrderView) {
	s.orderEvent(o).Msg("order placed")
}

func (s *FileSink) OrderCancelled(o exchange.OrderView) {
	s.orderEvent(o).Msg("order cancelled")
}

func (s *FileSink) OrderAmended(o exchange.OrderView, oldQuantity, newQuantity int64) {
	s.orderEvent(o).
		Int64("old_quantity", oldQuantity).
		Int64("new_quantity", newQuantity).
		Msg("order amended")
}

func (s *FileSink) TradeExecuted(t exchange.Transaction) {
	s.transactions.Info().
		Uint64("seq", t.Seq).
		Str("trade_id", t.TradeID).
		Str("symbol", t.Symbol).
		Str("buyer", t.Buyer).
		Str("seller", t.Seller).
		Uint64("buy_order_id", t.BuyOrderID).
		Uint64("sell_order_id", t.SellOrderID).
		Int64("quantity", t.Quantity).
		Str("price", t.Price.String()).
		Str("total_value", t.TotalValue().String()).
		Msg("transaction")
}

func (s *FileSink) PriceChanged(symbol string, oldPrice, newPrice decimal.Decimal) {
	event := s.prices.Info().
		Str("symbol", symbol).
		Str("old_price", oldPrice.String()).
		Str("new_price", newPrice.String())
	if oldPrice.Sign() > 0 {
		pct := newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
		event = event.Str("change_pct", pct.StringFixed(2))
	}
	event.Msg("price change")
}

func (s *FileSink) ExchangeEvent(event string) {
	s.events.Info().Msg(event)
}

func (s *FileSink) orderEvent(o exchange.OrderView) *zerolog.Event {
	return s.events.Info().
		Uint64("order_id", o.ID).
		Str("trader", o.Trader).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Str("price", o.Price.String()).
		Int64("remaining", o.Remaining).
		Str("status", string(o.Status))
}
