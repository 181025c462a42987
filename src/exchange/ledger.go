package exchange

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one completed trade. Immutable once appended; Seq is globally
// monotonic across all instruments.
type Transaction struct {
	Seq         uint64          `json:"seq"`
	TradeID     string          `json:"trade_id"`
	BuyOrderID  uint64          `json:"buy_order_id"`
	SellOrderID uint64          `json:"sell_order_id"`
	Buyer       string          `json:"buyer"`
	Seller      string          `json:"seller"`
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (t Transaction) TotalValue() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// TransactionLedger is the append-only trade history. Writers append while
// holding their instrument's lock, which serializes writers per instrument but
// not across instruments, so the sequence counter is an independent atomic and
// the slice has its own lock. Readers get copies and never block writers for
// longer than the copy.
type TransactionLedger struct {
	seq atomic.Uint64

	mu     sync.RWMutex
	trades []Transaction
}

func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{trades: make([]Transaction, 0)}
}

// NextSeq reserves the next global sequence number.
func (l *TransactionLedger) NextSeq() uint64 {
	return l.seq.Add(1)
}

func (l *TransactionLedger) Append(t Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, t)
}

// All snapshots the full history in append order.
func (l *TransactionLedger) All() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, len(l.trades))
	copy(out, l.trades)
	return out
}

// BySymbol snapshots the history of one instrument in append order.
func (l *TransactionLedger) BySymbol(symbol string) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, t := range l.trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

func (l *TransactionLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}
