package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one execution between a resting maker and an incoming taker.
type Trade struct {
	TradeID     string
	Symbol      string
	BuyOrderID  string
	SellOrderID string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	ExecutedAt  time.Time
	MakerSeq    uint64
	TakerSeq    uint64
	SymbolSeq   uint64
}
