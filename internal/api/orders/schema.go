package orders

import (
	"github.com/shopspring/decimal"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// PlaceOrderSchema is the request body of POST /v1/symbols/:symbol/orders,
// shaped after the teacher's own PlaceOrderSchema but carrying the
// order_id/trader_id/side/type vocabulary of the matching engine's upstream
// command interface instead of account/instrument identifiers.
type PlaceOrderSchema struct {
	OrderID  string           `json:"order_id" validate:"required"`
	TraderID string           `json:"trader_id" validate:"required"`
	Side     engine.Side      `json:"side" validate:"required,oneof=BUY SELL"`
	Type     engine.Type      `json:"type" validate:"required,oneof=LIMIT MARKET"`
	Quantity decimal.Decimal  `json:"quantity" validate:"required"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// TradeSchema reports one execution resulting from a submit.
type TradeSchema struct {
	TradeID     string          `json:"trade_id"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// SubmitResponseSchema is the response body of a successful order submission.
type SubmitResponseSchema struct {
	OrderID        string          `json:"order_id"`
	Status         engine.Status   `json:"status"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Trades         []TradeSchema   `json:"trades"`
	SymbolSeq       uint64          `json:"symbol_seq"`
	RejectReason   string          `json:"reject_reason,omitempty"`
}

// CancelResponseSchema is the response body of a successful cancellation.
type CancelResponseSchema struct {
	Status            engine.Status   `json:"status"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	SymbolSeq         uint64          `json:"symbol_seq"`
}

// LevelSchema is one price level in a book snapshot.
type LevelSchema struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SnapshotResponseSchema is the response body of GET /v1/symbols/:symbol/book.
type SnapshotResponseSchema struct {
	Bids            []LevelSchema `json:"bids"`
	Asks            []LevelSchema `json:"asks"`
	SymbolSeqAtRead uint64        `json:"symbol_seq_at_read"`
}

func newSubmitResponse(r engine.SubmitResult) SubmitResponseSchema {
	trades := make([]TradeSchema, 0, len(r.Trades))
	for _, t := range r.Trades {
		trades = append(trades, TradeSchema{
			TradeID:     t.TradeID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       t.Price,
			Quantity:    t.Quantity,
		})
	}
	return SubmitResponseSchema{
		OrderID:        r.OrderID,
		Status:         r.Status,
		FilledQuantity: r.FilledQuantity,
		Trades:         trades,
		SymbolSeq:      r.SymbolSeq,
		RejectReason:   r.RejectReason,
	}
}

func newCancelResponse(r engine.CancelResult) CancelResponseSchema {
	return CancelResponseSchema{
		Status:            r.Status,
		RemainingQuantity: r.RemainingQuantity,
		SymbolSeq:         r.SymbolSeq,
	}
}

func newSnapshotResponse(r engine.SnapshotResult) SnapshotResponseSchema {
	bids := make([]LevelSchema, 0, len(r.Bids))
	for _, lv := range r.Bids {
		bids = append(bids, LevelSchema{Price: lv.Price, Quantity: lv.Quantity})
	}
	asks := make([]LevelSchema, 0, len(r.Asks))
	for _, lv := range r.Asks {
		asks = append(asks, LevelSchema{Price: lv.Price, Quantity: lv.Quantity})
	}
	return SnapshotResponseSchema{Bids: bids, Asks: asks, SymbolSeqAtRead: r.SymbolSeqAtRead}
}
