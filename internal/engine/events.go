package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind identifies the payload carried by an Event envelope.
type EventKind string

const (
	EventNewOrder       EventKind = "NEW"
	EventCancelRequest  EventKind = "CANCEL"
	EventTrade          EventKind = "TRADE"
	EventBookDelta      EventKind = "BOOK_DELTA"
	EventOrderStatus    EventKind = "ORDER_STATUS"
)

// DeltaAction describes how a BookDelta changes a price level.
type DeltaAction string

const (
	DeltaAdd    DeltaAction = "ADD"
	DeltaUpdate DeltaAction = "UPDATE"
	DeltaRemove DeltaAction = "REMOVE"
)

// BookDelta reports a change to one price level of one side of one symbol's book.
type BookDelta struct {
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal
	Action        DeltaAction
}

// OrderStatusEvent is the terminal-or-interim status report for a command's subject order.
type OrderStatusEvent struct {
	OrderID            string
	Symbol             string
	Status             Status
	FilledQuantity     decimal.Decimal
	RemainingQuantity  decimal.Decimal
	Reason             string
}

// NewOrderRequest is the immutable header of a SUBMIT command, logged
// verbatim as the first event of its batch so that replay (spec §6, P8) can
// reconstruct and re-run the exact command that produced everything after it.
type NewOrderRequest struct {
	OrderID  string
	TraderID string
	Symbol   string
	Side     Side
	Type     Type
	Quantity decimal.Decimal
	Price    *decimal.Decimal
}

// CancelRequest echoes a CANCEL command's subject order_id for replay.
type CancelRequest struct {
	OrderID string
}

// Event is the envelope every engine-produced record is wrapped in before
// being handed to the durability sink and the pub/sub publisher. SymbolSeq is
// assigned strictly monotonically and gap-free per symbol (invariant I6).
type Event struct {
	Kind      EventKind
	Symbol    string
	SymbolSeq uint64
	At        time.Time

	NewOrder      *NewOrderRequest
	CancelRequest *CancelRequest
	Trade         *Trade
	BookDelta     *BookDelta
	OrderStatus   *OrderStatusEvent
}
