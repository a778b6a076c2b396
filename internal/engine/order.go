package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Type distinguishes resting limit orders from sweep-and-cancel market orders.
type Type string

const (
	Limit  Type = "LIMIT"
	Market Type = "MARKET"
)

// Status is a node in the order lifecycle state machine described in spec §3.
type Status string

const (
	Pending         Status = "PENDING"
	Active          Status = "ACTIVE"
	PartiallyFilled Status = "PARTIALLY_FILLED"
	Filled          Status = "FILLED"
	Cancelled       Status = "CANCELLED"
	Rejected        Status = "REJECTED"
)

// Terminal reports whether status has no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case Filled, Cancelled, Rejected:
		return true
	default:
		return false
	}
}

// Order is the immutable header plus mutable fill state from spec §3.
// Price is nil for MARKET orders and non-nil for LIMIT orders.
type Order struct {
	OrderID  string
	TraderID string
	Symbol   string
	Side     Side
	Type     Type
	Quantity decimal.Decimal
	Price    *decimal.Decimal

	FilledQuantity decimal.Decimal
	Status         Status
	RejectReason   string
	AcceptedSeq    uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining is quantity minus filled_quantity, always recomputed rather than stored.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Fill increases filled_quantity by delta and advances status accordingly.
func (o *Order) Fill(delta decimal.Decimal, now time.Time) {
	o.FilledQuantity = o.FilledQuantity.Add(delta)
	o.UpdatedAt = now
	if o.Remaining().IsZero() {
		o.Status = Filled
		return
	}
	o.Status = PartiallyFilled
}

// Clone returns a value copy safe to hand to callers outside the engine's exclusion.
func (o *Order) Clone() Order {
	cp := *o
	if o.Price != nil {
		p := *o.Price
		cp.Price = &p
	}
	return cp
}
