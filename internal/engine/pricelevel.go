package engine

import (
	"container/list"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is a FIFO queue of resting orders sharing one price on one side
// (spec §4.1). The queue is a doubly linked list so push_back/pop_front/remove
// are all O(1); index gives O(1) amortized lookup by order_id for remove.
type PriceLevel struct {
	Price decimal.Decimal

	orders      *list.List
	index       map[string]*list.Element
	totalQty    decimal.Decimal
	lastSeq     uint64
	hasLastSeq  bool
}

// NewPriceLevel creates an empty level at price. Levels are created on the
// first resting order at that price and destroyed when the last one leaves.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:    price,
		orders:   list.New(),
		index:    make(map[string]*list.Element),
		totalQty: decimal.Zero,
	}
}

// PushBack appends order to the tail. order.AcceptedSeq must be strictly
// greater than the last appended seq, preserving invariant I4.
func (l *PriceLevel) PushBack(o *Order) error {
	if l.hasLastSeq && o.AcceptedSeq <= l.lastSeq {
		return fmt.Errorf("%w: accepted_seq %d does not exceed last queued seq %d at price %s",
			ErrInvariantViolation, o.AcceptedSeq, l.lastSeq, l.Price.String())
	}
	el := l.orders.PushBack(o)
	l.index[o.OrderID] = el
	l.totalQty = l.totalQty.Add(o.Remaining())
	l.lastSeq = o.AcceptedSeq
	l.hasLastSeq = true
	return nil
}

// PeekFront returns the head order without removing it — the next order to
// trade at this price — or nil if the level is empty.
func (l *PriceLevel) PeekFront() *Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

// PopFront removes and returns the head order.
func (l *PriceLevel) PopFront() *Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	o := front.Value.(*Order)
	l.orders.Remove(front)
	delete(l.index, o.OrderID)
	l.totalQty = l.totalQty.Sub(o.Remaining())
	return o
}

// Remove takes an arbitrary resting order out of the queue, e.g. for a cancel.
func (l *PriceLevel) Remove(orderID string) (*Order, bool) {
	el, ok := l.index[orderID]
	if !ok {
		return nil, false
	}
	o := el.Value.(*Order)
	l.orders.Remove(el)
	delete(l.index, orderID)
	l.totalQty = l.totalQty.Sub(o.Remaining())
	return o, true
}

// ReduceHeadBy records a partial or full fill against the head order without
// removing it; the caller pops it separately once Remaining() reaches zero.
func (l *PriceLevel) ReduceHeadBy(qty decimal.Decimal) {
	l.totalQty = l.totalQty.Sub(qty)
}

// TotalVisibleQuantity is the running sum of remaining quantity across every
// order resting at this level.
func (l *PriceLevel) TotalVisibleQuantity() decimal.Decimal {
	return l.totalQty
}

// Len is the number of resting orders at this level.
func (l *PriceLevel) Len() int {
	return l.orders.Len()
}

// Empty reports whether the level holds no resting orders (invariant I1/P4:
// no empty PriceLevel persists in a SideBook).
func (l *PriceLevel) Empty() bool {
	return l.orders.Len() == 0
}
