package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type locatorEntry struct {
	side  Side
	price decimal.Decimal
}

// OrderBook pairs a bid SideBook and an ask SideBook for one symbol; owns the
// order-id locator and is the only place invariant I3 (no crossed book) is
// checked (spec §4.3).
type OrderBook struct {
	Symbol string
	Bids   *SideBook
	Asks   *SideBook

	locator map[string]locatorEntry
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol:  symbol,
		Bids:    NewSideBook(Buy),
		Asks:    NewSideBook(Sell),
		locator: make(map[string]locatorEntry),
	}
}

// sideBook returns the SideBook that a resting order of the given side belongs in.
func (b *OrderBook) sideBook(side Side) *SideBook {
	if side == Buy {
		return b.Bids
	}
	return b.Asks
}

// Rest inserts a resting order into the correct SideBook and updates the locator.
func (b *OrderBook) Rest(o *Order) error {
	if o.Price == nil {
		return fmt.Errorf("%w: cannot rest order %s without a price", ErrInvariantViolation, o.OrderID)
	}
	if err := b.sideBook(o.Side).Insert(o); err != nil {
		return err
	}
	b.locator[o.OrderID] = locatorEntry{side: o.Side, price: *o.Price}
	return b.checkNotCrossed()
}

// PopFilledHead removes the head of the level at (side, price) once fully
// filled by the matching loop and clears its locator entry.
func (b *OrderBook) PopFilledHead(side Side, price decimal.Decimal) *Order {
	o := b.sideBook(side).PopHeadFill(price)
	if o != nil {
		delete(b.locator, o.OrderID)
	}
	return o
}

// Cancel looks up order_id via the locator, removes it from its SideBook, and
// returns the removed order (for its remaining quantity and price).
func (b *OrderBook) Cancel(orderID string) (*Order, error) {
	entry, ok := b.locator[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	o, ok := b.sideBook(entry.side).Remove(orderID, entry.price)
	if !ok {
		return nil, fmt.Errorf("%w: locator pointed at %s but side book had no such order", ErrInvariantViolation, orderID)
	}
	delete(b.locator, orderID)
	return o, nil
}

// Contains reports whether order_id currently rests in the book.
func (b *OrderBook) Contains(orderID string) bool {
	_, ok := b.locator[orderID]
	return ok
}

// Snapshot returns top-of-book up to depth levels per side (spec §4.3). It is
// a read and does not mutate state; callers must hold the engine's exclusion
// while calling it to avoid observing a torn intermediate state.
func (b *OrderBook) Snapshot(depth int) (bids, asks []LevelView) {
	return b.Bids.Levels(depth), b.Asks.Levels(depth)
}

// checkNotCrossed enforces invariant I3: best_bid < best_ask whenever both
// sides are non-empty. A violation here is always a bug, never bad user input.
func (b *OrderBook) checkNotCrossed() error {
	bestBid, hasBid := b.Bids.BestLevel()
	bestAsk, hasAsk := b.Asks.BestLevel()
	if !hasBid || !hasAsk {
		return nil
	}
	if !bestBid.Price.LessThan(bestAsk.Price) {
		return fmt.Errorf("%w: best_bid %s is not strictly less than best_ask %s on %s",
			ErrInvariantViolation, bestBid.Price.String(), bestAsk.Price.String(), b.Symbol)
	}
	return nil
}
