package engine

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// LevelView is a read-only (price, total_quantity) pair returned by snapshots.
type LevelView struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// SideBook is an ordered collection of price levels for one side of one
// symbol (spec §4.2): descending for bids, ascending for asks, with O(log n)
// best-level access via a btree and O(1) access by price via an index map.
// Empty levels are never kept.
type SideBook struct {
	side  Side
	tree  *btree.BTreeG[*PriceLevel]
	index map[string]*PriceLevel
}

// NewSideBook builds an empty SideBook for side. The btree comparator orders
// levels so that Min() always yields the best price for that side: highest
// price first for bids, lowest price first for asks.
func NewSideBook(side Side) *SideBook {
	var less btree.LessFunc[*PriceLevel]
	if side == Buy {
		less = func(a, b *PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }
	}
	return &SideBook{
		side:  side,
		tree:  btree.NewG(32, less),
		index: make(map[string]*PriceLevel),
	}
}

func priceKey(price decimal.Decimal) string {
	return price.String()
}

// BestLevel returns the best-priced level on this side, or false if empty.
func (sb *SideBook) BestLevel() (*PriceLevel, bool) {
	return sb.tree.Min()
}

// levelFor returns the level at price, creating and indexing an empty one if absent.
func (sb *SideBook) levelFor(price decimal.Decimal) *PriceLevel {
	key := priceKey(price)
	if lvl, ok := sb.index[key]; ok {
		return lvl
	}
	lvl := NewPriceLevel(price)
	sb.index[key] = lvl
	sb.tree.ReplaceOrInsert(lvl)
	return lvl
}

// Insert places order into the level at its price, creating the level if absent.
func (sb *SideBook) Insert(o *Order) error {
	lvl := sb.levelFor(*o.Price)
	return lvl.PushBack(o)
}

// Remove takes order_id out of the level at price, dropping the level if it
// empties (invariant I1/P4). Returns the removed order.
func (sb *SideBook) Remove(orderID string, price decimal.Decimal) (*Order, bool) {
	key := priceKey(price)
	lvl, ok := sb.index[key]
	if !ok {
		return nil, false
	}
	o, ok := lvl.Remove(orderID)
	if !ok {
		return nil, false
	}
	sb.dropIfEmpty(key, lvl)
	return o, true
}

// PopHeadFill removes the current head of the level at price once it has
// been fully filled by the matching loop, dropping the level if it empties.
func (sb *SideBook) PopHeadFill(price decimal.Decimal) *Order {
	key := priceKey(price)
	lvl, ok := sb.index[key]
	if !ok {
		return nil
	}
	o := lvl.PopFront()
	sb.dropIfEmpty(key, lvl)
	return o
}

func (sb *SideBook) dropIfEmpty(key string, lvl *PriceLevel) {
	if lvl.Empty() {
		delete(sb.index, key)
		sb.tree.Delete(lvl)
	}
}

// IterCrossing lazily visits levels that cross a taker's limit, in the order
// matching should consume them (spec §4.2). For a BUY taker with limit P,
// asks with price <= P are visited ascending; for a SELL taker with limit P,
// bids with price >= P are visited descending. For a MARKET taker (limit ==
// nil) every level is visited in the side's natural priority order. visit
// returning false stops iteration early.
func (sb *SideBook) IterCrossing(limit *decimal.Decimal, visit func(*PriceLevel) bool) {
	sb.tree.Ascend(func(lvl *PriceLevel) bool {
		if limit != nil {
			if sb.side == Buy && lvl.Price.LessThan(*limit) {
				return false
			}
			if sb.side == Sell && lvl.Price.GreaterThan(*limit) {
				return false
			}
		}
		return visit(lvl)
	})
}

// Levels returns up to depth (price, total_quantity) pairs in best-first order.
func (sb *SideBook) Levels(depth int) []LevelView {
	out := make([]LevelView, 0, depth)
	sb.tree.Ascend(func(lvl *PriceLevel) bool {
		if len(out) >= depth {
			return false
		}
		out = append(out, LevelView{Price: lvl.Price, Quantity: lvl.TotalVisibleQuantity()})
		return true
	})
	return out
}

// Len is the number of distinct price levels on this side.
func (sb *SideBook) Len() int {
	return sb.tree.Len()
}

// HasLevel reports whether a level already exists at price.
func (sb *SideBook) HasLevel(price decimal.Decimal) bool {
	_, ok := sb.index[priceKey(price)]
	return ok
}

// PeekLevel returns the level at price without creating one, or false if absent.
func (sb *SideBook) PeekLevel(price decimal.Decimal) (*PriceLevel, bool) {
	lvl, ok := sb.index[priceKey(price)]
	return lvl, ok
}
