package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func restingOrder(id string, side Side, price string, qty string, seq uint64) *Order {
	p := d(price)
	return &Order{OrderID: id, Side: side, Type: Limit, Price: &p, Quantity: d(qty), AcceptedSeq: seq}
}

func TestSideBookBidsOrderedBestPriceFirst(t *testing.T) {
	bids := NewSideBook(Buy)
	require.NoError(t, bids.Insert(restingOrder("a", Buy, "100", "1", 1)))
	require.NoError(t, bids.Insert(restingOrder("b", Buy, "102", "1", 2)))
	require.NoError(t, bids.Insert(restingOrder("c", Buy, "101", "1", 3)))

	best, ok := bids.BestLevel()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(d("102")))

	levels := bids.Levels(3)
	require.Len(t, levels, 3)
	assert.True(t, levels[0].Price.Equal(d("102")))
	assert.True(t, levels[1].Price.Equal(d("101")))
	assert.True(t, levels[2].Price.Equal(d("100")))
}

func TestSideBookAsksOrderedBestPriceFirst(t *testing.T) {
	asks := NewSideBook(Sell)
	require.NoError(t, asks.Insert(restingOrder("a", Sell, "100", "1", 1)))
	require.NoError(t, asks.Insert(restingOrder("b", Sell, "98", "1", 2)))
	require.NoError(t, asks.Insert(restingOrder("c", Sell, "99", "1", 3)))

	best, ok := asks.BestLevel()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(d("98")))

	levels := asks.Levels(3)
	require.Len(t, levels, 3)
	assert.True(t, levels[0].Price.Equal(d("98")))
	assert.True(t, levels[1].Price.Equal(d("99")))
	assert.True(t, levels[2].Price.Equal(d("100")))
}

func TestSideBookLevelDroppedWhenEmptied(t *testing.T) {
	bids := NewSideBook(Buy)
	require.NoError(t, bids.Insert(restingOrder("a", Buy, "100", "1", 1)))
	assert.True(t, bids.HasLevel(d("100")))

	_, ok := bids.Remove("a", d("100"))
	require.True(t, ok)
	assert.False(t, bids.HasLevel(d("100")))
	assert.Equal(t, 0, bids.Len())
}

func TestIterCrossingRespectsLimitForBuyTaker(t *testing.T) {
	asks := NewSideBook(Sell)
	require.NoError(t, asks.Insert(restingOrder("a", Sell, "100", "1", 1)))
	require.NoError(t, asks.Insert(restingOrder("b", Sell, "101", "1", 2)))
	require.NoError(t, asks.Insert(restingOrder("c", Sell, "102", "1", 3)))

	limit := d("101")
	var seen []string
	asks.IterCrossing(&limit, func(lvl *PriceLevel) bool {
		seen = append(seen, lvl.Price.String())
		return true
	})
	assert.Equal(t, []string{"100", "101"}, seen)
}

func TestIterCrossingVisitsEverythingForMarketTaker(t *testing.T) {
	bids := NewSideBook(Buy)
	require.NoError(t, bids.Insert(restingOrder("a", Buy, "100", "1", 1)))
	require.NoError(t, bids.Insert(restingOrder("b", Buy, "99", "1", 2)))

	var seen []string
	bids.IterCrossing(nil, func(lvl *PriceLevel) bool {
		seen = append(seen, lvl.Price.String())
		return true
	})
	assert.Equal(t, []string{"100", "99"}, seen)
}
