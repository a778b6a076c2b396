package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records every committed batch in memory, standing in for the
// Postgres-backed sink in tests that never touch a real database.
type fakeSink struct {
	batches [][]Event
	failNext bool
}

func (s *fakeSink) Commit(ctx context.Context, symbol string, fromSeq, toSeq uint64, events []Event) error {
	if s.failNext {
		s.failNext = false
		return assert.AnError
	}
	cp := make([]Event, len(events))
	copy(cp, events)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *fakeSink) allEvents() []Event {
	var all []Event
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

type fakePublisher struct {
	published [][]Event
}

func (p *fakePublisher) Publish(ctx context.Context, symbol string, events []Event) error {
	p.published = append(p.published, events)
	return nil
}

func newTestEngine(t *testing.T) (*MatchingEngine, *fakeSink) {
	t.Helper()
	cfg := SymbolConfig{TickSize: d("0.01"), LotSize: d("1")}
	sink := &fakeSink{}
	pub := &fakePublisher{}
	return NewMatchingEngine("BTC-USD", cfg, true, 50, sink, pub, nil), sink
}

func limitOrder(id, traderID string, side Side, price, qty string) *Order {
	p := d(price)
	return &Order{OrderID: id, TraderID: traderID, Symbol: "BTC-USD", Side: side, Type: Limit, Price: &p, Quantity: d(qty)}
}

func marketOrder(id, traderID string, side Side, qty string) *Order {
	return &Order{OrderID: id, TraderID: traderID, Symbol: "BTC-USD", Side: side, Type: Market, Quantity: d(qty)}
}

func TestSubmitLimitOnEmptyBookRests(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Submit(context.Background(), limitOrder("o1", "t1", Buy, "100", "10"))
	require.NoError(t, err)
	assert.Equal(t, Active, res.Status)
	assert.Empty(t, res.Trades)

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Price.Equal(d("100")))
	assert.True(t, snap.Bids[0].Quantity.Equal(d("10")))
}

func TestSubmitFullCrossProducesTradeAtMakerPrice(t *testing.T) {
	e, sink := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("maker", "t1", Sell, "100", "10"))
	require.NoError(t, err)

	res, err := e.Submit(context.Background(), limitOrder("taker", "t2", Buy, "101", "10"))
	require.NoError(t, err)
	assert.Equal(t, Filled, res.Status)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Price.Equal(d("100")), "trade must execute at the maker's price, not the taker's limit")

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	assert.Empty(t, snap.Asks, "fully filled maker level must be removed")

	var tradeEvents int
	for _, ev := range sink.allEvents() {
		if ev.Kind == EventTrade {
			tradeEvents++
		}
	}
	assert.Equal(t, 1, tradeEvents)
}

func TestSubmitPartialFillLeavesTakerRestingForRemainder(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("maker", "t1", Sell, "100", "4"))
	require.NoError(t, err)

	res, err := e.Submit(context.Background(), limitOrder("taker", "t2", Buy, "100", "10"))
	require.NoError(t, err)
	assert.Equal(t, PartiallyFilled, res.Status)
	assert.True(t, res.FilledQuantity.Equal(d("4")))

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	assert.Empty(t, snap.Asks)
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Quantity.Equal(d("6")))
}

func TestTimePriorityAtEqualPrice(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("first", "t1", Sell, "100", "5"))
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), limitOrder("second", "t2", Sell, "100", "5"))
	require.NoError(t, err)

	res, err := e.Submit(context.Background(), limitOrder("taker", "t3", Buy, "100", "5"))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "first", res.Trades[0].SellOrderID, "the earlier-queued maker at the same price must trade first")

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Quantity.Equal(d("5")), "the later maker's full quantity must remain resting")
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("o1", "t1", Buy, "100", "10"))
	require.NoError(t, err)

	cres, err := e.Cancel(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, Cancelled, cres.Status)

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)

	_, err = e.Cancel(context.Background(), "o1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarketOrderSweepsThenStopsUnfilled(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("maker", "t1", Sell, "100", "5"))
	require.NoError(t, err)

	res, err := e.Submit(context.Background(), marketOrder("taker", "t2", Buy, "20"))
	require.NoError(t, err)
	assert.Equal(t, Cancelled, res.Status)
	assert.Equal(t, "UNFILLED_MARKET", res.RejectReason)
	assert.True(t, res.FilledQuantity.Equal(d("5")))

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids, "a market order must never rest, partially filled or not")
}

func TestMarketOrdersDisabledAreRejected(t *testing.T) {
	cfg := SymbolConfig{TickSize: d("0.01"), LotSize: d("1")}
	e := NewMatchingEngine("BTC-USD", cfg, false, 50, &fakeSink{}, &fakePublisher{}, nil)

	res, err := e.Submit(context.Background(), marketOrder("o1", "t1", Buy, "10"))
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Status)
	assert.NotEmpty(t, res.RejectReason)
}

func TestSubmitRejectsPriceOffTick(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Submit(context.Background(), limitOrder("o1", "t1", Buy, "100.005", "10"))
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Status)
}

func TestBookNeverCrosses(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("bid", "t1", Buy, "100", "5"))
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), limitOrder("ask", "t2", Sell, "101", "5"))
	require.NoError(t, err)

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Price.LessThan(snap.Asks[0].Price))
}

func TestSymbolSeqIsMonotonicAndGapFree(t *testing.T) {
	e, sink := newTestEngine(t)
	_, err := e.Submit(context.Background(), limitOrder("o1", "t1", Buy, "100", "5"))
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), limitOrder("o2", "t2", Sell, "100", "5"))
	require.NoError(t, err)

	events := sink.allEvents()
	require.NotEmpty(t, events)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.SymbolSeq)
	}
}

func TestSinkFailureHaltsSymbol(t *testing.T) {
	e, sink := newTestEngine(t)
	sink.failNext = true

	_, err := e.Submit(context.Background(), limitOrder("o1", "t1", Buy, "100", "5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSinkUnavailable)

	halted, _ := e.Halted()
	assert.True(t, halted)

	_, err = e.Submit(context.Background(), limitOrder("o2", "t2", Buy, "100", "5"))
	assert.ErrorIs(t, err, ErrSymbolHalted)
}

func TestCancelOfUnknownOrderDoesNotHaltSymbol(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Cancel(context.Background(), "never-existed")
	assert.ErrorIs(t, err, ErrNotFound)

	halted, _ := e.Halted()
	assert.False(t, halted, "an expected cancel error must never halt the symbol")
}

func TestReplayReproducesIdenticalBookState(t *testing.T) {
	e, sink := newTestEngine(t)
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("maker1", "t1", Sell, "100", "5"))))
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("maker2", "t1", Sell, "100", "5"))))
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("taker", "t2", Buy, "100", "7"))))
	require.NoError(t, must(e.Cancel(context.Background(), "maker2")))

	original, err := e.Snapshot(50)
	require.NoError(t, err)

	replayed := NewMatchingEngine("BTC-USD", SymbolConfig{TickSize: d("0.01"), LotSize: d("1")}, true, 50, &fakeSink{}, &fakePublisher{}, nil)
	require.NoError(t, replayed.Replay(sink.allEvents()))

	rebuilt, err := replayed.Snapshot(50)
	require.NoError(t, err)

	assert.Equal(t, original.Bids, rebuilt.Bids)
	assert.Equal(t, original.Asks, rebuilt.Asks)
}

// TestReplayThenLiveSubmitDoesNotDeadlock guards against the commit-order
// gate wedging forever: replayed commands drive symbolSeq past
// nextCommitSeq's constructed value of 1 without going through the gate, so
// Replay must resync the gate or the first command after a restart blocks
// on ioCond forever.
func TestReplayThenLiveSubmitDoesNotDeadlock(t *testing.T) {
	e, sink := newTestEngine(t)
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("maker", "t1", Sell, "100", "5"))))
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("taker", "t2", Buy, "100", "5"))))

	replayed := NewMatchingEngine("BTC-USD", SymbolConfig{TickSize: d("0.01"), LotSize: d("1")}, true, 50, &fakeSink{}, &fakePublisher{}, nil)
	require.NoError(t, replayed.Replay(sink.allEvents()))

	done := make(chan error, 1)
	go func() {
		_, err := replayed.Submit(context.Background(), limitOrder("o3", "t3", Buy, "99", "1"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Submit after Replay deadlocked on the commit-order gate")
	}
}

// TestMakerPartiallyPoppedFromSharedLevelEmitsUpdateNotRemove guards
// against a self-contradictory BookDelta: when a fully filled maker is
// popped but another resting order remains at the same price, the level
// is still live and subscribers must see UPDATE with the survivor's
// quantity, never REMOVE.
func TestMakerPartiallyPoppedFromSharedLevelEmitsUpdateNotRemove(t *testing.T) {
	e, sink := newTestEngine(t)
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("maker1", "t1", Sell, "100", "5"))))
	require.NoError(t, must(e.Submit(context.Background(), limitOrder("maker2", "t1", Sell, "100", "5"))))

	res, err := e.Submit(context.Background(), limitOrder("taker", "t2", Buy, "100", "5"))
	require.NoError(t, err)
	assert.Equal(t, Filled, res.Status)

	var deltas []BookDelta
	for _, ev := range sink.allEvents() {
		if ev.Kind == EventBookDelta && ev.BookDelta.Side == Sell {
			deltas = append(deltas, *ev.BookDelta)
		}
	}
	require.NotEmpty(t, deltas)
	last := deltas[len(deltas)-1]
	assert.Equal(t, DeltaUpdate, last.Action, "maker1 was popped but maker2 still rests at 100; the level survives")
	assert.True(t, last.TotalQuantity.Equal(d("5")), "remaining total must reflect maker2 alone")

	snap, err := e.Snapshot(10)
	require.NoError(t, err)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Quantity.Equal(d("5")))
}

// must discards a result value, keeping the error for require.NoError in
// tests that only care whether the command succeeded.
func must[T any](_ T, err error) error { return err }
