package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sink is the durability hand-off contract from spec §6: persist events[]
// atomically per command, idempotent on (symbol, symbol_seq).
type Sink interface {
	Commit(ctx context.Context, symbol string, fromSeq, toSeq uint64, events []Event) error
}

// Publisher fans committed events out to book/trade subscribers (spec §6).
type Publisher interface {
	Publish(ctx context.Context, symbol string, events []Event) error
}

// SubmitResult is the upstream command interface's response to submit() (spec §6).
type SubmitResult struct {
	OrderID        string
	Status         Status
	FilledQuantity decimal.Decimal
	Trades         []Trade
	SymbolSeq      uint64
	RejectReason   string
}

// CancelResult is the upstream command interface's response to cancel() (spec §6).
type CancelResult struct {
	Status            Status
	RemainingQuantity decimal.Decimal
	SymbolSeq         uint64
}

// SnapshotResult is the upstream command interface's response to snapshot() (spec §6).
type SnapshotResult struct {
	Bids           []LevelView
	Asks           []LevelView
	SymbolSeqAtRead uint64
}

// MatchingEngine is the per-symbol serialized command processor from spec §4.4.
// Exactly one command executes on a given engine at a time; matching itself
// is a CPU-only transformation of in-memory state with no suspension points.
// Durability and pub/sub I/O happen only after the book mutation and event
// list are finalized and the matching exclusion (matchMu) has been released;
// a second gate (ioMu/ioCond) still serializes that I/O in symbol_seq order,
// since two commands may race to commit after releasing matchMu.
type MatchingEngine struct {
	symbol       string
	cfg          SymbolConfig
	acceptMarket bool
	maxDepth     int

	sink      Sink
	publisher Publisher
	logger    *zap.Logger

	matchMu   sync.Mutex
	book      *OrderBook
	acceptSeq uint64
	symbolSeq uint64
	halted    bool
	haltErr   error

	ioMu          sync.Mutex
	ioCond        *sync.Cond
	nextCommitSeq uint64
}

// NewMatchingEngine constructs an engine for symbol. sink and publisher are
// constructor-injected dependencies (never package-level globals) so tests
// can supply fakes.
func NewMatchingEngine(symbol string, cfg SymbolConfig, acceptMarket bool, maxDepth int, sink Sink, publisher Publisher, logger *zap.Logger) *MatchingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &MatchingEngine{
		symbol:        symbol,
		cfg:           cfg,
		acceptMarket:  acceptMarket,
		maxDepth:      maxDepth,
		sink:          sink,
		publisher:     publisher,
		logger:        logger.With(zap.String("symbol", symbol)),
		book:          NewOrderBook(symbol),
		nextCommitSeq: 1,
	}
	e.ioCond = sync.NewCond(&e.ioMu)
	return e
}

// Symbol returns the symbol this engine owns.
func (e *MatchingEngine) Symbol() string { return e.symbol }

// Submit runs the SUBMIT command of spec §4.4 to completion and returns its result.
func (e *MatchingEngine) Submit(ctx context.Context, o *Order) (SubmitResult, error) {
	var result SubmitResult
	events, err := e.runCommand(func() ([]Event, error) {
		evs, ierr := e.submitLocked(o)
		if ierr != nil {
			return nil, ierr
		}
		result = SubmitResult{
			OrderID:        o.OrderID,
			Status:         o.Status,
			FilledQuantity: o.FilledQuantity,
			RejectReason:   o.RejectReason,
		}
		for _, ev := range evs {
			if ev.Trade != nil {
				result.Trades = append(result.Trades, *ev.Trade)
			}
		}
		return evs, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if len(events) > 0 {
		result.SymbolSeq = events[len(events)-1].SymbolSeq
	}
	return result, nil
}

// Cancel runs the CANCEL command of spec §4.4 to completion and returns its result.
func (e *MatchingEngine) Cancel(ctx context.Context, orderID string) (CancelResult, error) {
	var result CancelResult
	events, err := e.runCommand(func() ([]Event, error) {
		evs, cancelled, ierr := e.cancelLocked(orderID)
		if ierr != nil {
			return nil, ierr
		}
		result = CancelResult{
			Status:            Cancelled,
			RemainingQuantity: cancelled.Remaining(),
		}
		return evs, nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	if len(events) > 0 {
		result.SymbolSeq = events[len(events)-1].SymbolSeq
	}
	return result, nil
}

// Snapshot returns top-of-book up to depth levels per side (spec §4.3). It
// executes under the same exclusion as commands so it never observes a torn
// in-flight mutation.
func (e *MatchingEngine) Snapshot(depth int) (SnapshotResult, error) {
	if e.maxDepth > 0 && depth > e.maxDepth {
		return SnapshotResult{}, fmt.Errorf("%w: requested %d, max %d", ErrDepthExceedsMax, depth, e.maxDepth)
	}
	e.matchMu.Lock()
	defer e.matchMu.Unlock()
	bids, asks := e.book.Snapshot(depth)
	return SnapshotResult{Bids: bids, Asks: asks, SymbolSeqAtRead: e.symbolSeq}, nil
}

// runCommand performs the matching-only step under matchMu, then serializes
// the resulting I/O (durability commit, then publish) behind a commit-order
// gate keyed by the assigned symbol_seq range, outside the matching mutex.
func (e *MatchingEngine) runCommand(fn func() ([]Event, error)) ([]Event, error) {
	e.matchMu.Lock()
	if e.halted {
		err := e.haltErr
		e.matchMu.Unlock()
		return nil, err
	}
	events, err := fn()
	e.matchMu.Unlock()
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			e.logger.Error("invariant violation, halting symbol", zap.Error(err))
			e.haltSymbol(err)
		}
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	from, to := events[0].SymbolSeq, events[len(events)-1].SymbolSeq
	e.ioMu.Lock()
	for e.nextCommitSeq != from {
		e.ioCond.Wait()
	}
	commitErr := e.sink.Commit(context.Background(), e.symbol, from, to, events)
	if commitErr == nil && e.publisher != nil {
		if perr := e.publisher.Publish(context.Background(), e.symbol, events); perr != nil {
			e.logger.Warn("publish failed after commit", zap.Error(perr))
		}
	}
	e.nextCommitSeq = to + 1
	e.ioCond.Broadcast()
	e.ioMu.Unlock()

	if commitErr != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSinkUnavailable, commitErr)
		e.logger.Error("durability sink refused commit, halting symbol", zap.Error(commitErr))
		e.haltSymbol(wrapped)
		return events, wrapped
	}
	return events, nil
}

func (e *MatchingEngine) haltSymbol(err error) {
	e.matchMu.Lock()
	e.halted = true
	e.haltErr = fmt.Errorf("%w: %v", ErrSymbolHalted, err)
	e.matchMu.Unlock()
}

// Halted reports whether this engine has halted after a sink failure.
func (e *MatchingEngine) Halted() (bool, error) {
	e.matchMu.Lock()
	defer e.matchMu.Unlock()
	return e.halted, e.haltErr
}

// Replay rebuilds in-memory state from a symbol's previously committed event
// log (spec §6, P8). It re-runs each NEW/CANCEL command exactly as recorded
// against submitLocked/cancelLocked directly, bypassing the sink/publisher
// I/O path and the matchMu gate entirely, since the caller is expected to
// hold exclusive access to this engine before the Registry serves any
// command for its symbol.
// Derived events (TRADE/BOOK_DELTA/ORDER_STATUS) are skipped: they are fully
// reproduced as a side effect of replaying their originating command.
func (e *MatchingEngine) Replay(events []Event) error {
	for _, ev := range events {
		switch ev.Kind {
		case EventNewOrder:
			req := ev.NewOrder
			order := &Order{
				OrderID:  req.OrderID,
				TraderID: req.TraderID,
				Symbol:   req.Symbol,
				Side:     req.Side,
				Type:     req.Type,
				Quantity: req.Quantity,
				Price:    req.Price,
			}
			if _, err := e.submitLocked(order); err != nil {
				return fmt.Errorf("replay NEW %s: %w", req.OrderID, err)
			}
		case EventCancelRequest:
			if _, _, err := e.cancelLocked(ev.CancelRequest.OrderID); err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotCancellable) {
				return fmt.Errorf("replay CANCEL %s: %w", ev.CancelRequest.OrderID, err)
			}
		default:
			// Derived events carry no independent state to reapply.
		}
	}
	// Replayed events are already durable; the commit gate must resume
	// right after the last one, or the first live command after restart
	// blocks forever waiting for a commitSeq that will never arrive.
	e.nextCommitSeq = e.symbolSeq + 1
	return nil
}

func (e *MatchingEngine) emit(ev Event) Event {
	e.symbolSeq++
	ev.Symbol = e.symbol
	ev.SymbolSeq = e.symbolSeq
	if ev.Trade != nil {
		ev.Trade.SymbolSeq = e.symbolSeq
	}
	return ev
}

func (e *MatchingEngine) validate(o *Order) error {
	if o.Symbol != e.symbol {
		return fmt.Errorf("%w: order symbol %q does not match engine symbol %q", ErrInvalidOrder, o.Symbol, e.symbol)
	}
	if o.Quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	switch o.Type {
	case Limit:
		if o.Price == nil || o.Price.Sign() <= 0 {
			return fmt.Errorf("%w: limit order requires a positive price", ErrInvalidOrder)
		}
	case Market:
		if o.Price != nil {
			return fmt.Errorf("%w: market order must not carry a price", ErrInvalidOrder)
		}
		if !e.acceptMarket {
			return fmt.Errorf("%w: market_orders_disabled", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, o.Type)
	}
	if o.Price != nil && !e.cfg.OnTick(*o.Price) {
		return fmt.Errorf("%w: price %s is not on tick size %s", ErrInvalidOrder, o.Price.String(), e.cfg.TickSize.String())
	}
	if !e.cfg.OnLot(o.Quantity) {
		return fmt.Errorf("%w: quantity %s is not on lot size %s", ErrInvalidOrder, o.Quantity.String(), e.cfg.LotSize.String())
	}
	return nil
}

// submitLocked implements the matching algorithm of spec §4.4 steps 1-6. It
// must run under matchMu. A non-nil error here is always ErrInvariantViolation;
// expected rejections are reported through the returned taker status instead.
func (e *MatchingEngine) submitLocked(taker *Order) ([]Event, error) {
	now := time.Now().UTC()
	taker.CreatedAt, taker.UpdatedAt = now, now
	var events []Event

	events = append(events, e.emit(Event{Kind: EventNewOrder, At: now, NewOrder: &NewOrderRequest{
		OrderID: taker.OrderID, TraderID: taker.TraderID, Symbol: taker.Symbol,
		Side: taker.Side, Type: taker.Type, Quantity: taker.Quantity, Price: taker.Price,
	}}))

	if err := e.validate(taker); err != nil {
		taker.Status = Rejected
		taker.RejectReason = err.Error()
		events = append(events, e.emit(Event{Kind: EventOrderStatus, At: now, OrderStatus: &OrderStatusEvent{
			OrderID: taker.OrderID, Symbol: e.symbol, Status: Rejected,
			FilledQuantity: decimal.Zero, RemainingQuantity: taker.Quantity, Reason: taker.RejectReason,
		}}))
		return events, nil
	}

	e.acceptSeq++
	taker.AcceptedSeq = e.acceptSeq
	taker.Status = Active

	if taker.Price != nil {
		norm := taker.Price.Round(e.cfg.scale())
		taker.Price = &norm
	}

	opposite := e.book.sideBook(taker.Side.Opposite())
	var crossing []*PriceLevel
	opposite.IterCrossing(taker.Price, func(lvl *PriceLevel) bool {
		crossing = append(crossing, lvl)
		return true
	})

	for _, lvl := range crossing {
		if taker.Remaining().Sign() <= 0 {
			break
		}
		for taker.Remaining().Sign() > 0 && !lvl.Empty() {
			maker := lvl.PeekFront()
			tradeQty := decimal.Min(taker.Remaining(), maker.Remaining())
			tradePrice := lvl.Price

			maker.Fill(tradeQty, now)
			taker.Fill(tradeQty, now)
			lvl.ReduceHeadBy(tradeQty)

			var buyID, sellID string
			if taker.Side == Buy {
				buyID, sellID = taker.OrderID, maker.OrderID
			} else {
				buyID, sellID = maker.OrderID, taker.OrderID
			}
			trade := &Trade{
				TradeID:     uuid.NewString(),
				Symbol:      e.symbol,
				BuyOrderID:  buyID,
				SellOrderID: sellID,
				Price:       tradePrice,
				Quantity:    tradeQty,
				ExecutedAt:  now,
				MakerSeq:    maker.AcceptedSeq,
				TakerSeq:    taker.AcceptedSeq,
			}
			events = append(events, e.emit(Event{Kind: EventTrade, At: now, Trade: trade}))

			if maker.Remaining().Sign() == 0 {
				e.book.PopFilledHead(maker.Side, lvl.Price)
				action := DeltaRemove
				if !lvl.Empty() {
					action = DeltaUpdate
				}
				events = append(events, e.emit(Event{Kind: EventBookDelta, At: now, BookDelta: &BookDelta{
					Symbol: e.symbol, Side: maker.Side, Price: lvl.Price,
					TotalQuantity: lvl.TotalVisibleQuantity(), Action: action,
				}}))
			}
		}
	}

	switch {
	case taker.Remaining().Sign() == 0:
		taker.Status = Filled
	case taker.Type == Limit:
		if taker.FilledQuantity.Sign() > 0 {
			taker.Status = PartiallyFilled
		} else {
			taker.Status = Active
		}
		action := DeltaAdd
		if e.book.sideBook(taker.Side).HasLevel(*taker.Price) {
			action = DeltaUpdate
		}
		if err := e.book.Rest(taker); err != nil {
			return nil, err
		}
		restedLevel, _ := e.book.sideBook(taker.Side).PeekLevel(*taker.Price)
		var totalQty decimal.Decimal
		if restedLevel != nil {
			totalQty = restedLevel.TotalVisibleQuantity()
		}
		events = append(events, e.emit(Event{Kind: EventBookDelta, At: now, BookDelta: &BookDelta{
			Symbol: e.symbol, Side: taker.Side, Price: *taker.Price,
			TotalQuantity: totalQty, Action: action,
		}}))
	default:
		// MARKET, book exhausted before full fill: never rests (P7).
		taker.Status = Cancelled
		taker.RejectReason = "UNFILLED_MARKET"
	}

	events = append(events, e.emit(Event{Kind: EventOrderStatus, At: now, OrderStatus: &OrderStatusEvent{
		OrderID: taker.OrderID, Symbol: e.symbol, Status: taker.Status,
		FilledQuantity: taker.FilledQuantity, RemainingQuantity: taker.Remaining(), Reason: taker.RejectReason,
	}}))
	return events, nil
}

// cancelLocked implements the CANCEL command of spec §4.4. It must run under
// matchMu. An unknown or already-terminal order_id is returned to the caller
// as an error with no event emitted and no state change; only a cancel that
// actually removes a resting order is logged for replay.
func (e *MatchingEngine) cancelLocked(orderID string) ([]Event, *Order, error) {
	now := time.Now().UTC()

	o, err := e.book.Cancel(orderID)
	if err != nil {
		return nil, nil, err
	}
	o.Status = Cancelled
	o.UpdatedAt = now

	events := []Event{e.emit(Event{Kind: EventCancelRequest, At: now, CancelRequest: &CancelRequest{
		OrderID: orderID,
	}})}

	remainingLevel, _ := e.book.sideBook(o.Side).PeekLevel(*o.Price)
	var totalQty decimal.Decimal
	if remainingLevel != nil {
		totalQty = remainingLevel.TotalVisibleQuantity()
	}
	action := DeltaUpdate
	if remainingLevel == nil {
		action = DeltaRemove
	}

	events = append(events,
		e.emit(Event{Kind: EventBookDelta, At: now, BookDelta: &BookDelta{
			Symbol: e.symbol, Side: o.Side, Price: *o.Price,
			TotalQuantity: totalQty, Action: action,
		}}),
		e.emit(Event{Kind: EventOrderStatus, At: now, OrderStatus: &OrderStatusEvent{
			OrderID: o.OrderID, Symbol: e.symbol, Status: Cancelled,
			FilledQuantity: o.FilledQuantity, RemainingQuantity: o.Remaining(),
		}}),
	)
	return events, o, nil
}
