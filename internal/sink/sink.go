// Package sink implements the durability hand-off contract from spec §6:
// commit(symbol, symbol_seq_range, events[]) -> Ack, idempotent keyed on
// (symbol, symbol_seq), replayable from the last acknowledged symbol_seq.
package sink

import (
	"context"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// Sink extends engine.Sink with the read side of the durability contract:
// the last acknowledged seq, the ordered event log, and the symbols with
// history.
type Sink interface {
	engine.Sink
	// LastAcked returns the highest symbol_seq committed for symbol, or 0 if none.
	LastAcked(ctx context.Context, symbol string) (uint64, error)
	// Replay returns every committed event for symbol in symbol_seq order.
	Replay(ctx context.Context, symbol string) ([]engine.Event, error)
	// Symbols returns every distinct symbol with at least one committed event.
	Symbols(ctx context.Context) ([]string, error)
}
