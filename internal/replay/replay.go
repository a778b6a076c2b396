// Package replay rebuilds every symbol's in-memory order book at startup
// from the durability sink, the way spec §6 requires a restarted engine to
// recover by replaying its committed event log before accepting new commands.
package replay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// Store is the subset of sink.Sink replay needs: which symbols have history,
// and that history in order.
type Store interface {
	Symbols(ctx context.Context) ([]string, error)
	Replay(ctx context.Context, symbol string) ([]engine.Event, error)
}

// Run replays every known symbol's committed events through its engine
// before the registry is exposed to callers. It must complete before any
// HTTP listener starts accepting submit/cancel traffic.
func Run(ctx context.Context, store Store, registry *engine.Registry, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	symbols, err := store.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols for replay: %w", err)
	}
	for _, symbol := range symbols {
		events, err := store.Replay(ctx, symbol)
		if err != nil {
			return fmt.Errorf("replay %s: %w", symbol, err)
		}
		if len(events) == 0 {
			continue
		}
		eng := registry.Engine(symbol)
		if err := eng.Replay(events); err != nil {
			return fmt.Errorf("replay %s: %w", symbol, err)
		}
		logger.Info("replayed symbol from durability sink",
			zap.String("symbol", symbol), zap.Int("events", len(events)))
	}
	return nil
}
