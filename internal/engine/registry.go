package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry routes commands by symbol to the owning MatchingEngine, creating
// one on first reference, and guarantees at most one command executes on a
// given engine at a time (spec §4.5, §5). Across symbols engines are
// independent and run in parallel.
type Registry struct {
	cfg       Config
	sink      Sink
	publisher Publisher
	logger    *zap.Logger

	mu       sync.RWMutex
	engines  map[string]*MatchingEngine
	creation singleflight.Group
}

// NewRegistry builds a registry that will construct engines lazily, wiring
// sink and publisher into every engine it creates.
func NewRegistry(cfg Config, sink Sink, publisher Publisher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:       cfg,
		sink:      sink,
		publisher: publisher,
		logger:    logger,
		engines:   make(map[string]*MatchingEngine),
	}
}

// engineFor returns the engine owning symbol, creating it on first reference.
// singleflight ensures concurrent first-references to the same symbol only
// construct one engine.
func (r *Registry) engineFor(symbol string) *MatchingEngine {
	r.mu.RLock()
	e, ok := r.engines[symbol]
	r.mu.RUnlock()
	if ok {
		return e
	}

	v, _, _ := r.creation.Do(symbol, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if e, ok := r.engines[symbol]; ok {
			return e, nil
		}
		e := NewMatchingEngine(symbol, r.cfg.ForSymbol(symbol), r.cfg.AcceptMarketOrders, r.cfg.MaxBookDepthSnapshot, r.sink, r.publisher, r.logger)
		r.engines[symbol] = e
		return e, nil
	})
	return v.(*MatchingEngine)
}

// Submit routes a SUBMIT command to the symbol's engine.
func (r *Registry) Submit(ctx context.Context, symbol string, o *Order) (SubmitResult, error) {
	return r.engineFor(symbol).Submit(ctx, o)
}

// Cancel routes a CANCEL command to the symbol's engine.
func (r *Registry) Cancel(ctx context.Context, symbol, orderID string) (CancelResult, error) {
	return r.engineFor(symbol).Cancel(ctx, orderID)
}

// Snapshot reads the top of book for symbol without routing through the
// command path (reads still execute under the engine's own exclusion).
func (r *Registry) Snapshot(symbol string, depth int) (SnapshotResult, error) {
	return r.engineFor(symbol).Snapshot(depth)
}

// Engine exposes the underlying engine for a symbol, e.g. for replay at startup.
func (r *Registry) Engine(symbol string) *MatchingEngine {
	return r.engineFor(symbol)
}

// Symbols lists every symbol with a constructed engine.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.engines))
	for s := range r.engines {
		out = append(out, s)
	}
	return out
}
