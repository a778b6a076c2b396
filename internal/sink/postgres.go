package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// PostgresSink persists every emitted event through the teacher's own
// driver, pgx — one row per event, keyed (symbol, symbol_seq), with
// ON CONFLICT DO NOTHING giving the idempotent-commit contract of spec §6.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS engine_events (
	symbol     TEXT NOT NULL,
	symbol_seq BIGINT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, symbol_seq)
)`

// EnsureSchema creates the events table if it does not already exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createEventsTable)
	return err
}

// Commit persists events[fromSeq..toSeq] for symbol atomically-per-command,
// satisfying the durability sink contract of spec §6.
func (s *PostgresSink) Commit(ctx context.Context, symbol string, fromSeq, toSeq uint64, events []engine.Event) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO engine_events (symbol, symbol_seq, kind, payload, at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, symbol_seq) DO NOTHING
	`
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %s/%d: %w", symbol, ev.SymbolSeq, err)
		}
		if _, err := tx.Exec(ctx, query, symbol, ev.SymbolSeq, ev.Kind, payload, ev.At); err != nil {
			return fmt.Errorf("insert event %s/%d: %w", symbol, ev.SymbolSeq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LastAcked returns the highest symbol_seq committed for symbol, or 0 if none.
func (s *PostgresSink) LastAcked(ctx context.Context, symbol string) (uint64, error) {
	var seq *int64
	err := s.pool.QueryRow(ctx, "SELECT MAX(symbol_seq) FROM engine_events WHERE symbol = $1", symbol).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if seq == nil {
		return 0, nil
	}
	return uint64(*seq), nil
}

// Symbols returns every distinct symbol with at least one committed event,
// so startup replay knows which engines to rebuild before accepting traffic.
func (s *PostgresSink) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT symbol FROM engine_events")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// Replay returns every committed event for symbol in symbol_seq order, so
// the engine can rebuild its in-memory book at startup (spec §6).
func (s *PostgresSink) Replay(ctx context.Context, symbol string) ([]engine.Event, error) {
	rows, err := s.pool.Query(ctx, "SELECT payload FROM engine_events WHERE symbol = $1 ORDER BY symbol_seq ASC", symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []engine.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev engine.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
