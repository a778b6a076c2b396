package engine

import "errors"

// Error kinds from spec §7. Comparisons use errors.Is against these sentinels,
// matching the teacher's habit of comparing against pgx.ErrNoRows / fiber.ErrBadRequest
// rather than defining exported error types.
var (
	// ErrInvalidOrder: validation failure (quantity, price, tick/lot, wrong symbol, market-with-price).
	ErrInvalidOrder = errors.New("invalid order")

	// ErrNotFound: cancel of an unknown order_id.
	ErrNotFound = errors.New("order not found")

	// ErrNotCancellable: cancel of a terminal order. The engine keeps no record
	// of orders once they leave the book, so no engine path returns it: a
	// cancel of a filled or already-cancelled order returns ErrNotFound.
	ErrNotCancellable = errors.New("order is not cancellable")

	// ErrInvariantViolation is fatal: it indicates a bug in the engine, never bad input.
	ErrInvariantViolation = errors.New("book invariant violation")

	// ErrSinkUnavailable: the durability sink refused commit.
	ErrSinkUnavailable = errors.New("durability sink unavailable")

	// ErrSymbolHalted: the engine halted this symbol after a sink failure.
	ErrSymbolHalted = errors.New("symbol halted after sink failure")

	// ErrDepthExceedsMax: snapshot depth requested above max_book_depth_snapshot.
	ErrDepthExceedsMax = errors.New("requested depth exceeds max_book_depth_snapshot")
)
