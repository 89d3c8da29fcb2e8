// Package router dispatches normalized Slack interactions to their handlers
// through a bounded inbox and a fixed worker pool.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's inbox is at capacity and the
	// interaction was dropped. The transport has already acknowledged it.
	ErrInboxFull = errors.New("router: inbox full, interaction dropped")

	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting interactions.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoHandler indicates an interaction whose key is absent from the
	// dispatch table. Such interactions are dropped without effect.
	ErrNoHandler = errors.New("router: no handler registered")

	// ErrNoTable indicates a router built without a dispatch table.
	ErrNoTable = errors.New("router: no dispatch table configured")

	// ErrTableFrozen indicates a registration after the table was frozen.
	ErrTableFrozen = errors.New("router: dispatch table is frozen")

	// ErrDuplicateHandler indicates a second registration for the same key.
	ErrDuplicateHandler = errors.New("router: handler already registered")
)
