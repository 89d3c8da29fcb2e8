package router

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/flemzord/slackapprove/pkg/interaction"
)

// Handler processes one interaction. The context carries the per-unit
// timeout.
type Handler func(ctx context.Context, in interaction.Interaction) error

// Table maps interaction keys to handlers. It is built once at wiring time
// and frozen before the router starts; lookups after Freeze need no locking.
type Table struct {
	handlers map[interaction.Key]Handler
	frozen   atomic.Bool
}

// NewTable creates an empty, unfrozen table.
func NewTable() *Table {
	return &Table{handlers: make(map[interaction.Key]Handler)}
}

// Register binds h to (kind, id).
func (t *Table) Register(kind interaction.Kind, id string, h Handler) error {
	key := interaction.Key{Kind: kind, ID: id}
	if t.frozen.Load() {
		return fmt.Errorf("%w: %s", ErrTableFrozen, key)
	}
	if h == nil {
		return fmt.Errorf("router: nil handler for %s", key)
	}
	if _, exists := t.handlers[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key)
	}
	t.handlers[key] = h
	return nil
}

// MustRegister is Register that panics on error. Intended for wiring code.
func (t *Table) MustRegister(kind interaction.Kind, id string, h Handler) {
	if err := t.Register(kind, id, h); err != nil {
		panic(err)
	}
}

// Freeze makes the table read-only.
func (t *Table) Freeze() {
	t.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// Lookup returns the handler for key.
func (t *Table) Lookup(key interaction.Key) (Handler, bool) {
	h, ok := t.handlers[key]
	return h, ok
}

// Keys returns every registered key, sorted.
func (t *Table) Keys() []interaction.Key {
	keys := make([]interaction.Key, 0, len(t.handlers))
	for k := range t.handlers {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b interaction.Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}
