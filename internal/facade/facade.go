// Package facade provides the single-slot context cell a foreign-callable
// boundary (cgo/FFI) would dispatch through: at most one controller is
// held at a time, guarded by a handle that must match the one returned
// by Acquire.
//
// Grounded on original_source/clib/src/context.rs's Context/CONTEXT: a
// single static AtomicCell<Option<Debugger>> storing at most one
// controller, with Context::from validating the caller-supplied pointer
// against the cell's own address before granting access, and Context's
// Drop restoring the debugger to the cell. Nothing in cmd/mdbg calls
// this package; it exists so a future C ABI has a home, matching design
// note §9's "single-slot cell with explicit acquire/release semantics"
// guidance without inventing a C ABI this repository does not own.
package facade

import (
	"sync"

	"github.com/mdbg-go/mdbg/internal/tracer"
)

// Handle identifies one Acquire'd controller. The zero Handle never
// matches a live acquisition.
type Handle uint64

// Cell is a single-slot store for one *tracer.Debugger at a time.
type Cell struct {
	mu      sync.Mutex
	next    uint64
	current Handle
	dbg     *tracer.Debugger
}

// Acquire stores dbg in the cell and returns a Handle that must be
// presented to Release or WithDebugger to reach it. Acquiring while the
// cell already holds a controller replaces it; the previous handle is
// invalidated.
func (c *Cell) Acquire(dbg *tracer.Debugger) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.current = Handle(c.next)
	c.dbg = dbg
	return c.current
}

// Release validates h against the cell's current handle and, on match,
// removes and returns the stored controller, emptying the slot. ok is
// false if h does not match (including an empty cell).
func (c *Cell) Release(h Handle) (dbg *tracer.Debugger, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h == 0 || h != c.current {
		return nil, false
	}
	dbg = c.dbg
	c.dbg = nil
	c.current = 0
	return dbg, true
}

// WithDebugger validates h and, on match, invokes fn with the stored
// controller without removing it from the cell. It reports whether h
// was valid.
func (c *Cell) WithDebugger(h Handle, fn func(*tracer.Debugger) error) (ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h == 0 || h != c.current {
		return false, nil
	}
	return true, fn(c.dbg)
}
