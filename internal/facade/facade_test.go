package facade_test

import (
	"errors"
	"testing"

	"github.com/mdbg-go/mdbg/internal/facade"
	"github.com/mdbg-go/mdbg/internal/tracer"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	var c facade.Cell
	dbg := tracer.New(nil, 1, nil, nil)

	h := c.Acquire(dbg)
	if h == 0 {
		t.Fatal("expected a non-zero handle")
	}

	got, ok := c.Release(h)
	if !ok {
		t.Fatal("expected Release to succeed with the handle Acquire returned")
	}
	if got != dbg {
		t.Fatal("expected Release to return the acquired controller")
	}
}

func TestReleaseRejectsWrongHandle(t *testing.T) {
	var c facade.Cell
	dbg := tracer.New(nil, 1, nil, nil)
	c.Acquire(dbg)

	if _, ok := c.Release(facade.Handle(999)); ok {
		t.Fatal("expected Release to reject a handle that was never issued")
	}
}

func TestReleaseRejectsZeroHandle(t *testing.T) {
	var c facade.Cell
	if _, ok := c.Release(0); ok {
		t.Fatal("expected Release to reject the zero handle on an empty cell")
	}
}

func TestReleaseIsOneShot(t *testing.T) {
	var c facade.Cell
	dbg := tracer.New(nil, 1, nil, nil)
	h := c.Acquire(dbg)

	if _, ok := c.Release(h); !ok {
		t.Fatal("expected the first Release to succeed")
	}
	if _, ok := c.Release(h); ok {
		t.Fatal("expected a second Release with the same handle to fail")
	}
}

func TestAcquireInvalidatesPreviousHandle(t *testing.T) {
	var c facade.Cell
	first := c.Acquire(tracer.New(nil, 1, nil, nil))
	c.Acquire(tracer.New(nil, 2, nil, nil))

	if _, ok := c.Release(first); ok {
		t.Fatal("expected the stale handle to be rejected after a new Acquire")
	}
}

func TestWithDebuggerInvokesFnOnMatch(t *testing.T) {
	var c facade.Cell
	dbg := tracer.New(nil, 1, nil, nil)
	h := c.Acquire(dbg)

	var called bool
	sentinel := errors.New("sentinel")
	ok, err := c.WithDebugger(h, func(d *tracer.Debugger) error {
		called = true
		if d != dbg {
			t.Fatal("expected the acquired controller to be passed through")
		}
		return sentinel
	})
	if !ok {
		t.Fatal("expected WithDebugger to validate the handle")
	}
	if !called {
		t.Fatal("expected fn to be invoked")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want sentinel", err)
	}
}

func TestWithDebuggerRejectsWrongHandle(t *testing.T) {
	var c facade.Cell
	c.Acquire(tracer.New(nil, 1, nil, nil))

	ok, err := c.WithDebugger(facade.Handle(999), func(d *tracer.Debugger) error {
		t.Fatal("fn must not be called for a mismatched handle")
		return nil
	})
	if ok {
		t.Fatal("expected WithDebugger to reject the mismatched handle")
	}
	if err != nil {
		t.Fatalf("expected a nil error, got %v", err)
	}
}
