// This is the tracee used by the end-to-end integration test: a single
// goroutine that calls a marked function a few times and exits with a
// known status, small and single-threaded so the test has one
// deterministic address to set a breakpoint on and one exit status to
// assert. Adapted from the original ptrace demo's tracee, narrowed to
// one goroutine (the demo used multiple goroutines/threads to exercise
// multi-threaded tracing, a case this debugger does not support).
package main

import "os"

var calls int

func tick() {
	calls++
}

func main() {
	for i := 0; i < 3; i++ {
		tick()
	}
	os.Exit(42)
}
