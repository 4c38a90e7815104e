//go:build linux

// Package ptrace provides the trace syscall primitives the tracer
// controller is built on. Every primitive runs on one dedicated OS
// thread, because the kernel requires ptrace requests for a tracee to
// come from the thread that attached to it.
package ptrace

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// Tracer serializes every trace syscall for one tracee onto a single,
// locked OS thread.
type Tracer struct {
	fc chan func() error
	ec chan error
}

// New starts the dedicated tracer goroutine and returns a handle to it.
// The caller must eventually call Close.
func New() *Tracer {
	t := &Tracer{
		fc: make(chan func() error),
		ec: make(chan error),
	}
	go t.run()
	return t
}

// Close stops the dedicated goroutine. It does not affect the tracee.
func (t *Tracer) Close() {
	close(t.fc)
}

// run services fc on a single OS thread for the lifetime of the Tracer.
func (t *Tracer) run() {
	if cap(t.fc) != 0 || cap(t.ec) != 0 {
		panic("ptrace.Tracer: fc/ec must be unbuffered")
	}
	runtime.LockOSThread()
	for f := range t.fc {
		t.ec <- f()
	}
}

func (t *Tracer) do(f func() error) error {
	t.fc <- f
	return <-t.ec
}

// Do runs f on the tracer's dedicated OS thread, the same thread
// StartProcess forks and execs on. Callers that need to set per-thread
// process state before a fork (personality(2) flags, for instance,
// live on task_struct and are not inherited across goroutine
// scheduling onto a different thread) must route that work through Do
// rather than issuing the syscall on whatever thread happens to be
// running them.
func (t *Tracer) Do(f func() error) error {
	return t.do(f)
}

// StartProcess starts name under ptrace, analogous to os.StartProcess
// with Sys.Ptrace set, issued from the tracer thread.
func (t *Tracer) StartProcess(name string, argv []string, attr *os.ProcAttr) (proc *os.Process, err error) {
	err = t.do(func() error {
		var err1 error
		proc, err1 = os.StartProcess(name, argv, attr)
		return err1
	})
	return proc, err
}

// Attach issues PTRACE_ATTACH against an already-running pid.
func (t *Tracer) Attach(pid int) error {
	return t.do(func() error {
		return unix.PtraceAttach(pid)
	})
}

// Cont resumes the tracee, injecting no signal.
func (t *Tracer) Cont(pid int) error {
	return t.do(func() error {
		return unix.PtraceCont(pid, 0)
	})
}

// SingleStep executes exactly one instruction in the tracee.
func (t *Tracer) SingleStep(pid int) error {
	return t.do(func() error {
		return unix.PtraceSingleStep(pid)
	})
}

// GetRegs reads the tracee's architectural register snapshot.
func (t *Tracer) GetRegs(pid int, out *unix.PtraceRegs) error {
	return t.do(func() error {
		return unix.PtraceGetRegs(pid, out)
	})
}

// SetRegs writes the tracee's architectural register snapshot.
func (t *Tracer) SetRegs(pid int, regs *unix.PtraceRegs) error {
	return t.do(func() error {
		return unix.PtraceSetRegs(pid, regs)
	})
}

// PeekData reads len(out) bytes of tracee memory at addr.
func (t *Tracer) PeekData(pid int, addr uintptr, out []byte) error {
	return t.do(func() error {
		n, err := unix.PtracePeekData(pid, addr, out)
		if err != nil {
			return err
		}
		if n != len(out) {
			return fmt.Errorf("ptrace: peeked %d bytes, want %d", n, len(out))
		}
		return nil
	})
}

// PokeData writes data into tracee memory at addr.
func (t *Tracer) PokeData(pid int, addr uintptr, data []byte) error {
	return t.do(func() error {
		n, err := unix.PtracePokeData(pid, addr, data)
		if err != nil {
			return err
		}
		if n != len(data) {
			return fmt.Errorf("ptrace: poked %d bytes, want %d", n, len(data))
		}
		return nil
	})
}

// GetSigInfo reads the siginfo_t the kernel attached to the tracee's
// last stop. golang.org/x/sys/unix has no typed PTRACE_GETSIGINFO
// wrapper, so this issues the raw request directly.
func (t *Tracer) GetSigInfo(pid int) (*Siginfo, error) {
	var si Siginfo
	err := t.do(func() error {
		return ptraceGetSigInfo(pid, &si)
	})
	if err != nil {
		return nil, err
	}
	return &si, nil
}

// Wait waits for any state change of pid (or any child, if pid == -1)
// and returns the raw wait status.
func (t *Tracer) Wait(pid int) (wpid int, ws unix.WaitStatus, err error) {
	err = t.do(func() error {
		var err1 error
		wpid, err1 = unix.Wait4(pid, &ws, 0, nil)
		return err1
	})
	return wpid, ws, err
}
