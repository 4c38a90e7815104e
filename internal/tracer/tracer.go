// Package tracer implements the tracer controller ("Debugger"): it
// owns the pid, the load bias, the breakpoint table, and the DWARF
// resolver, and drives continue/step/wait, interpreting stop reasons
// and coordinating step-over.
//
// Grounded on the original debugger's debugger module (wait_trap/
// step_over_breakpoint/continue_execution) for the control-flow
// semantics, and on golang.org/x/debug/program/server.Server's
// Resume/Breakpoint methods for the Go ptrace-calling-convention shape
// of the same state machine.
package tracer

import (
	"encoding/binary"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/mdbg-go/mdbg/internal/breakpoint"
	"github.com/mdbg-go/mdbg/internal/dbgerr"
	"github.com/mdbg-go/mdbg/internal/ptrace"
	"github.com/mdbg-go/mdbg/internal/regfile"
	"github.com/mdbg-go/mdbg/internal/sourceline"
)

// Backend is the set of trace primitives the controller drives. It is
// satisfied by *ptrace.Tracer; tests substitute a fake.
type Backend interface {
	Cont(pid int) error
	SingleStep(pid int) error
	GetRegs(pid int, out *unix.PtraceRegs) error
	SetRegs(pid int, regs *unix.PtraceRegs) error
	PeekData(pid int, addr uintptr, out []byte) error
	PokeData(pid int, addr uintptr, data []byte) error
	GetSigInfo(pid int) (*ptrace.Siginfo, error)
	Wait(pid int) (wpid int, ws unix.WaitStatus, err error)
}

// BreakpointRef identifies where to install a breakpoint: either a
// direct address, or a (filename, line) pair resolved through DWARF.
type BreakpointRef struct {
	addr     uint64
	filename string
	line     uint64
	byLine   bool
}

// AtAddr references a breakpoint by direct virtual address.
func AtAddr(addr uint64) BreakpointRef { return BreakpointRef{addr: addr} }

// AtLine references a breakpoint by source location, resolved via DWARF
// and adjusted by the controller's load bias.
func AtLine(filename string, line uint64) BreakpointRef {
	return BreakpointRef{filename: filename, line: line, byLine: true}
}

// Debugger is the tracer controller: it owns the pid, the load bias,
// the breakpoint table, and the DWARF resolver for one debugging
// session.
type Debugger struct {
	trace    Backend
	pid      int
	resolver *sourceline.Resolver
	loadAddr uint64
	bps      map[uint64]*breakpoint.Breakpoint
	log      *slog.Logger
}

// New constructs a controller for pid, using resolver for (file, line)
// breakpoint references. logger may be nil, in which case slog's
// default logger is used.
func New(trace Backend, pid int, resolver *sourceline.Resolver, logger *slog.Logger) *Debugger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debugger{
		trace:    trace,
		pid:      pid,
		resolver: resolver,
		bps:      make(map[uint64]*breakpoint.Breakpoint),
		log:      logger,
	}
}

// SetLoadAddr stores the load bias. Must be called before any
// SetBreakpoint that uses a line reference.
func (d *Debugger) SetLoadAddr(addr uint64) {
	d.loadAddr = addr
}

// WaitAttach waits for the tracee's initial stop and requires it to be
// user-origin (the stop initiated by PTRACE_TRACEME or PTRACE_ATTACH,
// not a kernel-delivered breakpoint trap). This is the only wait that
// rejects a non-user si_code.
func (d *Debugger) WaitAttach() error {
	_, _, err := d.waitTrap(true)
	return err
}

// SetBreakpoint installs (or, if already enabled, no-ops on) a
// breakpoint at ref's resolved address. Re-enabling an already-enabled
// breakpoint at the same address must not re-read tracee memory: doing
// so would read back 0xCC and "save" it as the original byte, making a
// later disable unable to restore the real instruction.
func (d *Debugger) SetBreakpoint(ref BreakpointRef) error {
	addr := ref.addr
	if ref.byLine {
		unbiased, ok, err := d.resolver.GetSourceLineAddr(ref.filename, ref.line)
		if err != nil {
			return err
		}
		if !ok {
			return dbgerr.Newf(dbgerr.LineNotFound, "set_breakpoint: no statement row for %s:%d", ref.filename, ref.line)
		}
		addr = unbiased + d.loadAddr
	}

	bp, exists := d.bps[addr]
	if !exists {
		bp = breakpoint.New(d.trace, d.pid, addr)
		d.bps[addr] = bp
	}
	if bp.Enabled() {
		return nil
	}
	d.log.Debug("installing breakpoint", "addr", addr)
	return bp.Switch(true)
}

// GetRegisterValue fetches the current register snapshot and returns
// the selected register's value.
func (d *Debugger) GetRegisterValue(sel regfile.Selector) (uint64, error) {
	var regs unix.PtraceRegs
	if err := d.trace.GetRegs(d.pid, &regs); err != nil {
		return 0, dbgerr.Wrapf(dbgerr.PtraceIo, err, "get_register_value: get regs")
	}
	v, err := regfile.Get(&regs, sel)
	if err != nil {
		return 0, dbgerr.Wrapf(dbgerr.UnknownRegister, err, "get_register_value")
	}
	return v, nil
}

// SetRegisterValue fetches the current register snapshot, mutates the
// selected register, and writes the snapshot back.
func (d *Debugger) SetRegisterValue(sel regfile.Selector, value uint64) error {
	var regs unix.PtraceRegs
	if err := d.trace.GetRegs(d.pid, &regs); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "set_register_value: get regs")
	}
	if err := regfile.Set(&regs, sel, value); err != nil {
		return dbgerr.Wrapf(dbgerr.UnknownRegister, err, "set_register_value")
	}
	if err := d.trace.SetRegs(d.pid, &regs); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "set_register_value: set regs")
	}
	return nil
}

// DumpRegisters fetches the current register snapshot and returns it
// in canonical order.
func (d *Debugger) DumpRegisters() ([]regfile.Entry, error) {
	var regs unix.PtraceRegs
	if err := d.trace.GetRegs(d.pid, &regs); err != nil {
		return nil, dbgerr.Wrapf(dbgerr.PtraceIo, err, "dump_registers: get regs")
	}
	return regfile.Dump(&regs), nil
}

// ReadMemory performs a word-sized peek at addr.
func (d *Debugger) ReadMemory(addr uint64) (int64, error) {
	var buf [8]byte
	if err := d.trace.PeekData(d.pid, uintptr(addr), buf[:]); err != nil {
		return 0, dbgerr.Wrapf(dbgerr.PtraceIo, err, "read_memory at %#x", addr)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteMemory performs a word-sized poke at addr.
func (d *Debugger) WriteMemory(addr uint64, value int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	if err := d.trace.PokeData(d.pid, uintptr(addr), buf[:]); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "write_memory at %#x", addr)
	}
	return nil
}

// ContinueExecution steps over a live breakpoint at the current RIP
// (if any), resumes the tracee with no signal injected, and waits for
// the next stop. A clean exit returns (true, status, nil); any other
// stop returns (false, 0, nil) after being classified and, for a
// breakpoint hit, having RIP corrected.
func (d *Debugger) ContinueExecution() (exited bool, status int, err error) {
	if err := d.stepOverBreakpoint(); err != nil {
		return false, 0, err
	}
	if err := d.trace.Cont(d.pid); err != nil {
		return false, 0, dbgerr.Wrapf(dbgerr.PtraceIo, err, "continue_execution: cont")
	}
	return d.waitTrap(false)
}

// stepOverBreakpoint disables a live breakpoint at the current RIP (if
// any), single-steps past it, and re-enables it. A trap instruction has
// already consumed the byte at RIP and waitTrap has already corrected
// RIP back to the trap address by the time this runs, so the original
// byte must be restored before the single step executes the intended
// instruction.
func (d *Debugger) stepOverBreakpoint() error {
	rip, err := d.GetRegisterValue(regfile.ByTag(regfile.RIP))
	if err != nil {
		return err
	}
	bp, ok := d.bps[rip]
	if !ok || !bp.Enabled() {
		return nil
	}

	if err := bp.Switch(false); err != nil {
		return err
	}
	if err := d.trace.SingleStep(d.pid); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "step_over_breakpoint: single step")
	}
	if _, _, err := d.waitTrap(false); err != nil {
		return err
	}
	return bp.Switch(true)
}

// waitTrap waits for the tracee's next stop and classifies it. When
// attachOnly is set, a SIGSTOP stop (the initial stop after
// PTRACE_ATTACH) is accepted, and any si_code other than SI_USER on a
// SIGTRAP stop fails with AttachFailed.
func (d *Debugger) waitTrap(attachOnly bool) (exited bool, status int, err error) {
	_, ws, err := d.trace.Wait(d.pid)
	if err != nil {
		return false, 0, dbgerr.Wrapf(dbgerr.PtraceIo, err, "wait")
	}

	switch {
	case ws.Exited():
		return true, ws.ExitStatus(), nil

	case ws.Signaled() && ws.Signal() == unix.SIGSEGV:
		return false, 0, dbgerr.New(dbgerr.Segfault, "tracee terminated by SIGSEGV")

	case attachOnly && ws.Stopped() && ws.StopSignal() == unix.SIGSTOP:
		// PTRACE_ATTACH stops the tracee with SIGSTOP, not SIGTRAP.
		return false, 0, nil

	case ws.Stopped() && ws.StopSignal() == unix.SIGTRAP:
		si, err := d.trace.GetSigInfo(d.pid)
		if err != nil {
			return false, 0, dbgerr.Wrapf(dbgerr.PtraceIo, err, "wait: get siginfo")
		}

		if attachOnly && si.Code != ptrace.SI_USER {
			return false, 0, dbgerr.Newf(dbgerr.AttachFailed, "wait_attach: si_code %#x is not SI_USER", si.Code)
		}

		switch si.Code {
		case ptrace.SI_KERNEL, ptrace.TRAP_BRKPT:
			rip, err := d.GetRegisterValue(regfile.ByTag(regfile.RIP))
			if err != nil {
				return false, 0, err
			}
			d.log.Debug("breakpoint hit", "rip", rip)
			if err := d.SetRegisterValue(regfile.ByTag(regfile.RIP), rip-1); err != nil {
				return false, 0, err
			}
		case ptrace.SI_USER, ptrace.TRAP_TRACE:
			// Initial attach stop or single-step completion; no correction.
		default:
			return false, 0, dbgerr.Newf(dbgerr.UnknownTrapCode, "unknown SIGTRAP si_code %#x", si.Code)
		}
		return false, 0, nil

	default:
		return false, 0, dbgerr.Newf(dbgerr.UnexpectedStop, "unexpected wait status: %v", ws)
	}
}
