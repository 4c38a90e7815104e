// Package command implements the textual command grammar: tokenizing a
// line, invoking the corresponding controller operation, and formatting
// its result.
//
// Grounded on the original debugger's cli/src/commands.rs handle_command
// function for the grammar and output formatting, adapted so that only
// a clean tracee exit or a segfault ends the read loop (BadCommand and
// the other classified errors print a diagnostic and continue, per the
// distilled error-handling policy rather than the Rust original's
// unconditional `?` propagation).
package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mdbg-go/mdbg/internal/dbgerr"
	"github.com/mdbg-go/mdbg/internal/regfile"
	"github.com/mdbg-go/mdbg/internal/tracer"
)

// Controller is the subset of *tracer.Debugger the dispatcher drives.
type Controller interface {
	ContinueExecution() (exited bool, status int, err error)
	SetBreakpoint(ref tracer.BreakpointRef) error
	GetRegisterValue(sel regfile.Selector) (uint64, error)
	SetRegisterValue(sel regfile.Selector, value uint64) error
	DumpRegisters() ([]regfile.Entry, error)
	ReadMemory(addr uint64) (int64, error)
	WriteMemory(addr uint64, value int64) error
}

// Dispatcher parses and executes one command line at a time against a
// Controller, writing formatted results to out.
type Dispatcher struct {
	ctrl Controller
	out  io.Writer
}

// New builds a Dispatcher invoking ctrl and writing to out.
func New(ctrl Controller, out io.Writer) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, out: out}
}

// Dispatch parses and runs one line. done reports whether the read
// loop should stop (a clean tracee exit or a segfault); err, when
// non-nil, is a diagnostic the caller should report (the caller is not
// obligated to print it itself — Dispatch already writes it to out).
func (d *Dispatcher) Dispatch(line string) (done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	done, err = d.run(fields)
	if err == nil {
		return done, nil
	}

	fmt.Fprintf(d.out, "error: %v\n", err)
	return dbgerr.Is(err, dbgerr.Segfault), err
}

func (d *Dispatcher) run(fields []string) (done bool, err error) {
	switch fields[0] {
	case "continue":
		return d.runContinue(fields)
	case "break":
		return false, d.runBreak(fields)
	case "register":
		return false, d.runRegister(fields)
	case "memory":
		return false, d.runMemory(fields)
	default:
		return false, dbgerr.Newf(dbgerr.BadCommand, "unknown command %q", fields[0])
	}
}

func (d *Dispatcher) runContinue(fields []string) (done bool, err error) {
	if len(fields) != 1 {
		return false, dbgerr.New(dbgerr.BadCommand, "continue takes no arguments")
	}
	exited, status, err := d.ctrl.ContinueExecution()
	if err != nil {
		return false, err
	}
	if exited {
		fmt.Fprintf(d.out, "Process exited with status: %d\n", status)
	}
	return exited, nil
}

func (d *Dispatcher) runBreak(fields []string) error {
	if len(fields) != 3 {
		return dbgerr.New(dbgerr.BadCommand, "usage: break <filename> <line>")
	}
	line, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return dbgerr.Wrapf(dbgerr.BadCommand, err, "break: parse line number %q", fields[2])
	}
	return d.ctrl.SetBreakpoint(tracer.AtLine(fields[1], line))
}

func (d *Dispatcher) runRegister(fields []string) error {
	if len(fields) < 2 {
		return dbgerr.New(dbgerr.BadCommand, "usage: register dump|read|write ...")
	}
	switch fields[1] {
	case "dump":
		if len(fields) != 2 {
			return dbgerr.New(dbgerr.BadCommand, "register dump takes no arguments")
		}
		entries, err := d.ctrl.DumpRegisters()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(d.out, "%s: 0x%X\n", e.Name, e.Value)
		}
		return nil

	case "read":
		if len(fields) != 3 {
			return dbgerr.New(dbgerr.BadCommand, "usage: register read <name>")
		}
		v, err := d.ctrl.GetRegisterValue(regfile.ByName(fields[2]))
		if err != nil {
			return err
		}
		fmt.Fprintf(d.out, "%s: 0x%X\n", fields[2], v)
		return nil

	case "write":
		if len(fields) != 4 {
			return dbgerr.New(dbgerr.BadCommand, "usage: register write <name> <hex>")
		}
		v, err := strconv.ParseUint(fields[3], 16, 64)
		if err != nil {
			return dbgerr.Wrapf(dbgerr.BadCommand, err, "register write: parse hex value %q", fields[3])
		}
		return d.ctrl.SetRegisterValue(regfile.ByName(fields[2]), v)

	default:
		return dbgerr.Newf(dbgerr.BadCommand, "unknown register subcommand %q", fields[1])
	}
}

func (d *Dispatcher) runMemory(fields []string) error {
	if len(fields) < 2 {
		return dbgerr.New(dbgerr.BadCommand, "usage: memory read|write ...")
	}
	switch fields[1] {
	case "read":
		if len(fields) != 3 {
			return dbgerr.New(dbgerr.BadCommand, "usage: memory read <hex-addr>")
		}
		addr, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return dbgerr.Wrapf(dbgerr.BadCommand, err, "memory read: parse hex address %q", fields[2])
		}
		v, err := d.ctrl.ReadMemory(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.out, "0x%X\n", uint64(v))
		return nil

	case "write":
		if len(fields) != 4 {
			return dbgerr.New(dbgerr.BadCommand, "usage: memory write <hex-addr> <hex-value>")
		}
		addr, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return dbgerr.Wrapf(dbgerr.BadCommand, err, "memory write: parse hex address %q", fields[2])
		}
		value, err := strconv.ParseUint(fields[3], 16, 64)
		if err != nil {
			return dbgerr.Wrapf(dbgerr.BadCommand, err, "memory write: parse hex value %q", fields[3])
		}
		return d.ctrl.WriteMemory(addr, int64(value))

	default:
		return dbgerr.Newf(dbgerr.BadCommand, "unknown memory subcommand %q", fields[1])
	}
}
