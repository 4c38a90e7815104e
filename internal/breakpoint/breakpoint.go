// Package breakpoint owns one patched address: it saves the original
// low byte, overwrites it with the trap opcode, and restores it on
// disable.
//
// Grounded on the original debugger's breakpoint module (read-modify-
// write a single word so neighboring bytes are preserved bitwise) and
// golang.org/x/debug/program/server's origInstr/poke bookkeeping.
package breakpoint

import (
	"github.com/mdbg-go/mdbg/internal/dbgerr"
)

// int3 is the x86_64 software-trap opcode.
const int3 = 0xCC

// wordSize is the size, in bytes, of a single ptrace peek/poke word.
const wordSize = 8

// MemoryAccessor is the subset of trace primitives a Breakpoint needs
// to patch and restore instruction bytes.
type MemoryAccessor interface {
	PeekData(pid int, addr uintptr, out []byte) error
	PokeData(pid int, addr uintptr, data []byte) error
}

// Breakpoint is one patched address in one tracee.
type Breakpoint struct {
	mem     MemoryAccessor
	pid     int
	addr    uint64
	enabled bool
	saved   *byte // nil == Option<u8>::None
}

// New creates a fresh, disabled breakpoint at addr. It does not touch
// tracee memory until Switch(true) is called.
func New(mem MemoryAccessor, pid int, addr uint64) *Breakpoint {
	return &Breakpoint{mem: mem, pid: pid, addr: addr}
}

// Address returns the patched address.
func (b *Breakpoint) Address() uint64 { return b.addr }

// Enabled reports whether the trap opcode is currently installed.
func (b *Breakpoint) Enabled() bool { return b.enabled }

// Switch installs (enable == true) or removes (enable == false) the
// trap opcode at Address(). The underlying read-modify-write happens
// as a single word-sized peek/poke pair so neighboring bytes are
// preserved bitwise.
func (b *Breakpoint) Switch(enable bool) error {
	var word [wordSize]byte
	if err := b.mem.PeekData(b.pid, uintptr(b.addr), word[:]); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "breakpoint: peek word at %#x", b.addr)
	}

	if enable {
		saved := word[0]
		word[0] = int3
		b.saved = &saved
	} else {
		if b.saved == nil {
			return dbgerr.Newf(dbgerr.NoSavedByte, "breakpoint: disable at %#x with no saved byte", b.addr)
		}
		word[0] = *b.saved
	}

	if err := b.mem.PokeData(b.pid, uintptr(b.addr), word[:]); err != nil {
		return dbgerr.Wrapf(dbgerr.PtraceIo, err, "breakpoint: poke word at %#x", b.addr)
	}
	b.enabled = enable
	return nil
}
