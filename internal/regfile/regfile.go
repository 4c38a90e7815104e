// Package regfile adapts between a symbolic register selector and the
// ordered architectural register struct the trace syscalls operate on.
//
// Grounded on the descriptor-table dispatch of the original debugger's
// register module (one table of {tag, name, field} entries walked once
// per lookup) and golang.org/x/debug/arch's architecture-description
// style of keeping the field layout in one place.
package regfile

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Reg is a stable tag identifying one architectural register.
type Reg int

// The 26 x86_64 registers, in canonical dump order.
const (
	R15 Reg = iota
	R14
	R13
	R12
	RBP
	RBX
	R11
	R10
	R9
	R8
	RAX
	RCX
	RDX
	RSI
	RDI
	RIP
	CS
	EFLAGS
	RSP
	SS
	FSBASE
	GSBASE
	DS
	ES
	FS
	GS
	numRegs
)

// Selector identifies a register either by its stable tag or by its
// canonical textual name. Name matching is case-sensitive.
type Selector struct {
	reg    Reg
	name   string
	byName bool
}

// ByTag selects a register by its stable enum tag.
func ByTag(r Reg) Selector { return Selector{reg: r} }

// ByName selects a register by its canonical textual name.
func ByName(name string) Selector { return Selector{name: name, byName: true} }

// UnknownRegisterError is returned when a Selector matches no register.
type UnknownRegisterError struct {
	Selector Selector
}

func (e UnknownRegisterError) Error() string {
	if e.Selector.byName {
		return fmt.Sprintf("unknown register: %q", e.Selector.name)
	}
	return fmt.Sprintf("unknown register tag: %d", e.Selector.reg)
}

// Entry is one (name, value) pair in dump order.
type Entry struct {
	Name  string
	Value uint64
}

type descriptor struct {
	reg   Reg
	name  string
	field *uint64
}

// descriptors returns the canonical-order descriptor table bound to
// regs's fields. Built fresh per call since regs is caller-owned and
// may be reused across stops.
func descriptors(regs *unix.PtraceRegs) [numRegs]descriptor {
	return [numRegs]descriptor{
		{R15, "r15", &regs.R15},
		{R14, "r14", &regs.R14},
		{R13, "r13", &regs.R13},
		{R12, "r12", &regs.R12},
		{RBP, "rbp", &regs.Rbp},
		{RBX, "rbx", &regs.Rbx},
		{R11, "r11", &regs.R11},
		{R10, "r10", &regs.R10},
		{R9, "r9", &regs.R9},
		{R8, "r8", &regs.R8},
		{RAX, "rax", &regs.Rax},
		{RCX, "rcx", &regs.Rcx},
		{RDX, "rdx", &regs.Rdx},
		{RSI, "rsi", &regs.Rsi},
		{RDI, "rdi", &regs.Rdi},
		{RIP, "rip", &regs.Rip},
		{CS, "cs", &regs.Cs},
		{EFLAGS, "eflags", &regs.Eflags},
		{RSP, "rsp", &regs.Rsp},
		{SS, "ss", &regs.Ss},
		{FSBASE, "fsbase", &regs.Fs_base},
		{GSBASE, "gsbase", &regs.Gs_base},
		{DS, "ds", &regs.Ds},
		{ES, "es", &regs.Es},
		{FS, "fs", &regs.Fs},
		{GS, "gs", &regs.Gs},
	}
}

func find(regs *unix.PtraceRegs, sel Selector) (*uint64, error) {
	ds := descriptors(regs)
	for i := range ds {
		d := &ds[i]
		if sel.byName {
			if d.name == sel.name {
				return d.field, nil
			}
			continue
		}
		if d.reg == sel.reg {
			return d.field, nil
		}
	}
	return nil, UnknownRegisterError{Selector: sel}
}

// Get reads the selected register out of regs.
func Get(regs *unix.PtraceRegs, sel Selector) (uint64, error) {
	f, err := find(regs, sel)
	if err != nil {
		return 0, err
	}
	return *f, nil
}

// Set mutates the selected register in regs. The caller is responsible
// for writing regs back to the tracee.
func Set(regs *unix.PtraceRegs, sel Selector, value uint64) error {
	f, err := find(regs, sel)
	if err != nil {
		return err
	}
	*f = value
	return nil
}

// Dump returns every register in canonical order.
func Dump(regs *unix.PtraceRegs) []Entry {
	ds := descriptors(regs)
	out := make([]Entry, 0, len(ds))
	for _, d := range ds {
		out = append(out, Entry{Name: d.name, Value: *d.field})
	}
	return out
}
