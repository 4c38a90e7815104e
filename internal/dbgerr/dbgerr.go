// Package dbgerr defines the debugger's error taxonomy (spec §7) as a
// small typed-Kind wrapper so callers (the command dispatcher, cmd/mdbg)
// can branch on what went wrong instead of matching message strings —
// the Go equivalent of the original Rust code's per-call
// `map_err(|e| format!("failed to ...: {}", e))` chains, which carried
// context but not a classifiable kind.
package dbgerr

import (
	"errors"
	"fmt"
)

// Kind classifies a debugger error per spec §7.
type Kind int

const (
	// PtraceIo indicates a trace syscall failed.
	PtraceIo Kind = iota
	// MapsUnreadable indicates /proc/<pid>/maps could not be read.
	MapsUnreadable
	// NoMapping indicates no maps line matched the executable path.
	NoMapping
	// DwarfParse indicates malformed DWARF sections or missing string tables.
	DwarfParse
	// LineNotFound indicates no statement row matched a (file, line) reference.
	LineNotFound
	// NoSavedByte indicates a disable was attempted with no saved byte.
	NoSavedByte
	// AttachFailed indicates the first stop had a non-user si_code.
	AttachFailed
	// Segfault indicates the tracee died on SIGSEGV.
	Segfault
	// UnknownTrapCode indicates an unclassifiable si_code on a SIGTRAP stop.
	UnknownTrapCode
	// UnexpectedStop indicates a wait status outside the handled set.
	UnexpectedStop
	// UnknownRegister indicates a register selector matched nothing.
	UnknownRegister
	// BadCommand indicates the command dispatcher failed to parse a line.
	BadCommand
)

func (k Kind) String() string {
	switch k {
	case PtraceIo:
		return "PtraceIo"
	case MapsUnreadable:
		return "MapsUnreadable"
	case NoMapping:
		return "NoMapping"
	case DwarfParse:
		return "DwarfParse"
	case LineNotFound:
		return "LineNotFound"
	case NoSavedByte:
		return "NoSavedByte"
	case AttachFailed:
		return "AttachFailed"
	case Segfault:
		return "Segfault"
	case UnknownTrapCode:
		return "UnknownTrapCode"
	case UnexpectedStop:
		return "UnexpectedStop"
	case UnknownRegister:
		return "UnknownRegister"
	case BadCommand:
		return "BadCommand"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error carrying a human-readable context prefix
// and, usually, the syscall/parse error that caused it.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Context, e.Err)
	}
	return e.Context
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with no underlying cause.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Newf builds a Kind-tagged error with a formatted context.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error around an underlying cause.
func Wrap(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// Wrapf builds a Kind-tagged error around an underlying cause with a
// formatted context.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of err, if err (or something it wraps) is a
// *dbgerr.Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is a *dbgerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
