//go:build linux

package ptrace

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptraceGetSigInfoReq mirrors the kernel's PTRACE_GETSIGINFO
// request (0x4202), which golang.org/x/sys/unix does not wrap.
const ptraceGetSigInfoReq = 0x4202

// Siginfo mirrors the leading fields of Linux's siginfo_t on x86_64;
// only si_signo/si_errno/si_code are read anywhere in this package, but
// the struct is padded to sizeof(siginfo_t) so the kernel's write never
// overruns it.
type Siginfo struct {
	Signo int32
	Errno int32
	Code  int32
	_     int32
	_     [112]byte
}

func ptraceGetSigInfo(pid int, si *Siginfo) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(ptraceGetSigInfoReq), uintptr(pid), 0, uintptr(unsafe.Pointer(si)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Signal constants for si_code, per spec: the stop-reason dispatch
// table in internal/tracer classifies on these.
const (
	SI_USER    = 0x0
	TRAP_BRKPT = 0x1
	TRAP_TRACE = 0x2
	SI_KERNEL  = 0x80
)
