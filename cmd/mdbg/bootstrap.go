package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/mdbg-go/mdbg/internal/ptrace"
)

// addrNoRandomize is Linux's ADDR_NO_RANDOMIZE personality flag
// (include/uapi/linux/personality.h). golang.org/x/sys/unix has no
// typed Personality wrapper, so this issues the raw syscall directly,
// the same pattern internal/ptrace uses for PTRACE_GETSIGINFO.
const addrNoRandomize = 0x0040000

// withASLRDisabled disables ASLR for the personality of whichever OS
// thread runs fn, for the duration of fn, then restores it. personality
// flags live on task_struct, i.e. per-OS-thread, not process-wide, so
// this must run on the same thread that performs the fork — the
// caller is responsible for invoking this via tracer.Do rather than
// directly, otherwise the query/set/restore land on a different
// thread than the one that forks and the child's personality is
// unaffected. A child forked and exec'd while ASLR is disabled on its
// forking thread inherits the flag across execve (personality(2)),
// which is how the "run" subcommand gets a deterministic load address
// without touching the child's code between fork and exec — something
// Go's os.StartProcess does not allow, matching cli/src/main.rs's use
// of personality::set around its own fork/exec.
func withASLRDisabled(fn func() error) error {
	old, _, errno := unix.Syscall(unix.SYS_PERSONALITY, 0xffffffff, 0, 0)
	if errno != 0 {
		return fmt.Errorf("personality: query current: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_PERSONALITY, old|addrNoRandomize, 0, 0); errno != 0 {
		return fmt.Errorf("personality: disable ASLR: %w", errno)
	}
	defer unix.Syscall(unix.SYS_PERSONALITY, old, 0, 0)

	return fn()
}

// startTracee forks and execs path under PTRACE_TRACEME with ASLR
// disabled, analogous to os.StartProcess with Sys.Ptrace set preceded
// by a personality(ADDR_NO_RANDOMIZE) call. withASLRDisabled and the
// os.StartProcess call both run inside the one tracer.Do call, so the
// personality change and the fork land on the same dedicated OS
// thread instead of splitting across the calling goroutine's thread
// and the tracer's. This calls os.StartProcess directly rather than
// tracer.StartProcess, since the latter would try to dispatch onto the
// tracer's dedicated goroutine a second time from inside the Do
// callback already running there, deadlocking on the unbuffered
// channel.
func startTracee(tracer *ptrace.Tracer, path string, args []string) (pid int, err error) {
	err = tracer.Do(func() error {
		return withASLRDisabled(func() error {
			proc, err := os.StartProcess(path, append([]string{path}, args...), &os.ProcAttr{
				Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
				Sys:   &syscall.SysProcAttr{Ptrace: true},
			})
			if err != nil {
				return err
			}
			pid = proc.Pid
			return nil
		})
	})
	return pid, err
}
