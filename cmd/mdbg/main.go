// Command mdbg is the source-level debugger's CLI: it bootstraps or
// attaches to a tracee, then drives a REPL over the command grammar
// implemented by internal/command.
//
// Grounded on cli/src/args.rs's run/attach subcommands and
// cli/src/main.rs's command loop, rebuilt on cobra + chzyer/readline
// per the teacher's own dependency set.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mdbg-go/mdbg/cmd/mdbg/config"
	"github.com/mdbg-go/mdbg/internal/command"
	"github.com/mdbg-go/mdbg/internal/logging"
	"github.com/mdbg-go/mdbg/internal/procmaps"
	"github.com/mdbg-go/mdbg/internal/ptrace"
	"github.com/mdbg-go/mdbg/internal/sourceline"
	"github.com/mdbg-go/mdbg/internal/tracer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mdbg",
		Short: "a source-level ptrace debugger for x86_64 Linux executables",
	}
	root.AddCommand(runCmd(), attachCmd())
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <path> [args...]",
		Short: "launch path under trace and start a debug session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			path := args[0]

			t := ptrace.New()
			defer t.Close()

			pid, err := startTracee(t, path, args[1:])
			if err != nil {
				return fmt.Errorf("run: launch %s: %w", path, err)
			}
			return session(cfg, t, pid, path)
		},
	}
	return cmd
}

func attachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <path> <pid>",
		Short: "attach to an already-running process and start a debug session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			path := args[0]
			pid, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("attach: parse pid %q: %w", args[1], err)
			}

			t := ptrace.New()
			defer t.Close()

			if err := t.Attach(pid); err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			return session(cfg, t, pid, path)
		},
	}
	return cmd
}

// session wires the logger, the DWARF resolver, the tracer controller,
// and the command dispatcher together and runs the REPL to completion.
func session(cfg *config.Config, t *ptrace.Tracer, pid int, path string) error {
	logger, logFile, err := logging.New(logging.Config{Level: cfg.LogLevel, FilePath: cfg.LogFilePath})
	if err != nil {
		return fmt.Errorf("session: build logger: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	resolver, err := sourceline.Open(path)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer resolver.Close()

	dbg := tracer.New(t, pid, resolver, logger)
	if err := dbg.WaitAttach(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	loadAddr, err := procmaps.LoadAddr(pid, path)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	dbg.SetLoadAddr(loadAddr)
	logger.Debug("attached", "pid", pid, "load_addr", loadAddr)

	return repl(cfg, dbg)
}

// repl reads lines with history and feeds each to the dispatcher,
// stopping on a clean tracee exit, a segfault, or the user pressing
// CTRL-C/CTRL-D, exactly as cli/src/main.rs's run_command_loop does.
func repl(cfg *config.Config, dbg *tracer.Debugger) error {
	if cfg.HistoryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o755); err != nil {
			return fmt.Errorf("repl: prepare history directory: %w", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "mdbg> ",
		HistoryFile: cfg.HistoryPath,
	})
	if err != nil {
		return fmt.Errorf("repl: start line editor: %w", err)
	}
	defer rl.Close()

	disp := command.New(dbg, os.Stdout)
	for {
		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			fmt.Println("CTRL-C")
			return nil
		case err == io.EOF:
			fmt.Println("CTRL-D")
			return nil
		case err != nil:
			return fmt.Errorf("repl: read line: %w", err)
		}

		if done, _ := disp.Dispatch(line); done {
			return nil
		}
	}
}
