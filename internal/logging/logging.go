// Package logging builds the engineering-facing structured logger: a
// stderr text handler always on, fanned out to a JSON file handler when
// a log file path is configured.
//
// This is distinct from the operator-facing command output in
// internal/command, which remains plain fmt.Fprintln per the original
// CLI's println-based transcript.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Config selects the logger's destinations and verbosity.
type Config struct {
	// Level is the minimum level logged to every destination.
	Level slog.Level
	// FilePath, if non-empty, is opened (append, create) and logged to
	// as JSON alongside the stderr text handler.
	FilePath string
}

// New builds a logger per cfg. When cfg.FilePath is empty, the returned
// logger writes only to stderr. The caller owns closing the returned
// file handle when non-nil (nil when no file was configured).
func New(cfg Config) (*slog.Logger, *os.File, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	if cfg.FilePath == "" {
		return slog.New(stderrHandler), nil, nil
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := slog.NewJSONHandler(f, opts)

	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
	return logger, f, nil
}

// Discard returns a logger that drops every record, for tests and
// contexts with no configured destination.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
