package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdbg-go/mdbg/internal/logging"
)

func TestNewWithoutFilePath(t *testing.T) {
	logger, f, err := logging.New(logging.Config{Level: slog.LevelInfo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f != nil {
		t.Fatal("expected no file handle when FilePath is empty")
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewWithFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdbg.log")
	logger, f, err := logging.New(logging.Config{Level: slog.LevelDebug, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Close()

	logger.Debug("hello", "k", "v")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected the log file to contain the logged record")
	}
}

func TestDiscard(t *testing.T) {
	logger := logging.Discard()
	logger.Info("this should go nowhere")
}
