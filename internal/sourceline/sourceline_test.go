package sourceline_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mdbg-go/mdbg/internal/dbgerr"
	"github.com/mdbg-go/mdbg/internal/sourceline"
)

// buildFixture compiles a tiny Go program and returns the binary's and
// the source file's paths, grounded on the teacher's dwarf/pclntab_test.go
// approach of building a real binary at test time rather than hand
// crafting DWARF bytes.
func buildFixture(t *testing.T) (binPath, sourcePath string) {
	t.Helper()
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("fixture requires linux/amd64")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "fixture.go")
	program := `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`
	if err := os.WriteFile(src, []byte(program), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bin := filepath.Join(dir, "fixture")
	cmd := exec.Command("go", "build", "-o", bin, "-gcflags=all=-N -l", src)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("go build unavailable or failed: %v\n%s", err, out)
	}
	return bin, src
}

func TestGetSourceLineAddrFindsKnownLine(t *testing.T) {
	bin, _ := buildFixture(t)

	r, err := sourceline.Open(bin)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	// The Go linker names each compile unit after its package, so the
	// fixture's unit is "main"; fmt.Println("hello") is on line 6.
	addr, ok, err := r.GetSourceLineAddr("main", 6)
	if err != nil {
		t.Fatalf("GetSourceLineAddr: %v", err)
	}
	if !ok {
		t.Fatal("expected a matching statement row")
	}
	if addr == 0 {
		t.Fatal("expected a non-zero address")
	}
}

func TestGetSourceLineAddrAbsentFileReturnsNotFound(t *testing.T) {
	bin, _ := buildFixture(t)

	r, err := sourceline.Open(bin)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	_, ok, err := r.GetSourceLineAddr("nosuch.go", 10)
	if err != nil {
		t.Fatalf("GetSourceLineAddr: %v", err)
	}
	if ok {
		t.Fatal("expected no match for an absent file")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := sourceline.Open(fmt.Sprintf("/no/such/file-%d", os.Getpid()))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !dbgerr.Is(err, dbgerr.DwarfParse) {
		t.Fatalf("got %v, want DwarfParse", err)
	}
}
