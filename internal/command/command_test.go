package command_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbg-go/mdbg/internal/command"
	"github.com/mdbg-go/mdbg/internal/dbgerr"
	"github.com/mdbg-go/mdbg/internal/regfile"
	"github.com/mdbg-go/mdbg/internal/tracer"
)

// fakeController is a scripted command.Controller: each method returns
// whatever the test preloaded, and records its arguments for assertion.
type fakeController struct {
	exited       bool
	exitStatus   int
	continueErr  error
	breakpoints  []tracer.BreakpointRef
	breakErr     error
	regValues    map[string]uint64
	registerErr  error
	dumped       []regfile.Entry
	writtenRegs  map[string]uint64
	memory       map[uint64]int64
	memoryErr    error
	writtenBytes map[uint64]int64
}

func newFakeController() *fakeController {
	return &fakeController{
		regValues:    make(map[string]uint64),
		writtenRegs:  make(map[string]uint64),
		memory:       make(map[uint64]int64),
		writtenBytes: make(map[uint64]int64),
	}
}

func (f *fakeController) ContinueExecution() (bool, int, error) {
	return f.exited, f.exitStatus, f.continueErr
}

func (f *fakeController) SetBreakpoint(ref tracer.BreakpointRef) error {
	f.breakpoints = append(f.breakpoints, ref)
	return f.breakErr
}

func (f *fakeController) GetRegisterValue(sel regfile.Selector) (uint64, error) {
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	return f.regValues["rax"], nil
}

func (f *fakeController) SetRegisterValue(sel regfile.Selector, value uint64) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.writtenRegs["rax"] = value
	return nil
}

func (f *fakeController) DumpRegisters() ([]regfile.Entry, error) {
	return f.dumped, f.registerErr
}

func (f *fakeController) ReadMemory(addr uint64) (int64, error) {
	if f.memoryErr != nil {
		return 0, f.memoryErr
	}
	return f.memory[addr], nil
}

func (f *fakeController) WriteMemory(addr uint64, value int64) error {
	if f.memoryErr != nil {
		return f.memoryErr
	}
	f.writtenBytes[addr] = value
	return nil
}

func TestContinuePrintsExitStatus(t *testing.T) {
	fc := newFakeController()
	fc.exited = true
	fc.exitStatus = 0
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("continue")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "Process exited with status: 0\n", out.String())
}

func TestContinueStillRunningPrintsNothing(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("continue")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, out.String())
}

func TestBreakByLine(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("break main.c 42")
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, fc.breakpoints, 1)
	assert.Equal(t, tracer.AtLine("main.c", 42), fc.breakpoints[0])
}

func TestBreakLineNotFoundPrintsDiagnosticAndContinues(t *testing.T) {
	fc := newFakeController()
	fc.breakErr = dbgerr.New(dbgerr.LineNotFound, "no such line")
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("break nosuch.c 10")
	require.Error(t, err)
	assert.False(t, done)
	assert.Contains(t, out.String(), "error:")
}

func TestRegisterWriteThenRead(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("register write rax deadbeef")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, uint64(0xdeadbeef), fc.writtenRegs["rax"])

	fc.regValues["rax"] = 0xdeadbeef
	out.Reset()
	_, err = d.Dispatch("register read rax")
	require.NoError(t, err)
	assert.Equal(t, "rax: 0xDEADBEEF\n", out.String())
}

func TestRegisterDump(t *testing.T) {
	fc := newFakeController()
	fc.dumped = []regfile.Entry{{Name: "r15", Value: 0}, {Name: "rax", Value: 0xff}}
	var out bytes.Buffer
	d := command.New(fc, &out)

	_, err := d.Dispatch("register dump")
	require.NoError(t, err)
	assert.Equal(t, "r15: 0x0\nrax: 0xFF\n", out.String())
}

func TestMemoryWriteThenRead(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	_, err := d.Dispatch("memory write 601040 1122334455667788")
	require.NoError(t, err)
	assert.Equal(t, int64(0x1122334455667788), fc.writtenBytes[0x601040])

	fc.memory[0x601040] = 0x1122334455667788
	out.Reset()
	_, err = d.Dispatch("memory read 601040")
	require.NoError(t, err)
	assert.Equal(t, "0x1122334455667788\n", out.String())
}

func TestUnknownCommandIsBadCommandAndDoesNotStop(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("frobnicate")
	assert.False(t, done)
	require.Error(t, err)
	assert.True(t, dbgerr.Is(err, dbgerr.BadCommand))
}

func TestSegfaultErrorStopsTheLoop(t *testing.T) {
	fc := newFakeController()
	fc.continueErr = dbgerr.New(dbgerr.Segfault, "tracee terminated by SIGSEGV")
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("continue")
	require.Error(t, err)
	assert.True(t, done)
}

func TestEmptyLineIsANoOp(t *testing.T) {
	fc := newFakeController()
	var out bytes.Buffer
	d := command.New(fc, &out)

	done, err := d.Dispatch("   ")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, out.String())
}
