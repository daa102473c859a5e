package interrupt

import (
	"strings"
	"testing"

	"mipscore/emu/devices"
	"mipscore/emu/machine"
	"mipscore/emu/memory"
)

func TestPrintIntWritesDecimal(t *testing.T) {
	term := devices.NewTerminal(nil)
	sc := NewSyscalls(term, devices.NewFileTable(), strings.NewReader(""), 0x10040000)
	st := machine.New()
	neg := int32(-5)
	st.SetGPR(regA0, uint32(neg))
	if err := sc.Dispatch(1, st, memory.New(memory.DefaultMap(), memory.CacheConfig{}, memory.CacheConfig{})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if string(term.Log()) != "-5" {
		t.Errorf("log = %q, want %q", term.Log(), "-5")
	}
}

func TestPrintStringReadsUntilNUL(t *testing.T) {
	term := devices.NewTerminal(nil)
	sc := NewSyscalls(term, devices.NewFileTable(), strings.NewReader(""), 0x10040000)
	mem := memory.New(memory.DefaultMap(), memory.CacheConfig{}, memory.CacheConfig{})
	addr := memory.DataBase
	for i, b := range []byte("hi\x00") {
		_ = mem.WriteByte(addr+uint32(i), b)
	}
	st := machine.New()
	st.SetGPR(regA0, addr)
	if err := sc.Dispatch(4, st, mem); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if string(term.Log()) != "hi" {
		t.Errorf("log = %q, want %q", term.Log(), "hi")
	}
}

func TestExitSetsTerminated(t *testing.T) {
	term := devices.NewTerminal(nil)
	sc := NewSyscalls(term, devices.NewFileTable(), strings.NewReader(""), 0)
	st := machine.New()
	st.SetGPR(regA0, 7)
	if err := sc.Dispatch(17, st, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !st.Terminated() || st.ExitCode() != 7 {
		t.Errorf("terminated=%v exitCode=%d, want true/7", st.Terminated(), st.ExitCode())
	}
}

func TestUnknownSyscallReturnsSyscallError(t *testing.T) {
	term := devices.NewTerminal(nil)
	sc := NewSyscalls(term, devices.NewFileTable(), strings.NewReader(""), 0)
	st := machine.New()
	var serr *SyscallError
	err := sc.Dispatch(999, st, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errorsAs(err, &serr) {
		t.Errorf("expected *SyscallError, got %T", err)
	}
}

func errorsAs(err error, target **SyscallError) bool {
	if se, ok := err.(*SyscallError); ok {
		*target = se
		return true
	}
	return false
}
