package core

import (
	"testing"

	"mipscore/emu/load"
	"mipscore/emu/memory"
)

func newTestEngine(t *testing.T, pipelineMode bool) *Engine {
	t.Helper()
	eng, err := NewEngine(Config{
		Map:          memory.DefaultMap(),
		PipelineMode: pipelineMode,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func loadProgram(t *testing.T, eng *Engine, src string) {
	t.Helper()
	img, err := eng.Assemble(src, "t.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if err := eng.Load(img, load.Options{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestSequentialRunRetiresArithmetic(t *testing.T) {
	eng := newTestEngine(t, false)
	loadProgram(t, eng, ".text\nmain:\n\taddi $t0,$zero,5\n\taddi $t1,$zero,7\n\tadd $t2,$t0,$t1\n\tsyscall\n")
	snap := eng.Run(1000)
	if snap.Registers.Registers[10] != 12 {
		t.Errorf("$t2 = %d, want 12", snap.Registers.Registers[10])
	}
}

func TestPipelineRunRetiresArithmetic(t *testing.T) {
	eng := newTestEngine(t, true)
	loadProgram(t, eng, ".text\nmain:\n\taddi $t0,$zero,5\n\taddi $t1,$zero,7\n\tadd $t2,$t0,$t1\n\tsyscall\n")
	snap := eng.Run(1000)
	if snap.Registers.Registers[10] != 12 {
		t.Errorf("$t2 = %d, want 12", snap.Registers.Registers[10])
	}
	if snap.Counters.InstructionCount == 0 {
		t.Errorf("expected retired instructions to be counted in pipeline mode")
	}
}

func TestBreakpointStopsRunBeforeInstruction(t *testing.T) {
	eng := newTestEngine(t, false)
	loadProgram(t, eng, ".text\nmain:\n\taddi $t0,$zero,1\n\taddi $t0,$zero,2\n\taddi $t0,$zero,3\n\tsyscall\n")
	eng.Breakpoints().AddAddress(eng.Layout().TextStart+4, false, nil)
	snap := eng.Run(1000)
	if snap.Registers.Registers[8] != 1 {
		t.Errorf("$t0 = %d, want 1 at breakpoint", snap.Registers.Registers[8])
	}
}

func TestStepInstructionAdvancesExactlyOne(t *testing.T) {
	eng := newTestEngine(t, true)
	loadProgram(t, eng, ".text\nmain:\n\taddi $t0,$zero,1\n\taddi $t0,$zero,2\n\tsyscall\n")
	before := eng.GetPerformanceCounters().InstructionCount
	eng.StepInstruction()
	after := eng.GetPerformanceCounters().InstructionCount
	if after != before+1 {
		t.Errorf("instruction count advanced by %d, want 1", after-before)
	}
}
