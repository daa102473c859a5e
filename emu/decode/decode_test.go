package decode

import (
	"testing"

	"mipscore/emu/machine"
	"mipscore/emu/memory"
)

func encodeR(op, rs, rt, rd, shamt, funct uint32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

func encodeI(op, rs, rt, imm uint32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | imm&0xffff
}

func TestDecodeAddRegisterType(t *testing.T) {
	word := encodeR(0, 9, 10, 8, 0, 0x20) // add $t0, $t1, $t2
	ins, err := Decode(word, 0x400000)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ins.Op != OpAdd || ins.Rs != 9 || ins.Rt != 10 || ins.DestReg != 8 {
		t.Errorf("got %+v", ins)
	}
}

func TestDecodeAddiSignExtends(t *testing.T) {
	word := encodeI(0x08, 0, 8, 0xffff) // addi $t0, $zero, -1
	ins, err := Decode(word, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ins.Imm != -1 {
		t.Errorf("imm = %d, want -1", ins.Imm)
	}
}

func TestDecodeZeroWordIsNop(t *testing.T) {
	ins, err := Decode(0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ins.Op != OpNop {
		t.Errorf("op = %v, want nop", ins.Op)
	}
}

func TestDecodeIllegalOpcode(t *testing.T) {
	word := uint32(0x3f) << 26 // opcode 0x3f is unassigned
	if _, err := Decode(word, 0); err == nil {
		t.Fatalf("expected IllegalInstruction")
	}
}

func TestExecuteAddOverflowTraps(t *testing.T) {
	st := machine.New()
	st.SetGPR(8, 0x7fffffff)
	st.SetGPR(9, 1)
	ins := Instruction{Op: OpAdd, Rs: 8, Rt: 9, DestReg: 10}
	if err := Execute(ins, st, nil); err != ArithmeticOverflow {
		t.Errorf("expected ArithmeticOverflow, got %v", err)
	}
}

func TestExecuteAdduWraps(t *testing.T) {
	st := machine.New()
	st.SetGPR(8, 0x7fffffff)
	st.SetGPR(9, 1)
	ins := Instruction{Op: OpAddu, Rs: 8, Rt: 9, DestReg: 10}
	if err := Execute(ins, st, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if st.GPR(10) != 0x80000000 {
		t.Errorf("got %#x, want 0x80000000", st.GPR(10))
	}
}

func TestExecuteLoadStoreRoundTrip(t *testing.T) {
	st := machine.New()
	mem := memory.New(memory.DefaultMap(), memory.CacheConfig{}, memory.CacheConfig{})
	st.SetGPR(8, 0x11223344)
	sw := Instruction{Op: OpSw, Rs: 0, Rt: 8, Imm: int32(memory.DataBase)}
	if err := Execute(sw, st, mem); err != nil {
		t.Fatalf("sw: %v", err)
	}
	lw := Instruction{Op: OpLw, Rs: 0, DestReg: 9, Imm: int32(memory.DataBase)}
	if err := Execute(lw, st, mem); err != nil {
		t.Fatalf("lw: %v", err)
	}
	if st.GPR(9) != 0x11223344 {
		t.Errorf("got %#x", st.GPR(9))
	}
}

func TestBranchTakenBeq(t *testing.T) {
	st := machine.New()
	st.SetGPR(1, 5)
	st.SetGPR(2, 5)
	ins := Instruction{Op: OpBeq, Rs: 1, Rt: 2, IsBranch: true}
	if !BranchTaken(ins, st) {
		t.Errorf("expected beq taken")
	}
}

func TestNextPCBranchOffset(t *testing.T) {
	st := machine.New()
	ins := Instruction{Op: OpBeq, PC: 0x1000, Imm: 4, IsBranch: true}
	pc := NextPC(ins, st, true)
	if pc != 0x1000+4+16 {
		t.Errorf("got %#x, want %#x", pc, 0x1000+4+16)
	}
}

func TestDecodeAddSResolvesDestAndSources(t *testing.T) {
	// add.s $f2, $f4, $f6: fmt=0x10, ft=6, fs=4, fd=2, funct=0x00.
	word := encodeR(0x11, 0x10, 6, 4, 2, 0x00)
	ins, err := Decode(word, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ins.Op != OpAddS {
		t.Fatalf("op = %v, want add.s", ins.Op)
	}
	if ins.Rd != 2 || ins.Rs != 4 || ins.Rt != 6 {
		t.Errorf("got fd=%d fs=%d ft=%d, want fd=2 fs=4 ft=6", ins.Rd, ins.Rs, ins.Rt)
	}
}

func TestNextPCJumpCombinesUpperBits(t *testing.T) {
	ins := Instruction{Op: OpJ, PC: 0x80000000, Target: 0x100}
	st := machine.New()
	pc := NextPC(ins, st, false)
	if pc != 0x80000400 {
		t.Errorf("got %#x, want 0x80000400", pc)
	}
}
