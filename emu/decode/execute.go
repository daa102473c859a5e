package decode

import (
	"errors"

	"mipscore/emu/machine"
	"mipscore/emu/memory"
)

// ArithmeticOverflow is raised by add/addi/sub when the signed result
// overflows 32 bits, per MIPS-I trapping-arithmetic semantics. addu/subu/
// addiu never raise it.
var ArithmeticOverflow = errors.New("arithmetic overflow")

// Mem is the subset of memory.Memory the executor needs; satisfied by
// *memory.Memory, narrowed so tests can substitute a fake.
type Mem interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, v uint8) error
	ReadHalf(addr uint32) (uint16, error)
	WriteHalf(addr uint32, v uint16) error
	ReadWord(addr uint32, isFetch bool) (uint32, error)
	WriteWord(addr uint32, v uint32) error
}

var _ Mem = (*memory.Memory)(nil)

// NextPC computes the instruction's effect on the program counter,
// ignoring delay slots (the caller applies delayed-branch sequencing
// itself if enabled). It returns the fall-through PC (pc+4) when no
// branch/jump is taken.
func NextPC(ins Instruction, st *machine.State, taken bool) uint32 {
	fallthru := ins.PC + 4
	switch {
	case ins.Op == OpJ || ins.Op == OpJal:
		return fallthru&0xf0000000 | ins.Target<<2
	case ins.Op == OpJr || ins.Op == OpJalr:
		return st.GPR(ins.Rs)
	case ins.IsBranch && taken:
		return uint32(int32(fallthru) + ins.Imm<<2)
	default:
		return fallthru
	}
}

// BranchTaken evaluates a branch or FP-branch's condition. It does not
// evaluate jumps, which are unconditional.
func BranchTaken(ins Instruction, st *machine.State) bool {
	rs := int32(st.GPR(ins.Rs))
	switch ins.Op {
	case OpBeq:
		return st.GPR(ins.Rs) == st.GPR(ins.Rt)
	case OpBne:
		return st.GPR(ins.Rs) != st.GPR(ins.Rt)
	case OpBlez:
		return rs <= 0
	case OpBgtz:
		return rs > 0
	case OpBltz:
		return rs < 0
	case OpBgez:
		return rs >= 0
	case OpBc1t:
		return st.FPCondition()
	case OpBc1f:
		return !st.FPCondition()
	}
	return false
}

// Execute applies one decoded instruction's architectural effect to st and
// mem. It returns an error for ArithmeticOverflow or a memory fault;
// division by zero leaves HI/LO undefined without error, per spec.
//
// Execute does not itself update PC; callers combine it with NextPC (and,
// for syscall/break, the interrupt controller) to sequence the machine.
func Execute(ins Instruction, st *machine.State, mem Mem) error {
	switch ins.Op {
	case OpNop:
		return nil

	case OpAdd:
		return addSigned(st, ins.DestReg, int32(st.GPR(ins.Rs)), int32(st.GPR(ins.Rt)))
	case OpAddu:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)+st.GPR(ins.Rt))
	case OpSub:
		a, b := int32(st.GPR(ins.Rs)), int32(st.GPR(ins.Rt))
		diff := a - b
		if (a >= 0 && b < 0 && diff < 0) || (a < 0 && b > 0 && diff >= 0) {
			return ArithmeticOverflow
		}
		st.SetGPR(ins.DestReg, uint32(diff))
	case OpSubu:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)-st.GPR(ins.Rt))
	case OpAnd:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)&st.GPR(ins.Rt))
	case OpOr:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)|st.GPR(ins.Rt))
	case OpXor:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)^st.GPR(ins.Rt))
	case OpNor:
		st.SetGPR(ins.DestReg, ^(st.GPR(ins.Rs) | st.GPR(ins.Rt)))
	case OpSlt:
		st.SetGPR(ins.DestReg, boolWord(int32(st.GPR(ins.Rs)) < int32(st.GPR(ins.Rt))))
	case OpSltu:
		st.SetGPR(ins.DestReg, boolWord(st.GPR(ins.Rs) < st.GPR(ins.Rt)))

	case OpSll:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rt)<<ins.Shamt)
	case OpSrl:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rt)>>ins.Shamt)
	case OpSra:
		st.SetGPR(ins.DestReg, uint32(int32(st.GPR(ins.Rt))>>ins.Shamt))
	case OpSllv:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rt)<<(st.GPR(ins.Rs)&0x1f))
	case OpSrlv:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rt)>>(st.GPR(ins.Rs)&0x1f))
	case OpSrav:
		st.SetGPR(ins.DestReg, uint32(int32(st.GPR(ins.Rt))>>(st.GPR(ins.Rs)&0x1f)))

	case OpAddi:
		return addSigned(st, ins.DestReg, int32(st.GPR(ins.Rs)), ins.Imm)
	case OpAddiu:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)+uint32(ins.Imm))
	case OpAndi:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)&ins.ImmU)
	case OpOri:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)|ins.ImmU)
	case OpXori:
		st.SetGPR(ins.DestReg, st.GPR(ins.Rs)^ins.ImmU)
	case OpSlti:
		st.SetGPR(ins.DestReg, boolWord(int32(st.GPR(ins.Rs)) < ins.Imm))
	case OpSltiu:
		st.SetGPR(ins.DestReg, boolWord(st.GPR(ins.Rs) < uint32(ins.Imm)))
	case OpLui:
		st.SetGPR(ins.DestReg, ins.ImmU<<16)

	case OpLb:
		v, err := mem.ReadByte(ins.EffectiveAddr(st))
		if err != nil {
			return err
		}
		st.SetGPR(ins.DestReg, uint32(int32(int8(v))))
	case OpLbu:
		v, err := mem.ReadByte(ins.EffectiveAddr(st))
		if err != nil {
			return err
		}
		st.SetGPR(ins.DestReg, uint32(v))
	case OpLh:
		v, err := mem.ReadHalf(ins.EffectiveAddr(st))
		if err != nil {
			return err
		}
		st.SetGPR(ins.DestReg, uint32(int32(int16(v))))
	case OpLhu:
		v, err := mem.ReadHalf(ins.EffectiveAddr(st))
		if err != nil {
			return err
		}
		st.SetGPR(ins.DestReg, uint32(v))
	case OpLw:
		v, err := mem.ReadWord(ins.EffectiveAddr(st), false)
		if err != nil {
			return err
		}
		st.SetGPR(ins.DestReg, v)
	case OpSb:
		return mem.WriteByte(ins.EffectiveAddr(st), uint8(st.GPR(ins.Rt)))
	case OpSh:
		return mem.WriteHalf(ins.EffectiveAddr(st), uint16(st.GPR(ins.Rt)))
	case OpSw:
		return mem.WriteWord(ins.EffectiveAddr(st), st.GPR(ins.Rt))

	case OpJal, OpJalr:
		st.SetGPR(ins.DestReg, ins.PC+8)

	case OpMult:
		r := int64(int32(st.GPR(ins.Rs))) * int64(int32(st.GPR(ins.Rt)))
		st.SetLO(uint32(r))
		st.SetHI(uint32(r >> 32))
	case OpMultu:
		r := uint64(st.GPR(ins.Rs)) * uint64(st.GPR(ins.Rt))
		st.SetLO(uint32(r))
		st.SetHI(uint32(r >> 32))
	case OpDiv:
		n, d := int32(st.GPR(ins.Rs)), int32(st.GPR(ins.Rt))
		if d != 0 {
			st.SetLO(uint32(n / d))
			st.SetHI(uint32(n % d))
		}
	case OpDivu:
		n, d := st.GPR(ins.Rs), st.GPR(ins.Rt)
		if d != 0 {
			st.SetLO(n / d)
			st.SetHI(n % d)
		}
	case OpMfhi:
		st.SetGPR(ins.DestReg, st.HI())
	case OpMflo:
		st.SetGPR(ins.DestReg, st.LO())
	case OpMthi:
		st.SetHI(st.GPR(ins.Rs))
	case OpMtlo:
		st.SetLO(st.GPR(ins.Rs))

	case OpAddS:
		st.SetFPSingleFloat(ins.Rd, st.FPSingleFloat(ins.Rs)+st.FPSingleFloat(ins.Rt))
	case OpSubS:
		st.SetFPSingleFloat(ins.Rd, st.FPSingleFloat(ins.Rs)-st.FPSingleFloat(ins.Rt))
	case OpMulS:
		st.SetFPSingleFloat(ins.Rd, st.FPSingleFloat(ins.Rs)*st.FPSingleFloat(ins.Rt))
	case OpDivS:
		st.SetFPSingleFloat(ins.Rd, st.FPSingleFloat(ins.Rs)/st.FPSingleFloat(ins.Rt))
	case OpMovS:
		st.SetFPSingle(ins.Rd, st.FPSingle(ins.Rs))
	case OpCvtSW:
		st.SetFPSingleFloat(ins.Rd, float32(int32(st.FPSingle(ins.Rs))))
	case OpCvtWS:
		st.SetFPSingle(ins.Rd, uint32(int32(st.FPSingleFloat(ins.Rs))))
	case OpCvtSD:
		st.SetFPSingleFloat(ins.Rd, float32(st.FPDoubleFloat(ins.Rs)))
	case OpCEqS:
		st.SetFPCondition(st.FPSingleFloat(ins.Rs) == st.FPSingleFloat(ins.Rt))
	case OpCLtS:
		st.SetFPCondition(st.FPSingleFloat(ins.Rs) < st.FPSingleFloat(ins.Rt))
	case OpCLeS:
		st.SetFPCondition(st.FPSingleFloat(ins.Rs) <= st.FPSingleFloat(ins.Rt))

	case OpAddD:
		st.SetFPDoubleFloat(ins.Rd, st.FPDoubleFloat(ins.Rs)+st.FPDoubleFloat(ins.Rt))
	case OpSubD:
		st.SetFPDoubleFloat(ins.Rd, st.FPDoubleFloat(ins.Rs)-st.FPDoubleFloat(ins.Rt))
	case OpMulD:
		st.SetFPDoubleFloat(ins.Rd, st.FPDoubleFloat(ins.Rs)*st.FPDoubleFloat(ins.Rt))
	case OpDivD:
		st.SetFPDoubleFloat(ins.Rd, st.FPDoubleFloat(ins.Rs)/st.FPDoubleFloat(ins.Rt))
	case OpCvtDS:
		st.SetFPDoubleFloat(ins.Rd, float64(st.FPSingleFloat(ins.Rs)))
	case OpCvtDW:
		st.SetFPDoubleFloat(ins.Rd, float64(int32(st.FPSingle(ins.Rs))))
	case OpCEqD:
		st.SetFPCondition(st.FPDoubleFloat(ins.Rs) == st.FPDoubleFloat(ins.Rt))
	case OpCLtD:
		st.SetFPCondition(st.FPDoubleFloat(ins.Rs) < st.FPDoubleFloat(ins.Rt))
	case OpCLeD:
		st.SetFPCondition(st.FPDoubleFloat(ins.Rs) <= st.FPDoubleFloat(ins.Rt))

	case OpMfc1:
		st.SetGPR(ins.DestReg, st.FPSingle(ins.Rd))
	case OpMtc1:
		st.SetFPSingle(ins.Rd, st.GPR(ins.Rt))

	case OpSyscall, OpBreak, OpBeq, OpBne, OpBlez, OpBgtz, OpBltz, OpBgez,
		OpJ, OpJr, OpBc1t, OpBc1f:
		// No register/memory effect of their own; the caller (single-cycle
		// loop or pipeline EX stage) drives PC redirection and, for
		// syscall/break, the interrupt controller.

	default:
		return &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
	}
	return nil
}

// EffectiveAddr computes the effective address rs+imm used by every load/store.
func (ins Instruction) EffectiveAddr(st *machine.State) uint32 {
	return uint32(int32(st.GPR(ins.Rs)) + ins.Imm)
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func addSigned(st *machine.State, dest int, a, b int32) error {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return ArithmeticOverflow
	}
	st.SetGPR(dest, uint32(sum))
	return nil
}
