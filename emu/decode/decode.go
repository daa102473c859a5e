package decode

import "fmt"

// IllegalInstruction is returned when a 32-bit word does not match any
// known MIPS-I opcode/funct combination.
type IllegalInstruction struct {
	Word uint32
	PC   uint32
}

func (e *IllegalInstruction) Error() string {
	return fmt.Sprintf("illegal instruction %#08x at pc=%#08x", e.Word, e.PC)
}

func signExt16(v uint32) int32 {
	return int32(int16(uint16(v)))
}

// Decode splits word into an Instruction, or returns an *IllegalInstruction
// if no opcode/funct combination matches.
func Decode(word uint32, pc uint32) (Instruction, error) {
	opcode := word >> 26 & 0x3f
	rs := int(word >> 21 & 0x1f)
	rt := int(word >> 16 & 0x1f)
	rd := int(word >> 11 & 0x1f)
	shamt := uint8(word >> 6 & 0x1f)
	funct := word & 0x3f
	imm16 := word & 0xffff

	ins := Instruction{Raw: word, PC: pc, Rs: rs, Rt: rt, Rd: rd, Shamt: shamt,
		Imm: signExt16(imm16), ImmU: imm16, Target: word & 0x3ffffff}

	switch opcode {
	case 0x00:
		return decodeSpecial(ins, funct)
	case 0x01:
		return decodeRegimm(ins)
	case 0x02:
		ins.Op = OpJ
		ins.IsJump = true
		return ins, nil
	case 0x03:
		ins.Op = OpJal
		ins.IsJump = true
		ins.WritesGPR = true
		ins.DestReg = 31
		return ins, nil
	case 0x04:
		ins.Op = OpBeq
		ins.IsBranch = true
		return ins, nil
	case 0x05:
		ins.Op = OpBne
		ins.IsBranch = true
		return ins, nil
	case 0x06:
		ins.Op = OpBlez
		ins.IsBranch = true
		return ins, nil
	case 0x07:
		ins.Op = OpBgtz
		ins.IsBranch = true
		return ins, nil
	case 0x08:
		return aluImm(ins, OpAddi, rt), nil
	case 0x09:
		return aluImm(ins, OpAddiu, rt), nil
	case 0x0a:
		return aluImm(ins, OpSlti, rt), nil
	case 0x0b:
		return aluImm(ins, OpSltiu, rt), nil
	case 0x0c:
		return aluImm(ins, OpAndi, rt), nil
	case 0x0d:
		return aluImm(ins, OpOri, rt), nil
	case 0x0e:
		return aluImm(ins, OpXori, rt), nil
	case 0x0f:
		ins.Op = OpLui
		ins.WritesGPR = true
		ins.DestReg = rt
		return ins, nil
	case 0x11:
		return decodeCop1(ins, rs, funct)
	case 0x20:
		return load(ins, OpLb, rt), nil
	case 0x21:
		return load(ins, OpLh, rt), nil
	case 0x23:
		return load(ins, OpLw, rt), nil
	case 0x24:
		return load(ins, OpLbu, rt), nil
	case 0x25:
		return load(ins, OpLhu, rt), nil
	case 0x28:
		ins.Op = OpSb
		ins.IsStore = true
		return ins, nil
	case 0x29:
		ins.Op = OpSh
		ins.IsStore = true
		return ins, nil
	case 0x2b:
		ins.Op = OpSw
		ins.IsStore = true
		return ins, nil
	}
	return Instruction{}, &IllegalInstruction{Word: word, PC: pc}
}

func aluImm(ins Instruction, op Op, rt int) Instruction {
	ins.Op = op
	ins.WritesGPR = true
	ins.DestReg = rt
	return ins
}

func load(ins Instruction, op Op, rt int) Instruction {
	ins.Op = op
	ins.IsLoad = true
	ins.WritesGPR = true
	ins.DestReg = rt
	return ins
}

func decodeSpecial(ins Instruction, funct uint32) (Instruction, error) {
	switch funct {
	case 0x00:
		if ins.Raw == 0 {
			ins.Op = OpNop
			return ins, nil
		}
		return regAluDst(ins, OpSll, ins.Rd), nil
	case 0x02:
		return regAluDst(ins, OpSrl, ins.Rd), nil
	case 0x03:
		return regAluDst(ins, OpSra, ins.Rd), nil
	case 0x04:
		return regAluDst(ins, OpSllv, ins.Rd), nil
	case 0x06:
		return regAluDst(ins, OpSrlv, ins.Rd), nil
	case 0x07:
		return regAluDst(ins, OpSrav, ins.Rd), nil
	case 0x08:
		ins.Op = OpJr
		ins.IsJump = true
		return ins, nil
	case 0x09:
		ins.Op = OpJalr
		ins.IsJump = true
		ins.WritesGPR = true
		ins.DestReg = ins.Rd
		return ins, nil
	case 0x0c:
		ins.Op = OpSyscall
		return ins, nil
	case 0x0d:
		ins.Op = OpBreak
		return ins, nil
	case 0x10:
		ins.Op = OpMfhi
		ins.WritesGPR = true
		ins.DestReg = ins.Rd
		return ins, nil
	case 0x11:
		ins.Op = OpMthi
		return ins, nil
	case 0x12:
		ins.Op = OpMflo
		ins.WritesGPR = true
		ins.DestReg = ins.Rd
		return ins, nil
	case 0x13:
		ins.Op = OpMtlo
		return ins, nil
	case 0x18:
		ins.Op = OpMult
		return ins, nil
	case 0x19:
		ins.Op = OpMultu
		return ins, nil
	case 0x1a:
		ins.Op = OpDiv
		return ins, nil
	case 0x1b:
		ins.Op = OpDivu
		return ins, nil
	case 0x20:
		return regAluDst(ins, OpAdd, ins.Rd), nil
	case 0x21:
		return regAluDst(ins, OpAddu, ins.Rd), nil
	case 0x22:
		return regAluDst(ins, OpSub, ins.Rd), nil
	case 0x23:
		return regAluDst(ins, OpSubu, ins.Rd), nil
	case 0x24:
		return regAluDst(ins, OpAnd, ins.Rd), nil
	case 0x25:
		return regAluDst(ins, OpOr, ins.Rd), nil
	case 0x26:
		return regAluDst(ins, OpXor, ins.Rd), nil
	case 0x27:
		return regAluDst(ins, OpNor, ins.Rd), nil
	case 0x2a:
		return regAluDst(ins, OpSlt, ins.Rd), nil
	case 0x2b:
		return regAluDst(ins, OpSltu, ins.Rd), nil
	}
	return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
}

func regAluDst(ins Instruction, op Op, dest int) Instruction {
	ins.Op = op
	ins.WritesGPR = true
	ins.DestReg = dest
	return ins
}

func decodeRegimm(ins Instruction) (Instruction, error) {
	switch ins.Rt {
	case 0x00:
		ins.Op = OpBltz
		ins.IsBranch = true
		return ins, nil
	case 0x01:
		ins.Op = OpBgez
		ins.IsBranch = true
		return ins, nil
	}
	return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
}

// decodeCop1 handles the fmt field (ins.Rs, renamed here to avoid
// confusion with the GPR index it is not) and funct for FPU arithmetic,
// conversions, compares, and the mfc1/mtc1 register moves. ins.Rt carries
// the GPR index for mfc1/mtc1; ins.Rd carries the destination FP register
// for arithmetic ops, ins.Rs the first source.
func decodeCop1(ins Instruction, fmt int, funct uint32) (Instruction, error) {
	const (
		fmtSingle = 0x10
		fmtDouble = 0x11
		fmtWord   = 0x14
	)
	if fmt == 0x00 {
		ins.Op = OpMfc1
		ins.WritesGPR = true
		ins.DestReg = ins.Rt
		return ins, nil
	}
	if fmt == 0x04 {
		ins.Op = OpMtc1
		return ins, nil
	}
	if fmt == 0x08 {
		if ins.Rt&1 == 0 {
			ins.Op = OpBc1f
		} else {
			ins.Op = OpBc1t
		}
		ins.IsBranch = true
		return ins, nil
	}

	// Arithmetic/compare/convert cop1 words carry fs in the field general
	// decode put in Rd (bits 15-11) and fd in the field it put in Shamt
	// (bits 10-6); remap so Execute's ins.Rs/ins.Rd read as fs/fd like
	// every other FP op, instead of the fmt field Decode passed in above.
	ins.Rs = ins.Rd
	ins.Rd = int(ins.Shamt)

	switch fmt {
	case fmtSingle:
		switch funct {
		case 0x00:
			ins.Op = OpAddS
		case 0x01:
			ins.Op = OpSubS
		case 0x02:
			ins.Op = OpMulS
		case 0x03:
			ins.Op = OpDivS
		case 0x06:
			ins.Op = OpMovS
		case 0x21:
			ins.Op = OpCvtDS
		case 0x24:
			ins.Op = OpCvtWS
		case 0x32:
			ins.Op = OpCEqS
		case 0x3c:
			ins.Op = OpCLtS
		case 0x3e:
			ins.Op = OpCLeS
		default:
			return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
		}
		return ins, nil
	case fmtDouble:
		switch funct {
		case 0x00:
			ins.Op = OpAddD
		case 0x01:
			ins.Op = OpSubD
		case 0x02:
			ins.Op = OpMulD
		case 0x03:
			ins.Op = OpDivD
		case 0x20:
			ins.Op = OpCvtSD
		case 0x32:
			ins.Op = OpCEqD
		case 0x3c:
			ins.Op = OpCLtD
		case 0x3e:
			ins.Op = OpCLeD
		default:
			return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
		}
		return ins, nil
	case fmtWord:
		switch funct {
		case 0x20:
			ins.Op = OpCvtSW
		case 0x21:
			ins.Op = OpCvtDW
		default:
			return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
		}
		return ins, nil
	}
	return Instruction{}, &IllegalInstruction{Word: ins.Raw, PC: ins.PC}
}
