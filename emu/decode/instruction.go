/*
 * mipscore - Decoded instruction representation
 *
 * Copyright 2024, Richard Cornwell
 * Copyright 2026, mipscore contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package decode turns a 32-bit MIPS-I word into an Instruction - a tagged
// variant carrying exactly the operands its Op needs - and provides the
// single-cycle executor that applies one to a MachineState and Memory.
//
// An earlier design returned a closure over (MachineState, Memory) per
// instruction; this one instead returns data, dispatched through a single
// switch in Execute, so decoding an instruction never allocates.
package decode

import "fmt"

// Op names every operation the decoder can produce. Grouping follows the
// operand shape a given Op needs, not the MIPS opcode/funct encoding.
type Op int

const (
	OpInvalid Op = iota

	// Register-register ALU: Rd = Rs <op> Rt.
	OpAdd
	OpAddu
	OpSub
	OpSubu
	OpAnd
	OpOr
	OpXor
	OpNor
	OpSlt
	OpSltu

	// Shifts: Rd = Rt <op> (Shamt or Rs low 5 bits).
	OpSll
	OpSrl
	OpSra
	OpSllv
	OpSrlv
	OpSrav

	// Immediate ALU: Rt = Rs <op> Imm.
	OpAddi
	OpAddiu
	OpAndi
	OpOri
	OpXori
	OpSlti
	OpSltiu
	OpLui

	// Loads/stores: Rt <-> Memory[Rs + Imm].
	OpLb
	OpLbu
	OpLh
	OpLhu
	OpLw
	OpSb
	OpSh
	OpSw

	// Branches: compare Rs (and Rt, for beq/bne) then add Imm<<2 to PC+4.
	OpBeq
	OpBne
	OpBlez
	OpBgtz
	OpBltz
	OpBgez

	// Jumps.
	OpJ
	OpJal
	OpJr
	OpJalr

	// Multiply/divide, HI/LO.
	OpMult
	OpMultu
	OpDiv
	OpDivu
	OpMfhi
	OpMflo
	OpMthi
	OpMtlo

	// Coprocessor-1 single precision.
	OpAddS
	OpSubS
	OpMulS
	OpDivS
	OpCvtSW
	OpCvtWS
	OpCvtSD
	OpMovS
	OpCEqS
	OpCLtS
	OpCLeS

	// Coprocessor-1 double precision.
	OpAddD
	OpSubD
	OpMulD
	OpDivD
	OpCvtDS
	OpCvtDW
	OpCEqD
	OpCLtD
	OpCLeD

	// Coprocessor-1 register moves.
	OpMfc1
	OpMtc1

	// FP branch on condition flag.
	OpBc1t
	OpBc1f

	OpSyscall
	OpBreak
	OpNop
)

//go:generate stringer -type=Op

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

var opNames = map[Op]string{
	OpInvalid: "invalid", OpAdd: "add", OpAddu: "addu", OpSub: "sub", OpSubu: "subu",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpNor: "nor", OpSlt: "slt", OpSltu: "sltu",
	OpSll: "sll", OpSrl: "srl", OpSra: "sra", OpSllv: "sllv", OpSrlv: "srlv", OpSrav: "srav",
	OpAddi: "addi", OpAddiu: "addiu", OpAndi: "andi", OpOri: "ori", OpXori: "xori",
	OpSlti: "slti", OpSltiu: "sltiu", OpLui: "lui",
	OpLb: "lb", OpLbu: "lbu", OpLh: "lh", OpLhu: "lhu", OpLw: "lw",
	OpSb: "sb", OpSh: "sh", OpSw: "sw",
	OpBeq: "beq", OpBne: "bne", OpBlez: "blez", OpBgtz: "bgtz", OpBltz: "bltz", OpBgez: "bgez",
	OpJ: "j", OpJal: "jal", OpJr: "jr", OpJalr: "jalr",
	OpMult: "mult", OpMultu: "multu", OpDiv: "div", OpDivu: "divu",
	OpMfhi: "mfhi", OpMflo: "mflo", OpMthi: "mthi", OpMtlo: "mtlo",
	OpAddS: "add.s", OpSubS: "sub.s", OpMulS: "mul.s", OpDivS: "div.s",
	OpCvtSW: "cvt.s.w", OpCvtWS: "cvt.w.s", OpCvtSD: "cvt.s.d", OpMovS: "mov.s",
	OpCEqS: "c.eq.s", OpCLtS: "c.lt.s", OpCLeS: "c.le.s",
	OpAddD: "add.d", OpSubD: "sub.d", OpMulD: "mul.d", OpDivD: "div.d",
	OpCvtDS: "cvt.d.s", OpCvtDW: "cvt.d.w", OpCEqD: "c.eq.d", OpCLtD: "c.lt.d", OpCLeD: "c.le.d",
	OpMfc1: "mfc1", OpMtc1: "mtc1", OpBc1t: "bc1t", OpBc1f: "bc1f",
	OpSyscall: "syscall", OpBreak: "break", OpNop: "nop",
}

// Instruction is the decoded form of one 32-bit word. Not every field is
// meaningful for every Op; Execute reads only the fields its Op defines.
type Instruction struct {
	Op     Op
	Raw    uint32
	PC     uint32
	Rs     int
	Rt     int
	Rd     int
	Shamt  uint8
	Imm    int32  // sign-extended 16-bit immediate
	ImmU   uint32 // zero-extended 16-bit immediate, for andi/ori/xori
	Target uint32 // raw 26-bit jump target field, not yet combined with PC

	// WritesGPR/IsLoad/IsStore/IsBranch/IsJump classify the instruction for
	// the pipeline's hazard detector and forwarding unit without needing a
	// second switch over Op.
	WritesGPR bool
	DestReg   int // valid when WritesGPR
	IsLoad    bool
	IsStore   bool
	IsBranch  bool
	IsJump    bool
}

// Mnemonic returns the instruction's textual name, for disassembly and
// error messages.
func (ins Instruction) Mnemonic() string { return ins.Op.String() }
