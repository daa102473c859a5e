/*
   MIPS-I disassembler

   Copyright (c) 2024, Richard Cornwell
   Copyright (c) 2026, mipscore contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package assemble

import (
	"fmt"
	"strings"

	"mipscore/emu/decode"
)

// gprNames is the canonical MIPS ABI register naming, the inverse of
// lexer.go's regNames.
var gprNames = [32]string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

func gprName(n int) string {
	if n < 0 || n >= len(gprNames) {
		return fmt.Sprintf("$%d", n)
	}
	return gprNames[n]
}

func fpName(n int) string {
	return fmt.Sprintf("$f%d", n)
}

// Disassemble decodes word (fetched from address pc) and renders it in the
// same mnemonic+operand syntax Assemble accepts, so a round trip through
// Assemble(Disassemble(x)) reproduces x. Illegal words render as a
// ".word 0x%08x" line holding the raw word.
func Disassemble(word uint32, pc uint32) string {
	ins, err := decode.Decode(word, pc)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", word)
	}
	return formatInstruction(ins)
}

// DisassembleRange renders every word in words (words[i] fetched from
// base+4*i) as one line per instruction, prefixed with its address - the
// shape the debugger's "examine/instruction" range command and an
// objdump-style listing both want.
func DisassembleRange(words []uint32, base uint32) []string {
	lines := make([]string, len(words))
	for i, w := range words {
		pc := base + uint32(i*4)
		lines[i] = fmt.Sprintf("%08x:\t%s", pc, Disassemble(w, pc))
	}
	return lines
}

func formatInstruction(ins decode.Instruction) string {
	mnem := ins.Mnemonic()
	switch ins.Op {
	case decode.OpNop:
		return "nop"
	case decode.OpAdd, decode.OpAddu, decode.OpSub, decode.OpSubu,
		decode.OpAnd, decode.OpOr, decode.OpXor, decode.OpNor,
		decode.OpSlt, decode.OpSltu:
		return fmt.Sprintf("%s %s,%s,%s", mnem, gprName(ins.DestReg), gprName(ins.Rs), gprName(ins.Rt))
	case decode.OpSllv, decode.OpSrlv, decode.OpSrav:
		return fmt.Sprintf("%s %s,%s,%s", mnem, gprName(ins.DestReg), gprName(ins.Rt), gprName(ins.Rs))
	case decode.OpSll, decode.OpSrl, decode.OpSra:
		return fmt.Sprintf("%s %s,%s,%d", mnem, gprName(ins.DestReg), gprName(ins.Rt), ins.Shamt)
	case decode.OpJr:
		return fmt.Sprintf("jr %s", gprName(ins.Rs))
	case decode.OpJalr:
		if ins.DestReg != 31 {
			return fmt.Sprintf("jalr %s,%s", gprName(ins.DestReg), gprName(ins.Rs))
		}
		return fmt.Sprintf("jalr %s", gprName(ins.Rs))
	case decode.OpMult, decode.OpMultu, decode.OpDiv, decode.OpDivu:
		return fmt.Sprintf("%s %s,%s", mnem, gprName(ins.Rs), gprName(ins.Rt))
	case decode.OpMfhi, decode.OpMflo:
		return fmt.Sprintf("%s %s", mnem, gprName(ins.DestReg))
	case decode.OpMthi, decode.OpMtlo:
		return fmt.Sprintf("%s %s", mnem, gprName(ins.Rs))
	case decode.OpSyscall:
		return "syscall"
	case decode.OpBreak:
		return "break"
	case decode.OpAddi, decode.OpAddiu, decode.OpSlti, decode.OpSltiu:
		return fmt.Sprintf("%s %s,%s,%d", mnem, gprName(ins.Rt), gprName(ins.Rs), ins.Imm)
	case decode.OpAndi, decode.OpOri, decode.OpXori:
		return fmt.Sprintf("%s %s,%s,0x%x", mnem, gprName(ins.Rt), gprName(ins.Rs), ins.ImmU)
	case decode.OpLui:
		return fmt.Sprintf("lui %s,0x%x", gprName(ins.Rt), ins.ImmU)
	case decode.OpLb, decode.OpLbu, decode.OpLh, decode.OpLhu, decode.OpLw:
		return fmt.Sprintf("%s %s,%d(%s)", mnem, gprName(ins.Rt), ins.Imm, gprName(ins.Rs))
	case decode.OpSb, decode.OpSh, decode.OpSw:
		return fmt.Sprintf("%s %s,%d(%s)", mnem, gprName(ins.Rt), ins.Imm, gprName(ins.Rs))
	case decode.OpBeq, decode.OpBne:
		return fmt.Sprintf("%s %s,%s,0x%08x", mnem, gprName(ins.Rs), gprName(ins.Rt), branchTarget(ins))
	case decode.OpBlez, decode.OpBgtz, decode.OpBltz, decode.OpBgez:
		return fmt.Sprintf("%s %s,0x%08x", mnem, gprName(ins.Rs), branchTarget(ins))
	case decode.OpJ, decode.OpJal:
		return fmt.Sprintf("%s 0x%08x", mnem, jumpTarget(ins))
	case decode.OpAddS, decode.OpSubS, decode.OpMulS, decode.OpDivS,
		decode.OpAddD, decode.OpSubD, decode.OpMulD, decode.OpDivD:
		// fd, fs, ft - dest, then the two sources.
		return fmt.Sprintf("%s %s,%s,%s", mnem, fpName(ins.Rd), fpName(ins.Rs), fpName(ins.Rt))
	case decode.OpCEqS, decode.OpCLtS, decode.OpCLeS,
		decode.OpCEqD, decode.OpCLtD, decode.OpCLeD:
		// fs, ft - no destination register, result goes to the FP condition flag.
		return fmt.Sprintf("%s %s,%s", mnem, fpName(ins.Rs), fpName(ins.Rt))
	case decode.OpMovS, decode.OpCvtSW, decode.OpCvtWS, decode.OpCvtSD, decode.OpCvtDS, decode.OpCvtDW:
		// fd, fs.
		return fmt.Sprintf("%s %s,%s", mnem, fpName(ins.Rd), fpName(ins.Rs))
	case decode.OpMfc1:
		return fmt.Sprintf("mfc1 %s,%s", gprName(ins.DestReg), fpName(ins.Rd))
	case decode.OpMtc1:
		return fmt.Sprintf("mtc1 %s,%s", gprName(ins.Rt), fpName(ins.Rd))
	case decode.OpBc1t, decode.OpBc1f:
		return fmt.Sprintf("%s 0x%08x", mnem, branchTarget(ins))
	default:
		return strings.TrimSpace(mnem)
	}
}

func branchTarget(ins decode.Instruction) uint32 {
	return uint32(int32(ins.PC+4) + ins.Imm<<2)
}

func jumpTarget(ins decode.Instruction) uint32 {
	return (ins.PC+4)&0xf0000000 | ins.Target<<2
}
