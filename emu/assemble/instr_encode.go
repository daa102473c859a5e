package assemble

import "fmt"

func regNum(tok string) (int, error) {
	if n, ok := regNames[tok]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown register %q", tok)
}

func fpReg(tok string) (int, error) {
	if n, ok := fpRegNumber(tok); ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown floating-point register %q", tok)
}

func need(ops []string, n int, mnemonic string) error {
	if len(ops) < n {
		return fmt.Errorf("%s: expected %d operands, got %d", mnemonic, n, len(ops))
	}
	return nil
}

// pcRelOffset computes the 16-bit signed immediate used by branch
// encodings: the word offset from the delay slot (addr+4) to target.
func pcRelOffset(addr, target uint32) int32 {
	return int32(target-(addr+4)) / 4
}

// encodeInstr encodes one already pseudo-expanded real instruction.
// Returns a non-nil Relocation when the operand resolves to an .extern
// symbol, deferring the fixup to link time.
func encodeInstr(mnemonic string, ops []string, addr uint32, st *asmState) (uint32, *Relocation, error) {
	info, ok := instrTable[mnemonic]
	if !ok {
		return 0, nil, fmt.Errorf("unknown instruction %q", mnemonic)
	}

	switch info.form {
	case formR:
		if err := need(ops, 3, mnemonic); err != nil {
			return 0, nil, err
		}
		rd, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[1])
		if err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[2])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, uint32(rs), uint32(rt), uint32(rd), 0, info.funct), nil, nil

	case formRShift:
		if err := need(ops, 3, mnemonic); err != nil {
			return 0, nil, err
		}
		rd, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[1])
		if err != nil {
			return 0, nil, err
		}
		shamt, _, err := resolveOperand(ops[2], st)
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, 0, uint32(rt), uint32(rd), shamt, info.funct), nil, nil

	case formRJR:
		if err := need(ops, 1, mnemonic); err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, uint32(rs), 0, 0, 0, info.funct), nil, nil

	case formRJALR:
		if err := need(ops, 1, mnemonic); err != nil {
			return 0, nil, err
		}
		rd := 31
		rsTok := ops[0]
		if len(ops) >= 2 {
			var err error
			rd, err = regNum(ops[0])
			if err != nil {
				return 0, nil, err
			}
			rsTok = ops[1]
		}
		rs, err := regNum(rsTok)
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, uint32(rs), 0, uint32(rd), 0, info.funct), nil, nil

	case formRMD:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[1])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, uint32(rs), uint32(rt), 0, 0, info.funct), nil, nil

	case formRMove:
		if err := need(ops, 1, mnemonic); err != nil {
			return 0, nil, err
		}
		r, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		if mnemonic == "mfhi" || mnemonic == "mflo" {
			return encodeR(info.op, 0, 0, uint32(r), 0, info.funct), nil, nil
		}
		return encodeR(info.op, uint32(r), 0, 0, 0, info.funct), nil, nil

	case formI:
		if mnemonic == "lui" {
			if err := need(ops, 2, mnemonic); err != nil {
				return 0, nil, err
			}
			rt, err := regNum(ops[0])
			if err != nil {
				return 0, nil, err
			}
			imm, reloc, err := resolveImmField(ops[1], st)
			if err != nil {
				return 0, nil, err
			}
			return encodeI(info.op, 0, uint32(rt), imm), reloc, nil
		}
		if err := need(ops, 3, mnemonic); err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[1])
		if err != nil {
			return 0, nil, err
		}
		imm, reloc, err := resolveImmField(ops[2], st)
		if err != nil {
			return 0, nil, err
		}
		return encodeI(info.op, uint32(rs), uint32(rt), imm), reloc, nil

	case formILoad:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		var rt int
		var err error
		if info.isCop1 {
			rt, err = fpReg(ops[0])
		} else {
			rt, err = regNum(ops[0])
		}
		if err != nil {
			return 0, nil, err
		}
		immText, regText := splitOffsetReg(ops[1])
		rs := 0
		if regText != "" {
			rs, err = regNum(regText)
			if err != nil {
				return 0, nil, err
			}
		} else {
			rs, err = regNum("$zero")
			if err != nil {
				return 0, nil, err
			}
		}
		imm, reloc, err := resolveImmField(immText, st)
		if err != nil {
			return 0, nil, err
		}
		return encodeI(info.op, uint32(rs), uint32(rt), imm), reloc, nil

	case formIBranch:
		if err := need(ops, 3, mnemonic); err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[1])
		if err != nil {
			return 0, nil, err
		}
		target, isExtern, err := resolveOperand(ops[2], st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return 0, nil, fmt.Errorf("branch target %q cannot be external", ops[2])
		}
		return encodeI(info.op, uint32(rs), uint32(rt), pcRelOffset(addr, target)), nil, nil

	case formIBranch1:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		rs, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		target, isExtern, err := resolveOperand(ops[1], st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return 0, nil, fmt.Errorf("branch target %q cannot be external", ops[1])
		}
		rt := info.fmt
		return encodeI(info.op, uint32(rs), rt, pcRelOffset(addr, target)), nil, nil

	case formJ:
		if err := need(ops, 1, mnemonic); err != nil {
			return 0, nil, err
		}
		target, isExtern, err := resolveOperand(ops[0], st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return encodeJ(info.op, 0), &Relocation{Symbol: ops[0], Type: RelMIPS26}, nil
		}
		return encodeJ(info.op, target), nil, nil

	case formSyscall:
		return encodeR(info.op, 0, 0, 0, 0, info.funct), nil, nil

	case formFR:
		if err := need(ops, 3, mnemonic); err != nil {
			return 0, nil, err
		}
		fd, err := fpReg(ops[0])
		if err != nil {
			return 0, nil, err
		}
		fs, err := fpReg(ops[1])
		if err != nil {
			return 0, nil, err
		}
		ft, err := fpReg(ops[2])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, info.fmt, uint32(ft), uint32(fs), uint32(fd), info.funct), nil, nil

	case formFR2:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		fd, err := fpReg(ops[0])
		if err != nil {
			return 0, nil, err
		}
		fs, err := fpReg(ops[1])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, info.fmt, 0, uint32(fs), uint32(fd), info.funct), nil, nil

	case formFCompare:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		fs, err := fpReg(ops[0])
		if err != nil {
			return 0, nil, err
		}
		ft, err := fpReg(ops[1])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, info.fmt, uint32(ft), uint32(fs), 0, info.funct), nil, nil

	case formFBranch:
		if err := need(ops, 1, mnemonic); err != nil {
			return 0, nil, err
		}
		target, isExtern, err := resolveOperand(ops[0], st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return 0, nil, fmt.Errorf("branch target %q cannot be external", ops[0])
		}
		tf := uint32(0)
		if mnemonic == "bc1t" {
			tf = 1
		}
		return encodeI(info.op, info.fmt, tf, pcRelOffset(addr, target)), nil, nil

	case formFMove:
		if err := need(ops, 2, mnemonic); err != nil {
			return 0, nil, err
		}
		rt, err := regNum(ops[0])
		if err != nil {
			return 0, nil, err
		}
		fs, err := fpReg(ops[1])
		if err != nil {
			return 0, nil, err
		}
		return encodeR(info.op, info.fmt, uint32(rt), uint32(fs), 0, 0), nil, nil
	}
	return 0, nil, fmt.Errorf("unhandled instruction form for %q", mnemonic)
}

// resolveImmField resolves an addi/andi/lui/load-store immediate operand,
// including the "%hi(sym)" / "%lo(sym)" wrapper syntax li/la expand to.
func resolveImmField(text string, st *asmState) (int32, *Relocation, error) {
	if hi, ok := stripWrapper(text, "%hi("); ok {
		v, isExtern, err := resolveOperand(hi, st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return 0, &Relocation{Symbol: hi, Type: RelMIPSHI16}, nil
		}
		return int32((v >> 16) & 0xffff), nil, nil
	}
	if lo, ok := stripWrapper(text, "%lo("); ok {
		v, isExtern, err := resolveOperand(lo, st)
		if err != nil {
			return 0, nil, err
		}
		if isExtern {
			return 0, &Relocation{Symbol: lo, Type: RelMIPSLO16}, nil
		}
		return int32(v & 0xffff), nil, nil
	}
	v, isExtern, err := resolveOperand(text, st)
	if err != nil {
		return 0, nil, err
	}
	if isExtern {
		return 0, &Relocation{Symbol: text, Type: RelMIPSLO16}, nil
	}
	return int32(int16(uint16(v))), nil, nil
}

func stripWrapper(s, prefix string) (string, bool) {
	if len(s) < len(prefix)+1 || s[:len(prefix)] != prefix || s[len(s)-1] != ')' {
		return "", false
	}
	return s[len(prefix) : len(s)-1], true
}
