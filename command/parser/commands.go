/*
 * mipscore - Debugger console command parser.
 *
 * Copyright (c) 2024, Richard Cornwell
 * Copyright (c) 2026, mipscore contributors
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
 *
 */

package parser

import (
	"errors"
	"fmt"
	"strconv"

	"mipscore/emu/core"
	"mipscore/emu/debugger"
)

// break <addr>
// break label <name>
// break line <file> <lineno>
// break clear
func breakCmd(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	switch word {
	case "":
		return false, errors.New("break requires an address, label, line, or clear")
	case "clear":
		engine.Breakpoints().Clear()
		return false, nil
	case "label":
		name := line.getToken()
		if name == "" {
			return false, errors.New("break label requires a symbol name")
		}
		if !engine.Breakpoints().AddByLabel(name, false, nil) {
			return false, fmt.Errorf("unknown label: %s", name)
		}
		return false, nil
	case "line":
		file := line.getToken()
		lineTok := line.getToken()
		lineno, err := strconv.Atoi(lineTok)
		if err != nil {
			return false, fmt.Errorf("bad line number: %q", lineTok)
		}
		engine.Breakpoints().AddLine(file, lineno, false, nil)
		return false, nil
	default:
		addr, err := parseUint32(word)
		if err != nil {
			return false, err
		}
		engine.Breakpoints().AddAddress(addr, false, nil)
		return false, nil
	}
}

// watch reg <name-for-display> <reg-number>
// watch mem <name-for-display> <hex-addr>
// watch show
// watch diff
func watchCmd(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	switch word {
	case "show":
		for name, v := range engine.Watches().Values() {
			fmt.Printf("%s = %#08x\n", name, v)
		}
		return false, nil
	case "diff":
		events, err := engine.Watches().Diff()
		if err != nil {
			return false, err
		}
		for _, e := range events {
			fmt.Printf("%s: %#08x -> %#08x\n", e.Identifier, e.Old, e.New)
		}
		return false, nil
	case "reg":
		name := line.getToken()
		regTok := line.getToken()
		reg, err := strconv.Atoi(regTok)
		if err != nil {
			return false, fmt.Errorf("bad register number: %q", regTok)
		}
		engine.Watches().Add(debugger.WatchRegister, name, func() (uint32, error) {
			return engine.GetState().Registers[reg], nil
		})
		return false, nil
	case "mem":
		name := line.getToken()
		addrTok := line.getToken()
		addr, err := parseUint32(addrTok)
		if err != nil {
			return false, err
		}
		engine.Watches().Add(debugger.WatchMemory, name, func() (uint32, error) {
			return engine.GetMemory().ReadWord(addr, false)
		})
		return false, nil
	}
	return false, errors.New("watch requires reg, mem, show, or diff")
}

// step         - one instruction
// step <n>     - n instructions
// step line    - until the current source line changes
func stepCmd(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	switch word {
	case "":
		printStep(engine.StepInstruction())
		return false, nil
	case "line":
		printStep(engine.StepLine())
		return false, nil
	default:
		n, err := strconv.Atoi(word)
		if err != nil {
			return false, fmt.Errorf("bad step count: %q", word)
		}
		var snap core.RuntimeSnapshot
		for i := 0; i < n; i++ {
			snap = engine.StepInstruction()
		}
		printStep(snap)
		return false, nil
	}
}

// run          - run until breakpoint or termination
// run <cycles> - run for at most <cycles> cycles
func runCmd(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	maxCycles := uint64(1 << 32)
	if word != "" {
		n, err := strconv.ParseUint(word, 0, 64)
		if err != nil {
			return false, fmt.Errorf("bad cycle count: %q", word)
		}
		maxCycles = n
	}
	printStep(engine.Run(maxCycles))
	return false, nil
}

func printStep(snap core.RuntimeSnapshot) {
	fmt.Printf("pc=%#08x status=%d instructions=%d\n", snap.PC, snap.Status, snap.Counters.InstructionCount)
	if snap.Terminated {
		fmt.Printf("program exited with code %d\n", snap.ExitCode)
	}
}
