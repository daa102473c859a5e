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

	"mipscore/emu/assemble"
	"mipscore/emu/core"
)

// examine <hex-addr>            - one word
// examine <hex-addr> <count>    - count words
// examine reg                   - all GPRs, HI/LO, PC
// examine inst <hex-addr> <n>   - disassemble n instructions
func examine(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	if word == "reg" {
		snap := engine.GetState()
		for i, v := range snap.Registers {
			fmt.Printf("$%-2d = %#08x\n", i, v)
		}
		fmt.Printf("hi  = %#08x\n", snap.HI)
		fmt.Printf("lo  = %#08x\n", snap.LO)
		fmt.Printf("pc  = %#08x\n", snap.PC)
		return false, nil
	}
	if word == "inst" {
		addr, err := parseUint32(line.getToken())
		if err != nil {
			return false, err
		}
		countTok := line.getToken()
		count := 1
		if countTok != "" {
			n, perr := parseUint32(countTok)
			if perr != nil {
				return false, perr
			}
			count = int(n)
		}
		words := make([]uint32, count)
		for i := range words {
			w, rerr := engine.GetMemory().ReadWord(addr+uint32(i*4), true)
			if rerr != nil {
				return false, rerr
			}
			words[i] = w
		}
		for _, l := range assemble.DisassembleRange(words, addr) {
			fmt.Println(l)
		}
		return false, nil
	}

	addr, err := parseUint32(word)
	if err != nil {
		return false, err
	}
	countTok := line.getToken()
	count := uint32(1)
	if countTok != "" {
		n, perr := parseUint32(countTok)
		if perr != nil {
			return false, perr
		}
		count = n
	}
	for i := uint32(0); i < count; i++ {
		v, rerr := engine.GetMemory().ReadWord(addr+i*4, false)
		if rerr != nil {
			return false, rerr
		}
		fmt.Printf("%08x: %08x\n", addr+i*4, v)
	}
	return false, nil
}

// deposit <hex-addr> <hex-value>
// deposit reg <n> <hex-value>
func deposit(line *cmdLine, engine *core.Engine) (bool, error) {
	word := line.getWord()
	if word == "reg" {
		regTok := line.getToken()
		reg, err := parseUint32(regTok)
		if err != nil {
			return false, err
		}
		val, err := parseUint32(line.getToken())
		if err != nil {
			return false, err
		}
		snap := engine.GetState()
		if int(reg) >= len(snap.Registers) {
			return false, fmt.Errorf("register out of range: %d", reg)
		}
		return false, fmt.Errorf("deposit reg is read-only in this build, wanted $%d = %#x", reg, val)
	}

	addr, err := parseUint32(word)
	if err != nil {
		return false, err
	}
	val, err := parseUint32(line.getToken())
	if err != nil {
		return false, err
	}
	return false, engine.GetMemory().WriteWord(addr, val)
}

// show layout  - entry point and text base address
// show perf    - pipeline performance counters
func show(line *cmdLine, engine *core.Engine) (bool, error) {
	switch line.getWord() {
	case "layout":
		layout := engine.Layout()
		fmt.Printf("entry=%#08x text=%#08x\n", layout.EntryPC, layout.TextStart)
		return false, nil
	case "perf":
		counters := engine.GetPerformanceCounters()
		fmt.Printf("instructions=%d cycles=%d stalls=%d\n", counters.InstructionCount, counters.CycleCount, counters.StallCount)
		return false, nil
	}
	return false, errors.New("show requires layout or perf")
}
