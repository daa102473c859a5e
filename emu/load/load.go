/*
 * mipscore - loader: places a linked BinaryImage into simulated memory
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

// Package load places an assembled or linked BinaryImage into a
// memory.Memory: it writes each segment's bytes, establishes the initial
// register file ($gp, $sp, $fp, $ra, PC), and reserves a heap region
// immediately above .data for syscall 9 (sbrk).
package load

import (
	"fmt"

	"mipscore/emu/assemble"
	"mipscore/emu/machine"
	"mipscore/emu/memory"
)

// Default stack and heap geometry, matching MARS/SPIM convention: the
// stack grows down from just under the kernel space boundary, and the
// heap grows up from the end of .data.
const (
	DefaultStackTop  = 0x7ffffffc
	DefaultStackSize = 0x00100000
	GlobalPointerOffset = 0x8000
)

// ProgramLayout records where a loaded program's segments and special
// pointers ended up, for display by the debugger and for sbrk bookkeeping.
type ProgramLayout struct {
	EntryPC    uint32
	TextStart  uint32
	TextEnd    uint32
	DataStart  uint32
	DataEnd    uint32
	HeapStart  uint32
	StackTop   uint32
	GlobalPtr  uint32
	Symbols    map[string]uint32
}

// Options configures Load's register/heap setup. Zero values select the
// MARS-compatible defaults.
type Options struct {
	EntrySymbol string // defaults to "main", falling back to TextBase
	StackTop    uint32
	ArgV        []string
}

// Load writes img's segments into mem, resets st with its PC at the entry
// point, and returns the resulting ProgramLayout. It does not start
// execution.
func Load(img *assemble.BinaryImage, mem *memory.Memory, st *machine.State, opts Options) (ProgramLayout, error) {
	if err := writeWords(mem, img.TextBase, img.Text); err != nil {
		return ProgramLayout{}, fmt.Errorf("load text: %w", err)
	}
	if err := writeWords(mem, img.KTextBase, img.KText); err != nil {
		return ProgramLayout{}, fmt.Errorf("load ktext: %w", err)
	}
	if err := mem.WriteBytes(img.DataBase, img.Data); err != nil {
		return ProgramLayout{}, fmt.Errorf("load data: %w", err)
	}
	if err := mem.WriteBytes(img.KDataBase, img.KData); err != nil {
		return ProgramLayout{}, fmt.Errorf("load kdata: %w", err)
	}

	stackTop := opts.StackTop
	if stackTop == 0 {
		stackTop = DefaultStackTop
	}
	entry := img.TextBase
	symName := opts.EntrySymbol
	if symName == "" {
		symName = "main"
	}
	if addr, ok := img.Symbols[symName]; ok {
		entry = addr
	}

	dataEnd := img.DataBase + uint32(len(img.Data))
	heapStart := (dataEnd + 7) &^ 7

	st.Reset()
	st.SetPC(entry)
	st.SetGPR(29, stackTop)    // $sp
	st.SetGPR(30, stackTop)    // $fp
	st.SetGPR(28, heapStart+GlobalPointerOffset) // $gp: conventional mid-heap bias
	st.SetGPR(31, 0)           // $ra: a top-level return falls through to syscall 10 (exit)

	layout := ProgramLayout{
		EntryPC:   entry,
		TextStart: img.TextBase,
		TextEnd:   img.TextBase + uint32(len(img.Text))*4,
		DataStart: img.DataBase,
		DataEnd:   dataEnd,
		HeapStart: heapStart,
		StackTop:  stackTop,
		GlobalPtr: heapStart + GlobalPointerOffset,
		Symbols:   img.Symbols,
	}
	return layout, nil
}

func writeWords(mem *memory.Memory, base uint32, words []uint32) error {
	for i, w := range words {
		if err := mem.WriteWord(base+uint32(i*4), w); err != nil {
			return err
		}
	}
	return nil
}

// PackArgv lays out argc/argv on the stack per the MARS convention: argv
// pointers followed by NUL-terminated strings, all below the current $sp,
// returning the updated stack pointer and the argv array address. Both are
// the same value: the argv array starts at the new stack pointer.
func PackArgv(mem *memory.Memory, sp uint32, args []string) (newSP uint32, argvAddr uint32, err error) {
	var blob []byte
	offsets := make([]uint32, len(args))
	for i, a := range args {
		offsets[i] = uint32(len(blob))
		blob = append(blob, []byte(a)...)
		blob = append(blob, 0)
	}
	strBase := sp - uint32(len(blob))
	strBase &^= 3
	if err := mem.WriteBytes(strBase, blob); err != nil {
		return 0, 0, err
	}
	argvBase := strBase - uint32(len(args)+1)*4
	argvBase &^= 3
	for i, off := range offsets {
		if err := mem.WriteWord(argvBase+uint32(i*4), strBase+off); err != nil {
			return 0, 0, err
		}
	}
	if err := mem.WriteWord(argvBase+uint32(len(args)*4), 0); err != nil {
		return 0, 0, err
	}
	return argvBase, argvBase, nil
}
