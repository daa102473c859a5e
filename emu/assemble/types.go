/*
 * mipscore - Two-pass MIPS-I assembler: data model
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

// Package assemble implements the two-pass MIPS-I assembler: a
// comment/include/macro preprocessor, a pass-1 layout walk that builds the
// symbol table, and a pass-2 emit walk that encodes instructions and data
// into a BinaryImage for the linker and loader.
package assemble

import "fmt"

// Segment identifies which of the four BinaryImage segments a symbol or
// relocation belongs to.
type Segment int

const (
	SegNone Segment = iota
	SegText
	SegData
	SegKText
	SegKData
)

func (s Segment) String() string {
	switch s {
	case SegText:
		return "text"
	case SegData:
		return "data"
	case SegKText:
		return "ktext"
	case SegKData:
		return "kdata"
	}
	return "none"
}

// RelocType names the arithmetic form a Relocation's fixup takes.
type RelocType int

const (
	RelMIPS32 RelocType = iota
	RelMIPS26
	RelMIPSPC16
	RelMIPSHI16
	RelMIPSLO16
)

// Symbol is one entry in a BinaryImage's ordered symbol table.
type Symbol struct {
	Name    string
	Address uint32
	Segment Segment
	Extern  bool
}

// Relocation is a fixup instruction: the word at the absolute address
// Offset must be patched with Symbol's resolved address, combined per
// Type, plus Addend. Offset is absolute (not segment-relative) because
// every BinaryImage segment is mapped at a fixed base in this design, so
// the linker and loader never need to re-derive it from a segment+index
// pair.
type Relocation struct {
	Segment Segment
	Offset  uint32
	Symbol  string
	Type    RelocType
	Addend  int32
}

// SourceMapEntry maps one emitted instruction or data item back to the
// source location that produced it.
type SourceMapEntry struct {
	Segment      Segment
	SegmentIndex int
	Address      uint32
	File         string
	Line         int
}

// BinaryImage is the assembler's (and linker's) output: an immutable
// record of code, data, symbols, relocations, and source positions.
type BinaryImage struct {
	TextBase, DataBase, KTextBase, KDataBase uint32

	Text, KText []uint32 // instruction words
	Data, KData []byte

	Symbols     map[string]uint32
	SymbolTable []Symbol
	Relocations []Relocation
	SourceMap   []SourceMapEntry

	LittleEndian bool
}

// NewImage returns an empty image with the given segment bases.
func NewImage(textBase, dataBase, ktextBase, kdataBase uint32) *BinaryImage {
	return &BinaryImage{
		TextBase: textBase, DataBase: dataBase, KTextBase: ktextBase, KDataBase: kdataBase,
		Symbols:      make(map[string]uint32),
		LittleEndian: true,
	}
}

// AssemblyError is the user-surfaced error type for every assembler phase.
type AssemblyError struct {
	Phase   string
	File    string
	Line    int
	Column  int
	Message string
}

func (e *AssemblyError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Phase, e.Message)
}

func errAt(phase, file string, line int, format string, args ...any) *AssemblyError {
	return &AssemblyError{Phase: phase, File: file, Line: line, Message: fmt.Sprintf(format, args...)}
}
