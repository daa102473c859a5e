/*
 * mipscore - linker: merges assembled BinaryImages into one program
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

// Package link combines one or more assembler BinaryImages into a single
// linked image: segments are concatenated in link order, relocations
// against extern symbols are resolved against the combined symbol table,
// and duplicate definitions are rejected.
package link

import (
	"encoding/binary"
	"fmt"

	"mipscore/emu/assemble"
)

// DuplicateSymbol is raised when two input images define the same global
// symbol at different addresses.
type DuplicateSymbol struct {
	Name string
}

func (e *DuplicateSymbol) Error() string {
	return fmt.Sprintf("duplicate symbol %q", e.Name)
}

// UndefinedExtern is raised when a relocation's symbol is not defined by
// any of the linked images.
type UndefinedExtern struct {
	Name string
}

func (e *UndefinedExtern) Error() string {
	return fmt.Sprintf("undefined external symbol %q", e.Name)
}

// Link merges images, which must all share the same segment bases (as
// produced by assemble.Assemble with identical Options), into one
// BinaryImage with every relocation resolved.
func Link(images []*assemble.BinaryImage) (*assemble.BinaryImage, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("link: no input images")
	}
	base := images[0]
	out := assemble.NewImage(base.TextBase, base.DataBase, base.KTextBase, base.KDataBase)
	out.LittleEndian = base.LittleEndian

	for _, img := range images {
		textOff := uint32(len(out.Text)) * 4
		ktextOff := uint32(len(out.KText)) * 4
		dataOff := uint32(len(out.Data))
		kdataOff := uint32(len(out.KData))

		out.Text = append(out.Text, img.Text...)
		out.KText = append(out.KText, img.KText...)
		out.Data = append(out.Data, img.Data...)
		out.KData = append(out.KData, img.KData...)

		for _, sym := range img.SymbolTable {
			if sym.Extern {
				continue
			}
			addr := relocatedAddress(sym.Address, sym.Segment, base, textOff, ktextOff, dataOff, kdataOff)
			if existing, ok := out.Symbols[sym.Name]; ok && existing != addr {
				return nil, &DuplicateSymbol{Name: sym.Name}
			}
			out.Symbols[sym.Name] = addr
			out.SymbolTable = append(out.SymbolTable, assemble.Symbol{Name: sym.Name, Address: addr, Segment: sym.Segment})
		}
		for _, sme := range img.SourceMap {
			sme.Address = relocatedAddress(sme.Address, sme.Segment, base, textOff, ktextOff, dataOff, kdataOff)
			out.SourceMap = append(out.SourceMap, sme)
		}
		for _, reloc := range img.Relocations {
			reloc.Offset = relocatedAddress(reloc.Offset, reloc.Segment, base, textOff, ktextOff, dataOff, kdataOff)
			out.Relocations = append(out.Relocations, reloc)
		}
	}

	if err := applyRelocations(out); err != nil {
		return nil, err
	}
	return out, nil
}

func relocatedAddress(addr uint32, seg assemble.Segment, base *assemble.BinaryImage, textOff, ktextOff, dataOff, kdataOff uint32) uint32 {
	switch seg {
	case assemble.SegText:
		return addr - base.TextBase + textOff + base.TextBase
	case assemble.SegKText:
		return addr - base.KTextBase + ktextOff + base.KTextBase
	case assemble.SegData:
		return addr - base.DataBase + dataOff + base.DataBase
	case assemble.SegKData:
		return addr - base.KDataBase + kdataOff + base.KDataBase
	}
	return addr
}

// applyRelocations resolves every pending Relocation against the merged
// symbol table and patches the corresponding word in place.
func applyRelocations(img *assemble.BinaryImage) error {
	for _, r := range img.Relocations {
		addr, ok := img.Symbols[r.Symbol]
		if !ok {
			return &UndefinedExtern{Name: r.Symbol}
		}
		value := uint32(int64(addr) + int64(r.Addend))
		if err := patchWord(img, r.Segment, r.Offset, r.Type, value); err != nil {
			return err
		}
	}
	return nil
}

func patchWord(img *assemble.BinaryImage, seg assemble.Segment, addr uint32, typ assemble.RelocType, value uint32) error {
	switch seg {
	case assemble.SegText, assemble.SegKText:
		words, base := img.Text, img.TextBase
		if seg == assemble.SegKText {
			words, base = img.KText, img.KTextBase
		}
		idx := (addr - base) / 4
		if int(idx) >= len(words) {
			return fmt.Errorf("relocation offset %#x out of range", addr)
		}
		patchInstructionWord(words, idx, typ, value)
		return nil
	case assemble.SegData, assemble.SegKData:
		data, base := img.Data, img.DataBase
		if seg == assemble.SegKData {
			data, base = img.KData, img.KDataBase
		}
		off := addr - base
		if int(off)+4 > len(data) {
			return fmt.Errorf("relocation offset %#x out of range", addr)
		}
		binary.LittleEndian.PutUint32(data[off:], value)
		return nil
	}
	return fmt.Errorf("relocation against unknown segment")
}

func patchInstructionWord(words []uint32, idx uint32, typ assemble.RelocType, value uint32) {
	switch typ {
	case assemble.RelMIPS32:
		words[idx] = value
	case assemble.RelMIPS26:
		words[idx] = words[idx]&0xfc000000 | (value>>2)&0x03ffffff
	case assemble.RelMIPSHI16:
		words[idx] = words[idx]&0xffff0000 | (value>>16)&0xffff
	case assemble.RelMIPSLO16:
		words[idx] = words[idx]&0xffff0000 | value&0xffff
	case assemble.RelMIPSPC16:
		words[idx] = words[idx]&0xffff0000 | (value/4)&0xffff
	}
}
