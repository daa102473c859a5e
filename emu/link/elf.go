package link

import (
	"encoding/binary"
	"fmt"

	"mipscore/emu/assemble"
)

// LoadELF32 does a minimal ingestion of a little-endian ELF32 MIPS
// executable's PT_LOAD segments into a BinaryImage, so object files
// produced by an external toolchain can be merged with Assemble output
// through the same Link path. It does not interpret ELF relocation
// sections; PT_LOAD segments are assumed already statically linked.
func LoadELF32(raw []byte, opts assemble.Options) (*assemble.BinaryImage, error) {
	if len(raw) < 52 || raw[0] != 0x7f || raw[1] != 'E' || raw[2] != 'L' || raw[3] != 'F' {
		return nil, fmt.Errorf("not an ELF file")
	}
	if raw[4] != 1 {
		return nil, fmt.Errorf("only ELF32 is supported")
	}
	if raw[5] != 1 {
		return nil, fmt.Errorf("only little-endian ELF is supported")
	}
	bo := binary.LittleEndian
	phoff := bo.Uint32(raw[28:32])
	phentsize := bo.Uint16(raw[42:44])
	phnum := bo.Uint16(raw[44:46])

	img := assemble.NewImage(opts.TextBase, opts.DataBase, opts.KTextBase, opts.KDataBase)

	for i := uint16(0); i < phnum; i++ {
		off := int(phoff) + int(i)*int(phentsize)
		if off+32 > len(raw) {
			break
		}
		ph := raw[off:]
		ptype := bo.Uint32(ph[0:4])
		const ptLoad = 1
		if ptype != ptLoad {
			continue
		}
		fileOff := bo.Uint32(ph[4:8])
		vaddr := bo.Uint32(ph[8:12])
		filesz := bo.Uint32(ph[16:20])
		memsz := bo.Uint32(ph[20:24])
		if int(fileOff+filesz) > len(raw) {
			return nil, fmt.Errorf("PT_LOAD segment exceeds file size")
		}
		seg := make([]byte, memsz)
		copy(seg, raw[fileOff:fileOff+filesz])
		placeSegment(img, opts, vaddr, seg)
	}
	return img, nil
}

func placeSegment(img *assemble.BinaryImage, opts assemble.Options, vaddr uint32, seg []byte) {
	switch {
	case vaddr >= opts.KDataBase:
		img.KData = append(img.KData, seg...)
	case vaddr >= opts.KTextBase:
		img.KText = append(img.KText, bytesToWords(seg)...)
	case vaddr >= opts.DataBase:
		img.Data = append(img.Data, seg...)
	default:
		img.Text = append(img.Text, bytesToWords(seg)...)
	}
}

func bytesToWords(b []byte) []uint32 {
	n := (len(b) + 3) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		var chunk [4]byte
		copy(chunk[:], b[i*4:])
		words[i] = binary.LittleEndian.Uint32(chunk[:])
	}
	return words
}
