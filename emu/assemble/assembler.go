package assemble

import (
	"strconv"
	"strings"
)

// Default segment bases mirror emu/memory's layout constants. assemble does
// not import emu/memory to keep the assembler usable standalone (e.g. for
// producing object files later fed to the linker); emu/core wires the real
// memory.Map constants through Options when assembling a runnable program.
const (
	DefaultTextBase  = 0x00400000
	DefaultDataBase  = 0x10010000
	DefaultKTextBase = 0x80000000
	DefaultKDataBase = 0x90000000
)

// Options configures one Assemble call.
type Options struct {
	Filename    string
	IncludeDirs []string

	TextBase, DataBase, KTextBase, KDataBase uint32
}

// DefaultOptions returns Options with the standard segment layout and no
// include search path.
func DefaultOptions(filename string) Options {
	return Options{
		Filename:  filename,
		TextBase:  DefaultTextBase,
		DataBase:  DefaultDataBase,
		KTextBase: DefaultKTextBase,
		KDataBase: DefaultKDataBase,
	}
}

type parsedLine struct {
	file         string
	lineNo       int
	labels       []string
	directive    string
	mnemonic     string
	operandsText string
}

func parseLine(l sourceLine) parsedLine {
	text := strings.TrimSpace(l.text)
	pl := parsedLine{file: l.file, lineNo: l.line}
	for {
		label, rest, ok := takeLabel(text)
		if !ok {
			break
		}
		pl.labels = append(pl.labels, label)
		text = rest
	}
	if text == "" {
		return pl
	}
	sp := strings.IndexAny(text, " \t")
	var head string
	if sp < 0 {
		head = text
	} else {
		head = text[:sp]
		pl.operandsText = strings.TrimSpace(text[sp+1:])
	}
	head = strings.ToLower(head)
	if strings.HasPrefix(head, ".") {
		pl.directive = head
	} else {
		pl.mnemonic = head
	}
	return pl
}

func takeLabel(text string) (label, rest string, ok bool) {
	idx := strings.IndexByte(text, ':')
	if idx <= 0 {
		return "", text, false
	}
	candidate := text[:idx]
	if strings.ContainsAny(candidate, " \t") {
		return "", text, false
	}
	for i := 0; i < len(candidate); i++ {
		if !isIdentChar(candidate[i]) {
			return "", text, false
		}
	}
	return candidate, strings.TrimSpace(text[idx+1:]), true
}

type asmState struct {
	segment Segment
	addr    map[Segment]uint32
	symbols map[string]uint32
	externs map[string]bool
}

func newAsmState(opts Options) *asmState {
	return &asmState{
		segment: SegText,
		addr: map[Segment]uint32{
			SegText: opts.TextBase, SegData: opts.DataBase,
			SegKText: opts.KTextBase, SegKData: opts.KDataBase,
		},
		symbols: make(map[string]uint32),
		externs: make(map[string]bool),
	}
}

func dataItemSize(directive string, ops []string) (align uint32, size uint32, err error) {
	switch directive {
	case ".word":
		return 4, uint32(len(ops)) * 4, nil
	case ".half":
		return 2, uint32(len(ops)) * 2, nil
	case ".byte":
		return 1, uint32(len(ops)), nil
	case ".float":
		return 4, uint32(len(ops)) * 4, nil
	case ".double":
		return 8, uint32(len(ops)) * 8, nil
	case ".ascii":
		s, err := unescapeString(strings.Join(ops, " "))
		if err != nil {
			return 1, 0, err
		}
		return 1, uint32(len(s)), nil
	case ".asciiz":
		s, err := unescapeString(strings.Join(ops, " "))
		if err != nil {
			return 1, 0, err
		}
		return 1, uint32(len(s)) + 1, nil
	}
	return 1, 0, nil
}

// Assemble runs the preprocessor and both assembler passes over source,
// producing a BinaryImage ready for the linker or loader.
func Assemble(source string, opts Options) (*BinaryImage, error) {
	pre := newPreprocessor(opts.IncludeDirs)
	lines, err := pre.run(source, opts.Filename)
	if err != nil {
		return nil, err
	}
	parsed := make([]parsedLine, len(lines))
	for i, l := range lines {
		parsed[i] = parseLine(l)
	}

	st := newAsmState(opts)
	if err := sizePass(parsed, st); err != nil {
		return nil, err
	}

	img := NewImage(opts.TextBase, opts.DataBase, opts.KTextBase, opts.KDataBase)
	for name, addr := range st.symbols {
		img.Symbols[name] = addr
	}
	st2 := newAsmState(opts)
	st2.symbols = st.symbols
	st2.externs = st.externs
	if err := emitPass(parsed, st2, img); err != nil {
		return nil, err
	}
	return img, nil
}

func switchSegment(directive string, st *asmState) (bool, error) {
	switch directive {
	case ".text":
		st.segment = SegText
	case ".data":
		st.segment = SegData
	case ".ktext":
		st.segment = SegKText
	case ".kdata":
		st.segment = SegKData
	default:
		return false, nil
	}
	return true, nil
}

func sizePass(parsed []parsedLine, st *asmState) error {
	for _, pl := range parsed {
		for _, lbl := range pl.labels {
			st.symbols[lbl] = st.addr[st.segment]
		}
		if pl.directive != "" {
			if handled, _ := switchSegment(pl.directive, st); handled {
				continue
			}
			ops := splitFields(pl.operandsText)
			switch pl.directive {
			case ".globl", ".global":
				// visibility only; no size effect for a single assembled image
			case ".extern":
				if len(ops) >= 1 {
					st.externs[ops[0]] = true
				}
			case ".align":
				if len(ops) == 1 {
					n, err := strconv.Atoi(ops[0])
					if err != nil {
						return errAt("assemble", pl.file, pl.lineNo, "bad .align operand: %s", ops[0])
					}
					st.addr[st.segment] = alignUp(st.addr[st.segment], 1<<uint(n))
				}
			case ".space":
				if len(ops) == 1 {
					n, err := strconv.Atoi(ops[0])
					if err != nil {
						return errAt("assemble", pl.file, pl.lineNo, "bad .space operand: %s", ops[0])
					}
					st.addr[st.segment] += uint32(n)
				}
			case ".word", ".half", ".byte", ".float", ".double", ".ascii", ".asciiz":
				align, size, err := dataItemSize(pl.directive, ops)
				if err != nil {
					return errAt("assemble", pl.file, pl.lineNo, "%s", err)
				}
				st.addr[st.segment] = alignUp(st.addr[st.segment], align)
				st.addr[st.segment] += size
			}
			continue
		}
		if pl.mnemonic != "" {
			ops := splitFields(pl.operandsText)
			ri := expandPseudo(pl.mnemonic, ops)
			st.addr[st.segment] = alignUp(st.addr[st.segment], 4)
			st.addr[st.segment] += uint32(4 * len(ri))
		}
	}
	return nil
}

func emitPass(parsed []parsedLine, st *asmState, img *BinaryImage) error {
	for _, pl := range parsed {
		if pl.directive != "" {
			if handled, _ := switchSegment(pl.directive, st); handled {
				continue
			}
			ops := splitFields(pl.operandsText)
			if err := emitDirective(pl, ops, st, img); err != nil {
				return err
			}
			continue
		}
		if pl.mnemonic != "" {
			ops := splitFields(pl.operandsText)
			ri := expandPseudo(pl.mnemonic, ops)
			for _, r := range ri {
				addr := st.addr[st.segment]
				word, reloc, err := encodeInstr(r.mnemonic, r.operands, addr, st)
				if err != nil {
					return errAt("assemble", pl.file, pl.lineNo, "%s", err)
				}
				switch st.segment {
				case SegText:
					img.Text = append(img.Text, word)
				case SegKText:
					img.KText = append(img.KText, word)
				default:
					return errAt("assemble", pl.file, pl.lineNo, "instructions are only valid in .text or .ktext")
				}
				img.SourceMap = append(img.SourceMap, SourceMapEntry{
					Segment: st.segment, Address: addr, File: pl.file, Line: pl.lineNo,
				})
				if reloc != nil {
					reloc.Segment = st.segment
					reloc.Offset = addr
					img.Relocations = append(img.Relocations, *reloc)
				}
				st.addr[st.segment] += 4
			}
		}
	}
	buildSymbolTable(img, st)
	return nil
}

func buildSymbolTable(img *BinaryImage, st *asmState) {
	for name, addr := range st.symbols {
		seg := SegNone
		switch {
		case addr >= DefaultKDataBase:
			seg = SegKData
		case addr >= DefaultKTextBase:
			seg = SegKText
		case addr >= DefaultDataBase:
			seg = SegData
		default:
			seg = SegText
		}
		img.Symbols[name] = addr
		img.SymbolTable = append(img.SymbolTable, Symbol{Name: name, Address: addr, Segment: seg})
	}
	for name := range st.externs {
		if _, ok := img.Symbols[name]; !ok {
			img.SymbolTable = append(img.SymbolTable, Symbol{Name: name, Extern: true})
		}
	}
}

func emitDirective(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	switch pl.directive {
	case ".globl", ".global":
		return nil
	case ".extern":
		if len(ops) >= 1 {
			st.externs[ops[0]] = true
		}
		return nil
	case ".align":
		n, _ := strconv.Atoi(ops[0])
		align := uint32(1) << uint(n)
		pad := alignUp(st.addr[st.segment], align) - st.addr[st.segment]
		appendZeroPad(st, img, pad)
		return nil
	case ".space":
		n, err := strconv.Atoi(ops[0])
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "bad .space operand")
		}
		appendZeroPad(st, img, uint32(n))
		return nil
	case ".word":
		return emitWords(pl, ops, st, img)
	case ".half":
		return emitHalves(pl, ops, st, img)
	case ".byte":
		return emitBytes(pl, ops, st, img)
	case ".float":
		return emitFloats(pl, ops, st, img)
	case ".double":
		return emitDoubles(pl, ops, st, img)
	case ".ascii":
		return emitString(pl, ops, st, img, false)
	case ".asciiz":
		return emitString(pl, ops, st, img, true)
	}
	return nil
}

func dataSlot(st *asmState, img *BinaryImage) *[]byte {
	if st.segment == SegKData {
		return &img.KData
	}
	return &img.Data
}

func appendZeroPad(st *asmState, img *BinaryImage, n uint32) {
	slot := dataSlot(st, img)
	*slot = append(*slot, make([]byte, n)...)
	st.addr[st.segment] += n
}

func alignData(st *asmState, img *BinaryImage, align uint32) {
	pad := alignUp(st.addr[st.segment], align) - st.addr[st.segment]
	if pad > 0 {
		appendZeroPad(st, img, pad)
	}
}

func emitWords(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	alignData(st, img, 4)
	slot := dataSlot(st, img)
	for _, op := range ops {
		v, isExtern, err := resolveOperand(op, st)
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "%s", err)
		}
		if isExtern {
			img.Relocations = append(img.Relocations, Relocation{
				Segment: st.segment, Offset: st.addr[st.segment], Symbol: op, Type: RelMIPS32,
			})
		}
		*slot = appendWord32(*slot, v)
		st.addr[st.segment] += 4
	}
	return nil
}

func emitHalves(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	alignData(st, img, 2)
	slot := dataSlot(st, img)
	for _, op := range ops {
		v, _, err := resolveOperand(op, st)
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "%s", err)
		}
		*slot = appendHalf16(*slot, uint16(v))
		st.addr[st.segment] += 2
	}
	return nil
}

func emitBytes(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	slot := dataSlot(st, img)
	for _, op := range ops {
		v, _, err := resolveOperand(op, st)
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "%s", err)
		}
		*slot = append(*slot, byte(v))
		st.addr[st.segment]++
	}
	return nil
}

func emitFloats(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	alignData(st, img, 4)
	slot := dataSlot(st, img)
	for _, op := range ops {
		bits, err := parseFloat32Bits(op)
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "bad float literal %q", op)
		}
		*slot = appendWord32(*slot, bits)
		st.addr[st.segment] += 4
	}
	return nil
}

func emitDoubles(pl parsedLine, ops []string, st *asmState, img *BinaryImage) error {
	alignData(st, img, 8)
	slot := dataSlot(st, img)
	for _, op := range ops {
		bits, err := parseFloat64Bits(op)
		if err != nil {
			return errAt("assemble", pl.file, pl.lineNo, "bad double literal %q", op)
		}
		*slot = appendWord64(*slot, bits)
		st.addr[st.segment] += 8
	}
	return nil
}

func emitString(pl parsedLine, ops []string, st *asmState, img *BinaryImage, nulTerminate bool) error {
	s, err := unescapeString(strings.Join(ops, " "))
	if err != nil {
		return errAt("assemble", pl.file, pl.lineNo, "%s", err)
	}
	slot := dataSlot(st, img)
	*slot = append(*slot, []byte(s)...)
	st.addr[st.segment] += uint32(len(s))
	if nulTerminate {
		*slot = append(*slot, 0)
		st.addr[st.segment]++
	}
	return nil
}

// resolveOperand parses op as a numeric literal or, failing that, looks it
// up in the symbol table. isExtern reports a forward reference to a symbol
// declared only via .extern, deferred to link time with a zero placeholder.
func resolveOperand(op string, st *asmState) (uint32, bool, error) {
	if isNumericLiteral(op) {
		v, err := parseImmediate(op)
		if err != nil {
			return 0, false, err
		}
		return uint32(v), false, nil
	}
	if addr, ok := st.symbols[op]; ok {
		return addr, false, nil
	}
	if st.externs[op] {
		return 0, true, nil
	}
	return 0, false, errAt("assemble", "", 0, "undefined symbol %q", op)
}
