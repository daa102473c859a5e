package assemble

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// rawInsn is one real-instruction emission produced by expanding a source
// line (which may itself already be a real instruction, a 1:1 mapping).
type rawInsn struct {
	mnemonic string
	operands []string
}

// pseudoRow is one MNEMONIC OPERANDS \t TEMPLATE1 \t TEMPLATE2 ... line of
// a PseudoOps.txt-style table: a macro's arity, an optional S32/COMPACT
// selector, and the ordered real-instruction templates it expands to.
type pseudoRow struct {
	mnemonic  string
	arity     int
	needsS32  bool // select this row only when its value operand needs 32 bits
	compact   bool // MIPS32r6 compact-branch form; never selectable on MIPS-I
	templates []rawInsn
}

type pseudoOpTable struct {
	rows map[string][]pseudoRow // keyed by mnemonic
}

var (
	pseudoMu    sync.RWMutex
	activeTable = mustParsePseudoOps(defaultPseudoOpsSource)
)

// ReloadPseudoOpsFromSource replaces the process-wide default pseudo-op
// table with the one parsed from text, the Go-side equivalent of the
// original reload_pseudo_op_table call (now scoped to
// Assembler::reload_from_source - see DESIGN.md's pseudo.go note on
// why this project keeps one process-wide table rather than a per
// instance one, since Assemble has no long-lived Assembler instance to
// hang a table off of). A malformed table is rejected and the previous
// table keeps serving expansions.
func ReloadPseudoOpsFromSource(text string) error {
	table, err := parsePseudoOps(text)
	if err != nil {
		return err
	}
	pseudoMu.Lock()
	activeTable = table
	pseudoMu.Unlock()
	return nil
}

func mustParsePseudoOps(text string) *pseudoOpTable {
	table, err := parsePseudoOps(text)
	if err != nil {
		panic("assemble: default pseudo-op table is malformed: " + err.Error())
	}
	return table
}

// parsePseudoOps parses a PseudoOps.txt-style table: one macro per
// non-comment, non-blank line, tab-separated into a header field and one
// or more real-instruction template fields. The header is
// "MNEMONIC ARITY [S32|COMPACT]"; templates are "mnemonic op1,op2,...",
// operands drawn from the RGn/OPn/IMM/LABn/LLn/LHn/VLn/VHn/DBNOP
// placeholder families (see expandTemplateOperand).
func parsePseudoOps(text string) (*pseudoOpTable, error) {
	table := &pseudoOpTable{rows: make(map[string][]pseudoRow)}
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		header := strings.Fields(fields[0])
		if len(header) < 2 {
			return nil, fmt.Errorf("pseudo-op table line %d: want \"MNEMONIC ARITY [S32|COMPACT]\", got %q", n+1, fields[0])
		}
		row := pseudoRow{mnemonic: strings.ToLower(header[0])}
		arity, err := strconv.Atoi(header[1])
		if err != nil {
			return nil, fmt.Errorf("pseudo-op table line %d: bad arity %q", n+1, header[1])
		}
		row.arity = arity
		for _, flag := range header[2:] {
			switch strings.ToUpper(flag) {
			case "S32":
				row.needsS32 = true
			case "COMPACT":
				row.compact = true
			default:
				return nil, fmt.Errorf("pseudo-op table line %d: unknown row flag %q", n+1, flag)
			}
		}
		for _, tpl := range fields[1:] {
			tpl = strings.TrimSpace(tpl)
			if tpl == "" || strings.HasPrefix(tpl, "#") {
				continue
			}
			mnem, operands := splitTemplate(tpl)
			row.templates = append(row.templates, rawInsn{mnemonic: mnem, operands: operands})
		}
		if len(row.templates) == 0 {
			return nil, fmt.Errorf("pseudo-op table line %d: %s has no templates", n+1, row.mnemonic)
		}
		table.rows[row.mnemonic] = append(table.rows[row.mnemonic], row)
	}
	return table, nil
}

func splitTemplate(tpl string) (mnemonic string, operands []string) {
	sp := strings.IndexAny(tpl, " \t")
	if sp < 0 {
		return strings.ToLower(tpl), nil
	}
	return strings.ToLower(tpl[:sp]), splitFields(strings.TrimSpace(tpl[sp+1:]))
}

var placeholderRE = regexp.MustCompile(`^(-)?(RG|OP|LAB|IMM|LL|LH|VL|VH)(\d+)(U)?([+-]\d+)?$`)

// expandTemplateOperand substitutes one template operand against a live
// macro invocation's operand list. DBNOP is handled by the caller before
// this is reached, since it replaces a whole instruction rather than one
// operand.
func expandTemplateOperand(tok string, ops []string) (string, error) {
	m := placeholderRE.FindStringSubmatch(tok)
	if m == nil {
		return tok, nil // literal operand, e.g. "$zero", "$at", "31"
	}
	negate, kind, idxText, _, addendText := m[1], m[2], m[3], m[4], m[5]
	idx, _ := strconv.Atoi(idxText)
	if idx < 1 || idx > len(ops) {
		return "", fmt.Errorf("placeholder %s references operand %d, macro only has %d", tok, idx, len(ops))
	}
	operand := ops[idx-1]

	switch kind {
	case "RG", "OP", "LAB":
		return operand, nil
	case "IMM":
		if negate == "" {
			return operand, nil
		}
		v, err := parseImmediate(operand)
		if err != nil {
			return "-(" + operand + ")", nil // symbolic: defer to pass 1's error reporting
		}
		return strconv.Itoa(int(-v)), nil
	case "LL", "LH", "VL", "VH":
		target := operand
		if addendText != "" {
			v, err := parseImmediate(operand)
			if err == nil {
				addend, _ := strconv.Atoi(addendText)
				target = strconv.Itoa(int(v) + addend)
			}
			// A symbolic operand with an addend falls back to the bare
			// symbol: the linker has no "%hi(sym+N)" relocation type in
			// this build, only whole-symbol RelMIPSHI16/RelMIPSLO16.
		}
		if kind == "LH" || kind == "VH" {
			return "%hi(" + target + ")", nil
		}
		return "%lo(" + target + ")", nil
	}
	return tok, nil
}

func expandTemplate(tpl rawInsn, ops []string) (rawInsn, error) {
	if tpl.mnemonic == "dbnop" {
		return rawInsn{mnemonic: "sll", operands: []string{"$zero", "$zero", "0"}}, nil
	}
	out := rawInsn{mnemonic: tpl.mnemonic, operands: make([]string, len(tpl.operands))}
	for i, tok := range tpl.operands {
		if strings.HasPrefix(tok, "BROFF") {
			// Computed multi-line branch offsets: no row in this table's
			// default set needs one (every branch macro here targets a
			// real label via LABn instead), so it passes through
			// unresolved rather than being silently wrong.
			out.operands[i] = tok
			continue
		}
		v, err := expandTemplateOperand(tok, ops)
		if err != nil {
			return rawInsn{}, err
		}
		out.operands[i] = v
	}
	return out, nil
}

func selectRow(rows []pseudoRow, ops []string) pseudoRow {
	var byDefault, byS32 *pseudoRow
	for i := range rows {
		r := &rows[i]
		if r.compact {
			continue // MIPS32r6 compact form; this build targets MIPS-I only
		}
		if r.needsS32 {
			byS32 = r
		} else {
			byDefault = r
		}
	}
	if byS32 == nil || byDefault == nil {
		if byS32 != nil {
			return *byS32
		}
		return *byDefault
	}
	idx := firstValueOperandIndex(byS32.templates)
	if idx >= 1 && idx <= len(ops) {
		if v, err := parseImmediate(ops[idx-1]); err == nil && (v < -32768 || v > 32767) {
			return *byS32
		}
	}
	return *byDefault
}

func firstValueOperandIndex(templates []rawInsn) int {
	for _, tpl := range templates {
		for _, tok := range tpl.operands {
			if m := placeholderRE.FindStringSubmatch(tok); m != nil {
				switch m[2] {
				case "IMM", "LL", "LH", "VL", "VH":
					n, _ := strconv.Atoi(m[3])
					return n
				}
			}
		}
	}
	return 0
}

// expandPseudo rewrites a pseudo-op into the sequence of real instructions
// implementing it, driven by the active pseudo-op table (see
// ReloadPseudoOpsFromSource). Unrecognized mnemonics pass through
// untouched so the pass-1/pass-2 encoder can report "unknown instruction"
// with the real source line attached.
func expandPseudo(mnemonic string, ops []string) []rawInsn {
	pseudoMu.RLock()
	rows := activeTable.rows[strings.ToLower(mnemonic)]
	pseudoMu.RUnlock()

	var candidates []pseudoRow
	for _, r := range rows {
		if r.arity == len(ops) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return []rawInsn{{mnemonic: mnemonic, operands: ops}}
	}
	row := selectRow(candidates, ops)

	out := make([]rawInsn, 0, len(row.templates))
	for _, tpl := range row.templates {
		expanded, err := expandTemplate(tpl, ops)
		if err != nil {
			// Malformed placeholder reference in a reloaded table: emit
			// the macro unexpanded so pass 1 reports it against the real
			// source line instead of panicking mid-expansion.
			return []rawInsn{{mnemonic: mnemonic, operands: ops}}
		}
		out = append(out, expanded)
	}
	return out
}

// defaultPseudoOpsSource is the process-wide default pseudo-op table,
// loaded the way PseudoOps.txt would be at startup. Rows are
// "MNEMONIC ARITY [S32|COMPACT]" followed by one tab-separated real
// instruction template per instruction the macro expands to.
const defaultPseudoOpsSource = `
# MNEMONIC ARITY [S32|COMPACT]	TEMPLATE	TEMPLATE	...
nop 0	sll $zero,$zero,0
move 2	addu RG1,RG2,$zero
li 2	addiu RG1,$zero,IMM2
li 2 S32	lui RG1,VH2	ori RG1,RG1,VL2
la 2	lui $at,LH2	ori RG1,$at,LL2
b 1	beq $zero,$zero,LAB1
bal 1	bgezal $zero,LAB1
not 2	nor RG1,RG2,$zero
neg 2	subu RG1,$zero,RG2
negu 2	subu RG1,$zero,RG2
subi 3	addi RG1,RG2,-IMM3
subiu 3	addiu RG1,RG2,-IMM3
bge 3	slt $at,RG1,RG2	beq $at,$zero,LAB3
bgeu 3	sltu $at,RG1,RG2	beq $at,$zero,LAB3
ble 3	slt $at,RG2,RG1	beq $at,$zero,LAB3
bleu 3	sltu $at,RG2,RG1	beq $at,$zero,LAB3
bgt 3	slt $at,RG2,RG1	bne $at,$zero,LAB3
bgtu 3	sltu $at,RG2,RG1	bne $at,$zero,LAB3
blt 3	slt $at,RG1,RG2	bne $at,$zero,LAB3
bltu 3	sltu $at,RG1,RG2	bne $at,$zero,LAB3
beqz 2	beq RG1,$zero,LAB2
bnez 2	bne RG1,$zero,LAB2
seq 3	xor RG1,RG2,RG3	sltiu RG1,RG1,1
sne 3	xor RG1,RG2,RG3	sltu RG1,$zero,RG1
abs 2	sra $at,RG2,31	xor RG1,RG2,$at	subu RG1,RG1,$at
ulw 2	lw RG1,RG2
usw 2	sw RG1,RG2
`
