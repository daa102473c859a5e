package assemble

import "strings"

// regNames maps every MARS/SPIM register alias to its GPR index.
var regNames = map[string]int{
	"$zero": 0, "$at": 1,
	"$v0": 2, "$v1": 3,
	"$a0": 4, "$a1": 5, "$a2": 6, "$a3": 7,
	"$t0": 8, "$t1": 9, "$t2": 10, "$t3": 11, "$t4": 12, "$t5": 13, "$t6": 14, "$t7": 15,
	"$s0": 16, "$s1": 17, "$s2": 18, "$s3": 19, "$s4": 20, "$s5": 21, "$s6": 22, "$s7": 23,
	"$t8": 24, "$t9": 25,
	"$k0": 26, "$k1": 27,
	"$gp": 28, "$sp": 29, "$fp": 30, "$ra": 31,
}

func init() {
	for i := 0; i < 32; i++ {
		regNames["$"+itoaLexer(i)] = i
	}
}

func itoaLexer(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func fpRegNumber(tok string) (int, bool) {
	if !strings.HasPrefix(tok, "$f") {
		return 0, false
	}
	n := 0
	for _, c := range tok[2:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// splitFields tokenizes the operand portion of an assembly line on commas
// and whitespace, while keeping "imm(reg)" and quoted strings intact.
func splitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	depth := 0
	inStr := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			cur.WriteByte(c)
			if c == '"' && (i == 0 || s[i-1] != '\\') {
				inStr = false
			}
		case c == '"':
			cur.WriteByte(c)
			inStr = true
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')':
			depth--
			cur.WriteByte(c)
		case (c == ',' || c == ' ' || c == '\t') && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return fields
}

// splitOffsetReg splits "imm(reg)" into its immediate text and register
// name. If there is no parenthesis, reg is "" and imm is the whole string.
func splitOffsetReg(s string) (imm string, reg string) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, ""
	}
	close := strings.IndexByte(s, ')')
	if close < open {
		return s, ""
	}
	imm = s[:open]
	reg = s[open+1 : close]
	return imm, reg
}

func stripComment(line string) string {
	inStr := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' && (i == 0 || line[i-1] != '\\') {
			inStr = !inStr
		}
		if c == '#' && !inStr {
			return line[:i]
		}
	}
	return line
}
