package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sourceLine is one line surviving comment stripping, include expansion,
// and macro expansion, still tagged with its original file and line
// number so later errors and the SourceMap point at real source.
type sourceLine struct {
	file string
	line int
	text string
}

type macroDef struct {
	params []string
	body   []sourceLine
}

// preprocessor expands .include, .eqv, and .macro/.end_macro into a flat
// sequence of source lines ready for tokenizing.
type preprocessor struct {
	includeDirs []string
	eqv         map[string]string
	macros      map[string]*macroDef
	depth       int
}

func newPreprocessor(includeDirs []string) *preprocessor {
	return &preprocessor{
		includeDirs: includeDirs,
		eqv:         make(map[string]string),
		macros:      make(map[string]*macroDef),
	}
}

func (p *preprocessor) run(src, filename string) ([]sourceLine, error) {
	if p.depth > 32 {
		return nil, errAt("preprocess", filename, 0, ".include nesting too deep")
	}
	p.depth++
	defer func() { p.depth-- }()

	var out []sourceLine
	rawLines := strings.Split(src, "\n")

	var curMacro string
	var curMacroDef *macroDef

	for i := 0; i < len(rawLines); i++ {
		lineNo := i + 1
		line := stripComment(rawLines[i])
		trimmed := strings.TrimSpace(line)

		if curMacro != "" {
			if strings.HasPrefix(trimmed, ".end_macro") {
				p.macros[curMacro] = curMacroDef
				curMacro = ""
				curMacroDef = nil
				continue
			}
			curMacroDef.body = append(curMacroDef.body, sourceLine{filename, lineNo, line})
			continue
		}

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, ".include"):
			fields := splitFields(strings.TrimSpace(trimmed[len(".include"):]))
			if len(fields) != 1 {
				return nil, errAt("preprocess", filename, lineNo, ".include requires one filename")
			}
			name := strings.Trim(fields[0], `"`)
			body, err := p.readInclude(name, filename)
			if err != nil {
				return nil, errAt("preprocess", filename, lineNo, "%s", err)
			}
			expanded, err := p.run(body, name)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		case strings.HasPrefix(trimmed, ".eqv"):
			fields := splitFields(strings.TrimSpace(trimmed[len(".eqv"):]))
			if len(fields) < 2 {
				return nil, errAt("preprocess", filename, lineNo, ".eqv requires a name and a value")
			}
			p.eqv[fields[0]] = strings.Join(fields[1:], " ")
		case strings.HasPrefix(trimmed, ".macro"):
			name, params, err := parseMacroHeader(strings.TrimSpace(trimmed[len(".macro"):]))
			if err != nil {
				return nil, errAt("preprocess", filename, lineNo, "%s", err)
			}
			curMacro = name
			curMacroDef = &macroDef{params: params}
		default:
			out = append(out, sourceLine{filename, lineNo, p.substituteEqv(line)})
		}
	}
	return p.expandMacroCalls(out)
}

func (p *preprocessor) substituteEqv(line string) string {
	if len(p.eqv) == 0 {
		return line
	}
	for name, val := range p.eqv {
		line = replaceToken(line, name, val)
	}
	return line
}

// replaceToken substitutes whole-token occurrences of name with val,
// avoiding partial matches inside longer identifiers.
func replaceToken(line, name, val string) string {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if strings.HasPrefix(line[i:], name) {
			before := i == 0 || !isIdentChar(line[i-1])
			after := i+len(name) >= len(line) || !isIdentChar(line[i+len(name)])
			if before && after {
				b.WriteString(val)
				i += len(name)
				continue
			}
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *preprocessor) expandMacroCalls(lines []sourceLine) ([]sourceLine, error) {
	if len(p.macros) == 0 {
		return lines, nil
	}
	var out []sourceLine
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		name, argsText, isCall := splitMacroCall(trimmed)
		def, ok := p.macros[name]
		if !isCall || !ok {
			out = append(out, l)
			continue
		}
		args := splitFields(argsText)
		body := make([]sourceLine, len(def.body))
		for i, bl := range def.body {
			text := bl.text
			for pi, pname := range def.params {
				if pi < len(args) {
					text = replaceToken(text, pname, args[pi])
				}
			}
			body[i] = sourceLine{l.file, l.line, text}
		}
		expanded, err := p.expandMacroCalls(body)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// splitMacroCall recognizes both "name(arg1, arg2)" and "name arg1, arg2"
// call syntax against the registered macro table; real mnemonics never
// collide since macro names are conventionally distinct identifiers chosen
// by the program author.
func splitMacroCall(trimmed string) (name, args string, ok bool) {
	if trimmed == "" {
		return "", "", false
	}
	if open := strings.IndexByte(trimmed, '('); open >= 0 && strings.HasSuffix(trimmed, ")") {
		return strings.TrimSpace(trimmed[:open]), trimmed[open+1 : len(trimmed)-1], true
	}
	sp := strings.IndexAny(trimmed, " \t")
	if sp < 0 {
		return trimmed, "", true
	}
	return trimmed[:sp], strings.TrimSpace(trimmed[sp+1:]), true
}

// parseMacroHeader parses ".macro" operand text in either
// "name(%p1, %p2)" or "name %p1, %p2" form.
func parseMacroHeader(text string) (name string, params []string, err error) {
	if text == "" {
		return "", nil, fmt.Errorf(".macro requires a name")
	}
	if open := strings.IndexByte(text, '('); open >= 0 {
		closeIdx := strings.LastIndexByte(text, ')')
		if closeIdx < open {
			return "", nil, fmt.Errorf("malformed .macro parameter list")
		}
		name = strings.TrimSpace(text[:open])
		inner := strings.TrimSpace(text[open+1 : closeIdx])
		if inner != "" {
			params = splitFields(inner)
		}
		return name, params, nil
	}
	fields := splitFields(text)
	return fields[0], fields[1:], nil
}

func (p *preprocessor) readInclude(name, fromFile string) (string, error) {
	candidates := []string{name}
	if fromFile != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(fromFile), name))
	}
	for _, dir := range p.includeDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	var lastErr error
	for _, c := range candidates {
		b, err := os.ReadFile(c)
		if err == nil {
			return string(b), nil
		}
		lastErr = err
	}
	return "", lastErr
}
