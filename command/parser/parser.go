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

// Package parser implements the interactive debugger's command table:
// break, watch, step, run, continue, examine, deposit, show, and quit,
// dispatched by minimum-prefix match the same way the teacher's console
// commands were.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mipscore/emu/core"
)

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *core.Engine) (bool, error)
	complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "break", min: 1, process: breakCmd},
	{name: "watch", min: 1, process: watchCmd},
	{name: "step", min: 2, process: stepCmd},
	{name: "run", min: 1, process: runCmd},
	{name: "continue", min: 1, process: runCmd},
	{name: "examine", min: 1, process: examine},
	{name: "deposit", min: 1, process: deposit},
	{name: "show", min: 2, process: show},
	{name: "quit", min: 1, process: quit},
}

// ProcessCommand executes one line of input against engine, returning true
// when the console should exit.
func ProcessCommand(commandLine string, engine *core.Engine) (bool, error) {
	line := &cmdLine{line: commandLine}
	word := line.getWord()
	if word == "" {
		return false, nil
	}

	match := matchList(word)
	if len(match) == 0 {
		return false, errors.New("command not found: " + word)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + word)
	}
	return match[0].process(line, engine)
}

// CompleteCmd returns the set of command names that could complete the
// (possibly partial) command typed so far, for the console's line editor.
func CompleteCmd(commandLine string) []string {
	line := &cmdLine{line: commandLine}
	word := line.getWord()
	matches := []string{}
	for _, m := range cmdList {
		if strings.HasPrefix(m.name, word) {
			matches = append(matches, m.name)
		}
	}
	return matches
}

func matchCommand(m cmd, word string) bool {
	if len(word) < m.min || len(word) > len(m.name) {
		return false
	}
	return m.name[:len(word)] == word
}

func matchList(word string) []cmd {
	if word == "" {
		return nil
	}
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, word) {
			match = append(match, m)
		}
	}
	return match
}

func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

func (line *cmdLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

// getWord reads the next whitespace-delimited token, lower-cased.
func (line *cmdLine) getWord() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return strings.ToLower(line.line[start:line.pos])
}

// getToken reads the next whitespace-delimited token, preserving case.
func (line *cmdLine) getToken() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return line.line[start:line.pos]
}

func (line *cmdLine) rest() string {
	line.skipSpace()
	if line.isEOL() {
		return ""
	}
	return line.line[line.pos:]
}

func parseUint32(tok string) (uint32, error) {
	tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
	v, err := strconv.ParseUint(tok, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("not a hex number: %q", tok)
	}
	return uint32(v), nil
}

func quit(_ *cmdLine, _ *core.Engine) (bool, error) {
	return true, nil
}
