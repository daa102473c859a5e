/*
 * mipscore - Breakpoint and watch engines for the interactive debugger
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

// Package debugger implements the two engines the console command table
// drives: BreakpointEngine (stop execution at an address, instruction
// index, or source line) and WatchEngine (report changes to a register,
// memory cell, or expression across a step).
package debugger

// Kind selects what a BreakpointRule's Target identifies.
type Kind int

const (
	KindAddress Kind = iota
	KindInstruction
	KindLine
)

// RegisterReader reads a GPR by index, used to evaluate a rule's
// register==value condition without the debugger package depending on
// machine.State directly.
type RegisterReader func(reg int) uint32

// Condition is a breakpoint's optional guard: it fires only when Read(Reg)
// == Value.
type Condition struct {
	Reg   int
	Value uint32
}

// Rule is one breakpoint. Multiple rules may share a Target.
type Rule struct {
	Kind      Kind
	Target    uint64 // address or instruction index; 0 for line rules, which use Line/File below
	Line      int    // source line, when Kind == KindLine
	File      string // source file, when Kind == KindLine
	Once      bool
	Condition *Condition
}

// Hit records which rule matched and the target it matched on.
type Hit struct {
	Kind   Kind
	Target uint64
	File   string
	Line   int
}

// BreakpointEngine stores rules in three tables keyed by the way the rule
// identifies its target, so CheckAddress, CheckInstruction and CheckLine
// need not scan irrelevant rules.
type BreakpointEngine struct {
	byAddress     map[uint64][]*Rule
	byInstruction map[uint64][]*Rule
	byLine        map[string][]*Rule
	labels        map[string]uint32 // symbol table snapshot, for AddByLabel
}

// New returns an empty BreakpointEngine.
func New() *BreakpointEngine {
	return &BreakpointEngine{
		byAddress:     make(map[uint64][]*Rule),
		byInstruction: make(map[uint64][]*Rule),
		byLine:        make(map[string][]*Rule),
	}
}

// SetSymbols installs the symbol table used by AddByLabel. Called by the
// engine after load().
func (b *BreakpointEngine) SetSymbols(symbols map[string]uint32) {
	b.labels = symbols
}

// AddAddress installs a breakpoint at an absolute address.
func (b *BreakpointEngine) AddAddress(addr uint32, once bool, cond *Condition) {
	r := &Rule{Kind: KindAddress, Target: uint64(addr), Once: once, Condition: cond}
	b.byAddress[r.Target] = append(b.byAddress[r.Target], r)
}

// AddByLabel installs a breakpoint at the address bound to a symbol. It
// returns false if the symbol is unknown.
func (b *BreakpointEngine) AddByLabel(label string, once bool, cond *Condition) bool {
	addr, ok := b.labels[label]
	if !ok {
		return false
	}
	b.AddAddress(addr, once, cond)
	return true
}

// AddInstruction installs a breakpoint at a retired-instruction index
// (the Nth instruction to reach writeback, 0-based).
func (b *BreakpointEngine) AddInstruction(index uint64, once bool, cond *Condition) {
	r := &Rule{Kind: KindInstruction, Target: index, Once: once, Condition: cond}
	b.byInstruction[index] = append(b.byInstruction[index], r)
}

// AddLine installs a breakpoint at a source file/line pair.
func (b *BreakpointEngine) AddLine(file string, line int, once bool, cond *Condition) {
	key := lineKey(file, line)
	r := &Rule{Kind: KindLine, File: file, Line: line, Once: once, Condition: cond}
	b.byLine[key] = append(b.byLine[key], r)
}

func lineKey(file string, line int) string {
	return file + ":" + itoa(line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Clear removes every rule from every table, as load() does.
func (b *BreakpointEngine) Clear() {
	b.byAddress = make(map[uint64][]*Rule)
	b.byInstruction = make(map[uint64][]*Rule)
	b.byLine = make(map[string][]*Rule)
}

// CheckAddress evaluates rules keyed by addr, in insertion order, removing
// any one-shot rule that fires. It returns the first matching Hit.
func (b *BreakpointEngine) CheckAddress(addr uint32, read RegisterReader) (Hit, bool) {
	rules := b.byAddress[uint64(addr)]
	if idx, ok := firstMatch(rules, read); ok {
		hit := Hit{Kind: KindAddress, Target: uint64(addr)}
		b.byAddress[uint64(addr)] = removeOnce(rules, idx)
		return hit, true
	}
	return Hit{}, false
}

// CheckInstruction evaluates rules keyed by a retired-instruction index.
func (b *BreakpointEngine) CheckInstruction(index uint64, read RegisterReader) (Hit, bool) {
	rules := b.byInstruction[index]
	if idx, ok := firstMatch(rules, read); ok {
		hit := Hit{Kind: KindInstruction, Target: index}
		b.byInstruction[index] = removeOnce(rules, idx)
		return hit, true
	}
	return Hit{}, false
}

// CheckLine evaluates rules keyed by source file/line.
func (b *BreakpointEngine) CheckLine(file string, line int, read RegisterReader) (Hit, bool) {
	key := lineKey(file, line)
	rules := b.byLine[key]
	if idx, ok := firstMatch(rules, read); ok {
		hit := Hit{Kind: KindLine, File: file, Line: line}
		b.byLine[key] = removeOnce(rules, idx)
		return hit, true
	}
	return Hit{}, false
}

func firstMatch(rules []*Rule, read RegisterReader) (int, bool) {
	for i, r := range rules {
		if r.Condition == nil || read(r.Condition.Reg) == r.Condition.Value {
			return i, true
		}
	}
	return 0, false
}

func removeOnce(rules []*Rule, idx int) []*Rule {
	if !rules[idx].Once {
		return rules
	}
	return append(rules[:idx], rules[idx+1:]...)
}
