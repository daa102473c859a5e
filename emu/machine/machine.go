/*
 * mipscore - MIPS-I architectural register state
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

// Package machine holds the architectural state of a MIPS-I core: the
// general purpose register file, HI/LO, the program counter, and the
// coprocessor-1 floating point register files.
package machine

import "math"

// RegisterCount is the number of general purpose registers.
const RegisterCount = 32

// State is the architectural register file. Only the executor (single-cycle
// or pipeline writeback stage) mutates it; concurrent readers must take a
// snapshot via Snapshot.
type State struct {
	regs [RegisterCount]uint32 // General purpose registers, reg 0 hardwired to 0.
	hi   uint32
	lo   uint32
	pc   uint32

	fpSingle [32]uint32 // Raw bit patterns for coprocessor-1 single precision.
	fpCond   bool       // Coprocessor-1 condition flag, set by c.eq/lt/le, read by bc1t/bc1f.

	terminated bool
	exitCode   int32
}

// New returns a freshly reset machine state.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset clears all registers and the termination flag.
func (s *State) Reset() {
	for i := range s.regs {
		s.regs[i] = 0
	}
	for i := range s.fpSingle {
		s.fpSingle[i] = 0
	}
	s.hi = 0
	s.lo = 0
	s.pc = 0
	s.terminated = false
	s.exitCode = 0
}

// GPR returns the value of general purpose register r. Register 0 always
// reads 0.
func (s *State) GPR(r int) uint32 {
	if r == 0 {
		return 0
	}
	return s.regs[r&31]
}

// SetGPR writes v to general purpose register r. Writes to register 0 are
// silently dropped.
func (s *State) SetGPR(r int, v uint32) {
	if r == 0 {
		return
	}
	s.regs[r&31] = v
}

// PC returns the program counter.
func (s *State) PC() uint32 { return s.pc }

// SetPC sets the program counter.
func (s *State) SetPC(pc uint32) { s.pc = pc }

// HI returns the HI multiply/divide register.
func (s *State) HI() uint32 { return s.hi }

// SetHI sets the HI register.
func (s *State) SetHI(v uint32) { s.hi = v }

// LO returns the LO multiply/divide register.
func (s *State) LO() uint32 { return s.lo }

// SetLO sets the LO register.
func (s *State) SetLO(v uint32) { s.lo = v }

// Terminated reports whether the program has halted (syscall 10 or a fatal
// unhandled exception).
func (s *State) Terminated() bool { return s.terminated }

// Terminate marks the machine as halted with the given exit code.
func (s *State) Terminate(code int32) {
	s.terminated = true
	s.exitCode = code
}

// ExitCode returns the code passed to the most recent Terminate call.
func (s *State) ExitCode() int32 { return s.exitCode }

// FPSingle returns single precision FP register f (0..31) as its raw bits.
func (s *State) FPSingle(f int) uint32 {
	return s.fpSingle[f&31]
}

// SetFPSingle writes raw bits to single precision FP register f.
func (s *State) SetFPSingle(f int, bits uint32) {
	s.fpSingle[f&31] = bits
}

// FPSingleFloat returns single precision FP register f interpreted as
// float32.
func (s *State) FPSingleFloat(f int) float32 {
	return math.Float32frombits(s.fpSingle[f&31])
}

// SetFPSingleFloat writes a float32 value to single precision FP register f.
func (s *State) SetFPSingleFloat(f int, v float32) {
	s.fpSingle[f&31] = math.Float32bits(v)
}

// FPDouble returns double precision FP register pair f (must be even,
// 0,2,4,...,30) aliased onto the f and f+1 single precision registers, low
// word first (little-endian pairing, matching the MIPS-I register file
// layout).
func (s *State) FPDouble(f int) uint64 {
	f &^= 1
	lo := uint64(s.fpSingle[f])
	hi := uint64(s.fpSingle[f+1])
	return hi<<32 | lo
}

// SetFPDouble writes bits to double precision FP register pair f.
func (s *State) SetFPDouble(f int, bits uint64) {
	f &^= 1
	s.fpSingle[f] = uint32(bits)
	s.fpSingle[f+1] = uint32(bits >> 32)
}

// FPDoubleFloat returns double precision FP register pair f interpreted as
// float64.
func (s *State) FPDoubleFloat(f int) float64 {
	return math.Float64frombits(s.FPDouble(f))
}

// SetFPDoubleFloat writes a float64 value to double precision FP register
// pair f.
func (s *State) SetFPDoubleFloat(f int, v float64) {
	s.SetFPDouble(f, math.Float64bits(v))
}

// FPCondition returns the coprocessor-1 condition flag set by the last
// c.eq.s/c.lt.s/c.le.s (or .d) comparison.
func (s *State) FPCondition() bool { return s.fpCond }

// SetFPCondition sets the coprocessor-1 condition flag.
func (s *State) SetFPCondition(v bool) { s.fpCond = v }

// Snapshot is an immutable copy of the register file safe to hand to a
// subscriber outside the executing step.
type Snapshot struct {
	Registers  [RegisterCount]uint32
	HI, LO, PC uint32
	FPSingle   [32]uint32
	FPCond     bool
	Terminated bool
	ExitCode   int32
}

// Snapshot captures the current register state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Registers:  s.regs,
		HI:         s.hi,
		LO:         s.lo,
		PC:         s.pc,
		FPSingle:   s.fpSingle,
		FPCond:     s.fpCond,
		Terminated: s.terminated,
		ExitCode:   s.exitCode,
	}
}
