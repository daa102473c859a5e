/*
   Core MIPS-I emulator loop.

   Copyright (c) 2024, Richard Cornwell
   Copyright (c) 2026, mipscore contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package core implements the CoreEngine façade: assemble, load, and run a
// MIPS-I program against the simulated architectural state, publishing a
// RuntimeSnapshot to subscribers after every step or run.
package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mipscore/emu/assemble"
	"mipscore/emu/debugger"
	"mipscore/emu/decode"
	"mipscore/emu/device"
	"mipscore/emu/interrupt"
	"mipscore/emu/link"
	"mipscore/emu/load"
	"mipscore/emu/machine"
	"mipscore/emu/master"
	"mipscore/emu/memory"
	"mipscore/emu/pipeline"
)

// RuntimeSnapshot is published to subscribers after every Step/Run and on
// Halt. It is a value type, safe to retain across calls.
type RuntimeSnapshot struct {
	Registers  machine.Snapshot
	PC         uint32
	Status     pipeline.Status
	Counters   pipeline.Counters
	Terminated bool
	ExitCode   int32
}

// Subscriber receives a RuntimeSnapshot synchronously, on the goroutine
// that called Step/Run; it must not block.
type Subscriber func(RuntimeSnapshot)

// Engine is the synchronous façade over one program's architectural state.
// All exported methods are safe to call from a single goroutine at a time;
// Runner below serializes access for the async/telnet-driven case.
type Engine struct {
	mem   *memory.Memory
	state *machine.State
	ctl   *interrupt.Controller
	pipe  *pipeline.Pipeline

	syscalls *interrupt.Syscalls
	watch    *debugger.WatchEngine
	breaks   *debugger.BreakpointEngine

	layout load.ProgramLayout
	image  *assemble.BinaryImage

	pipelineMode bool
	subscribers  []Subscriber
}

// DeviceAttachment names one MMIO device and its placement, mirroring the
// teacher's <model> <address> config line shape (see mipscore/config).
type DeviceAttachment struct {
	Name   string
	Start  uint32
	Length uint32
	Device device.Device
}

// Config bundles the construction-time choices an Engine needs: the
// memory map, cache shapes, and the devices to attach at their MMIO
// offsets (typically populated from a parsed config file, see
// mipscore/config).
type Config struct {
	Map            memory.Map
	ICache, DCache memory.CacheConfig
	Devices        []DeviceAttachment
	PipelineMode   bool
}

// NewEngine constructs an Engine with a fresh architectural state and
// memory image. Devices are wired into interrupt requests via the
// device.InterruptSource hook when present.
func NewEngine(cfg Config) (*Engine, error) {
	mp := cfg.Map
	for _, d := range cfg.Devices {
		if err := mp.AddDevice(d.Name, d.Start, d.Length, d.Device); err != nil {
			return nil, fmt.Errorf("attach device %q: %w", d.Name, err)
		}
	}

	mem := memory.New(mp, cfg.ICache, cfg.DCache)
	st := machine.New()
	ctl := interrupt.New()

	for _, d := range cfg.Devices {
		if src, ok := d.Device.(device.InterruptSource); ok {
			dev := d.Device
			src.OnInterrupt(func() {
				ctl.RequestDevice(dev, st.PC())
			})
		}
	}

	eng := &Engine{
		mem:          mem,
		state:        st,
		ctl:          ctl,
		watch:        debugger.NewWatchEngine(),
		breaks:       debugger.New(),
		pipelineMode: cfg.PipelineMode,
	}
	eng.pipe = pipeline.New(st, mem, ctl, mp.TextBase)
	eng.pipe.Breakpoints = eng.breaks
	eng.pipe.OnSyscall = eng.dispatchSyscall
	return eng, nil
}

// AttachSyscalls wires MARS-compatible syscall dispatch against the given
// terminal and file table. Programs that never issue syscalls may skip
// this; Step/Run will then terminate on the first unhandled syscall
// request instead of servicing it.
func (e *Engine) AttachSyscalls(sc *interrupt.Syscalls) {
	e.syscalls = sc
}

func (e *Engine) dispatchSyscall(code int) error {
	if e.syscalls == nil {
		return fmt.Errorf("syscall %d requested but no syscall table is attached", code)
	}
	return e.syscalls.Dispatch(code, e.state, e.mem)
}

// Assemble compiles source into a BinaryImage using the engine's own
// memory map as the segment layout, so addresses line up with Load.
func (e *Engine) Assemble(source, filename string) (*assemble.BinaryImage, error) {
	mp := e.mem.Map()
	opts := assemble.Options{
		Filename:  filename,
		TextBase:  mp.TextBase,
		DataBase:  mp.DataBase,
		KTextBase: mp.KTextBase,
		KDataBase: mp.KDataBase,
	}
	return assemble.Assemble(source, opts)
}

// Link merges several assembled images (e.g. separate .s files) before
// Load, resolving cross-file extern references.
func (e *Engine) Link(images []*assemble.BinaryImage) (*assemble.BinaryImage, error) {
	return link.Link(images)
}

// Load places img into memory and resets architectural state to the
// program's entry point.
func (e *Engine) Load(img *assemble.BinaryImage, opts load.Options) error {
	layout, err := load.Load(img, e.mem, e.state, opts)
	if err != nil {
		return err
	}
	e.layout = layout
	e.image = img
	e.breaks.Clear()
	e.breaks.SetSymbols(img.Symbols)
	e.pipe = pipeline.New(e.state, e.mem, e.ctl, layout.EntryPC)
	e.pipe.Breakpoints = e.breaks
	e.pipe.OnSyscall = e.dispatchSyscall
	return nil
}

// Layout returns the most recent Load's ProgramLayout.
func (e *Engine) Layout() load.ProgramLayout { return e.layout }

// SetPipelineMode toggles between the five-stage pipeline and the
// single-cycle executor for subsequent Step/Run calls.
func (e *Engine) SetPipelineMode(on bool) { e.pipelineMode = on }

// Step advances the simulation by one cycle (pipeline mode) or one
// instruction (sequential mode) and publishes a RuntimeSnapshot.
func (e *Engine) Step() RuntimeSnapshot {
	var status pipeline.Status
	if e.pipelineMode {
		status = e.pipe.Step()
	} else {
		status = e.stepSequential()
	}
	snap := e.snapshot(status)
	e.publish(snap)
	return snap
}

// stepSequential executes exactly one instruction against the single-cycle
// executor, used when pipeline mode is off: if the controller has a request
// queued, service that one request and return; otherwise fetch, decode,
// execute and advance PC. This mirrors Pipeline.serviceInterrupt's dispatch table without
// the latch bookkeeping a pipelined core needs.
func (e *Engine) stepSequential() pipeline.Status {
	if e.ctl.Pending() {
		return e.serviceInterruptSequential()
	}

	pc := e.state.PC()
	if _, ok := e.breaks.CheckAddress(pc, e.registerReader()); ok {
		return pipeline.StatusBreakpoint
	}

	word, err := e.mem.ReadWord(pc, true)
	if err != nil {
		e.ctl.RequestException(err, pc)
		return pipeline.StatusRunning
	}
	ins, err := decode.Decode(word, pc)
	if err != nil {
		e.ctl.RequestException(err, pc)
		e.state.SetPC(pc + 4)
		return pipeline.StatusRunning
	}

	switch ins.Op {
	case decode.OpSyscall:
		e.ctl.RequestSyscall(int(e.state.GPR(2)), pc)
		return pipeline.StatusRunning
	case decode.OpBreak:
		e.ctl.RequestException(fmt.Errorf("break instruction"), pc)
		return pipeline.StatusRunning
	}

	taken := decode.BranchTaken(ins, e.state)
	next := decode.NextPC(ins, e.state, taken)
	if err := decode.Execute(ins, e.state, e.mem); err != nil {
		e.ctl.RequestException(err, pc)
		return pipeline.StatusRunning
	}
	e.state.SetPC(next)

	if e.state.Terminated() {
		return pipeline.StatusTerminated
	}
	return pipeline.StatusRunning
}

func (e *Engine) serviceInterruptSequential() pipeline.Status {
	req, _ := e.ctl.Next()
	switch req.Kind {
	case interrupt.KindSyscall:
		if err := e.dispatchSyscall(req.Code); err != nil {
			e.ctl.RequestException(err, req.ContextPC)
			return pipeline.StatusRunning
		}
		if e.state.Terminated() {
			return pipeline.StatusTerminated
		}
		e.state.SetPC(req.ContextPC + 4)
	case interrupt.KindException:
		if !e.ctl.HasHandler() {
			e.state.Terminate(-1)
			return pipeline.StatusTerminated
		}
		e.state.SetPC(e.ctl.HandlerAddr())
	case interrupt.KindDevice:
		e.state.SetPC(e.ctl.HandlerAddr())
	}
	return pipeline.StatusRunning
}

func (e *Engine) registerReader() debugger.RegisterReader {
	return func(reg int) uint32 { return e.state.GPR(reg) }
}

// Run executes Step in a loop until termination, a breakpoint, or
// maxCycles is reached (0 means unbounded). It returns the final snapshot.
func (e *Engine) Run(maxCycles uint64) RuntimeSnapshot {
	var snap RuntimeSnapshot
	var n uint64
	for {
		snap = e.Step()
		n++
		if snap.Status == pipeline.StatusBreakpoint || snap.Terminated {
			return snap
		}
		if maxCycles != 0 && n >= maxCycles {
			return snap
		}
	}
}

// StepInstruction runs Step repeatedly until the retired instruction count
// visibly advances, giving "step one instruction" semantics even while
// pipelined (a single pipeline cycle does not necessarily retire one).
func (e *Engine) StepInstruction() RuntimeSnapshot {
	if !e.pipelineMode {
		return e.Step()
	}
	before := e.pipe.Counters.InstructionCount
	var snap RuntimeSnapshot
	for {
		snap = e.Step()
		if snap.Terminated || snap.Status == pipeline.StatusBreakpoint {
			return snap
		}
		if e.pipe.Counters.InstructionCount > before {
			return snap
		}
	}
}

// StepLine runs StepInstruction until the source map's line number for the
// current PC changes, or execution halts.
func (e *Engine) StepLine() RuntimeSnapshot {
	startLine, startFile := e.sourceLineAt(e.state.PC())
	var snap RuntimeSnapshot
	for {
		snap = e.StepInstruction()
		if snap.Terminated || snap.Status == pipeline.StatusBreakpoint {
			return snap
		}
		line, file := e.sourceLineAt(e.state.PC())
		if line != startLine || file != startFile {
			return snap
		}
	}
}

func (e *Engine) sourceLineAt(pc uint32) (int, string) {
	if e.image == nil {
		return -1, ""
	}
	for _, sme := range e.image.SourceMap {
		if sme.Address == pc {
			return sme.Line, sme.File
		}
	}
	return -1, ""
}

// Halt forces the architectural state into the terminated condition,
// mirroring an external stop request.
func (e *Engine) Halt() {
	e.state.Terminate(0)
	e.publish(e.snapshot(pipeline.StatusHalted))
}

// GetState returns a point-in-time copy of the architectural registers.
func (e *Engine) GetState() machine.Snapshot { return e.state.Snapshot() }

// GetMemory exposes the underlying Memory for debugger examine/deposit
// commands; callers must not retain the pointer past a Load.
func (e *Engine) GetMemory() *memory.Memory { return e.mem }

// GetPerformanceCounters returns the pipeline's cumulative counters; they
// read zero in sequential mode.
func (e *Engine) GetPerformanceCounters() pipeline.Counters { return e.pipe.Counters }

// Breakpoints exposes the breakpoint engine for console wiring.
func (e *Engine) Breakpoints() *debugger.BreakpointEngine { return e.breaks }

// Watches exposes the watch engine for console wiring.
func (e *Engine) Watches() *debugger.WatchEngine { return e.watch }

// Subscribe registers fn to receive every future RuntimeSnapshot.
func (e *Engine) Subscribe(fn Subscriber) { e.subscribers = append(e.subscribers, fn) }

func (e *Engine) publish(snap RuntimeSnapshot) {
	for _, sub := range e.subscribers {
		sub(snap)
	}
}

func (e *Engine) snapshot(status pipeline.Status) RuntimeSnapshot {
	counters := pipeline.Counters{}
	if e.pipe != nil {
		counters = e.pipe.Counters
	}
	return RuntimeSnapshot{
		Registers:  e.state.Snapshot(),
		PC:         e.state.PC(),
		Status:     status,
		Counters:   counters,
		Terminated: e.state.Terminated(),
		ExitCode:   e.state.ExitCode(),
	}
}

// Runner wraps an Engine behind a single master.Packet channel that drives
// Start/Stop/LoadAndStart while a background goroutine free-runs the
// Engine whenever it is not halted. It lets more than one caller drive the
// Engine concurrently without touching it from more than one goroutine at
// a time: main's free-run path posts LoadAndStart/Stop packets, and a
// future telnet or remote console could post to the same channel. The
// interactive debugger console calls Engine methods directly instead,
// since its single command-at-a-time loop never needs more than one
// goroutine touching the Engine.
type Runner struct {
	Engine *Engine

	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	master  chan master.Packet
}

// NewRunner wraps eng, reading packets from masterCh.
func NewRunner(eng *Engine, masterCh chan master.Packet) *Runner {
	return &Runner{
		Engine: eng,
		master: masterCh,
		done:   make(chan struct{}),
	}
}

// Start runs the packet-processing loop until Stop is called. It free-runs
// the wrapped Engine one step at a time whenever running is true, so a
// Stop or breakpoint hit is observed within a single step's latency.
func (r *Runner) Start() {
	r.wg.Add(1)
	defer r.wg.Done()
	for {
		if r.running {
			snap := r.Engine.Step()
			if snap.Terminated || snap.Status == pipeline.StatusBreakpoint {
				r.running = false
				slog.Info("run stopped", "status", snap.Status, "terminated", snap.Terminated)
			}
		}
		select {
		case <-r.done:
			slog.Info("shutdown core runner")
			return
		case packet := <-r.master:
			r.processPacket(packet)
		default:
			if !r.running {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// Stop requests the run loop to exit and waits up to one second for it.
func (r *Runner) Stop() {
	close(r.done)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for core runner to finish")
	}
}

func (r *Runner) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.LoadAndStart:
		r.running = true
	case master.Start:
		r.running = true
	case master.Stop:
		r.running = false
	case master.TelReceive:
		// Routed to the attached keyboard/terminal device by the caller
		// before the packet reaches here; nothing to do at this layer.
	}
}
