/*
 * mipscore - Interrupt controller and syscall dispatcher
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

// Package interrupt queues syscall, exception, and device-interrupt
// requests in a single FIFO and dispatches them to registered handlers,
// the way the teacher's sys_channel queues channel-end interrupts for the
// CPU loop to drain one at a time.
package interrupt

import "fmt"

// Kind classifies a pending Request.
type Kind int

const (
	KindSyscall Kind = iota
	KindException
	KindDevice
)

// Request is one entry in the controller's FIFO.
type Request struct {
	Kind       Kind
	Code       int    // syscall number, for KindSyscall
	Err        error  // the triggering error, for KindException
	Device     any    // originating device instance, for KindDevice
	ContextPC  uint32 // PC to restore into $k0/exception-return on service
}

// DefaultHandlerAddr is the exception handler entry point used when no
// handler has been installed, ktext_base + 0x180.
const DefaultHandlerAddr = 0x80000180

// Controller owns the single pending-request queue and the installed
// exception handler address.
type Controller struct {
	pending     []Request
	handlerAddr uint32
	handlerSet  bool
}

// New returns a Controller with no handler installed and an empty queue.
func New() *Controller {
	return &Controller{}
}

// InstallHandler registers the address the controller redirects PC to
// when servicing a request.
func (c *Controller) InstallHandler(addr uint32) {
	c.handlerAddr = addr
	c.handlerSet = true
}

// RequestSyscall enqueues a syscall request, to be dispatched by the
// engine's syscall table at servicing time.
func (c *Controller) RequestSyscall(code int, pc uint32) {
	c.pending = append(c.pending, Request{Kind: KindSyscall, Code: code, ContextPC: pc})
}

// RequestException enqueues a fatal-unless-handled exception (illegal
// instruction, arithmetic overflow, address/bus error).
func (c *Controller) RequestException(err error, pc uint32) {
	c.pending = append(c.pending, Request{Kind: KindException, Err: err, ContextPC: pc})
}

// RequestDevice enqueues an interrupt raised by a device instance.
func (c *Controller) RequestDevice(dev any, pc uint32) {
	c.pending = append(c.pending, Request{Kind: KindDevice, Device: dev, ContextPC: pc})
}

// Pending reports whether any request awaits service.
func (c *Controller) Pending() bool {
	return len(c.pending) > 0
}

// Next dequeues and returns the oldest pending request.
func (c *Controller) Next() (Request, bool) {
	if len(c.pending) == 0 {
		return Request{}, false
	}
	req := c.pending[0]
	c.pending = c.pending[1:]
	return req, true
}

// HandlerAddr returns the installed handler address, or DefaultHandlerAddr
// if none has been installed.
func (c *Controller) HandlerAddr() uint32 {
	if c.handlerSet {
		return c.handlerAddr
	}
	return DefaultHandlerAddr
}

// HasHandler reports whether a handler has been installed. A Fatal
// exception serviced with no handler installed should propagate instead
// of redirecting PC.
func (c *Controller) HasHandler() bool {
	return c.handlerSet
}

// FatalError wraps an exception request that had no installed handler,
// per the propagation policy: step() returns terminated with this error
// attached to the final snapshot.
type FatalError struct {
	Err error
	PC  uint32
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("unhandled exception at pc=%#08x: %v", e.PC, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
