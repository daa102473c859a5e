/*
 * mipscore - Memory mapped device port contract
 *
 * Copyright (c) 2024, Richard Cornwell
 * Copyright (c) 2026, mipscore contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// Package device defines the port contract every memory-mapped device
// implements: byte/word read, byte/word write, reset, and an optional
// interrupt subscription slot.
package device

import "errors"

// ErrNotReady is returned by a device when a write arrives while the device
// cannot accept it (e.g. DisplayDevice transmit in progress).
var ErrNotReady = errors.New("device not ready")

// Device is the narrow contract every MMIO peripheral implements. Offset is
// relative to the device's configured base in the MemoryMap, never the
// absolute address.
type Device interface {
	// ReadByte returns the byte at offset.
	ReadByte(offset uint32) (uint8, error)
	// WriteByte stores v at offset.
	WriteByte(offset uint32, v uint8) error
	// ReadWord returns the little-endian word at offset.
	ReadWord(offset uint32) (uint32, error)
	// WriteWord stores the little-endian word v at offset.
	WriteWord(offset uint32, v uint32) error
	// Reset restores the device to its power-on state.
	Reset()
}

// InterruptSource is implemented by devices that can raise an interrupt.
// handler is invoked, with no arguments, whenever the device wants service; it MUST be a non-owning callback (the engine, not
// the device, owns the interrupt controller) to avoid reference cycles.
type InterruptSource interface {
	OnInterrupt(handler func())
}

// Range describes one device's placement inside the MMIO window.
type Range struct {
	Start  uint32
	End    uint32 // exclusive
	Name   string
	Device Device
}

// Contains reports whether addr lies in [Start, End).
func (r Range) Contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}
