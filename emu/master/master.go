/*
 * mipscore - Master control channel between the CLI/telnet front ends and
 * the CoreEngine run loop
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

// Package master defines the single control channel the CLI, the remote
// telnet console, and the wall-clock ticker use to talk to the CoreEngine's
// run loop. The loop selects on one channel rather than exposing its
// internals to three different callers.
package master

import "net"

// Msg identifies the kind of request carried by a Packet.
type Msg int

const (
	// TelConnect reports a new telnet client attaching to DevNum's
	// console port; Conn is the accepted connection.
	TelConnect Msg = iota
	// TelDisconnect reports the telnet client on DevNum going away.
	TelDisconnect
	// TelReceive carries bytes typed by the telnet client on DevNum.
	TelReceive
	// TimeClock is posted once per host tick so the engine can advance
	// any wall-clock-driven device (RealTimeClock, periodic Timer).
	TimeClock
	// LoadAndStart requests the engine assemble/load the program bound
	// to DevNum (an index into the engine's program table) and begin
	// execution.
	LoadAndStart
	// Start resumes a halted engine without reloading.
	Start
	// Stop halts a running engine after the current instruction.
	Stop
)

// Packet is the single message type carried on the master channel. Only
// the fields relevant to Msg are populated; the rest are zero.
type Packet struct {
	DevNum uint16
	Msg    Msg
	Conn   net.Conn
	Data   []byte
}
