/*
 * mipscore - Raw-mode stdin feed for the simulated keyboard device.
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

package main

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"mipscore/emu/devices"
)

// feedKeyboardFromStdin puts the controlling terminal into raw mode and
// copies every byte typed on stdin onto kbd's "down" edge queue, one byte
// per scancode slot, until stdin hits EOF/an error or done is closed. It is
// meant to be started on its own goroutine by --stdin; the terminal's prior
// state is always restored before this returns.
func feedKeyboardFromStdin(kbd *devices.Keyboard, done <-chan struct{}) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		slog.Warn("--stdin given but stdin is not a terminal; keyboard feed disabled")
		return
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		slog.Error("putting stdin into raw mode for keyboard feed", "error", err)
		return
	}
	go func() {
		<-done
		_ = term.Restore(fd, oldState)
	}()
	defer func() { _ = term.Restore(fd, oldState) }()

	buf := make([]byte, 64)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			kbd.QueueFromBytes("down", buf[:n])
		}
		if err != nil {
			return
		}
	}
}
