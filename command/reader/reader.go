/*
 * mipscore - Interactive debugger console reader.
 *
 * Copyright 2024, Richard Cornwell
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

package reader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterh/liner"
	"mipscore/command/parser"
	"mipscore/emu/core"
)

// ConsoleReader runs the interactive debugger prompt against engine until
// the user quits or aborts with Ctrl-C. The prompt itself carries the
// machine's current PC, and any watch added with "watch reg"/"watch mem"
// is re-diffed and reported after every command, so a stepping session
// shows what changed without a separate "watch diff" each time.
func ConsoleReader(engine *core.Engine) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) []string {
		return parser.CompleteCmd(line)
	})

	printBanner(engine)

	for {
		command, err := line.Prompt(prompt(engine))
		if err == nil {
			line.AppendHistory(command)
			quit, err := parser.ProcessCommand(command, engine)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			printWatchDiffs(engine)
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		} else {
			slog.Error("error reading line: " + err.Error())
		}
	}
}

// printBanner reports where the loaded program starts and where its
// segments landed, the first thing a user dropping into the console wants
// to know before setting a breakpoint.
func printBanner(engine *core.Engine) {
	l := engine.Layout()
	fmt.Printf("mipscore debugger: entry=%#08x text=[%#08x,%#08x) data=[%#08x,%#08x) sp=%#08x\n",
		l.EntryPC, l.TextStart, l.TextEnd, l.DataStart, l.DataEnd, l.StackTop)
}

// prompt shows the PC the machine is currently stopped at, so "step"/"run"
// output and the next prompt line up without re-running "examine".
func prompt(engine *core.Engine) string {
	return fmt.Sprintf("mipscore[%#08x]> ", engine.GetState().PC)
}

// printWatchDiffs reports every watch that changed value since the last
// command, the console-level equivalent of running "watch diff" after
// every step without the user having to type it.
func printWatchDiffs(engine *core.Engine) {
	events, err := engine.Watches().Diff()
	if err != nil || len(events) == 0 {
		return
	}
	for _, e := range events {
		fmt.Printf("  %s: %#08x -> %#08x\n", e.Identifier, e.Old, e.New)
	}
}
