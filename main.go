/*
 * mipscore - Main process.
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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	getopt "github.com/pborman/getopt/v2"

	"mipscore/command/reader"
	"mipscore/config"
	"mipscore/emu/assemble"
	"mipscore/emu/core"
	"mipscore/emu/devices"
	"mipscore/emu/load"
	"mipscore/emu/master"
	"mipscore/emu/memory"
	"mipscore/emu/pipeline"
	logger "mipscore/util/logger"
)

func usageExit(code int) {
	getopt.Usage()
	os.Exit(code)
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Machine configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMaxCycles := getopt.Uint64Long("max-cycles", 0, 1_000_000, "Maximum cycles to run")
	optPipeline := getopt.BoolLong("pipeline", 0, "Run in five-stage pipeline mode (default)")
	optSequential := getopt.BoolLong("sequential", 0, "Run in single-cycle sequential mode")
	optNoPseudo := getopt.BoolLong("no-pseudo", 0, "Disable pseudo-instruction expansion")
	optStdin := getopt.BoolLong("stdin", 0, "Feed program stdin from the host terminal")
	optDebug := getopt.BoolLong("debug", 0, "Enter the interactive debugger console instead of free-running")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		usageExit(0)
	}
	args := getopt.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mipscore [options] <assemble|run> <file.s>")
		usageExit(2)
	}
	verb, source := args[0], args[1]

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if *optDebug {
		level.Set(slog.LevelDebug)
	}
	var logWriter io.Writer
	if logFile != nil {
		logWriter = logFile
	}
	logHandler := logger.NewHandler(logWriter, &slog.HandlerOptions{Level: level}, optDebug)
	slog.SetDefault(slog.New(logHandler))

	settings := config.DefaultSettings()
	if *optConfig != "" {
		loaded, err := config.LoadFile(*optConfig)
		if err != nil {
			slog.Error("loading configuration", "error", err)
			os.Exit(1)
		}
		settings = loaded
	}
	if *optPipeline {
		settings.Pipeline = true
	}
	if *optSequential {
		settings.Pipeline = false
	}

	body, err := os.ReadFile(source)
	if err != nil {
		slog.Error("reading source", "file", source, "error", err)
		os.Exit(3)
	}

	_, devs, err := settings.BuildDevices()
	if err != nil {
		slog.Error("building devices", "error", err)
		os.Exit(1)
	}
	attachments := make([]core.DeviceAttachment, len(settings.Devices))
	var keyboard *devices.Keyboard
	for i, spec := range settings.Devices {
		attachments[i] = core.DeviceAttachment{
			Name:   spec.Name,
			Start:  memory.MMIOBase + spec.Offset,
			Length: 0x100,
			Device: devs[i],
		}
		if kbd, ok := devs[i].(*devices.Keyboard); ok {
			keyboard = kbd
		}
	}

	engine, err := core.NewEngine(core.Config{
		Map:          memory.DefaultMap(),
		Devices:      attachments,
		PipelineMode: settings.Pipeline,
	})
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}

	if *optNoPseudo {
		slog.Debug("pseudo-instruction expansion cannot be disabled in this build; flag accepted for CLI compatibility")
	}
	img, err := engine.Assemble(string(body), source)
	if err != nil {
		slog.Error("assembly failed", "error", err)
		os.Exit(1)
	}

	if verb == "assemble" {
		for _, l := range assemble.DisassembleRange(img.Text, img.TextBase) {
			fmt.Println(l)
		}
		return
	}
	if verb != "run" {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		usageExit(2)
	}

	if err := engine.Load(img, load.Options{StackTop: settings.StackPointer}); err != nil {
		slog.Error("load failed", "error", err)
		os.Exit(1)
	}

	stdinDone := make(chan struct{})
	defer close(stdinDone)
	if *optStdin {
		if keyboard == nil {
			slog.Warn("--stdin given but no keyboard device is configured; nothing to feed")
		} else {
			go feedKeyboardFromStdin(keyboard, stdinDone)
		}
	}

	if *optDebug {
		reader.ConsoleReader(engine)
		return
	}

	snap := runFree(engine, *optMaxCycles)
	if snap.Terminated {
		os.Exit(int(snap.ExitCode))
	}
}

// runFree drives engine through emu/core's Runner instead of calling
// engine.Run directly, so a free-running program can be stopped cleanly by
// an interrupt signal (and, with a telnet or remote front end attached to
// the same master channel, by a Stop packet from there too) instead of the
// process just dying mid-step. maxCycles of 0 means run until termination,
// a breakpoint, or the signal.
func runFree(engine *core.Engine, maxCycles uint64) core.RuntimeSnapshot {
	masterCh := make(chan master.Packet, 2)
	runner := core.NewRunner(engine, masterCh)

	done := make(chan core.RuntimeSnapshot, 1)
	var steps uint64
	engine.Subscribe(func(snap core.RuntimeSnapshot) {
		steps++
		stop := snap.Terminated || snap.Status == pipeline.StatusBreakpoint
		stop = stop || (maxCycles != 0 && steps >= maxCycles)
		if !stop {
			return
		}
		select {
		case done <- snap:
		default:
		}
		masterCh <- master.Packet{Msg: master.Stop}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			slog.Info("interrupt received, stopping run")
			masterCh <- master.Packet{Msg: master.Stop}
		}
	}()

	go runner.Start()
	masterCh <- master.Packet{Msg: master.LoadAndStart}

	snap := <-done
	runner.Stop()
	return snap
}
