/*
 * mipscore - Machine configuration file parser
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

// Package config parses the line-oriented configuration format used for
// headless runs: machine-wide settings (memory size, initial stack pointer,
// pipeline mode, forwarding, delayed branching, the display's transmit
// delay) plus one line per attached MMIO device. Device lines are dispatched
// through a registry devices populate from their own init() functions, the
// same self-registration shape configparser used for S370 device models.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	D "mipscore/emu/device"
)

// Option is one bare or key=value/key,list token trailing a device line.
type Option struct {
	Name     string   // option name.
	EqualOpt string   // value after '=', if any.
	Value    []string // comma-separated list values, if any.
}

// DeviceCtor builds a device from its configured MMIO offset and option
// list. Implementations live alongside the device type and self-register
// with RegisterDevice from an init() function.
type DeviceCtor func(offset uint32, opts []Option) (D.Device, error)

var registry = map[string]DeviceCtor{}

// RegisterDevice associates name (case-insensitive) with ctor. Call from an
// init() function; a device package that never calls this can still be
// constructed directly in Go code, it just won't be reachable from a
// configuration file.
func RegisterDevice(name string, ctor DeviceCtor) {
	registry[strings.ToUpper(name)] = ctor
}

// DeviceSpec is one parsed device line, ready to hand to its DeviceCtor.
type DeviceSpec struct {
	Name    string
	Offset  uint32
	Options []Option
}

// Settings is the parsed contents of a configuration file.
type Settings struct {
	MemoryWords   uint32 // machine memory size, in 32-bit words.
	StackPointer  uint32
	Pipeline      bool
	Forwarding    bool
	DelayedBranch bool
	TransmitDelay int // display device transmit delay, in cycles.
	Devices       []DeviceSpec
}

// DefaultSettings returns the values used when a configuration file omits a
// machine-wide setting.
func DefaultSettings() Settings {
	return Settings{
		MemoryWords:   1 << 20,
		Pipeline:      true,
		Forwarding:    true,
		DelayedBranch: false,
		TransmitDelay: 4,
	}
}

// BuildDevices runs every parsed DeviceSpec through its registered
// constructor, in file order. An unregistered device name is an error
// naming the line's device, not the line number, since the caller already
// has the full Settings by the time it calls this.
func (s Settings) BuildDevices() ([]DeviceSpec, []D.Device, error) {
	built := make([]D.Device, 0, len(s.Devices))
	for _, spec := range s.Devices {
		ctor, ok := registry[strings.ToUpper(spec.Name)]
		if !ok {
			return nil, nil, fmt.Errorf("config: unknown device %q", spec.Name)
		}
		dev, err := ctor(spec.Offset, spec.Options)
		if err != nil {
			return nil, nil, fmt.Errorf("config: device %q: %w", spec.Name, err)
		}
		built = append(built, dev)
	}
	return s.Devices, built, nil
}

var lineNumber int

// LoadFile reads and parses a configuration file, applying values on top of
// DefaultSettings.
func LoadFile(name string) (Settings, error) {
	settings := DefaultSettings()

	file, err := os.Open(name)
	if err != nil {
		return settings, err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return settings, err
		}
		line := &optionLine{line: raw}
		if perr := line.apply(&settings); perr != nil {
			return settings, perr
		}
		if err != nil && errors.Is(err, io.EOF) {
			break
		}
	}
	return settings, nil
}

// optionLine is the cursor over one line of input, shared by all the
// recursive-descent helpers below.
type optionLine struct {
	line string
	pos  int
}

// apply parses one line and folds it into settings, either as a scalar
// machine setting or as an appended DeviceSpec.
func (line *optionLine) apply(settings *Settings) error {
	key := line.parseToken()
	if key == "" {
		return nil
	}
	upper := strings.ToUpper(key)

	switch upper {
	case "MEMORY":
		v := line.parseToken()
		words, perr := strconv.ParseUint(v, 0, 32)
		if perr != nil {
			return fmt.Errorf("config line %d: bad memory size %q", lineNumber, v)
		}
		settings.MemoryWords = uint32(words)
		return nil
	case "SP":
		v := line.parseToken()
		sp, perr := strconv.ParseUint(v, 0, 32)
		if perr != nil {
			return fmt.Errorf("config line %d: bad stack pointer %q", lineNumber, v)
		}
		settings.StackPointer = uint32(sp)
		return nil
	case "PIPELINE":
		on, err := line.parseBool()
		if err != nil {
			return err
		}
		settings.Pipeline = on
		return nil
	case "FORWARDING":
		on, err := line.parseBool()
		if err != nil {
			return err
		}
		settings.Forwarding = on
		return nil
	case "DELAYEDBRANCH":
		on, err := line.parseBool()
		if err != nil {
			return err
		}
		settings.DelayedBranch = on
		return nil
	case "XMITDELAY":
		v := line.parseToken()
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return fmt.Errorf("config line %d: bad xmitdelay %q", lineNumber, v)
		}
		settings.TransmitDelay = n
		return nil
	}

	// Anything else is a device line: <device> <hex offset> <options...>.
	offsetTok := line.parseToken()
	if offsetTok == "" {
		return fmt.Errorf("config line %d: device %s requires an MMIO offset", lineNumber, key)
	}
	offset, perr := strconv.ParseUint(strings.TrimPrefix(offsetTok, "0x"), 16, 32)
	if perr != nil {
		return fmt.Errorf("config line %d: device %s has invalid offset %q", lineNumber, key, offsetTok)
	}
	opts, err := line.parseOptions()
	if err != nil {
		return err
	}
	settings.Devices = append(settings.Devices, DeviceSpec{Name: key, Offset: uint32(offset), Options: opts})
	return nil
}

func (line *optionLine) parseBool() (bool, error) {
	v := strings.ToUpper(line.parseToken())
	switch v {
	case "ON", "TRUE", "1", "YES":
		return true, nil
	case "OFF", "FALSE", "0", "NO":
		return false, nil
	}
	return false, fmt.Errorf("config line %d: expected on/off, got %q", lineNumber, v)
}

// skipSpace advances past whitespace.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// isEOL reports end of line, treating '#' as starting a comment.
func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// parseToken collects the next run of non-space, non-comma characters.
func (line *optionLine) parseToken() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() && !unicode.IsSpace(rune(line.line[line.pos])) && line.line[line.pos] != ',' {
		line.pos++
	}
	return line.line[start:line.pos]
}

// parseOptions collects the comma/space separated option list trailing a
// device line: bare names, name=value, and name,v1,v2 forms.
func (line *optionLine) parseOptions() ([]Option, error) {
	opts := []Option{}
	for {
		line.skipSpace()
		if line.isEOL() {
			break
		}
		opt, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (line *optionLine) parseOption() (Option, error) {
	name := line.parseName()
	if name == "" {
		return Option{}, fmt.Errorf("config line %d: expected option name at column %d", lineNumber, line.pos)
	}
	opt := Option{Name: name}

	if !line.isEOL() && line.line[line.pos] == '=' {
		line.pos++
		v, ok := line.parseQuoteString()
		if !ok {
			return Option{}, fmt.Errorf("config line %d: unterminated quoted value", lineNumber)
		}
		opt.EqualOpt = v
	}

	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++
		v := line.parseName()
		if v != "" {
			opt.Value = append(opt.Value, v)
		}
	}
	return opt, nil
}

// parseName reads an alphanumeric/underscore identifier.
func (line *optionLine) parseName() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() {
		by := rune(line.line[line.pos])
		if !unicode.IsLetter(by) && !unicode.IsNumber(by) && by != '_' && by != '.' {
			break
		}
		line.pos++
	}
	return line.line[start:line.pos]
}

// parseQuoteString reads either a bare token or a "-quoted string with ""
// as an escaped embedded quote, matching configparser's grammar.
func (line *optionLine) parseQuoteString() (string, bool) {
	line.skipSpace()
	if line.isEOL() {
		return "", true
	}
	if line.line[line.pos] != '"' {
		return line.parseToken(), true
	}
	line.pos++
	var b strings.Builder
	for {
		if line.pos >= len(line.line) {
			return "", false
		}
		by := line.line[line.pos]
		if by == '"' {
			line.pos++
			if line.pos < len(line.line) && line.line[line.pos] == '"' {
				b.WriteByte('"')
				line.pos++
				continue
			}
			return b.String(), true
		}
		b.WriteByte(by)
		line.pos++
	}
}
