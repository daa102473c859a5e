// Package devices implements the MMIO peripherals of the MIPS-I teaching
// machine: terminal, keyboard, display UART, bitmap framebuffer, timer,
// real-time clock, virtual file table, seven-segment display, audio, and a
// word-indexed PRNG stream. Each type satisfies device.Device.
package devices

import (
	"os"

	"mipscore/config"
	D "mipscore/emu/device"
)

// Sink receives one character per write to a TerminalDevice or DisplayDevice.
type Sink func(b byte)

func init() {
	config.RegisterDevice("terminal", func(offset uint32, opts []config.Option) (D.Device, error) {
		return NewTerminal(func(b byte) { os.Stdout.Write([]byte{b}) }), nil
	})
}

// Terminal absorbs characters written to offset 0 and forwards each to a
// character sink, keeping an output log for test inspection.
type Terminal struct {
	sink Sink
	log  []byte
}

// NewTerminal returns a Terminal forwarding to sink. sink may be nil, in
// which case output is only recorded in the log.
func NewTerminal(sink Sink) *Terminal {
	return &Terminal{sink: sink}
}

// SetSink installs (or replaces) the character sink.
func (t *Terminal) SetSink(sink Sink) { t.sink = sink }

// Log returns the bytes written so far, in order.
func (t *Terminal) Log() []byte { return t.log }

// LogString returns the whole log as one string; it is not split into
// per-value tokens.
func (t *Terminal) LogString() string { return string(t.log) }

func (t *Terminal) ReadByte(offset uint32) (uint8, error) { return 0, nil }

func (t *Terminal) WriteByte(offset uint32, v uint8) error {
	if offset != 0 {
		return nil
	}
	t.log = append(t.log, v)
	if t.sink != nil {
		t.sink(v)
	}
	return nil
}

func (t *Terminal) ReadWord(offset uint32) (uint32, error) { return 0, nil }

func (t *Terminal) WriteWord(offset uint32, v uint32) error {
	return t.WriteByte(offset, uint8(v))
}

func (t *Terminal) Reset() { t.log = nil }

var _ D.Device = (*Terminal)(nil)
