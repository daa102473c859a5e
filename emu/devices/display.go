package devices

import (
	D "mipscore/emu/device"
	"mipscore/emu/event"
)

// control byte bits for Display, matching the keyboard's layout so the two
// halves of a UART pair read the same way.
const (
	dispReady = 1 << 0
	dispIE    = 1 << 1
)

// Display is a one-character transmit UART: writing to the data register
// while READY is set accepts the byte, clears READY, and schedules READY's
// reassertion (and, if IE, an interrupt) after a configurable transmit
// delay measured in cycles.
type Display struct {
	sink        Sink
	ready       bool
	ie          bool
	delayCycles int
	queue       *event.Queue
	onIRQ       func()
}

// NewDisplay returns a Display forwarding accepted bytes to sink, whose
// transmit takes delayCycles cycles to complete and is clocked by queue.
func NewDisplay(sink Sink, delayCycles int, queue *event.Queue) *Display {
	return &Display{sink: sink, ready: true, delayCycles: delayCycles, queue: queue}
}

func (d *Display) OnInterrupt(handler func()) { d.onIRQ = handler }

func (d *Display) control() uint8 {
	var c uint8
	if d.ready {
		c |= dispReady
	}
	if d.ie {
		c |= dispIE
	}
	return c
}

func (d *Display) ReadByte(offset uint32) (uint8, error) {
	if offset == 0 {
		return d.control(), nil
	}
	return 0, nil
}

func (d *Display) WriteByte(offset uint32, v uint8) error {
	switch offset {
	case 0:
		d.ie = v&dispIE != 0
		return nil
	case 4:
		return d.transmit(v)
	}
	return nil
}

func (d *Display) transmit(b uint8) error {
	if !d.ready {
		return D.ErrNotReady
	}
	d.ready = false
	if d.sink != nil {
		d.sink(b)
	}
	d.queue.Add(d, func(int) {
		d.ready = true
		if d.ie && d.onIRQ != nil {
			d.onIRQ()
		}
	}, d.delayCycles, 0)
	return nil
}

func (d *Display) ReadWord(offset uint32) (uint32, error) {
	b, err := d.ReadByte(offset)
	return uint32(b), err
}

func (d *Display) WriteWord(offset uint32, v uint32) error {
	return d.WriteByte(offset, uint8(v))
}

func (d *Display) Reset() {
	d.ready = true
	d.ie = false
	d.queue.Cancel(d, 0)
}

var _ D.Device = (*Display)(nil)
var _ D.InterruptSource = (*Display)(nil)
