package devices

import (
	D "mipscore/emu/device"
	"mipscore/emu/event"
)

// Timer fires an interrupt every interval, where interval is expressed in
// milliseconds by software but converted to cycles at the configured clock
// rate so the event queue can schedule it deterministically.
//
// Register layout, relative to base:
//
//	0x00  interval_ms (write starts/restarts a periodic timer; 0 stops it)
//	0x04  control: bit0 IE
type Timer struct {
	clockHz     int
	intervalMs  uint32
	ie          bool
	queue       *event.Queue
	onIRQ       func()
}

// NewTimer returns a stopped Timer clocked at clockHz cycles per second.
func NewTimer(clockHz int, queue *event.Queue) *Timer {
	return &Timer{clockHz: clockHz, queue: queue}
}

func (t *Timer) OnInterrupt(handler func()) { t.onIRQ = handler }

func (t *Timer) cyclesFor(ms uint32) int {
	return int(uint64(ms) * uint64(t.clockHz) / 1000)
}

func (t *Timer) schedule() {
	t.queue.Cancel(t, 0)
	if t.intervalMs == 0 {
		return
	}
	t.queue.Add(t, t.fire, t.cyclesFor(t.intervalMs), 0)
}

func (t *Timer) fire(int) {
	if t.ie && t.onIRQ != nil {
		t.onIRQ()
	}
	if t.intervalMs != 0 {
		t.queue.Add(t, t.fire, t.cyclesFor(t.intervalMs), 0)
	}
}

func (t *Timer) ReadByte(offset uint32) (uint8, error) {
	v, err := t.ReadWord(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}

func (t *Timer) WriteByte(offset uint32, v uint8) error {
	return t.WriteWord(offset&^3, uint32(v))
}

func (t *Timer) ReadWord(offset uint32) (uint32, error) {
	switch offset {
	case 0x00:
		return t.intervalMs, nil
	case 0x04:
		if t.ie {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (t *Timer) WriteWord(offset uint32, v uint32) error {
	switch offset {
	case 0x00:
		t.intervalMs = v
		t.schedule()
	case 0x04:
		t.ie = v&1 != 0
	}
	return nil
}

func (t *Timer) Reset() {
	t.intervalMs = 0
	t.ie = false
	t.queue.Cancel(t, 0)
}

var _ D.Device = (*Timer)(nil)
var _ D.InterruptSource = (*Timer)(nil)
