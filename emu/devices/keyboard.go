package devices

import (
	"mipscore/config"
	D "mipscore/emu/device"
)

func init() {
	config.RegisterDevice("keyboard", func(offset uint32, opts []config.Option) (D.Device, error) {
		return NewKeyboard(), nil
	})
}

const keyQueueDepth = 16

// control byte bit layout, shared by both queues.
const (
	kbdReady = 1 << 0 // queue has at least one byte available to read
	kbdIE    = 1 << 1 // interrupt-enable; set by software, read back as written
)

// keyQueue is a fixed-depth FIFO of scancodes, one per key-down or key-up
// edge. It mirrors the bounded inBuff ring in the teacher's console device,
// sized for keyboard edges instead of terminal input lines.
type keyQueue struct {
	buf      [keyQueueDepth]uint8
	head     int
	count    int
	ie       bool
	onSignal func()
}

func (q *keyQueue) push(b uint8) bool {
	if q.count == keyQueueDepth {
		return false // queue full: edge dropped, matches real keyboard controllers
	}
	q.buf[(q.head+q.count)%keyQueueDepth] = b
	q.count++
	if q.ie && q.onSignal != nil {
		q.onSignal()
	}
	return true
}

func (q *keyQueue) pop() (uint8, bool) {
	if q.count == 0 {
		return 0, false
	}
	b := q.buf[q.head]
	q.head = (q.head + 1) % keyQueueDepth
	q.count--
	return b, true
}

func (q *keyQueue) control() uint8 {
	var c uint8
	if q.count > 0 {
		c |= kbdReady
	}
	if q.ie {
		c |= kbdIE
	}
	return c
}

// Keyboard implements the two-queue scancode source at offsets 0x00 (key
// down) and 0x10 (key up) relative to its configured base, per the
// down/up split in the machine's MMIO map.
type Keyboard struct {
	down, up keyQueue
	onIRQ    func()
}

// NewKeyboard returns an empty Keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// OnInterrupt installs the controller callback used when either queue has
// IE set and receives an edge.
func (k *Keyboard) OnInterrupt(handler func()) {
	k.onIRQ = handler
	k.down.onSignal = handler
	k.up.onSignal = handler
}

// QueueFromBytes enqueues each byte of data onto the named direction's
// queue ("down" or "up"), in order. Bytes beyond the queue's free capacity
// are dropped.
func (k *Keyboard) QueueFromBytes(dir string, data []byte) {
	q := &k.down
	if dir == "up" {
		q = &k.up
	}
	for _, b := range data {
		q.push(b)
	}
}

func (k *Keyboard) ReadByte(offset uint32) (uint8, error) {
	switch {
	case offset == 0x00:
		b, _ := k.down.pop()
		return b, nil
	case offset == 0x04:
		return k.down.control(), nil
	case offset == 0x10:
		b, _ := k.up.pop()
		return b, nil
	case offset == 0x14:
		return k.up.control(), nil
	}
	return 0, nil
}

func (k *Keyboard) WriteByte(offset uint32, v uint8) error {
	switch offset {
	case 0x04:
		k.down.ie = v&kbdIE != 0
	case 0x14:
		k.up.ie = v&kbdIE != 0
	}
	return nil
}

func (k *Keyboard) ReadWord(offset uint32) (uint32, error) {
	b, err := k.ReadByte(offset)
	return uint32(b), err
}

func (k *Keyboard) WriteWord(offset uint32, v uint32) error {
	return k.WriteByte(offset, uint8(v))
}

func (k *Keyboard) Reset() {
	k.down = keyQueue{onSignal: k.onIRQ}
	k.up = keyQueue{onSignal: k.onIRQ}
}

var _ D.Device = (*Keyboard)(nil)
var _ D.InterruptSource = (*Keyboard)(nil)
