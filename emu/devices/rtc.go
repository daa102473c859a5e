package devices

import (
	"time"

	"mipscore/config"
	D "mipscore/emu/device"
)

// WallClock returns the current time as milliseconds since an arbitrary
// epoch. Production wiring uses time.Now; tests supply a fake for
// deterministic reads.
type WallClock func() uint64

func init() {
	config.RegisterDevice("rtc", func(offset uint32, opts []config.Option) (D.Device, error) {
		return NewRealTimeClock(func() uint64 { return uint64(time.Now().UnixMilli()) }), nil
	})
}

// RealTimeClock is a read-only device exposing a 64-bit millisecond count
// across two 32-bit registers (low word at 0x00, high word at 0x04).
type RealTimeClock struct {
	now WallClock
}

// NewRealTimeClock returns a clock backed by now.
func NewRealTimeClock(now WallClock) *RealTimeClock {
	return &RealTimeClock{now: now}
}

func (r *RealTimeClock) ReadByte(offset uint32) (uint8, error) {
	v, err := r.ReadWord(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}

func (r *RealTimeClock) WriteByte(offset uint32, v uint8) error { return nil }

func (r *RealTimeClock) ReadWord(offset uint32) (uint32, error) {
	ms := r.now()
	switch offset {
	case 0x00:
		return uint32(ms), nil
	case 0x04:
		return uint32(ms >> 32), nil
	}
	return 0, nil
}

func (r *RealTimeClock) WriteWord(offset uint32, v uint32) error { return nil }

func (r *RealTimeClock) Reset() {}

var _ D.Device = (*RealTimeClock)(nil)
