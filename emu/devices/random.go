package devices

import (
	"mipscore/config"
	D "mipscore/emu/device"
)

func init() {
	config.RegisterDevice("random", func(offset uint32, opts []config.Option) (D.Device, error) {
		return NewRandomStream(), nil
	})
}

const randomStreamCount = 8

// lcg is the 32-bit linear congruential generator used by every stream:
// state = 1664525*state + 1013904223, the constants from Numerical
// Recipes also used by MARS's random-number syscalls.
type lcg struct{ state uint32 }

func (g *lcg) next() uint32 {
	g.state = 1664525*g.state + 1013904223
	return g.state
}

// RandomStream exposes randomStreamCount independent LCG streams, one
// word-indexed register per stream: writing seeds the stream, reading
// advances and returns the next value.
//
// Register layout, relative to base: stream N's register is at offset
// N*4 for N in [0, randomStreamCount).
type RandomStream struct {
	streams [randomStreamCount]lcg
}

// NewRandomStream returns a RandomStream with all streams seeded to 0.
func NewRandomStream() *RandomStream {
	return &RandomStream{}
}

func (r *RandomStream) index(offset uint32) int {
	n := int(offset / 4)
	if n < 0 {
		n = 0
	}
	if n >= randomStreamCount {
		n = randomStreamCount - 1
	}
	return n
}

func (r *RandomStream) ReadByte(offset uint32) (uint8, error) {
	v, err := r.ReadWord(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}

func (r *RandomStream) WriteByte(offset uint32, v uint8) error {
	return r.WriteWord(offset&^3, uint32(v))
}

func (r *RandomStream) ReadWord(offset uint32) (uint32, error) {
	return r.streams[r.index(offset)].next(), nil
}

func (r *RandomStream) WriteWord(offset uint32, v uint32) error {
	r.streams[r.index(offset)].state = v
	return nil
}

func (r *RandomStream) Reset() {
	for i := range r.streams {
		r.streams[i] = lcg{}
	}
}

var _ D.Device = (*RandomStream)(nil)
