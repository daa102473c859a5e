package devices

import (
	"mipscore/config"
	D "mipscore/emu/device"
)

func init() {
	config.RegisterDevice("audio", func(offset uint32, opts []config.Option) (D.Device, error) {
		return NewAudio(), nil
	})
}

// Audio is a passive byte store representing a single sample register: a
// host backend polls Sample() and drains it to a real audio sink. It
// applies no filtering or mixing of its own.
type Audio struct {
	sample uint8
}

// NewAudio returns an Audio device with sample 0.
func NewAudio() *Audio {
	return &Audio{}
}

// Sample returns the most recently written byte.
func (a *Audio) Sample() uint8 { return a.sample }

func (a *Audio) ReadByte(offset uint32) (uint8, error) { return a.sample, nil }

func (a *Audio) WriteByte(offset uint32, v uint8) error {
	a.sample = v
	return nil
}

func (a *Audio) ReadWord(offset uint32) (uint32, error) { return uint32(a.sample), nil }

func (a *Audio) WriteWord(offset uint32, v uint32) error {
	a.sample = uint8(v)
	return nil
}

func (a *Audio) Reset() { a.sample = 0 }

var _ D.Device = (*Audio)(nil)
