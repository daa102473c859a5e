package devices

import (
	"strconv"
	"strings"

	"mipscore/config"
	D "mipscore/emu/device"
)

func init() {
	config.RegisterDevice("sevenseg", func(offset uint32, opts []config.Option) (D.Device, error) {
		digits := 4
		for _, opt := range opts {
			if strings.EqualFold(opt.Name, "digits") && opt.EqualOpt != "" {
				if n, err := strconv.Atoi(opt.EqualOpt); err == nil {
					digits = n
				}
			}
		}
		return NewSevenSegment(digits), nil
	})
}

// SevenSegment is a passive byte store: each write latches a segment
// pattern (bit 0-6 = segments a-g, bit 7 = decimal point) for one digit.
// It has no behavior of its own; a host renderer reads Digits to draw.
type SevenSegment struct {
	digits []uint8
}

// NewSevenSegment returns a display with the given number of digits, all
// blank.
func NewSevenSegment(numDigits int) *SevenSegment {
	return &SevenSegment{digits: make([]uint8, numDigits)}
}

// Digits returns the current segment pattern for every digit, left to
// right.
func (s *SevenSegment) Digits() []uint8 { return s.digits }

func (s *SevenSegment) ReadByte(offset uint32) (uint8, error) {
	if int(offset) < len(s.digits) {
		return s.digits[offset], nil
	}
	return 0, nil
}

func (s *SevenSegment) WriteByte(offset uint32, v uint8) error {
	if int(offset) < len(s.digits) {
		s.digits[offset] = v
	}
	return nil
}

func (s *SevenSegment) ReadWord(offset uint32) (uint32, error) {
	b, err := s.ReadByte(offset)
	return uint32(b), err
}

func (s *SevenSegment) WriteWord(offset uint32, v uint32) error {
	return s.WriteByte(offset, uint8(v))
}

func (s *SevenSegment) Reset() {
	for i := range s.digits {
		s.digits[i] = 0
	}
}

var _ D.Device = (*SevenSegment)(nil)
