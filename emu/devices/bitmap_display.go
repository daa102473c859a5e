package devices

import D "mipscore/emu/device"

// FlushFunc receives the accumulated dirty rectangle and the full
// framebuffer whenever a BitmapDisplay flush is triggered.
type FlushFunc func(x0, y0, x1, y1 int, pixels []uint32)

// BitmapDisplay is a word-per-pixel framebuffer. Pixel writes accumulate a
// single bounding dirty rectangle; a write to the flush register invokes
// the registered callback with that rectangle and clears it, so a host
// renderer only repaints what changed.
//
// Register layout, relative to base:
//
//	0x00  width  (read-only)
//	0x04  height (read-only)
//	0x08  flush  (write any value to flush)
//	0x10+ framebuffer, one word per pixel, row-major
type BitmapDisplay struct {
	width, height int
	pixels        []uint32
	dirty         bool
	x0, y0, x1, y1 int
	onFlush       FlushFunc
}

// NewBitmapDisplay returns a width x height framebuffer, initially black.
func NewBitmapDisplay(width, height int, onFlush FlushFunc) *BitmapDisplay {
	return &BitmapDisplay{
		width:   width,
		height:  height,
		pixels:  make([]uint32, width*height),
		onFlush: onFlush,
	}
}

func (b *BitmapDisplay) markDirty(x, y int) {
	if !b.dirty {
		b.x0, b.y0, b.x1, b.y1 = x, y, x, y
		b.dirty = true
		return
	}
	if x < b.x0 {
		b.x0 = x
	}
	if y < b.y0 {
		b.y0 = y
	}
	if x > b.x1 {
		b.x1 = x
	}
	if y > b.y1 {
		b.y1 = y
	}
}

func (b *BitmapDisplay) ReadByte(offset uint32) (uint8, error) {
	v, err := b.ReadWord(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}

func (b *BitmapDisplay) WriteByte(offset uint32, v uint8) error {
	word, _ := b.ReadWord(offset &^ 3)
	shift := (offset & 3) * 8
	word = (word &^ (0xff << shift)) | uint32(v)<<shift
	return b.WriteWord(offset&^3, word)
}

func (b *BitmapDisplay) ReadWord(offset uint32) (uint32, error) {
	switch offset {
	case 0x00:
		return uint32(b.width), nil
	case 0x04:
		return uint32(b.height), nil
	case 0x08:
		return 0, nil
	}
	idx := (offset - 0x10) / 4
	if int(idx) >= len(b.pixels) {
		return 0, nil
	}
	return b.pixels[idx], nil
}

func (b *BitmapDisplay) WriteWord(offset uint32, v uint32) error {
	if offset == 0x08 {
		b.flush()
		return nil
	}
	if offset < 0x10 {
		return nil // width/height are read-only
	}
	idx := int((offset - 0x10) / 4)
	if idx >= len(b.pixels) {
		return nil
	}
	b.pixels[idx] = v
	b.markDirty(idx%b.width, idx/b.width)
	return nil
}

func (b *BitmapDisplay) flush() {
	if !b.dirty {
		return
	}
	if b.onFlush != nil {
		b.onFlush(b.x0, b.y0, b.x1, b.y1, b.pixels)
	}
	b.dirty = false
}

func (b *BitmapDisplay) Reset() {
	for i := range b.pixels {
		b.pixels[i] = 0
	}
	b.dirty = false
}

var _ D.Device = (*BitmapDisplay)(nil)
