package memory

/*
 * mipscore - Byte addressable memory with MMIO dispatch
 *
 * Copyright 2024, Richard Cornwell
 * Copyright 2026, mipscore contributors
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

import (
	"errors"
	"fmt"

	D "mipscore/emu/device"
)

// Well known segment bases, per the MIPS-I teaching memory map.
const (
	TextBase  uint32 = 0x00400000
	DataBase  uint32 = 0x10010000
	KTextBase uint32 = 0x80000000
	KDataBase uint32 = 0x90000000
	MMIOBase  uint32 = 0xFFFF0000
)

const pageSize = 4096
const pageMask = pageSize - 1

// Errors surfaced from memory accesses. These propagate to the executor,
// which routes them through the interrupt controller.
var (
	ErrAddressError = errors.New("AddressError: misaligned access")
	ErrBusError     = errors.New("BusError: write to read-only range")
)

// Map is the configuration describing segment bases and the MMIO device
// list. Device ranges must not overlap and must lie inside the MMIO window.
type Map struct {
	TextBase  uint32
	DataBase  uint32
	KTextBase uint32
	KDataBase uint32
	MMIOBase  uint32
	Devices   []D.Range
}

// DefaultMap returns the standard MIPS-I teaching memory map with no
// devices attached.
func DefaultMap() Map {
	return Map{
		TextBase:  TextBase,
		DataBase:  DataBase,
		KTextBase: KTextBase,
		KDataBase: KDataBase,
		MMIOBase:  MMIOBase,
	}
}

// AddDevice registers a device over [start, start+length) in the MMIO
// window. It returns an error if the range overlaps an existing device or
// escapes the MMIO window.
func (m *Map) AddDevice(name string, start, length uint32, dev D.Device) error {
	end := start + length
	if start < m.MMIOBase || end <= start {
		return fmt.Errorf("device %q range [%#x,%#x) outside MMIO window", name, start, end)
	}
	for _, r := range m.Devices {
		if start < r.End && end > r.Start {
			return fmt.Errorf("device %q range [%#x,%#x) overlaps %q", name, start, end, r.Name)
		}
	}
	m.Devices = append(m.Devices, D.Range{Start: start, End: end, Name: name, Device: dev})
	return nil
}

// Lookup returns the device range containing addr, or ok=false.
func (m *Map) Lookup(addr uint32) (D.Range, bool) {
	for _, r := range m.Devices {
		if r.Contains(addr) {
			return r, true
		}
	}
	return D.Range{}, false
}

// CacheConfig configures an optional write-through cache sitting in front
// of RAM pages. MMIO never passes through a cache.
type CacheConfig struct {
	Enabled bool
	Lines   int // number of cache lines, must be a power of two
	Ways    int // set-associativity, 1 = direct mapped
}

type cacheLine struct {
	valid bool
	tag   uint32
	data  [4]byte
}

type cache struct {
	cfg   CacheConfig
	lines []cacheLine // Lines*Ways, grouped by set
	hits  uint64
	miss  uint64
}

func newCache(cfg CacheConfig) *cache {
	if !cfg.Enabled || cfg.Lines <= 0 {
		return nil
	}
	if cfg.Ways <= 0 {
		cfg.Ways = 1
	}
	return &cache{cfg: cfg, lines: make([]cacheLine, cfg.Lines*cfg.Ways)}
}

func (c *cache) setIndex(addr uint32) uint32 {
	return (addr >> 2) % uint32(c.cfg.Lines)
}

// lookup returns the cached word for a word-aligned address, or ok=false on
// a miss. Counters are updated regardless.
func (c *cache) lookup(addr uint32) (uint32, bool) {
	set := c.setIndex(addr)
	tag := addr &^ 3
	for w := 0; w < c.cfg.Ways; w++ {
		line := &c.lines[int(set)*c.cfg.Ways+w]
		if line.valid && line.tag == tag {
			c.hits++
			var v uint32
			for i := 0; i < 4; i++ {
				v |= uint32(line.data[i]) << (8 * i)
			}
			return v, true
		}
	}
	c.miss++
	return 0, false
}

// fill installs value into the cache (write-through: caller already wrote
// RAM).
func (c *cache) fill(addr, value uint32) {
	set := c.setIndex(addr)
	tag := addr &^ 3
	way := (addr >> 2) % uint32(c.cfg.Ways)
	line := &c.lines[int(set)*c.cfg.Ways+int(way)]
	line.valid = true
	line.tag = tag
	for i := 0; i < 4; i++ {
		line.data[i] = byte(value >> (8 * i))
	}
}

func (c *cache) flush() {
	for i := range c.lines {
		c.lines[i].valid = false
	}
	c.hits = 0
	c.miss = 0
}

// Memory owns a sparse page map for RAM and the MMIO device list from Map.
type Memory struct {
	mp    Map
	pages map[uint32][]byte

	iCache *cache
	dCache *cache
}

// New creates a Memory over the given map, with optional instruction and
// data caches.
func New(mp Map, iCache, dCache CacheConfig) *Memory {
	return &Memory{
		mp:     mp,
		pages:  make(map[uint32][]byte),
		iCache: newCache(iCache),
		dCache: newCache(dCache),
	}
}

// Map returns the memory map this Memory was constructed with.
func (m *Memory) Map() Map { return m.mp }

func (m *Memory) page(addr uint32, create bool) []byte {
	key := addr &^ pageMask
	p, ok := m.pages[key]
	if !ok {
		if !create {
			return nil
		}
		p = make([]byte, pageSize)
		m.pages[key] = p
	}
	return p
}

// Reset clears all RAM pages and flushes caches. Device state is untouched;
// callers reset devices separately.
func (m *Memory) Reset() {
	m.pages = make(map[uint32][]byte)
	m.FlushCaches()
}

// FlushCaches invalidates all cache lines.
func (m *Memory) FlushCaches() {
	if m.iCache != nil {
		m.iCache.flush()
	}
	if m.dCache != nil {
		m.dCache.flush()
	}
}

// CacheStats reports {hits,misses} for the instruction and data caches.
type CacheStats struct {
	IHits, IMisses uint64
	DHits, DMisses uint64
}

// Stats returns current cache hit/miss counters.
func (m *Memory) Stats() CacheStats {
	var s CacheStats
	if m.iCache != nil {
		s.IHits, s.IMisses = m.iCache.hits, m.iCache.miss
	}
	if m.dCache != nil {
		s.DHits, s.DMisses = m.dCache.hits, m.dCache.miss
	}
	return s
}

// ReadByte reads one byte from addr.
func (m *Memory) ReadByte(addr uint32) (uint8, error) {
	if r, ok := m.mp.Lookup(addr); ok {
		return r.Device.ReadByte(addr - r.Start)
	}
	p := m.page(addr, false)
	if p == nil {
		return 0, nil
	}
	return p[addr&pageMask], nil
}

// WriteByte writes one byte to addr.
func (m *Memory) WriteByte(addr uint32, v uint8) error {
	if r, ok := m.mp.Lookup(addr); ok {
		return r.Device.WriteByte(addr-r.Start, v)
	}
	p := m.page(addr, true)
	p[addr&pageMask] = v
	return nil
}

// ReadHalf reads a little-endian halfword from addr. addr must be
// half-aligned.
func (m *Memory) ReadHalf(addr uint32) (uint16, error) {
	if addr&1 != 0 {
		return 0, ErrAddressError
	}
	if r, ok := m.mp.Lookup(addr); ok {
		lo, err := r.Device.ReadByte(addr - r.Start)
		if err != nil {
			return 0, err
		}
		hi, err := r.Device.ReadByte(addr - r.Start + 1)
		if err != nil {
			return 0, err
		}
		return uint16(lo) | uint16(hi)<<8, nil
	}
	lo, _ := m.ReadByte(addr)
	hi, _ := m.ReadByte(addr + 1)
	return uint16(lo) | uint16(hi)<<8, nil
}

// WriteHalf writes a little-endian halfword to addr. addr must be
// half-aligned.
func (m *Memory) WriteHalf(addr uint32, v uint16) error {
	if addr&1 != 0 {
		return ErrAddressError
	}
	if r, ok := m.mp.Lookup(addr); ok {
		if err := r.Device.WriteByte(addr-r.Start, uint8(v)); err != nil {
			return err
		}
		return r.Device.WriteByte(addr-r.Start+1, uint8(v>>8))
	}
	_ = m.WriteByte(addr, uint8(v))
	_ = m.WriteByte(addr+1, uint8(v>>8))
	return nil
}

// ReadWord reads a little-endian word from addr. addr must be word-aligned.
// Instruction fetches (isFetch) consult the instruction cache; data reads
// consult the data cache. MMIO always bypasses both.
func (m *Memory) ReadWord(addr uint32, isFetch bool) (uint32, error) {
	if addr&3 != 0 {
		return 0, ErrAddressError
	}
	if r, ok := m.mp.Lookup(addr); ok {
		return r.Device.ReadWord(addr - r.Start)
	}
	c := m.dCache
	if isFetch {
		c = m.iCache
	}
	if c != nil {
		if v, ok := c.lookup(addr); ok {
			return v, nil
		}
	}
	p := m.page(addr, false)
	var v uint32
	if p != nil {
		off := addr & pageMask
		v = uint32(p[off]) | uint32(p[off+1])<<8 | uint32(p[off+2])<<16 | uint32(p[off+3])<<24
	}
	if c != nil {
		c.fill(addr, v)
	}
	return v, nil
}

// WriteWord writes a little-endian word to addr. addr must be word-aligned.
// Writes are write-through: RAM is updated and, if present, the data cache
// line is refreshed.
func (m *Memory) WriteWord(addr uint32, v uint32) error {
	if addr&3 != 0 {
		return ErrAddressError
	}
	if r, ok := m.mp.Lookup(addr); ok {
		return r.Device.WriteWord(addr-r.Start, v)
	}
	p := m.page(addr, true)
	off := addr & pageMask
	p[off] = byte(v)
	p[off+1] = byte(v >> 8)
	p[off+2] = byte(v >> 16)
	p[off+3] = byte(v >> 24)
	if m.dCache != nil {
		m.dCache.fill(addr, v)
	}
	return nil
}

// WriteBytes copies data into memory starting at addr, in order.
func (m *Memory) WriteBytes(addr uint32, data []byte) error {
	for i, b := range data {
		if err := m.WriteByte(addr+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes returns a copy of n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint32, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := m.ReadByte(addr + uint32(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Entry describes one populated RAM page, for diagnostics/snapshotting.
type Entry struct {
	Base uint32
	Data []byte
}

// Entries returns a stable, address-ordered snapshot of populated RAM
// pages. MMIO space is never included.
func (m *Memory) Entries() []Entry {
	out := make([]Entry, 0, len(m.pages))
	for base, data := range m.pages {
		cp := make([]byte, len(data))
		copy(cp, data)
		out = append(out, Entry{Base: base, Data: cp})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Base < out[j-1].Base; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
