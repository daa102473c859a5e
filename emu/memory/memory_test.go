package memory

import "testing"

func TestWordRoundTrip(t *testing.T) {
	m := New(DefaultMap(), CacheConfig{}, CacheConfig{})
	if err := m.WriteWord(DataBase, 0x11223344); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	v, err := m.ReadWord(DataBase, false)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if v != 0x11223344 {
		t.Errorf("got %#x want %#x", v, 0x11223344)
	}
	half, err := m.ReadHalf(DataBase)
	if err != nil {
		t.Fatalf("ReadHalf: %v", err)
	}
	if half != 0x3344 {
		t.Errorf("ReadHalf little-endian got %#x want %#x", half, 0x3344)
	}
}

func TestUnalignedWordFails(t *testing.T) {
	m := New(DefaultMap(), CacheConfig{}, CacheConfig{})
	if _, err := m.ReadWord(DataBase+1, false); err != ErrAddressError {
		t.Errorf("expected ErrAddressError, got %v", err)
	}
}

type stubDevice struct {
	bytes [8]uint8
}

func (d *stubDevice) ReadByte(offset uint32) (uint8, error) { return d.bytes[offset], nil }
func (d *stubDevice) WriteByte(offset uint32, v uint8) error {
	d.bytes[offset] = v
	return nil
}
func (d *stubDevice) ReadWord(offset uint32) (uint32, error) {
	return uint32(d.bytes[offset]) | uint32(d.bytes[offset+1])<<8 |
		uint32(d.bytes[offset+2])<<16 | uint32(d.bytes[offset+3])<<24, nil
}
func (d *stubDevice) WriteWord(offset uint32, v uint32) error {
	d.bytes[offset] = byte(v)
	d.bytes[offset+1] = byte(v >> 8)
	d.bytes[offset+2] = byte(v >> 16)
	d.bytes[offset+3] = byte(v >> 24)
	return nil
}
func (d *stubDevice) Reset() { *d = stubDevice{} }

func TestMMIODispatch(t *testing.T) {
	mp := DefaultMap()
	dev := &stubDevice{}
	if err := mp.AddDevice("stub", MMIOBase+0x10, 8, dev); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	m := New(mp, CacheConfig{}, CacheConfig{})
	if err := m.WriteWord(MMIOBase+0x10, 0xCAFEBABE); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	if dev.bytes[0] != 0xBE {
		t.Errorf("device byte 0 = %#x, want 0xBE", dev.bytes[0])
	}
	v, err := m.ReadWord(MMIOBase+0x10, false)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if v != 0xCAFEBABE {
		t.Errorf("got %#x want %#x", v, 0xCAFEBABE)
	}
}

func TestCacheHitMissCounters(t *testing.T) {
	m := New(DefaultMap(), CacheConfig{}, CacheConfig{Enabled: true, Lines: 4, Ways: 1})
	_ = m.WriteWord(DataBase, 1)
	_, _ = m.ReadWord(DataBase, false)
	_, _ = m.ReadWord(DataBase, false)
	stats := m.Stats()
	if stats.DHits == 0 {
		t.Errorf("expected at least one data cache hit, got %+v", stats)
	}
}

func TestFlushCaches(t *testing.T) {
	m := New(DefaultMap(), CacheConfig{}, CacheConfig{Enabled: true, Lines: 4, Ways: 1})
	_ = m.WriteWord(DataBase, 1)
	_, _ = m.ReadWord(DataBase, false)
	m.FlushCaches()
	stats := m.Stats()
	if stats.DHits != 0 || stats.DMisses != 0 {
		t.Errorf("expected counters reset after flush, got %+v", stats)
	}
}

func TestAddDeviceOverlapRejected(t *testing.T) {
	mp := DefaultMap()
	if err := mp.AddDevice("a", MMIOBase, 16, &stubDevice{}); err != nil {
		t.Fatalf("AddDevice a: %v", err)
	}
	if err := mp.AddDevice("b", MMIOBase+8, 16, &stubDevice{}); err == nil {
		t.Errorf("expected overlap error, got nil")
	}
}
