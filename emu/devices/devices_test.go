package devices

import (
	"testing"

	"mipscore/emu/event"
)

func TestTerminalForwardsAndLogs(t *testing.T) {
	var got []byte
	term := NewTerminal(func(b byte) { got = append(got, b) })
	_ = term.WriteByte(0, 'h')
	_ = term.WriteByte(0, 'i')
	if string(got) != "hi" {
		t.Errorf("sink got %q, want %q", got, "hi")
	}
	if string(term.Log()) != "hi" {
		t.Errorf("log = %q, want %q", term.Log(), "hi")
	}
}

func TestKeyboardQueueRoundTrip(t *testing.T) {
	kbd := NewKeyboard()
	fired := 0
	kbd.OnInterrupt(func() { fired++ })
	_ = kbd.WriteByte(0x04, kbdIE)
	kbd.QueueFromBytes("down", []byte{0x1e, 0x1f})

	if fired != 2 {
		t.Errorf("interrupt count = %d, want 2 (one per enqueued byte)", fired)
	}
	ctrl, _ := kbd.ReadByte(0x04)
	if ctrl&kbdReady == 0 {
		t.Fatalf("expected READY set after enqueue")
	}
	b, _ := kbd.ReadByte(0x00)
	if b != 0x1e {
		t.Errorf("first byte = %#x, want 0x1e", b)
	}
	b, _ = kbd.ReadByte(0x00)
	if b != 0x1f {
		t.Errorf("second byte = %#x, want 0x1f", b)
	}
	ctrl, _ = kbd.ReadByte(0x04)
	if ctrl&kbdReady != 0 {
		t.Errorf("expected READY clear once queue drains")
	}
}

func TestDisplayTransmitDelay(t *testing.T) {
	q := event.NewQueue()
	var sunk []byte
	irqs := 0
	disp := NewDisplay(func(b byte) { sunk = append(sunk, b) }, 4, q)
	disp.OnInterrupt(func() { irqs++ })
	_ = disp.WriteByte(0, dispIE)

	if err := disp.WriteByte(4, 'A'); err != nil {
		t.Fatalf("first transmit: %v", err)
	}
	if err := disp.WriteByte(4, 'B'); err == nil {
		t.Fatalf("expected ErrNotReady while transmit in progress")
	}
	q.Advance(4)
	ctrl, _ := disp.ReadByte(0)
	if ctrl&dispReady == 0 {
		t.Fatalf("expected READY reasserted after delay")
	}
	if irqs != 1 {
		t.Errorf("irqs = %d, want 1", irqs)
	}
	if err := disp.WriteByte(4, 'B'); err != nil {
		t.Fatalf("second transmit: %v", err)
	}
	if string(sunk) != "AB" {
		t.Errorf("sunk = %q, want %q", sunk, "AB")
	}
}

func TestBitmapDisplayFlushReportsDirtyRect(t *testing.T) {
	var gotRect [4]int
	var flushed bool
	bmp := NewBitmapDisplay(4, 4, func(x0, y0, x1, y1 int, pixels []uint32) {
		flushed = true
		gotRect = [4]int{x0, y0, x1, y1}
	})
	_ = bmp.WriteWord(0x10+1*4, 0xff0000) // pixel (1,0)
	_ = bmp.WriteWord(0x10+(2*4+3)*4, 0x00ff00) // pixel (3,2)
	_ = bmp.WriteWord(0x08, 1)                  // flush

	if !flushed {
		t.Fatalf("expected flush callback invoked")
	}
	want := [4]int{1, 0, 3, 2}
	if gotRect != want {
		t.Errorf("dirty rect = %v, want %v", gotRect, want)
	}
}

func TestTimerFiresPeriodically(t *testing.T) {
	q := event.NewQueue()
	timer := NewTimer(1000, q) // 1000 cycles per second: 1 cycle per ms
	fires := 0
	timer.OnInterrupt(func() { fires++ })
	_ = timer.WriteWord(0x04, 1) // IE
	_ = timer.WriteWord(0x00, 5) // 5ms interval -> 5 cycles

	q.Advance(5000)
	q.Advance(5000)
	if fires != 2 {
		t.Errorf("fires = %d, want 2", fires)
	}
}

func TestRealTimeClockSplitsAcrossRegisters(t *testing.T) {
	rtc := NewRealTimeClock(func() uint64 { return 0x1_0000_0002 })
	lo, _ := rtc.ReadWord(0x00)
	hi, _ := rtc.ReadWord(0x04)
	if lo != 2 || hi != 1 {
		t.Errorf("lo=%#x hi=%#x, want lo=2 hi=1", lo, hi)
	}
}

func TestFileTableOpenWriteReadClose(t *testing.T) {
	ft := NewFileTable()
	fd, err := ft.Open("out.txt", FileWriteOnly|FileCreate)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ft.Write(fd, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ft.Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fd2, err := ft.Open("out.txt", FileReadOnly)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	buf := make([]byte, 5)
	n, err := ft.Read(fd2, buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Errorf("Read = %q, %d, %v", buf[:n], n, err)
	}
}

func TestFileTableBadDescriptor(t *testing.T) {
	ft := NewFileTable()
	if _, err := ft.Read(99, make([]byte, 1)); err != ErrBadDescriptor {
		t.Errorf("expected ErrBadDescriptor, got %v", err)
	}
}

func TestRandomStreamDeterministicLCG(t *testing.T) {
	rs := NewRandomStream()
	_ = rs.WriteWord(0, 42)
	first, _ := rs.ReadWord(0)
	want := uint32(1664525*42 + 1013904223)
	if first != want {
		t.Errorf("first = %#x, want %#x", first, want)
	}
	second, _ := rs.ReadWord(0)
	if second == first {
		t.Errorf("stream should advance on each read")
	}
}

func TestSevenSegmentLatchesPerDigit(t *testing.T) {
	disp := NewSevenSegment(4)
	_ = disp.WriteByte(2, 0x7f)
	if disp.Digits()[2] != 0x7f {
		t.Errorf("digit 2 = %#x, want 0x7f", disp.Digits()[2])
	}
	if disp.Digits()[0] != 0 {
		t.Errorf("digit 0 should be unaffected")
	}
}

func TestAudioStoresLatestSample(t *testing.T) {
	a := NewAudio()
	_ = a.WriteByte(0, 200)
	if a.Sample() != 200 {
		t.Errorf("sample = %d, want 200", a.Sample())
	}
}
