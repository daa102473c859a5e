package debugger

import "testing"

func regs(vals map[int]uint32) RegisterReader {
	return func(reg int) uint32 { return vals[reg] }
}

func TestAddressBreakpointHitsAndOneShotClears(t *testing.T) {
	b := New()
	b.AddAddress(0x400000, true, nil)
	read := regs(nil)
	if _, ok := b.CheckAddress(0x400000, read); !ok {
		t.Fatalf("expected hit")
	}
	if _, ok := b.CheckAddress(0x400000, read); ok {
		t.Fatalf("one-shot rule should have cleared")
	}
}

func TestConditionalBreakpointOnlyFiresWhenRegisterMatches(t *testing.T) {
	b := New()
	b.AddAddress(0x1000, false, &Condition{Reg: 8, Value: 3})
	if _, ok := b.CheckAddress(0x1000, regs(map[int]uint32{8: 1})); ok {
		t.Fatalf("unexpected hit with non-matching register")
	}
	if _, ok := b.CheckAddress(0x1000, regs(map[int]uint32{8: 3})); !ok {
		t.Fatalf("expected hit with matching register")
	}
}

func TestAddByLabelUsesSymbolTable(t *testing.T) {
	b := New()
	b.SetSymbols(map[string]uint32{"main": 0x400020})
	if !b.AddByLabel("main", false, nil) {
		t.Fatalf("expected label resolution to succeed")
	}
	if _, ok := b.CheckAddress(0x400020, regs(nil)); !ok {
		t.Fatalf("expected hit at resolved address")
	}
	if b.AddByLabel("nosuch", false, nil) {
		t.Fatalf("expected unknown label to fail")
	}
}

func TestWatchEngineDetectsChange(t *testing.T) {
	w := NewWatchEngine()
	val := uint32(0)
	w.Add(WatchRegister, "t0", func() (uint32, error) { return val, nil })
	if err := w.Snapshot(); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	val = 7
	events, err := w.Diff()
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(events) != 1 || events[0].Old != 0 || events[0].New != 7 {
		t.Errorf("got %+v", events)
	}
}

func TestExprArithmeticAndPrecedence(t *testing.T) {
	n, err := Parse("2 + 3 * 4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := Eval(n, Env{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v != 14 {
		t.Errorf("got %d, want 14", v)
	}
}

func TestExprRegisterAndDeref(t *testing.T) {
	n, err := Parse("*($t0 + 4)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	env := Env{
		Register: func(name string) (uint32, bool) {
			if name == "$t0" {
				return 0x1000, true
			}
			return 0, false
		},
		Deref: func(addr uint32) (uint32, error) {
			if addr == 0x1004 {
				return 42, nil
			}
			return 0, nil
		},
	}
	v, err := Eval(n, env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v != 42 {
		t.Errorf("got %d, want 42", v)
	}
}

func TestExprDivideByZero(t *testing.T) {
	n, _ := Parse("1/0")
	if _, err := Eval(n, Env{}); err != ErrDivideByZero {
		t.Errorf("expected ErrDivideByZero, got %v", err)
	}
}

func TestExprUnknownSymbol(t *testing.T) {
	n, _ := Parse("nosuch")
	if _, err := Eval(n, Env{}); err == nil {
		t.Errorf("expected error")
	}
}
