package load

import (
	"testing"

	"mipscore/emu/assemble"
	"mipscore/emu/machine"
	"mipscore/emu/memory"
)

func TestLoadPlacesTextAndSetsEntry(t *testing.T) {
	opts := assemble.DefaultOptions("p.asm")
	img, err := assemble.Assemble(".text\nmain:\n\taddi $t0,$zero,9\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	mem := memory.New(memory.DefaultMap(), memory.CacheConfig{}, memory.CacheConfig{})
	st := machine.New()
	layout, err := Load(img, mem, st, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if layout.EntryPC != img.Symbols["main"] {
		t.Errorf("entry = %#x, want %#x", layout.EntryPC, img.Symbols["main"])
	}
	if st.PC() != layout.EntryPC {
		t.Errorf("PC = %#x, want %#x", st.PC(), layout.EntryPC)
	}
	w, err := mem.ReadWord(img.TextBase, true)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if w != img.Text[0] {
		t.Errorf("loaded word = %#x, want %#x", w, img.Text[0])
	}
	if st.GPR(29) != DefaultStackTop {
		t.Errorf("$sp = %#x, want %#x", st.GPR(29), uint32(DefaultStackTop))
	}
}

func TestPackArgvWritesNulTerminatedStrings(t *testing.T) {
	mem := memory.New(memory.DefaultMap(), memory.CacheConfig{}, memory.CacheConfig{})
	argvAddr, _, err := PackArgv(mem, DefaultStackTop, []string{"prog", "hello"})
	if err != nil {
		t.Fatalf("PackArgv: %v", err)
	}
	ptr0, err := mem.ReadWord(argvAddr, false)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	b, err := mem.ReadBytes(ptr0, 4)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(b) != "prog" {
		t.Errorf("argv[0] = %q, want %q", string(b), "prog")
	}
}
