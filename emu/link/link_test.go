package link

import (
	"testing"

	"mipscore/emu/assemble"
)

func TestLinkMergesSegmentsAndSymbols(t *testing.T) {
	opts := assemble.DefaultOptions("a.asm")
	a, err := assemble.Assemble(".text\nmain:\n\tjal helper\n\taddi $t0,$zero,1\n.extern helper\n", opts)
	if err != nil {
		t.Fatalf("assemble a: %v", err)
	}
	b, err := assemble.Assemble(".text\nhelper:\n\tjr $ra\n", opts)
	if err != nil {
		t.Fatalf("assemble b: %v", err)
	}
	out, err := Link([]*assemble.BinaryImage{a, b})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(out.Text) != 3 {
		t.Fatalf("text len = %d, want 3", len(out.Text))
	}
	helperAddr, ok := out.Symbols["helper"]
	if !ok {
		t.Fatalf("helper symbol missing after link")
	}
	if helperAddr != opts.TextBase+2*4 {
		t.Errorf("helper = %#x, want %#x", helperAddr, opts.TextBase+2*4)
	}
	jalWord := out.Text[0]
	wantTarget := (helperAddr >> 2) & 0x03ffffff
	if jalWord&0x03ffffff != wantTarget {
		t.Errorf("jal target = %#x, want %#x", jalWord&0x03ffffff, wantTarget)
	}
}

func TestLinkUndefinedExternFails(t *testing.T) {
	opts := assemble.DefaultOptions("a.asm")
	a, err := assemble.Assemble(".text\n\tjal missing\n.extern missing\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	_, err = Link([]*assemble.BinaryImage{a})
	if _, ok := err.(*UndefinedExtern); !ok {
		t.Fatalf("expected UndefinedExtern, got %v", err)
	}
}

func TestLinkDuplicateSymbolFails(t *testing.T) {
	opts := assemble.DefaultOptions("a.asm")
	a, _ := assemble.Assemble(".text\nmain:\n\tnop\n", opts)
	b, _ := assemble.Assemble(".text\nmain:\n\tnop\n\tnop\n", opts)
	_, err := Link([]*assemble.BinaryImage{a, b})
	if _, ok := err.(*DuplicateSymbol); !ok {
		t.Fatalf("expected DuplicateSymbol, got %v", err)
	}
}
