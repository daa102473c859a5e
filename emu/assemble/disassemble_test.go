package assemble

import (
	"strings"
	"testing"
)

func TestDisassembleRoundTripsArithmetic(t *testing.T) {
	opts := DefaultOptions("t.asm")
	img, err := Assemble(".text\nmain:\n\tadd $t2,$t0,$t1\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	text := Disassemble(img.Text[0], img.TextBase)
	if text != "add $t2,$t0,$t1" {
		t.Errorf("got %q", text)
	}
	img2, err := Assemble(".text\n"+text+"\n", opts)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if img2.Text[0] != img.Text[0] {
		t.Errorf("round trip mismatch: %#x != %#x", img2.Text[0], img.Text[0])
	}
}

func TestDisassembleImmediateAndMemoryForms(t *testing.T) {
	opts := DefaultOptions("t.asm")
	img, err := Assemble(".text\nmain:\n\taddi $t0,$zero,42\n\tlw $t1,8($sp)\n\tsw $t1,8($sp)\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	want := []string{
		"addi $t0,$zero,42",
		"lw $t1,8($sp)",
		"sw $t1,8($sp)",
	}
	for i, w := range want {
		got := Disassemble(img.Text[i], img.TextBase+uint32(i*4))
		if got != w {
			t.Errorf("word %d: got %q, want %q", i, got, w)
		}
	}
}

func TestDisassembleBranchShowsAbsoluteTarget(t *testing.T) {
	opts := DefaultOptions("t.asm")
	img, err := Assemble(".text\nmain:\n\tbeq $t0,$t1,target\n\tnop\ntarget:\n\tnop\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got := Disassemble(img.Text[0], img.TextBase)
	if !strings.Contains(got, "beq $t0,$t1,") {
		t.Errorf("got %q", got)
	}
}

func TestDisassembleIllegalWordFallsBackToRawWord(t *testing.T) {
	got := Disassemble(0xfc000000, 0)
	if !strings.HasPrefix(got, ".word") {
		t.Errorf("got %q, want a .word fallback", got)
	}
}

func TestDisassembleFPArithmeticUsesFPRegisters(t *testing.T) {
	opts := DefaultOptions("t.asm")
	img, err := Assemble(".text\nmain:\n\tadd.s $f2,$f4,$f6\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got := Disassemble(img.Text[0], img.TextBase)
	if got != "add.s $f2,$f4,$f6" {
		t.Errorf("got %q", got)
	}
}

func TestDisassembleRangeLabelsEachAddress(t *testing.T) {
	opts := DefaultOptions("t.asm")
	img, err := Assemble(".text\nmain:\n\tnop\n\tnop\n", opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	lines := DisassembleRange(img.Text, img.TextBase)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[1], "00400004:") {
		t.Errorf("got %q", lines[1])
	}
}
