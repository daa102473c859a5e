package assemble

import "testing"

func mustAssemble(t *testing.T, src string) *BinaryImage {
	t.Helper()
	img, err := Assemble(src, DefaultOptions("test.asm"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return img
}

func TestAssembleSimpleArithmetic(t *testing.T) {
	img := mustAssemble(t, `
.text
main:
	addi $t0, $zero, 5
	addi $t1, $zero, 7
	add  $t2, $t0, $t1
`)
	if len(img.Text) != 3 {
		t.Fatalf("text len = %d, want 3", len(img.Text))
	}
	if img.Symbols["main"] != DefaultTextBase {
		t.Errorf("main = %#x, want %#x", img.Symbols["main"], DefaultTextBase)
	}
	want := encodeR(0, 8, 9, 10, 0, 0x20)
	if img.Text[2] != want {
		t.Errorf("add encoding = %#x, want %#x", img.Text[2], want)
	}
}

func TestAssembleBranchForwardReference(t *testing.T) {
	img := mustAssemble(t, `
.text
	beq $zero, $zero, done
	addi $t0, $zero, 1
done:
	addi $t1, $zero, 2
`)
	if len(img.Text) != 3 {
		t.Fatalf("text len = %d, want 3", len(img.Text))
	}
	imm := int16(img.Text[0] & 0xffff)
	if imm != 1 {
		t.Errorf("branch offset = %d, want 1", imm)
	}
}

func TestAssembleDataDirectives(t *testing.T) {
	img := mustAssemble(t, `
.data
count: .word 42
msg:   .asciiz "hi"
`)
	if img.Symbols["count"] != DefaultDataBase {
		t.Errorf("count = %#x", img.Symbols["count"])
	}
	if len(img.Data) != 4+3 {
		t.Fatalf("data len = %d, want 7", len(img.Data))
	}
	if img.Data[4] != 'h' || img.Data[5] != 'i' || img.Data[6] != 0 {
		t.Errorf("asciiz bytes = %v", img.Data[4:7])
	}
}

func TestAssembleLoadImmediatePseudoOp(t *testing.T) {
	img := mustAssemble(t, `
.text
	li $t0, 0x12345678
`)
	if len(img.Text) != 2 {
		t.Fatalf("li should expand to lui+ori, got %d words", len(img.Text))
	}
}

func TestAssembleUndefinedSymbolFails(t *testing.T) {
	_, err := Assemble(".text\n\tbeq $zero, $zero, nowhere\n", DefaultOptions("test.asm"))
	if err == nil {
		t.Fatalf("expected undefined symbol error")
	}
}

func TestAssembleMacroExpansion(t *testing.T) {
	img := mustAssemble(t, `
.macro increment(%reg)
	addi %reg, %reg, 1
.end_macro
.text
	increment($t0)
`)
	if len(img.Text) != 1 {
		t.Fatalf("text len = %d, want 1", len(img.Text))
	}
}

func TestAssembleEqvSubstitution(t *testing.T) {
	img := mustAssemble(t, `
.eqv BUFSIZE 64
.data
buf: .space BUFSIZE
`)
	if len(img.Data) != 64 {
		t.Fatalf("data len = %d, want 64", len(img.Data))
	}
}
