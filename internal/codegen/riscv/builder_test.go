package riscv

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"kira/internal/rvsim"
)

func lines(s string) int {
	return strings.Count(s, "\n")
}

// runSnippet executes asm as the body of a function and returns the machine.
func runSnippet(t *testing.T, asm string, setup func(m *rvsim.Machine)) *rvsim.Machine {
	t.Helper()
	m, err := rvsim.Load("snippet:\n" + asm + "    ret\n")
	if err != nil {
		t.Fatalf("load: %v\n%s", err, asm)
	}
	if setup != nil {
		setup(m)
	}
	if err := m.Run("snippet"); err != nil {
		t.Fatalf("run: %v\n%s", err, asm)
	}
	return m
}

func TestFitsImm12(t *testing.T) {
	for v, want := range map[int]bool{
		0: true, 2047: true, -2048: true,
		2048: false, -2049: false, 1 << 20: false,
	} {
		if got := FitsImm12(v); got != want {
			t.Errorf("FitsImm12(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestAddiLegalization(t *testing.T) {
	tests := []struct {
		offset int
		want   string
	}{
		{0, "    addi t0, sp, 0\n"},
		{2047, "    addi t0, sp, 2047\n"},
		{-2048, "    addi t0, sp, -2048\n"},
		{2048, "    li t6, 2048\n    add t0, sp, t6\n"},
		{-2049, "    li t6, -2049\n    add t0, sp, t6\n"},
	}
	for _, tc := range tests {
		var out strings.Builder
		if err := NewAsmBuilder(&out, Temp).Addi("t0", "sp", tc.offset); err != nil {
			t.Fatalf("addi %d: %v", tc.offset, err)
		}
		if out.String() != tc.want {
			t.Errorf("addi %d:\ngot  %q\nwant %q", tc.offset, out.String(), tc.want)
		}
	}
}

// The address computed by Addi must equal base + offset for every offset,
// using one instruction inside the immediate range and two outside it.
func TestAddiRoundTrip(t *testing.T) {
	const base = 0x10000
	for _, off := range []int{0, 1, -1, 2047, -2048, 2048, -2049, 4096, -65536, 1 << 20} {
		var out strings.Builder
		NewAsmBuilder(&out, Temp).Addi("t0", "t1", off)
		wantLines := 1
		if !FitsImm12(off) {
			wantLines = 2
		}
		if got := lines(out.String()); got != wantLines {
			t.Errorf("offset %d: %d instructions, want %d", off, got, wantLines)
		}
		m := runSnippet(t, out.String(), func(m *rvsim.Machine) { m.SetReg("t1", base) })
		if got := m.Reg("t0"); got != int32(base+off) {
			t.Errorf("offset %d: address %d, want %d", off, got, base+off)
		}
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	for _, off := range []int{0, 4, 2044, -2048, 2048, 4096, -4100} {
		var out strings.Builder
		b := NewAsmBuilder(&out, Temp)
		b.Li("t0", 1234)
		b.Sw("t0", "sp", off)
		b.Li("t0", 0)
		b.Lw("t1", "sp", off)
		asm := out.String()

		wantMem := 1
		if !FitsImm12(off) {
			wantMem = 3
		}
		if got := lines(asm); got != 2+2*wantMem {
			t.Errorf("offset %d: %d instructions, want %d\n%s", off, got, 2+2*wantMem, asm)
		}
		m := runSnippet(t, asm, nil)
		if got := m.Reg("t1"); got != 1234 {
			t.Errorf("offset %d: loaded %d, want 1234", off, got)
		}
		if got := m.LoadWord(rvsim.StackTop + int32(off)); got != 1234 {
			t.Errorf("offset %d: memory holds %d", off, got)
		}
	}
}

func TestPrologueEpilogue(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"empty", Frame{Size: 0, Leaf: true}, "    .globl f\nf:\n    ret\n"},
		{"leaf", Frame{Size: 16, Leaf: true},
			"    .globl f\nf:\n    addi sp, sp, -16\n    addi sp, sp, 16\n    ret\n"},
		{"non-leaf", Frame{Size: 32, Leaf: false},
			"    .globl f\nf:\n    addi sp, sp, -32\n    sw ra, 28(sp)\n" +
				"    lw ra, 28(sp)\n    addi sp, sp, 32\n    ret\n"},
		{"big", Frame{Size: 4096, Leaf: false},
			"    .globl f\nf:\n    li t6, -4096\n    add sp, sp, t6\n" +
				"    li t6, 4092\n    add t6, sp, t6\n    sw ra, 0(t6)\n" +
				"    li t6, 4092\n    add t6, sp, t6\n    lw ra, 0(t6)\n" +
				"    li t6, 4096\n    add sp, sp, t6\n    ret\n"},
	}
	for _, tc := range tests {
		var out strings.Builder
		b := NewAsmBuilder(&out, Temp)
		if err := b.Prologue("f", &tc.frame); err != nil {
			t.Fatalf("%s: prologue: %v", tc.name, err)
		}
		if err := b.Epilogue(&tc.frame); err != nil {
			t.Fatalf("%s: epilogue: %v", tc.name, err)
		}
		if out.String() != tc.want {
			t.Errorf("%s:\ngot:\n%s\nwant:\n%s", tc.name, out.String(), tc.want)
		}
	}
}

var errBoom = errors.New("boom")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errBoom }

func TestWriteErrorsPropagate(t *testing.T) {
	b := NewAsmBuilder(failingWriter{}, Temp)
	if err := b.Addi("sp", "sp", 1<<16); errors.Cause(err) != errBoom {
		t.Errorf("addi: got %v", err)
	}
	if err := b.Prologue("f", &Frame{Size: 16}); errors.Cause(err) != errBoom {
		t.Errorf("prologue: got %v", err)
	}
}
