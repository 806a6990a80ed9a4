package riscv_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"kira/internal/codegen/riscv"
	"kira/internal/ir"
	"kira/internal/irgen"
	"kira/internal/lexer"
	"kira/internal/parser"
	"kira/internal/rvsim"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func lowerSource(t *testing.T, src string) *ir.Program {
	t.Helper()
	tokens, lexErrs := lexer.Lex(src)
	if len(lexErrs) > 0 {
		t.Fatalf("lex errors: %v", lexErrs)
	}
	unit, parseErrs := parser.Parse(tokens)
	if len(parseErrs) > 0 {
		t.Fatalf("parse errors: %v", parseErrs)
	}
	prog, err := irgen.Generate(unit)
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	return prog
}

func emitSource(t *testing.T, src string) string {
	t.Helper()
	var out strings.Builder
	if err := riscv.Emit(&out, lowerSource(t, src)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	return out.String()
}

// runSource compiles src, runs main on the simulator and returns a0 and the
// program's output.
func runSource(t *testing.T, src string) (int32, string) {
	t.Helper()
	asm := emitSource(t, src)
	m, err := rvsim.Load(asm)
	if err != nil {
		t.Fatalf("load: %v\n%s", err, asm)
	}
	rt := &ir.Runtime{}
	m.SetExterns(rt.Externs())
	got, err := m.Call("main")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, asm)
	}
	if sp := m.Reg("sp"); sp != rvsim.StackTop {
		t.Errorf("sp not restored: %#x", sp)
	}
	return got, rt.Output.String()
}

// functionText returns the assembly between the label of name and the next
// .globl directive.
func functionText(asm, name string) string {
	start := strings.Index(asm, "\n"+name+":\n")
	if start < 0 {
		return ""
	}
	rest := asm[start+1:]
	if end := strings.Index(rest, ".globl"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int32
	}{
		{"locals", `int main(){ int a = 1; int b = 2; return a + b; }`, 3},
		{"constant", `int main(){ const int a = 5; return -a; }`, -5},
		{"while", `int main(){ int x = 0; while (x < 3) { x = x + 1; } return x; }`, 3},
		{"if else", `int main(){ int a = 4; if (a > 3) { a = a * 2; } else a = 0; return a; }`, 8},
		{"fallthrough", `int main(){ }`, 0},
		{"recursion", `int fib(int n){ if (n < 2) return n; return fib(n-1) + fib(n-2); } int main(){ return fib(10); }`, 55},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got, _ := runSource(t, tc.src); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		expr string
		want int32
	}{
		{"7 - 10", -3},
		{"6 * 7", 42},
		{"-7 / 2", -3},
		{"-7 % 3", -1},
		{"!0 + !5", 1},
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"2 < 3", 1},
		{"2 > 3", 0},
		{"3 <= 3", 1},
		{"4 <= 3", 0},
		{"3 >= 4", 0},
		{"4 >= 4", 1},
		{"2 && 0", 0},
		{"2 && 3", 1},
		{"0 || 0", 0},
		{"0 || 7", 1},
		{"100000 * 3", 300000},
		{"-2147483647 - 1", -2147483648},
	}
	for _, tc := range tests {
		got, _ := runSource(t, "int main(){ return "+tc.expr+"; }")
		if got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.expr, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func TestLeafFunctionsDoNotSaveRA(t *testing.T) {
	asm := emitSource(t, `
int leaf(int x) { int y = x * 2; return y; }
int main() { return leaf(21); }
`)
	leaf := functionText(asm, "leaf")
	if leaf == "" {
		t.Fatalf("no leaf function in\n%s", asm)
	}
	if strings.Contains(leaf, "ra") {
		t.Errorf("leaf function touches ra:\n%s", leaf)
	}
	main := functionText(asm, "main")
	if !strings.Contains(main, "sw ra, ") || !strings.Contains(main, "lw ra, ") {
		t.Errorf("non-leaf function must save and restore ra:\n%s", main)
	}
}

func TestFrameLayout(t *testing.T) {
	prog := lowerSource(t, `
int f(int a) { int b = a + 1; return b; }
int main() { return f(1); }
`)
	f := riscv.NewFrame(prog.Func("f"))
	if !f.Leaf {
		t.Errorf("f should be a leaf")
	}
	if f.Size%16 != 0 || f.Size < riscv.WordSize*f.Slots() {
		t.Errorf("frame size %d for %d slots", f.Size, f.Slots())
	}
	if got := strings.Join(f.Named(), " "); got != "%a=4 %ret=0 @b=8" {
		t.Errorf("named slots: %q", got)
	}

	main := riscv.NewFrame(prog.Func("main"))
	if main.Leaf {
		t.Errorf("main calls f and is not a leaf")
	}
	if main.RAOffset() != main.Size-4 {
		t.Errorf("ra offset %d for frame %d", main.RAOffset(), main.Size)
	}
}

func TestLargeFrame(t *testing.T) {
	var src strings.Builder
	src.WriteString("int main() {\n")
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&src, "  int v%d = %d;\n", i, i)
	}
	src.WriteString("  return v0 + v599 + v300;\n}\n")

	prog := lowerSource(t, src.String())
	if size := riscv.NewFrame(prog.Func("main")).Size; size <= riscv.MaxImm12 {
		t.Fatalf("frame of %d bytes does not exercise legalization", size)
	}
	asm := emitSource(t, src.String())
	if !strings.Contains(asm, "li t6, ") {
		t.Errorf("expected legalized offsets")
	}
	if got, _ := runSource(t, src.String()); got != 899 {
		t.Errorf("got %d, want 899", got)
	}
}

func TestStackArguments(t *testing.T) {
	src := `
int sum10(int a, int b, int c, int d, int e, int f, int g, int h, int i, int j) {
  return a + b + c + d + e + f + g + h + i * 100 + j * 1000;
}
int main() { return sum10(1, 2, 3, 4, 5, 6, 7, 8, 9, 10); }
`
	prog := lowerSource(t, src)
	if got := riscv.NewFrame(prog.Func("main")).Outgoing; got != 8 {
		t.Errorf("outgoing area: got %d, want 8", got)
	}
	if got := riscv.NewFrame(prog.Func("sum10")).Outgoing; got != 0 {
		t.Errorf("sum10 makes no calls, outgoing %d", got)
	}
	if got, _ := runSource(t, src); got != 10936 {
		t.Errorf("got %d, want 10936", got)
	}
}

// ---------------------------------------------------------------------------
// Labels and runtime
// ---------------------------------------------------------------------------

func TestBlockLabels(t *testing.T) {
	asm := emitSource(t, `int main(){ int x = 0; while (x < 2) x = x + 1; return x; }`)
	for _, want := range []string{
		".Lmain_entry:", ".Lmain_body:", ".Lmain_while_entry:",
		".Lmain_while_body:", ".Lmain_next:", ".Lmain_end:",
		"bnez t0, .Lmain_while_body", "j .Lmain_next", "j .Lmain_while_entry",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in\n%s", want, asm)
		}
	}
	if !strings.HasPrefix(asm, "    .text\n") {
		t.Errorf("assembly should start with .text")
	}
}

func TestRuntimeCalls(t *testing.T) {
	got, out := runSource(t, `
void show(int v) { putint(v); putch(32); }
int main() { show(1); show(-22); putch(10); return 0; }
`)
	if got != 0 || out != "1 -22 \n" {
		t.Errorf("got %d %q", got, out)
	}
}

func TestExampleFile(t *testing.T) {
	data, err := os.ReadFile("../../../example.sy")
	if err != nil {
		t.Skip("example.sy not found")
	}
	got, out := runSource(t, string(data))
	if got != 0 {
		t.Errorf("mismatches: got %d, want 0", got)
	}
	if want := "0\n1\n1\n2\n3\n5\n8\n13\n21\n34\n"; out != want {
		t.Errorf("output: got %q, want %q", out, want)
	}
}
