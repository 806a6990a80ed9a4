package semantic_test

import (
	"os"
	"strings"
	"testing"

	"kira/internal/ast"
	"kira/internal/lexer"
	"kira/internal/parser"
	"kira/internal/semantic"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func analyze(t *testing.T, input string) []semantic.Diagnostic {
	t.Helper()
	tokens, lexErrs := lexer.Lex(input)
	if len(lexErrs) > 0 {
		t.Fatalf("lex errors: %v", lexErrs)
	}
	unit, parseErrs := parser.Parse(tokens)
	if len(parseErrs) > 0 {
		t.Fatalf("parse errors: %v", parseErrs)
	}
	return semantic.Analyze(unit)
}

func readExample() (string, error) {
	data, err := os.ReadFile("../../example.sy")
	return string(data), err
}

func expectNoDiagnostics(t *testing.T, diags []semantic.Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		t.Errorf("expected no diagnostics, got %d", len(diags))
		for _, d := range diags {
			t.Logf("  %s", d.Error())
		}
	}
}

func expectWarning(t *testing.T, diags []semantic.Diagnostic, substr string, line int) {
	t.Helper()
	for _, d := range diags {
		if d.Severity == semantic.Warning && strings.Contains(d.Message, substr) && d.Pos.Line == line {
			return
		}
	}
	t.Errorf("expected a warning containing %q on line %d, diagnostics:", substr, line)
	for _, d := range diags {
		t.Logf("  %s", d.Error())
	}
}

// ---------------------------------------------------------------------------
// Clean programs
// ---------------------------------------------------------------------------

func TestCleanPrograms(t *testing.T) {
	for name, src := range map[string]string{
		"return":     `int main() { return 0; }`,
		"void":       `void f() {} int main() { f(); return 0; }`,
		"params":     `int add(int a, int b) { return a + b; } int main() { return add(1, 2); }`,
		"unusedArg":  `int first(int a, int b) { return a; } int main() { return first(1, 2); }`,
		"bothArms":   `int sign(int x) { if (x < 0) { return -1; } else { return 1; } } int main() { return sign(3); }`,
		"nestedBody": `int main() { { return 1; } }`,
		"loop": `int main() {
  int i = 0;
  while (i < 10) i = i + 1;
  return i;
}`,
		"const": `int main() { const int k = 3; return k * 2; }`,
	} {
		t.Run(name, func(t *testing.T) {
			expectNoDiagnostics(t, analyze(t, src))
		})
	}
}

// ---------------------------------------------------------------------------
// Missing return
// ---------------------------------------------------------------------------

func TestMissingReturn(t *testing.T) {
	diags := analyze(t, `int f(int x) {
  if (x) return 1;
}
int main() { return f(0); }`)
	expectWarning(t, diags, `function "f" may reach its end`, 1)
	if len(diags) != 1 {
		t.Errorf("expected exactly one diagnostic, got %v", diags)
	}
}

func TestVoidFunctionNeedsNoReturn(t *testing.T) {
	expectNoDiagnostics(t, analyze(t, `void f() { putint(1); } int main() { f(); return 0; }`))
}

// ---------------------------------------------------------------------------
// Unreachable code
// ---------------------------------------------------------------------------

func TestUnreachableAfterReturn(t *testing.T) {
	diags := analyze(t, `int main() {
  return 1;
  putint(2);
  putint(3);
}`)
	expectWarning(t, diags, "unreachable code", 3)
	if len(diags) != 1 {
		t.Errorf("one warning per dead run expected, got %v", diags)
	}
}

func TestUnreachableInsideBranch(t *testing.T) {
	diags := analyze(t, `int main() {
  if (1) {
    return 2;
    return 3;
  }
  return 0;
}`)
	expectWarning(t, diags, "unreachable code", 4)
}

// ---------------------------------------------------------------------------
// Unused names
// ---------------------------------------------------------------------------

func TestUnusedVariable(t *testing.T) {
	diags := analyze(t, `int main() {
  int a = 1;
  int b;
  b = 2;
  const int c = 3;
  return a;
}`)
	expectWarning(t, diags, `variable "b" is never used`, 3)
	expectWarning(t, diags, `constant "c" is never used`, 5)
	if len(diags) != 2 {
		t.Errorf("expected 2 diagnostics, got %v", diags)
	}
}

func TestInnerScopeUse(t *testing.T) {
	diags := analyze(t, `int main() {
  int a = 1;
  {
    int a = 2;
    putint(a);
  }
  return 0;
}`)
	// Only the outer a is dead; the inner one is printed.
	expectWarning(t, diags, `variable "a" is never used`, 2)
	if len(diags) != 1 {
		t.Errorf("expected 1 diagnostic, got %v", diags)
	}
}

func TestInitializerSeesOuterName(t *testing.T) {
	src := `int main() {
  int x = 1;
  {
    int x = x + 1;
    return x;
  }
}`
	expectNoDiagnostics(t, analyze(t, src))
}

func TestShadowedParameter(t *testing.T) {
	diags := analyze(t, `int f(int a) {
  int a = 5;
  return a;
}
int main() { return f(1); }`)
	expectWarning(t, diags, `declaration of "a" shadows a parameter`, 2)
	if len(diags) != 1 {
		t.Errorf("expected 1 diagnostic, got %v", diags)
	}
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

func TestDeadLoop(t *testing.T) {
	diags := analyze(t, `int main() {
  while (0) putint(1);
  return 0;
}`)
	expectWarning(t, diags, "loop body never runs", 2)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticFormat(t *testing.T) {
	d := semantic.Diagnostic{
		Message:  "something odd",
		Pos:      ast.Position{Line: 3, Column: 7},
		Severity: semantic.Warning,
	}
	if got, want := d.Error(), "line 3, col 7: warning: something odd"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHasErrors(t *testing.T) {
	warn := semantic.Diagnostic{Severity: semantic.Warning}
	fail := semantic.Diagnostic{Severity: semantic.Error}
	if semantic.HasErrors(nil) || semantic.HasErrors([]semantic.Diagnostic{warn}) {
		t.Error("warnings alone are not errors")
	}
	if !semantic.HasErrors([]semantic.Diagnostic{warn, fail}) {
		t.Error("expected HasErrors to see the error")
	}
}

func TestExampleIsClean(t *testing.T) {
	data, err := readExample()
	if err != nil {
		t.Skipf("example.sy not available: %v", err)
	}
	expectNoDiagnostics(t, analyze(t, data))
}
