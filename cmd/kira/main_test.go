package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kira/internal/rvsim"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.sy")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseArgs(t *testing.T) {
	inv, err := parseArgs([]string{"-riscv", "in.sy", "-o", "out.s"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if inv.input != "in.sy" || inv.output != "out.s" || inv.mode.Flag() != "-riscv" {
		t.Errorf("unexpected invocation: %+v", inv)
	}

	debugMode = false
	if _, err := parseArgs([]string{"--debug", "-koopa", "in.sy", "-o", "out.koopa"}); err != nil || !debugMode {
		t.Errorf("--debug not accepted: %v", err)
	}
	debugMode = false

	for _, args := range [][]string{
		nil,
		{"-koopa", "in.sy"},
		{"-koopa", "in.sy", "-o"},
		{"-perf", "in.sy", "-o", "out"},
		{"-koopa", "a.sy", "b.sy", "-o", "out"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Errorf("parseArgs(%q) should fail", args)
		}
	}
}

func TestRunBadArgsPrintsUsage(t *testing.T) {
	var stderr strings.Builder
	if code := run([]string{"-koopa"}, &stderr); code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage: kira") {
		t.Errorf("usage missing from %q", stderr.String())
	}
}

func TestRunKoopa(t *testing.T) {
	in := writeSource(t, `int main(){ int a = 1; int b = 2; return a + b; }`)
	out := filepath.Join(t.TempDir(), "out.koopa")
	var stderr strings.Builder
	if code := run([]string{"-koopa", in, "-o", out}, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fun @main(): i32 {") {
		t.Errorf("unexpected output:\n%s", data)
	}
	if stderr.Len() != 0 {
		t.Errorf("clean program printed diagnostics: %q", stderr.String())
	}
}

func TestRunRISCVExecutes(t *testing.T) {
	in := writeSource(t, `int main(){ int x = 0; while (x < 3) { x = x + 1; } return x; }`)
	out := filepath.Join(t.TempDir(), "out.s")
	var stderr strings.Builder
	if code := run([]string{"-riscv", in, "-o", out}, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	m, err := rvsim.Load(string(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, err := m.Call("main"); err != nil || got != 3 {
		t.Errorf("main() = %d, %v; want 3", got, err)
	}
}

func TestRunLLVM(t *testing.T) {
	in := writeSource(t, `int main(){ const int a = 5; return -a; }`)
	out := filepath.Join(t.TempDir(), "out.ll")
	var stderr strings.Builder
	if code := run([]string{"-llvm", in, "-o", out}, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "define i32 @main()") {
		t.Errorf("unexpected output:\n%s", data)
	}
}

func TestRunWarningsDoNotFail(t *testing.T) {
	in := writeSource(t, `int main(){ int unused = 1; return 0; }`)
	out := filepath.Join(t.TempDir(), "out.koopa")
	var stderr strings.Builder
	if code := run([]string{"-koopa", in, "-o", out}, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), `warning: variable "unused" is never used`) {
		t.Errorf("warning missing from %q", stderr.String())
	}
}

func TestRunErrorsLeaveNoOutput(t *testing.T) {
	for name, src := range map[string]string{
		"lex":    `int main(){ return 0 $ }`,
		"parse":  `int main( { return 0; }`,
		"lower":  `int main(){ const int a = 1; a = 2; return a; }`,
		"symbol": `int main(){ return missing; }`,
	} {
		t.Run(name, func(t *testing.T) {
			in := writeSource(t, src)
			out := filepath.Join(t.TempDir(), "out.koopa")
			var stderr strings.Builder
			if code := run([]string{"-koopa", in, "-o", out}, &stderr); code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
			if !strings.HasPrefix(stderr.String(), "error: ") {
				t.Errorf("expected an error line, got %q", stderr.String())
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("output file should not exist")
			}
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	var stderr strings.Builder
	missing := filepath.Join(t.TempDir(), "nope.sy")
	code := run([]string{"-koopa", missing, "-o", filepath.Join(t.TempDir(), "out")}, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "could not read") {
		t.Errorf("code %d, stderr %q", code, stderr.String())
	}
}
