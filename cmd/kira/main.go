package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"kira/internal/ast"
	"kira/internal/codegen"
	"kira/internal/lexer"
	"kira/internal/logger"
	"kira/internal/parser"
	"kira/internal/semantic"
)

const VERSION = "0.2.0"

const usage = "Usage: kira (-koopa|-riscv|-llvm) <input> -o <output> [--debug]"

var debugMode = false

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// invocation is the parsed command line.
type invocation struct {
	mode   codegen.Mode
	input  string
	output string
}

// parseArgs walks the argument list by hand: a mode selector, the input
// path, and -o followed by the output path, in that order. --debug may
// appear anywhere.
func parseArgs(args []string) (*invocation, error) {
	var positional []string
	output := ""
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--debug":
			debugMode = true
		case "-o":
			if i+1 >= len(args) {
				return nil, errors.New("-o needs an output path")
			}
			i++
			output = args[i]
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) != 2 || output == "" {
		return nil, errors.New("expected a mode, an input file and -o <output>")
	}
	mode, err := codegen.ParseMode(positional[0])
	if err != nil {
		return nil, err
	}
	return &invocation{mode: mode, input: positional[1], output: output}, nil
}

func run(args []string, stderr io.Writer) int {
	start := time.Now()
	debugMode = false
	logger.SetOutput(stderr)

	inv, err := parseArgs(args)
	logger.SetVerbose(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		fmt.Fprintln(stderr, usage)
		return 1
	}
	printDebug("Kira compiler V" + VERSION)
	printDebug("Building " + inv.input + " in mode " + inv.mode.String())

	fileContent, err := os.ReadFile(inv.input)
	if err != nil {
		fmt.Fprintf(stderr, "error: could not read %s: %s\n", inv.input, err)
		return 1
	}

	// --- Lexing ---
	tokens, lexErrors := lexer.Lex(string(fileContent))
	if len(lexErrors) > 0 {
		for _, e := range lexErrors {
			fmt.Fprintf(stderr, "error: %s\n", e.Error())
		}
		return 1
	}
	logger.LogPhase("lex", "tokens", len(tokens))
	printTokens(tokens)

	// --- Parsing ---
	unit, parseErrors := parser.Parse(tokens)
	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			fmt.Fprintf(stderr, "error: %s\n", e.Error())
		}
		return 1
	}
	logger.LogPhase("parse", "functions", len(unit.Funcs))
	printDebug("--- AST ---\n" + ast.DebugString(unit) + "--- End AST ---")

	// --- Warnings ---
	for _, d := range semantic.Analyze(unit) {
		fmt.Fprintf(stderr, "%s: %s\n", inv.input, d.Error())
	}

	// --- Code generation ---
	opts := codegen.DefaultOptions()
	opts.Mode = inv.mode
	opts.Verbose = debugMode

	// Generate into memory first so a failed compilation leaves no output.
	var out bytes.Buffer
	if _, err := codegen.Generate(unit, &out, opts); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	if err := os.WriteFile(inv.output, out.Bytes(), 0o644); err != nil {
		fmt.Fprintf(stderr, "error: could not write %s: %s\n", inv.output, err)
		return 1
	}

	printDebug(fmt.Sprintf("Wrote %d bytes to %s. Compile time: %s", out.Len(), inv.output, time.Since(start)))
	return 0
}

// printDebug prints a debug message when --debug is set.
func printDebug(message string) {
	if !debugMode {
		return
	}
	logger.Debug(message)
}

func printTokens(tokens []lexer.Token) {
	if !debugMode {
		return
	}
	for _, token := range tokens {
		logger.Debug("token", "type", token.Type, "value", token.Value, "line", token.Line, "column", token.Column)
	}
}
