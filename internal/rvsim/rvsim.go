// Package rvsim executes the RV32IM assembly subset produced by the riscv
// backend. It exists so that emitted code can be checked end to end without a
// cross toolchain: labels and directives are understood, instructions are
// interpreted one by one, and calls to unknown symbols go to host functions.
package rvsim

import (
	"bufio"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"kira/internal/ir"
)

// Limits and initial state of a Machine.
const (
	DefaultMaxSteps = 50_000_000
	StackTop        = 0x7fff0000
)

var (
	ErrSyntax        = errors.New("syntax error")
	ErrUnknownLabel  = errors.New("unknown label")
	ErrUnknownSymbol = errors.New("call to unknown symbol")
	ErrMisaligned    = errors.New("misaligned memory access")
	ErrStepLimit     = errors.New("step limit exceeded")
)

// returnSentinel is the ra value given to the outermost call; returning to it
// stops the machine.
const returnSentinel = -1

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

var regNames = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7, "s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

func parseReg(s string) (int, bool) {
	if r, ok := regNames[s]; ok {
		return r, true
	}
	if strings.HasPrefix(s, "x") {
		if n, err := strconv.Atoi(s[1:]); err == nil && n >= 0 && n < 32 {
			return n, true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

type instr struct {
	op     string
	rd     int
	rs1    int
	rs2    int
	imm    int32
	target string
	line   int
}

// operand shapes of the supported instructions
const (
	shapeNone   = iota // ret
	shapeRRR           // add rd, rs1, rs2
	shapeRRI           // addi rd, rs1, imm
	shapeRR            // mv/seqz/snez rd, rs1
	shapeRI            // li rd, imm
	shapeMem           // lw/sw reg, imm(rs1)
	shapeRL            // bnez/beqz rs1, label
	shapeL             // j/call label
)

var shapes = map[string]int{
	"add": shapeRRR, "sub": shapeRRR, "mul": shapeRRR, "div": shapeRRR, "rem": shapeRRR,
	"and": shapeRRR, "or": shapeRRR, "xor": shapeRRR,
	"sll": shapeRRR, "srl": shapeRRR, "sra": shapeRRR,
	"slt": shapeRRR, "sgt": shapeRRR,
	"addi": shapeRRI,
	"mv":   shapeRR, "seqz": shapeRR, "snez": shapeRR,
	"li": shapeRI,
	"lw": shapeMem, "sw": shapeMem,
	"bnez": shapeRL, "beqz": shapeRL,
	"j": shapeL, "call": shapeL,
	"ret": shapeNone,
}

// Machine is an RV32IM hart with a sparse word-addressed memory.
type Machine struct {
	MaxSteps int

	regs    [32]int32
	mem     map[int32]int32
	code    []instr
	labels  map[string]int
	externs map[string]ir.Extern
	steps   int
}

// Load assembles src into a new machine.
func Load(src string) (*Machine, error) {
	m := &Machine{
		MaxSteps: DefaultMaxSteps,
		mem:      make(map[int32]int32),
		labels:   make(map[string]int),
	}
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ".") && !strings.HasSuffix(line, ":") {
			continue
		}
		if strings.HasSuffix(line, ":") {
			m.labels[strings.TrimSuffix(line, ":")] = len(m.code)
			continue
		}
		in, err := parseInstr(line, lineNo)
		if err != nil {
			return nil, err
		}
		m.code = append(m.code, in)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading assembly")
	}
	for _, in := range m.code {
		if in.op == "j" || in.op == "bnez" || in.op == "beqz" {
			if _, ok := m.labels[in.target]; !ok {
				return nil, errors.Wrapf(ErrUnknownLabel, "line %d: %s", in.line, in.target)
			}
		}
	}
	m.regs[2] = StackTop
	return m, nil
}

func parseInstr(line string, lineNo int) (instr, error) {
	op, rest, _ := strings.Cut(line, " ")
	in := instr{op: op, line: lineNo}
	shape, ok := shapes[op]
	if !ok {
		return in, errors.Wrapf(ErrSyntax, "line %d: unknown instruction %q", lineNo, op)
	}
	var args []string
	if rest = strings.TrimSpace(rest); rest != "" {
		for _, a := range strings.Split(rest, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}
	bad := func() (instr, error) {
		return in, errors.Wrapf(ErrSyntax, "line %d: bad operands for %s: %q", lineNo, op, rest)
	}
	want := map[int]int{shapeNone: 0, shapeRRR: 3, shapeRRI: 3, shapeRR: 2, shapeRI: 2, shapeMem: 2, shapeRL: 2, shapeL: 1}[shape]
	if len(args) != want {
		return bad()
	}
	var okAll = true
	reg := func(s string) int {
		r, ok := parseReg(s)
		okAll = okAll && ok
		return r
	}
	imm := func(s string) int32 {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
			okAll = false
		}
		return int32(v)
	}
	switch shape {
	case shapeRRR:
		in.rd, in.rs1, in.rs2 = reg(args[0]), reg(args[1]), reg(args[2])
	case shapeRRI:
		in.rd, in.rs1, in.imm = reg(args[0]), reg(args[1]), imm(args[2])
	case shapeRR:
		in.rd, in.rs1 = reg(args[0]), reg(args[1])
	case shapeRI:
		in.rd, in.imm = reg(args[0]), imm(args[1])
	case shapeMem:
		in.rd = reg(args[0])
		off, base, found := strings.Cut(args[1], "(")
		if !found || !strings.HasSuffix(base, ")") {
			return bad()
		}
		in.imm, in.rs1 = imm(off), reg(strings.TrimSuffix(base, ")"))
	case shapeRL:
		in.rs1, in.target = reg(args[0]), args[1]
	case shapeL:
		in.target = args[0]
	}
	if !okAll {
		return bad()
	}
	return in, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// SetExterns installs host implementations for symbols that are called but
// not defined in the loaded code. Arguments are a0..a7; the result goes to a0.
func (m *Machine) SetExterns(externs map[string]ir.Extern) { m.externs = externs }

// SetReg sets a register by ABI or xN name. Writes to zero are ignored.
func (m *Machine) SetReg(name string, v int32) error {
	r, ok := parseReg(name)
	if !ok {
		return errors.Wrapf(ErrSyntax, "unknown register %q", name)
	}
	if r != 0 {
		m.regs[r] = v
	}
	return nil
}

// Reg returns the value of a register; unknown names read as 0.
func (m *Machine) Reg(name string) int32 {
	r, _ := parseReg(name)
	return m.regs[r]
}

// LoadWord and StoreWord access memory directly.
func (m *Machine) LoadWord(addr int32) int32     { return m.mem[addr] }
func (m *Machine) StoreWord(addr int32, v int32) { m.mem[addr] = v }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int { return m.steps }

// Call runs the function at label with args in a0..a7 and returns a0.
func (m *Machine) Call(label string, args ...int32) (int32, error) {
	for i, a := range args {
		m.regs[10+i] = a
	}
	if err := m.Run(label); err != nil {
		return 0, err
	}
	return m.regs[10], nil
}

// Run executes from label until the outermost function returns.
func (m *Machine) Run(label string) error {
	pc, ok := m.labels[label]
	if !ok {
		return errors.Wrapf(ErrUnknownLabel, "%s", label)
	}
	m.regs[1] = returnSentinel
	for {
		if pc == returnSentinel {
			return nil
		}
		if pc < 0 || pc >= len(m.code) {
			return errors.Errorf("pc %d outside the program", pc)
		}
		m.steps++
		if m.steps > m.MaxSteps {
			return errors.WithStack(ErrStepLimit)
		}
		next, err := m.step(m.code[pc], pc+1)
		if err != nil {
			return errors.WithMessagef(err, "line %d", m.code[pc].line)
		}
		pc = next
		m.regs[0] = 0
	}
}

func (m *Machine) step(in instr, next int) (int, error) {
	r := &m.regs
	switch in.op {
	case "li":
		r[in.rd] = in.imm
	case "mv":
		r[in.rd] = r[in.rs1]
	case "addi":
		r[in.rd] = r[in.rs1] + in.imm
	case "seqz":
		r[in.rd] = b2i(r[in.rs1] == 0)
	case "snez":
		r[in.rd] = b2i(r[in.rs1] != 0)
	case "lw", "sw":
		addr := r[in.rs1] + in.imm
		if addr%4 != 0 {
			return 0, errors.Wrapf(ErrMisaligned, "address %#x", uint32(addr))
		}
		if in.op == "lw" {
			r[in.rd] = m.mem[addr]
		} else {
			m.mem[addr] = r[in.rd]
		}
	case "j":
		return m.labels[in.target], nil
	case "bnez":
		if r[in.rs1] != 0 {
			return m.labels[in.target], nil
		}
	case "beqz":
		if r[in.rs1] == 0 {
			return m.labels[in.target], nil
		}
	case "call":
		if target, ok := m.labels[in.target]; ok {
			r[1] = int32(next)
			return target, nil
		}
		ext, ok := m.externs[in.target]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownSymbol, "%s", in.target)
		}
		v, err := ext(append([]int32(nil), r[10:18]...))
		if err != nil {
			return 0, err
		}
		r[10] = v
	case "ret":
		return int(r[1]), nil
	default:
		r[in.rd] = alu(in.op, r[in.rs1], r[in.rs2])
	}
	return next, nil
}

// alu implements the register-register operations with RV32IM semantics,
// including the defined results of division by zero and overflow.
func alu(op string, a, b int32) int32 {
	switch op {
	case "add":
		return a + b
	case "sub":
		return a - b
	case "mul":
		return a * b
	case "div":
		switch {
		case b == 0:
			return -1
		case a == math.MinInt32 && b == -1:
			return a
		}
		return a / b
	case "rem":
		switch {
		case b == 0:
			return a
		case a == math.MinInt32 && b == -1:
			return 0
		}
		return a % b
	case "and":
		return a & b
	case "or":
		return a | b
	case "xor":
		return a ^ b
	case "sll":
		return a << (uint32(b) & 31)
	case "srl":
		return int32(uint32(a) >> (uint32(b) & 31))
	case "sra":
		return a >> (uint32(b) & 31)
	case "slt":
		return b2i(a < b)
	case "sgt":
		return b2i(a > b)
	}
	panic("rvsim: unknown alu op " + op)
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
