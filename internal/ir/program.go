package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Program is a whole compilation unit in IR form.
type Program struct {
	funcs []*Function
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NewFunction adds a function definition with one i32 parameter per name.
// Names are given without sigils.
func (p *Program) NewFunction(name string, params []string, ret Type) *Function {
	f := newFunction(name, ret)
	for i, pn := range params {
		v := f.newValue(ValueData{Kind: FuncArgRef, Type: I32, Name: "@" + pn, Index: i})
		f.params = append(f.params, v)
		f.types = append(f.types, I32)
	}
	p.funcs = append(p.funcs, f)
	return f
}

// NewDecl adds a body-less library function declaration.
func (p *Program) NewDecl(name string, params []Type, ret Type) *Function {
	f := newFunction(name, ret)
	f.decl = true
	f.types = append(f.types, params...)
	p.funcs = append(p.funcs, f)
	return f
}

// Funcs returns declarations and definitions in creation order.
func (p *Program) Funcs() []*Function { return p.funcs }

// Func looks a function up by name, with or without its "@" sigil.
func (p *Program) Func(name string) *Function {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	for _, f := range p.funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Text form
// ---------------------------------------------------------------------------

// WriteText writes the program in Koopa text form.
func (p *Program) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, f := range p.funcs {
		if i > 0 && !(f.decl && p.funcs[i-1].decl) {
			bw.WriteString("\n")
		}
		f.writeText(bw)
	}
	return errors.Wrap(bw.Flush(), "writing IR text")
}

// Dump returns the Koopa text form of the program.
func (p *Program) Dump() string {
	var b strings.Builder
	p.WriteText(&b)
	return b.String()
}

// Dump returns the Koopa text form of one function.
func (f *Function) Dump() string {
	var b strings.Builder
	bw := bufio.NewWriter(&b)
	f.writeText(bw)
	bw.Flush()
	return b.String()
}

// textNames assigns a printed name to every value: named values keep their
// name, unnamed value-producing instructions are numbered %0, %1, … in
// layout order.
func (f *Function) textNames() []string {
	names := make([]string, len(f.values))
	next := 0
	for i, d := range f.values {
		names[i] = d.Name
	}
	for _, bb := range f.layout {
		for _, v := range f.blocks[bb].Insts {
			d := f.values[v]
			if d.Name == "" && d.Type != Unit {
				names[v] = fmt.Sprintf("%%%d", next)
				next++
			}
		}
	}
	return names
}

func (f *Function) writeText(w *bufio.Writer) {
	if f.decl {
		types := make([]string, len(f.types))
		for i, t := range f.types {
			types[i] = t.String()
		}
		fmt.Fprintf(w, "decl %s(%s)", f.name, strings.Join(types, ", "))
		if f.ret != Unit {
			fmt.Fprintf(w, ": %s", f.ret)
		}
		w.WriteString("\n")
		return
	}

	names := f.textNames()
	params := make([]string, len(f.params))
	for i, v := range f.params {
		params[i] = fmt.Sprintf("%s: %s", names[v], f.values[v].Type)
	}
	fmt.Fprintf(w, "fun %s(%s)", f.name, strings.Join(params, ", "))
	if f.ret != Unit {
		fmt.Fprintf(w, ": %s", f.ret)
	}
	w.WriteString(" {\n")
	for _, bb := range f.layout {
		fmt.Fprintf(w, "%s:\n", f.blocks[bb].Name)
		for _, v := range f.blocks[bb].Insts {
			w.WriteString("  ")
			w.WriteString(f.instText(v, names))
			w.WriteString("\n")
		}
	}
	w.WriteString("}\n")
}

func (f *Function) operandText(v Value, names []string) string {
	d := f.values[v]
	if d.Kind == Integer {
		return fmt.Sprintf("%d", d.Int)
	}
	return names[v]
}

func (f *Function) instText(v Value, names []string) string {
	d := f.values[v]
	op := func(i int) string { return f.operandText(d.Operands[i], names) }
	var s string
	switch d.Kind {
	case Alloc:
		s = "alloc i32"
	case Load:
		s = "load " + op(0)
	case Store:
		s = fmt.Sprintf("store %s, %s", op(0), op(1))
	case Binary:
		s = fmt.Sprintf("%s %s, %s", d.Op, op(0), op(1))
	case Branch:
		s = fmt.Sprintf("br %s, %s, %s", op(0), f.blocks[d.Targets[0]].Name, f.blocks[d.Targets[1]].Name)
	case Jump:
		s = "jump " + f.blocks[d.Targets[0]].Name
	case Call:
		args := make([]string, len(d.Operands))
		for i := range d.Operands {
			args[i] = op(i)
		}
		s = fmt.Sprintf("call %s(%s)", d.Callee.name, strings.Join(args, ", "))
	case Return:
		s = "ret"
		if len(d.Operands) > 0 {
			s += " " + op(0)
		}
	default:
		s = d.Kind.String()
	}
	if d.Type != Unit {
		return names[v] + " = " + s
	}
	return s
}
