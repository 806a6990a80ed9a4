package irgen

import (
	"github.com/rickypai/natsort"

	"kira/internal/ir"
)

// Binding is what a name in a lexical scope refers to. For variables Value
// is the alloc slot; for constants it is the IR value computed by the
// initializer and there is no slot.
type Binding struct {
	Value ir.Value
	Const bool
}

// Context is the state of one compilation: the stack of lexical scopes, the
// module-level function table and the function currently being lowered.
// Scopes are pushed and popped in strict LIFO order around function bodies
// and blocks.
type Context struct {
	prog   *ir.Program
	scopes []map[string]Binding
	funcs  map[string]*ir.Function
	active *FunctionInfo
}

// NewContext returns a context with a single, module-level scope.
func NewContext(prog *ir.Program) *Context {
	return &Context{
		prog:   prog,
		scopes: []map[string]Binding{{}},
		funcs:  make(map[string]*ir.Function),
	}
}

// Program returns the program being built.
func (c *Context) Program() *ir.Program { return c.prog }

// Push opens a new innermost scope.
func (c *Context) Push() {
	c.scopes = append(c.scopes, map[string]Binding{})
}

// Pop discards the innermost scope. The module-level scope is never popped.
func (c *Context) Pop() {
	if len(c.scopes) == 1 {
		panic("irgen: pop of the module scope")
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// Depth returns the number of open scopes, counting the module scope.
func (c *Context) Depth() int { return len(c.scopes) }

// InsertValue binds name in the innermost scope. A name already bound in that
// same scope is ErrDuplicateDefinition; outer bindings are shadowed.
func (c *Context) InsertValue(name string, b Binding) error {
	cur := c.scopes[len(c.scopes)-1]
	if _, ok := cur[name]; ok {
		return ErrDuplicateDefinition
	}
	cur[name] = b
	return nil
}

// Value resolves name, searching from the innermost scope outwards.
func (c *Context) Value(name string) (Binding, error) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b, nil
		}
	}
	return Binding{}, ErrSymbolNotFound
}

// InsertFunction registers a function in the module-level function table.
func (c *Context) InsertFunction(name string, f *ir.Function) error {
	if _, ok := c.funcs[name]; ok {
		return ErrDuplicateDefinition
	}
	c.funcs[name] = f
	return nil
}

// Function looks a function up by its source name.
func (c *Context) Function(name string) (*ir.Function, error) {
	if f, ok := c.funcs[name]; ok {
		return f, nil
	}
	return nil, ErrSymbolNotFound
}

// SetActive makes info the function currently being lowered (nil for none).
func (c *Context) SetActive(info *FunctionInfo) { c.active = info }

// Active returns the function currently being lowered.
func (c *Context) Active() *FunctionInfo {
	if c.active == nil {
		panic("irgen: no active function")
	}
	return c.active
}

// FunctionNames returns the registered function names in natural order.
func (c *Context) FunctionNames() []string {
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	natsort.Strings(names)
	return names
}

// VisibleNames returns every name visible from the innermost scope, in
// natural order. A shadowed name is listed once.
func (c *Context) VisibleNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, scope := range c.scopes {
		for name := range scope {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	natsort.Strings(names)
	return names
}
