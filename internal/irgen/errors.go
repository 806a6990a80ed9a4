package irgen

import (
	"github.com/pkg/errors"

	"kira/internal/ast"
)

// Lowering error kinds. Every error returned by Generate wraps exactly one of
// these; test for them with errors.Is or errors.Cause.
var (
	ErrDuplicateDefinition  = errors.New("duplicate definition")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrReturnInVoidFunction = errors.New("return with a value in void function")
	ErrMissingReturnValue   = errors.New("return without a value in int function")
	ErrUseVoidValue         = errors.New("void value used as an expression")
	ErrAssignToConstant     = errors.New("assignment to constant")
	ErrArgumentCount        = errors.New("wrong number of arguments")
	ErrMissingEntryPoint    = errors.New("no main function")
)

// errorAt wraps kind with a source position and the offending name.
func errorAt(kind error, pos ast.Position, name string) error {
	return errors.Wrapf(kind, "%s: %q", pos, name)
}
