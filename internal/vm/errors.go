package vm

import (
	"errors"
	"fmt"

	"hoc/internal/runtime/builtins"
	builtinsio "hoc/internal/runtime/builtins/io"
	"hoc/internal/value"
)

// Runtime errors. Every one of them aborts the statement being executed,
// except ErrFormatMismatch and ErrNoFormat, which only abort the print
// or format operation that raised them and are reported as warnings.
var (
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrNotAVariable        = errors.New("attempt to evaluate non-variable")
	ErrAssignToNonVariable = errors.New("assignment to non-variable")
	ErrNotCallable         = errors.New("not a function or procedure")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrModuloByZero        = errors.New("modulo by zero")
	ErrRecursionLimit      = errors.New("recursion limit exceeded")
	ErrNestingTooDeep      = errors.New("nesting too deep")
	ErrNoReturnValue       = errors.New("function returns no value")
	ErrProcReturnsValue    = errors.New("procedure returns a value")
	ErrReturnOutsideCall   = errors.New("return outside a function or procedure")
	ErrNoFormat            = errors.New("no format supplied")
	ErrInterrupted         = errors.New("interrupted")
	ErrBadInstruction      = errors.New("invalid instruction")

	ErrWrongArity          = builtins.ErrWrongArity
	ErrArgumentOutOfDomain = builtins.ErrArgumentOutOfDomain
	ErrResultOutOfRange    = builtins.ErrResultOutOfRange
	ErrFormatMismatch      = builtinsio.ErrFormatMismatch
	ErrNonNumberRead       = builtinsio.ErrNotANumber
	ErrDoubleFree          = value.ErrDoubleFree
)

// RuntimeError is an error raised while executing code, tagged with the
// source line of the instruction that failed.
type RuntimeError struct {
	Err     error
	Line    int
	Detail  string // usually the name involved
	Warning bool
}

// Message renders the error without its line.
func (e *RuntimeError) Message() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Detail, e.Err)
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message())
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// fail builds a RuntimeError for the instruction being executed.
func (vm *VM) fail(err error, detail string) error {
	return &RuntimeError{Err: err, Line: vm.line, Detail: detail}
}

// wrap tags err with the current line unless it already carries one.
func (vm *VM) wrap(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{Err: err, Line: vm.line}
}

// warn reports a non-fatal error and lets execution continue.
func (vm *VM) warn(err error) {
	re := &RuntimeError{Err: err, Line: vm.line, Warning: true}
	vm.log.Warn().Int("line", re.Line).Err(err).Msg("warning")
	if vm.report != nil {
		vm.report(re)
		return
	}
	fmt.Fprintf(vm.env.Diag(), "warning: %s\n", re)
}
