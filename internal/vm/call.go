package vm

import (
	"fmt"

	"hoc/internal/runtime"
	"hoc/internal/runtime/builtins"
	"hoc/internal/symbol"
	"hoc/internal/value"
)

// opCall invokes a user-defined function or procedure.
//
// Arguments are on the stack, last on top. They bind to the parameters in
// declaration order; trailing parameters without an argument are 0.
func (vm *VM) opCall() error {
	n := vm.fetch().Name
	argc := vm.fetch().N

	if !n.IsCallable() {
		return vm.fail(ErrNotCallable, n.Ident)
	}
	if argc > n.Arity() {
		return vm.fail(fmt.Errorf("%w (expects %d, got %d)", ErrWrongArity, n.Arity(), argc), n.Ident)
	}
	if vm.calls >= vm.opts.MaxCallDepth {
		return vm.fail(ErrRecursionLimit, n.Ident)
	}
	if argc > len(vm.stack) {
		return ErrStackUnderflow
	}

	f := vm.frames.acquire()
	f.Name = n
	f.args = append(f.args[:0], vm.stack[len(vm.stack)-argc:]...)
	clear(vm.stack[len(vm.stack)-argc:])
	vm.stack = vm.stack[:len(vm.stack)-argc]

	for i, p := range n.Params {
		v := value.Number(0)
		if i < argc {
			v = vm.keep(f.args[i])
		}
		f.Locals.Bind(p, v)
	}

	f.RetPC = vm.pc
	f.Caller = vm.scope
	f.callerName = vm.callee
	vm.scope = &f.Locals
	vm.callee = n
	vm.calls++
	vm.log.Debug().Str("callee", n.Ident).Int("args", argc).Int("calls", vm.calls).Msg("call")

	err := vm.execute(n.Entry)

	vm.calls--
	vm.scope = f.Caller
	vm.callee = f.callerName
	vm.pc = f.RetPC
	ret := vm.retval
	vm.retval = value.Value{}
	vm.returning = false
	vm.retire(f)

	if err != nil {
		vm.drop(ret)
		return err
	}
	if n.Role == symbol.RoleFunction {
		vm.push(ret)
	}
	return nil
}

func (vm *VM) current() (*symbol.Name, error) {
	if vm.callee == nil {
		return nil, vm.fail(ErrReturnOutsideCall, "")
	}
	return vm.callee, nil
}

// opFuncRet returns the top of stack from a function.
func (vm *VM) opFuncRet() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	n, err := vm.current()
	if err != nil {
		vm.drop(v)
		return err
	}
	if n.Role != symbol.RoleFunction {
		vm.drop(v)
		return vm.fail(ErrProcReturnsValue, n.Ident)
	}
	vm.retval = v
	vm.returning = true
	return nil
}

// opProcRet returns from a procedure. Reaching it in a function means the
// function ended without returning a value.
func (vm *VM) opProcRet() error {
	n, err := vm.current()
	if err != nil {
		return err
	}
	if n.Role != symbol.RoleProcedure {
		return vm.fail(ErrNoReturnValue, n.Ident)
	}
	vm.returning = true
	return nil
}

func (vm *VM) opBltin() error {
	n := vm.fetch().Name
	argc := vm.fetch().N

	args, err := vm.popNumerics(argc)
	if err != nil {
		return err
	}
	r, err := runtime.CallBuiltin(vm.env, builtins.ID(n.Builtin), args)
	if err != nil {
		return err
	}
	vm.push(value.Number(r))
	return nil
}
