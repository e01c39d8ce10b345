package vm

import (
	"hoc/internal/symbol"
	"hoc/internal/value"
)

// A stack slot holding a Final string owns one reference to it. Auto
// strings are owned by the pool's statement arena.

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

// pushCopy pushes a value that stays referenced elsewhere.
func (vm *VM) pushCopy(v value.Value) {
	if v.IsString() {
		vm.pool.Retain(v.Str)
	}
	vm.push(v)
}

func (vm *VM) pushBool(b bool) {
	if b {
		vm.push(value.Number(1))
	} else {
		vm.push(value.Number(0))
	}
}

// pop moves the top value, and its reference, to the caller.
func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, ErrStackUnderflow
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack[len(vm.stack)-1] = value.Value{}
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// drop gives up a reference obtained from pop. Releasing a string that
// was already freed is logged, counted and kept as the VM's pending fault,
// which aborts the running statement at the end of the current
// instruction.
func (vm *VM) drop(v value.Value) {
	if !v.IsString() {
		return
	}
	if err := vm.pool.Release(v.Str); err != nil {
		vm.faults++
		vm.log.Error().Err(err).Int("line", vm.line).Int("faults", vm.faults).Msg("string ownership")
		if vm.fault == nil {
			vm.fault = err
		}
	}
}

// takeFault returns the pending ownership fault as a runtime error and
// clears it.
func (vm *VM) takeFault() error {
	if vm.fault == nil {
		return nil
	}
	err := vm.fail(vm.fault, "")
	vm.fault = nil
	return err
}

// popNumeric pops a value and reads it as a number.
func (vm *VM) popNumeric() (float64, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	f := v.Float()
	vm.drop(v)
	return f, nil
}

// popNumerics pops n numbers, returning them in push order.
func (vm *VM) popNumerics(n int) ([]float64, error) {
	args := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		f, err := vm.popNumeric()
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	return args, nil
}

// popValues pops n values, returning them in push order. The caller owns
// their references.
func (vm *VM) popValues(n int) ([]value.Value, error) {
	if n > len(vm.stack) {
		return nil, ErrStackUnderflow
	}
	vals := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		vals[i], _ = vm.pop()
	}
	return vals, nil
}

func (vm *VM) dropAll(vals []value.Value) {
	for _, v := range vals {
		vm.drop(v)
	}
}

// keep turns a popped value into one that a binding or the previous value
// register can hold: an Auto string is promoted, a Final string already
// carries the popped reference.
func (vm *VM) keep(v value.Value) value.Value {
	if v.IsString() && v.Str.Tier() == value.TierAuto {
		vm.pool.Promote(v.Str)
	}
	return v
}

// store replaces the value of b, releasing the old string. v must already
// carry a reference for b.
func (vm *VM) store(b *symbol.Binding, v value.Value) {
	old := b.Value
	b.Value = v
	vm.drop(old)
}

// lookup resolves n in the active call's locals, then in the globals.
func (vm *VM) lookup(n *symbol.Name) (*symbol.Binding, bool) {
	if b, ok := vm.scope.Get(n); ok {
		return b, true
	}
	return vm.globals.Get(n)
}

// bindForAssign returns the binding an assignment to n writes, creating a
// global the first time.
func (vm *VM) bindForAssign(n *symbol.Name) (*symbol.Binding, error) {
	if !n.IsVariable() {
		return nil, vm.fail(ErrAssignToNonVariable, n.Ident)
	}
	if b, ok := vm.lookup(n); ok {
		return b, nil
	}
	n.Role = symbol.RoleVariable
	return vm.globals.Bind(n), nil
}

// bound returns the existing binding of a variable.
func (vm *VM) bound(n *symbol.Name) (*symbol.Binding, error) {
	if !n.IsVariable() {
		return nil, vm.fail(ErrNotAVariable, n.Ident)
	}
	b, ok := vm.lookup(n)
	if !ok {
		return nil, vm.fail(ErrUndefinedVariable, n.Ident)
	}
	return b, nil
}

// numeric converts a string binding to a number in place.
func (vm *VM) numeric(b *symbol.Binding) float64 {
	if b.Value.IsString() {
		vm.store(b, value.Number(b.Value.Float()))
	}
	return b.Value.Num
}
