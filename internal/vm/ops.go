package vm

import (
	"math"

	"hoc/internal/ir"
	"hoc/internal/runtime/builtins"
	"hoc/internal/value"
)

func (vm *VM) opEval() error {
	n := vm.fetch().Name
	b, err := vm.bound(n)
	if err != nil {
		return err
	}
	vm.pushCopy(b.Value)
	return nil
}

// opAssign binds the top of stack to a variable and leaves it on the
// stack as the value of the assignment.
func (vm *VM) opAssign() error {
	n := vm.fetch().Name
	v, err := vm.pop()
	if err != nil {
		return err
	}
	b, err := vm.bindForAssign(n)
	if err != nil {
		vm.drop(v)
		return err
	}

	if v.IsString() {
		// the popped reference goes to the binding; the copy pushed back
		// needs its own
		vm.keep(v)
		vm.pool.Retain(v.Str)
	}
	vm.store(b, v)
	vm.push(v)
	return nil
}

func (vm *VM) opCompoundAssign(op ir.OpCode) error {
	n := vm.fetch().Name
	rhs, err := vm.popNumeric()
	if err != nil {
		return err
	}
	b, err := vm.bindForAssign(n)
	if err != nil {
		return err
	}
	cur := vm.numeric(b)

	var r float64
	switch op {
	case ir.OpAddEq:
		r = cur + rhs
	case ir.OpSubEq:
		r = cur - rhs
	case ir.OpMulEq:
		r = cur * rhs
	case ir.OpDivEq:
		if rhs == 0 {
			return vm.fail(ErrDivisionByZero, n.Ident)
		}
		r = cur / rhs
	case ir.OpModEq:
		if rhs == 0 {
			return vm.fail(ErrModuloByZero, n.Ident)
		}
		r = math.Mod(cur, rhs)
	}
	b.Value = value.Number(r)
	vm.push(b.Value)
	return nil
}

func (vm *VM) opIncDec(op ir.OpCode) error {
	n := vm.fetch().Name
	b, err := vm.bound(n)
	if err != nil {
		return err
	}
	old := vm.numeric(b)

	switch op {
	case ir.OpPreInc:
		b.Value.Num = old + 1
		vm.push(b.Value)
	case ir.OpPreDec:
		b.Value.Num = old - 1
		vm.push(b.Value)
	case ir.OpPostInc:
		b.Value.Num = old + 1
		vm.push(value.Number(old))
	case ir.OpPostDec:
		b.Value.Num = old - 1
		vm.push(value.Number(old))
	}
	return nil
}

func (vm *VM) opBinary(op ir.OpCode) error {
	y, err := vm.popNumeric()
	if err != nil {
		return err
	}
	switch op {
	case ir.OpDiv:
		if y == 0 {
			return vm.fail(ErrDivisionByZero, "")
		}
	case ir.OpMod:
		if y == 0 {
			return vm.fail(ErrModuloByZero, "")
		}
	}
	x, err := vm.popNumeric()
	if err != nil {
		return err
	}

	switch op {
	case ir.OpAdd:
		vm.push(value.Number(x + y))
	case ir.OpSub:
		vm.push(value.Number(x - y))
	case ir.OpMul:
		vm.push(value.Number(x * y))
	case ir.OpDiv:
		vm.push(value.Number(x / y))
	case ir.OpMod:
		vm.push(value.Number(math.Mod(x, y)))
	case ir.OpPower:
		r := math.Pow(x, y)
		if err := builtins.Check(r, x, y); err != nil {
			return vm.fail(err, "^")
		}
		vm.push(value.Number(r))
	case ir.OpGt:
		vm.pushBool(x > y)
	case ir.OpGe:
		vm.pushBool(x >= y)
	case ir.OpLt:
		vm.pushBool(x < y)
	case ir.OpLe:
		vm.pushBool(x <= y)
	case ir.OpEq:
		vm.pushBool(x == y)
	case ir.OpNe:
		vm.pushBool(x != y)
	}
	return nil
}
