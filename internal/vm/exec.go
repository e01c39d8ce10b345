package vm

import (
	"fmt"

	"hoc/internal/ir"
	"hoc/internal/value"
)

// execute runs the code range starting at pc until its stop sentinel or
// until a break, continue or return signal is raised. Structured
// statements call it recursively for their sub-ranges.
func (vm *VM) execute(pc int) error {
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > vm.opts.MaxNesting {
		return vm.fail(ErrNestingTooDeep, "")
	}

	vm.pc = pc
	for !vm.breaking && !vm.continuing && !vm.returning {
		if !vm.code.Valid(vm.pc) {
			return vm.fail(ErrBadInstruction, fmt.Sprintf("pc %d", vm.pc))
		}
		ins := vm.code.At(vm.pc)
		if ins.Kind != ir.KindOp {
			return vm.fail(ErrBadInstruction, fmt.Sprintf("operand at pc %d", vm.pc))
		}
		if ins.Op == ir.OpStop {
			return nil
		}
		if vm.interrupted.Swap(false) {
			return vm.fail(ErrInterrupted, "")
		}

		vm.line = ins.Line
		if e := vm.log.Trace(); e.Enabled() {
			e.Int("pc", vm.pc).Str("op", ins.Op.String()).Int("stack", len(vm.stack)).Int("depth", vm.depth).Msg("exec")
		}
		vm.pc++

		if err := vm.step(ins.Op); err != nil {
			return vm.wrap(err)
		}
		if err := vm.takeFault(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) step(op ir.OpCode) error {
	switch op {
	case ir.OpPop:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.drop(v)
		return nil

	case ir.OpConstPush:
		vm.push(value.Number(vm.fetch().Num))
		return nil
	case ir.OpStrPush:
		vm.push(value.FromString(vm.pool.NewAuto(vm.fetch().Str)))
		return nil
	case ir.OpPrevPush:
		vm.pushCopy(vm.prev)
		return nil
	case ir.OpEval:
		return vm.opEval()

	case ir.OpAssign:
		return vm.opAssign()
	case ir.OpAddEq, ir.OpSubEq, ir.OpMulEq, ir.OpDivEq, ir.OpModEq:
		return vm.opCompoundAssign(op)
	case ir.OpPreInc, ir.OpPreDec, ir.OpPostInc, ir.OpPostDec:
		return vm.opIncDec(op)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpPower,
		ir.OpGt, ir.OpGe, ir.OpLt, ir.OpLe, ir.OpEq, ir.OpNe:
		return vm.opBinary(op)
	case ir.OpNegate:
		f, err := vm.popNumeric()
		if err != nil {
			return err
		}
		vm.push(value.Number(-f))
		return nil
	case ir.OpNot:
		f, err := vm.popNumeric()
		if err != nil {
			return err
		}
		vm.pushBool(f == 0)
		return nil
	case ir.OpAnd, ir.OpOr:
		return vm.opLogical(op)

	case ir.OpIf:
		return vm.opIf()
	case ir.OpWhile:
		return vm.opWhile()
	case ir.OpFor:
		return vm.opFor()
	case ir.OpBreak:
		vm.breaking = true
		return nil
	case ir.OpContinue:
		vm.continuing = true
		return nil

	case ir.OpCall:
		return vm.opCall()
	case ir.OpFuncRet:
		return vm.opFuncRet()
	case ir.OpProcRet:
		return vm.opProcRet()
	case ir.OpBltin:
		return vm.opBltin()

	case ir.OpPrint:
		return vm.opPrint()
	case ir.OpPrintTop:
		return vm.opPrintTop()
	case ir.OpPrintf:
		return vm.opPrintf()
	case ir.OpSprintf:
		return vm.opSprintf()
	case ir.OpReadNum:
		return vm.opReadNum()
	case ir.OpReadLine:
		return vm.opReadLine()
	}
	return vm.fail(ErrBadInstruction, op.String())
}

// fetch consumes the inline operand at pc.
func (vm *VM) fetch() *ir.Instruction {
	ins := vm.code.At(vm.pc)
	vm.pc++
	return ins
}

func (vm *VM) checkInterrupt() error {
	if vm.interrupted.Swap(false) {
		return vm.fail(ErrInterrupted, "")
	}
	return nil
}

// execPop runs an expression range and pops its value. An empty range,
// one that starts with stop, yields 0.
func (vm *VM) execPop(pc int) (float64, error) {
	if ins := vm.code.At(pc); ins.Kind == ir.KindOp && ins.Op == ir.OpStop {
		return 0, nil
	}
	if err := vm.execute(pc); err != nil {
		return 0, err
	}
	return vm.popNumeric()
}

// cond evaluates a loop condition; an absent condition is true.
func (vm *VM) cond(pc int) (bool, error) {
	if pc == ir.NoAddr {
		return true, nil
	}
	f, err := vm.execPop(pc)
	return f != 0, err
}

// if: then, else, next, cond...
func (vm *VM) opIf() error {
	base := vm.pc
	thenPC := vm.code.At(base).N
	elsePC := vm.code.At(base + 1).N
	next := vm.code.At(base + 2).N

	c, err := vm.execPop(base + 3)
	if err != nil {
		return err
	}
	if c != 0 {
		err = vm.execute(thenPC)
	} else if elsePC != ir.NoAddr {
		err = vm.execute(elsePC)
	}
	if err != nil {
		return err
	}
	if !vm.returning {
		vm.pc = next
	}
	return nil
}

// while: body, next, cond...
func (vm *VM) opWhile() error {
	base := vm.pc
	body := vm.code.At(base).N
	next := vm.code.At(base + 1).N

	for {
		if err := vm.checkInterrupt(); err != nil {
			return err
		}
		ok, err := vm.cond(base + 2)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := vm.execute(body); err != nil {
			return err
		}
		if vm.returning {
			return nil
		}
		if vm.continuing {
			vm.continuing = false
			continue
		}
		if vm.breaking {
			vm.breaking = false
			break
		}
	}
	vm.pc = next
	return nil
}

// for: cond, post, body, next, init...
func (vm *VM) opFor() error {
	base := vm.pc
	condPC := vm.code.At(base).N
	post := vm.code.At(base + 1).N
	body := vm.code.At(base + 2).N
	next := vm.code.At(base + 3).N

	if _, err := vm.execPop(base + 4); err != nil {
		return err
	}
	for {
		if err := vm.checkInterrupt(); err != nil {
			return err
		}
		ok, err := vm.cond(condPC)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := vm.execute(body); err != nil {
			return err
		}
		if vm.returning {
			return nil
		}
		vm.continuing = false
		if vm.breaking {
			vm.breaking = false
			break
		}
		if post != ir.NoAddr {
			if _, err := vm.execPop(post); err != nil {
				return err
			}
		}
	}
	vm.pc = next
	return nil
}

// and/or: right, next. The right operand runs only when it decides the
// result.
func (vm *VM) opLogical(op ir.OpCode) error {
	right := vm.code.At(vm.pc).N
	next := vm.code.At(vm.pc + 1).N

	f, err := vm.popNumeric()
	if err != nil {
		return err
	}
	if (op == ir.OpAnd) == (f != 0) {
		if err := vm.execute(right); err != nil {
			return err
		}
		if f, err = vm.popNumeric(); err != nil {
			return err
		}
	}
	vm.pushBool(f != 0)
	vm.pc = next
	return nil
}
