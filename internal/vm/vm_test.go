package vm_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"hoc/internal/ir"
	"hoc/internal/runtime"
	"hoc/internal/symbol"
	"hoc/internal/vm"
)

func newTestVM(out *bytes.Buffer, opts vm.Options) *vm.VM {
	env := runtime.NewEnv(runtime.NewScannerIO(out, strings.NewReader("")), io.Discard)
	return vm.NewVM(env, opts)
}

func constPush(c *ir.Code, f float64) {
	c.EmitOp(ir.OpConstPush)
	c.EmitNumber(f)
}

func assign(c *ir.Code, n *symbol.Name) {
	c.EmitOp(ir.OpAssign)
	c.EmitName(n)
	c.EmitOp(ir.OpPop)
}

func TestExecuteArithmetic(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()

	machine.Prepare()
	constPush(c, 3)
	constPush(c, 4)
	c.EmitOp(ir.OpAdd)
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)

	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.String() != "7\n" {
		t.Fatalf("expected output %q, got %q", "7\n", out.String())
	}
	if f := machine.Prev().Float(); f != 7 {
		t.Fatalf("expected previous value 7, got %v", f)
	}
	if machine.StackLen() != 0 {
		t.Fatalf("expected empty stack, got %d", machine.StackLen())
	}
}

func TestDivisionByZeroLeavesTargetUnbound(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()
	y := machine.Names().Intern("y")

	machine.Prepare()
	c.SetLine(3)
	constPush(c, 1)
	constPush(c, 0)
	c.EmitOp(ir.OpDiv)
	assign(c, y)
	c.EmitOp(ir.OpStop)

	err := machine.Execute(ir.NoAddr)
	if !errors.Is(err, vm.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	var re *vm.RuntimeError
	if !errors.As(err, &re) || re.Line != 3 {
		t.Fatalf("expected runtime error on line 3, got %v", err)
	}
	if _, ok := machine.Global("y"); ok {
		t.Fatalf("expected y to stay unbound")
	}
}

func TestUndefinedVariable(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()

	machine.Prepare()
	c.EmitOp(ir.OpEval)
	c.EmitName(machine.Names().Intern("nope"))
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)

	if err := machine.Execute(ir.NoAddr); !errors.Is(err, vm.ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}
	machine.Prepare()
	if machine.StackLen() != 0 {
		t.Fatalf("expected Prepare to empty the stack, got %d", machine.StackLen())
	}
}

func TestStringOwnership(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()
	pool := machine.Pool()
	s := machine.Names().Intern("s")
	u := machine.Names().Intern("u")

	// s = "abc"
	machine.Prepare()
	c.EmitOp(ir.OpStrPush)
	c.EmitString("abc")
	assign(c, s)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	machine.Prepare()
	if pool.FinalLen() != 1 || pool.References() != 1 {
		t.Fatalf("expected one final string with one reference, got %d/%d", pool.FinalLen(), pool.References())
	}

	// u = s
	c.EmitOp(ir.OpEval)
	c.EmitName(s)
	assign(c, u)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	machine.Prepare()
	if pool.FinalLen() != 1 || pool.References() != 2 {
		t.Fatalf("expected one shared string with two references, got %d/%d", pool.FinalLen(), pool.References())
	}

	// s = 1; u = 2
	constPush(c, 1)
	assign(c, s)
	constPush(c, 2)
	assign(c, u)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	machine.Prepare()
	if pool.Live() != 0 {
		t.Fatalf("expected no live strings, got %d", pool.Live())
	}
}

func TestUnpromotedStringsAreReclaimed(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()

	machine.Prepare()
	c.EmitOp(ir.OpStrPush)
	c.EmitString("tmp")
	c.EmitOp(ir.OpPrint)
	c.EmitArgCount(1)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.Pool().AutoLen() != 1 {
		t.Fatalf("expected one auto string before the boundary, got %d", machine.Pool().AutoLen())
	}
	machine.Prepare()
	if machine.Pool().Live() != 0 {
		t.Fatalf("expected no live strings after the boundary, got %d", machine.Pool().Live())
	}
	if out.String() != "tmp\n" {
		t.Fatalf("expected output %q, got %q", "tmp\n", out.String())
	}
}

func TestRecursionLimitReleasesFrames(t *testing.T) {
	var out bytes.Buffer
	opts := vm.DefaultOptions()
	opts.MaxCallDepth = 50
	machine := newTestVM(&out, opts)
	c := machine.Code()
	names := machine.Names()

	// func f() return f()
	f := names.Intern("f")
	if err := names.Declare(f, symbol.RoleFunction, nil); err != nil {
		t.Fatalf("declare: %v", err)
	}
	names.Define(f, c.Here())
	c.EmitOp(ir.OpCall)
	c.EmitName(f)
	c.EmitArgCount(0)
	c.EmitOp(ir.OpFuncRet)
	c.EmitOp(ir.OpProcRet)
	c.EmitOp(ir.OpStop)
	c.Commit()

	machine.Prepare()
	c.EmitOp(ir.OpCall)
	c.EmitName(f)
	c.EmitArgCount(0)
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)

	err := machine.Execute(ir.NoAddr)
	if !errors.Is(err, vm.ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
	if machine.ActiveFrames() != 0 {
		t.Fatalf("expected no active frames, got %d", machine.ActiveFrames())
	}
}

func TestFunctionWithoutReturnValue(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()
	names := machine.Names()

	g := names.Intern("g")
	if err := names.Declare(g, symbol.RoleFunction, nil); err != nil {
		t.Fatalf("declare: %v", err)
	}
	names.Define(g, c.Here())
	c.EmitOp(ir.OpProcRet)
	c.EmitOp(ir.OpStop)
	c.Commit()

	machine.Prepare()
	c.EmitOp(ir.OpCall)
	c.EmitName(g)
	c.EmitArgCount(0)
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)

	if err := machine.Execute(ir.NoAddr); !errors.Is(err, vm.ErrNoReturnValue) {
		t.Fatalf("expected ErrNoReturnValue, got %v", err)
	}
}

func TestInterruptAbortsLoop(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()

	// while (1) {}
	machine.Prepare()
	c.EmitOp(ir.OpWhile)
	body := c.Reserve()
	next := c.Reserve()
	constPush(c, 1)
	c.EmitOp(ir.OpStop)
	if err := c.Patch(body, c.Here()); err != nil {
		t.Fatalf("patch: %v", err)
	}
	c.EmitOp(ir.OpStop)
	if err := c.Patch(next, c.Here()); err != nil {
		t.Fatalf("patch: %v", err)
	}
	c.EmitOp(ir.OpStop)

	machine.Interrupt()
	if err := machine.Execute(ir.NoAddr); !errors.Is(err, vm.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
}

func TestCloseFreesEverything(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()

	machine.Prepare()
	c.EmitOp(ir.OpStrPush)
	c.EmitString("kept")
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	machine.Prepare()
	if machine.Pool().FinalLen() != 1 {
		t.Fatalf("expected the printed string to be kept, got %d", machine.Pool().FinalLen())
	}

	machine.Close()
	if machine.Pool().Live() != 0 {
		t.Fatalf("expected no live strings after Close, got %d", machine.Pool().Live())
	}
	if machine.Names().Len() != 0 {
		t.Fatalf("expected empty name table, got %d", machine.Names().Len())
	}
}

func TestReleasingFreedStringAbortsStatement(t *testing.T) {
	var out bytes.Buffer
	machine := newTestVM(&out, vm.DefaultOptions())
	c := machine.Code()
	s := machine.Names().Intern("s")

	// s = "abc"
	machine.Prepare()
	c.EmitOp(ir.OpStrPush)
	c.EmitString("abc")
	assign(c, s)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	machine.Prepare()

	// free the binding's string behind its back
	v, _ := machine.Global("s")
	if err := machine.Pool().Release(v.Str); err != nil {
		t.Fatalf("expected first release to succeed, got %v", err)
	}

	// s = 1; print 2
	c.SetLine(4)
	constPush(c, 1)
	assign(c, s)
	constPush(c, 2)
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)
	err := machine.Execute(ir.NoAddr)
	if !errors.Is(err, vm.ErrDoubleFree) {
		t.Fatalf("expected ErrDoubleFree, got %v", err)
	}
	var re *vm.RuntimeError
	if !errors.As(err, &re) || re.Line != 4 || !strings.Contains(re.Message(), `"abc"`) {
		t.Fatalf("expected a runtime error on line 4 naming the string, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected the statement to stop, got output %q", out.String())
	}
	if machine.Faults() != 1 {
		t.Fatalf("expected one fault, got %d", machine.Faults())
	}

	machine.Prepare()
	constPush(c, 3)
	c.EmitOp(ir.OpPrintTop)
	c.EmitOp(ir.OpStop)
	if err := machine.Execute(ir.NoAddr); err != nil {
		t.Fatalf("expected the fault to be reported once, got %v", err)
	}
}
