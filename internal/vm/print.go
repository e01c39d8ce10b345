package vm

import (
	"errors"
	"io"
	"strings"

	builtinsio "hoc/internal/runtime/builtins/io"
	"hoc/internal/value"
)

func (vm *VM) format(v value.Value) string {
	return v.Format(vm.opts.Precision)
}

// opPrint writes its arguments separated by spaces and ends the line.
func (vm *VM) opPrint() error {
	argc := vm.fetch().N
	vals, err := vm.popValues(argc)
	if err != nil {
		return err
	}
	defer vm.dropAll(vals)

	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(vm.format(v))
	}
	sb.WriteByte('\n')
	vm.env.IO().Print(sb.String())
	return nil
}

// opPrintTop prints the value of a bare expression statement and keeps it
// as the previous value.
func (vm *VM) opPrintTop() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	vm.env.IO().Print(vm.format(v) + "\n")

	old := vm.prev
	vm.prev = vm.keep(v)
	vm.drop(old)
	return nil
}

// formatArgs pops a format call's arguments and expands them. A format
// problem is reported as a warning and ok is false.
func (vm *VM) formatArgs(argc int) (out string, ok bool, err error) {
	vals, err := vm.popValues(argc)
	if err != nil {
		return "", false, err
	}
	defer vm.dropAll(vals)

	if len(vals) == 0 || !vals[0].IsString() {
		vm.warn(ErrNoFormat)
		return "", false, nil
	}
	s, err := builtinsio.Format(vals[0].Str.Text, vals[1:])
	if err != nil {
		vm.warn(err)
		return "", false, nil
	}
	return s, true, nil
}

func (vm *VM) opPrintf() error {
	s, ok, err := vm.formatArgs(vm.fetch().N)
	if err != nil || !ok {
		return err
	}
	vm.env.IO().Print(s)
	return nil
}

// opSprintf pushes the formatted string, or an empty string after a
// format warning.
func (vm *VM) opSprintf() error {
	s, _, err := vm.formatArgs(vm.fetch().N)
	if err != nil {
		return err
	}
	vm.push(value.FromString(vm.pool.NewAuto(s)))
	return nil
}

// opReadNum reads a number into a variable and pushes 1, or 0 at end of
// input.
func (vm *VM) opReadNum() error {
	n := vm.fetch().Name
	f, err := vm.env.IO().ReadNumber()
	switch {
	case errors.Is(err, io.EOF):
		vm.push(value.Number(0))
		return nil
	case errors.Is(err, builtinsio.ErrNotANumber):
		return vm.fail(ErrNonNumberRead, n.Ident)
	case err != nil:
		return err
	}

	b, err := vm.bindForAssign(n)
	if err != nil {
		return err
	}
	vm.store(b, value.Number(f))
	vm.push(value.Number(1))
	return nil
}

// opReadLine reads a line into a variable and pushes 1, or 0 at end of
// input.
func (vm *VM) opReadLine() error {
	n := vm.fetch().Name
	line, err := vm.env.IO().ReadLine()
	switch {
	case errors.Is(err, io.EOF):
		vm.push(value.Number(0))
		return nil
	case err != nil:
		return err
	}

	b, err := vm.bindForAssign(n)
	if err != nil {
		return err
	}
	vm.store(b, value.FromString(vm.pool.NewFinal(line)))
	vm.push(value.Number(1))
	return nil
}
