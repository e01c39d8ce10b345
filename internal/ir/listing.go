package ir

import (
	"fmt"
	"io"

	"hoc/internal/value"
)

// WriteListing renders cells [from, to) one per line, with jump targets
// resolved to absolute addresses.
func (c *Code) WriteListing(w io.Writer, from, to int) error {
	if from < 0 {
		from = 0
	}
	if to > len(c.cells) {
		to = len(c.cells)
	}
	for addr := from; addr < to; addr++ {
		if _, err := fmt.Fprintf(w, "%03d: %s\n", addr, c.cells[addr].describe()); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatement lists the statement currently being compiled.
func (c *Code) WriteStatement(w io.Writer) error {
	return c.WriteListing(w, c.base, len(c.cells))
}

func (ins *Instruction) describe() string {
	switch ins.Kind {
	case KindOp:
		return fmt.Sprintf("OPR  %s", ins.Op)
	case KindNumber:
		return fmt.Sprintf("VAL  %s", value.FormatNumber(ins.Num, value.DefaultPrecision))
	case KindString:
		return fmt.Sprintf("STR  %q", ins.Str)
	case KindName:
		if ins.Name == nil {
			return "SYM  <nil>"
		}
		return fmt.Sprintf("SYM  %s", ins.Name.Ident)
	case KindArgCount:
		return fmt.Sprintf("NARG %d", ins.N)
	case KindJump:
		if ins.N == NoAddr {
			return "IP -> NULL"
		}
		return fmt.Sprintf("IP -> %03d", ins.N)
	default:
		return fmt.Sprintf("kind(%d)", int(ins.Kind))
	}
}

// String renders a single cell the way WriteListing does.
func (ins Instruction) String() string {
	return ins.describe()
}
