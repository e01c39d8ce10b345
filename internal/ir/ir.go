package ir

import (
	"errors"
	"fmt"

	"hoc/internal/symbol"
)

// OpCode is an operator of the hoc machine.
type OpCode byte

const (
	OpStop OpCode = iota // end of a code range
	OpPop                // discard top of stack

	// Push family
	OpConstPush // Number follows
	OpStrPush   // String follows
	OpPrevPush  // push previously printed value
	OpEval      // Name follows; push its value

	// Assignment family, Name follows
	OpAssign
	OpAddEq
	OpSubEq
	OpMulEq
	OpDivEq
	OpModEq
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec

	// Math
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpPower

	// Compare / logic
	OpGt
	OpGe
	OpLt
	OpLe
	OpEq
	OpNe
	OpAnd // Jump(right), Jump(next)
	OpOr  // Jump(right), Jump(next)
	OpNot

	// Control flow
	OpIf       // Jump(then), Jump(else), Jump(next), cond...
	OpWhile    // Jump(body), Jump(next), cond...
	OpFor      // Jump(cond), Jump(post), Jump(body), Jump(next), init...
	OpBreak
	OpContinue

	// Calls / returns
	OpCall    // Name, ArgCount follow
	OpFuncRet // pop return value
	OpProcRet
	OpBltin // Name, ArgCount follow

	// Input / output
	OpPrint    // ArgCount follows; print values separated by spaces
	OpPrintTop // print top of stack and remember it as the previous value
	OpPrintf   // ArgCount follows
	OpSprintf  // ArgCount follows
	OpReadNum  // Name follows
	OpReadLine // Name follows
)

var opNames = [...]string{
	OpStop:      "stop",
	OpPop:       "pop",
	OpConstPush: "constpush",
	OpStrPush:   "strpush",
	OpPrevPush:  "prevpush",
	OpEval:      "eval",
	OpAssign:    "assign",
	OpAddEq:     "addeq",
	OpSubEq:     "subeq",
	OpMulEq:     "muleq",
	OpDivEq:     "diveq",
	OpModEq:     "modeq",
	OpPreInc:    "preinc",
	OpPreDec:    "predec",
	OpPostInc:   "postinc",
	OpPostDec:   "postdec",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "divd",
	OpMod:       "mod",
	OpNegate:    "negate",
	OpPower:     "power",
	OpGt:        "gt",
	OpGe:        "ge",
	OpLt:        "lt",
	OpLe:        "le",
	OpEq:        "eq",
	OpNe:        "ne",
	OpAnd:       "and",
	OpOr:        "or",
	OpNot:       "not",
	OpIf:        "if",
	OpWhile:     "while",
	OpFor:       "for",
	OpBreak:     "break",
	OpContinue:  "continue",
	OpCall:      "call",
	OpFuncRet:   "funcret",
	OpProcRet:   "procret",
	OpBltin:     "bltin",
	OpPrint:     "print",
	OpPrintTop:  "printtop",
	OpPrintf:    "printf",
	OpSprintf:   "sprintf",
	OpReadNum:   "readnum",
	OpReadLine:  "readline",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// NumOpCodes is the size of the instruction set.
const NumOpCodes = int(OpReadLine) + 1

// Kind tags the payload of an Instruction.
type Kind byte

const (
	KindOp Kind = iota
	KindNumber
	KindString
	KindName
	KindArgCount
	KindJump
)

// NoAddr marks an absent code range.
const NoAddr = -1

// Instruction is one cell of the code buffer: an operator or one of the
// inline operands that follow it.
type Instruction struct {
	Kind Kind
	Op   OpCode
	Num  float64
	Str  string
	Name *symbol.Name
	N    int // KindArgCount: argument count; KindJump: target address
	Line int
}

var (
	ErrCodeBufferFull = errors.New("code buffer full")
	ErrBadPatch       = errors.New("patch of a non-jump cell")
)

// Code is the program memory of a machine. Addresses are indices into a
// growable slice, so growth never invalidates them.
//
// Everything below the base belongs to defined functions and is kept.
// Everything from the base up is the code of the statement being compiled
// and is discarded by Reset.
type Code struct {
	cells []Instruction
	base  int
	limit int // 0 means unlimited
	line  int
	err   error
}

// NewCode creates a code buffer holding at most limit cells (0 for no
// limit).
func NewCode(limit int) *Code {
	return &Code{cells: make([]Instruction, 0, 256), limit: limit}
}

// SetLine sets the source line recorded on subsequently emitted cells.
func (c *Code) SetLine(line int) {
	c.line = line
}

// Emit appends a cell and returns its address. Once the buffer is full
// Emit records ErrCodeBufferFull and returns NoAddr.
func (c *Code) Emit(ins Instruction) int {
	if c.limit > 0 && len(c.cells) >= c.limit {
		if c.err == nil {
			c.err = fmt.Errorf("%w (%d cells)", ErrCodeBufferFull, c.limit)
		}
		return NoAddr
	}
	if ins.Line == 0 {
		ins.Line = c.line
	}
	c.cells = append(c.cells, ins)
	return len(c.cells) - 1
}

func (c *Code) EmitOp(op OpCode) int {
	return c.Emit(Instruction{Kind: KindOp, Op: op})
}

func (c *Code) EmitNumber(f float64) int {
	return c.Emit(Instruction{Kind: KindNumber, Num: f})
}

func (c *Code) EmitString(s string) int {
	return c.Emit(Instruction{Kind: KindString, Str: s})
}

func (c *Code) EmitName(n *symbol.Name) int {
	return c.Emit(Instruction{Kind: KindName, Name: n})
}

func (c *Code) EmitArgCount(n int) int {
	return c.Emit(Instruction{Kind: KindArgCount, N: n})
}

// Reserve emits a jump cell to be filled in later with Patch.
func (c *Code) Reserve() int {
	return c.Emit(Instruction{Kind: KindJump, N: NoAddr})
}

// Patch stores target in the jump cell at addr.
func (c *Code) Patch(addr, target int) error {
	if addr < 0 || addr >= len(c.cells) {
		if c.err != nil {
			return c.err
		}
		return fmt.Errorf("%w: address %d out of range", ErrBadPatch, addr)
	}
	if c.cells[addr].Kind != KindJump {
		return fmt.Errorf("%w: address %d", ErrBadPatch, addr)
	}
	c.cells[addr].N = target
	return nil
}

// Here returns the address the next Emit will use.
func (c *Code) Here() int {
	return len(c.cells)
}

func (c *Code) Base() int {
	return c.base
}

// Commit keeps everything emitted so far, typically a function body.
func (c *Code) Commit() {
	c.base = len(c.cells)
}

// Reset discards the cells of the current statement.
func (c *Code) Reset() {
	clear(c.cells[c.base:])
	c.cells = c.cells[:c.base]
	c.err = nil
}

// Err reports a sticky emit failure since the last Reset.
func (c *Code) Err() error {
	return c.err
}

// At returns the cell at addr.
func (c *Code) At(addr int) *Instruction {
	return &c.cells[addr]
}

// Valid reports whether addr is inside the buffer.
func (c *Code) Valid(addr int) bool {
	return addr >= 0 && addr < len(c.cells)
}

func (c *Code) Len() int {
	return len(c.cells)
}
