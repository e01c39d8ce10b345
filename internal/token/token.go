package token

import "fmt"

type Kind int

const (
	Illegal Kind = iota
	EOF
	Newline

	Ident  // Identifier
	Number // Numeric literal
	String // String literal
	Prev   // _ (previously printed value)

	// Keywords
	Func
	Proc
	Return
	Print
	Printf
	Sprintf
	Read
	Getline
	If
	Else
	While
	For
	Break
	Continue

	// Operators
	Assign    // =
	AddAssign // +=
	SubAssign // -=
	MulAssign // *=
	DivAssign // /=
	ModAssign // %=

	Plus    // +
	Minus   // -
	Star    // *
	Slash   // /
	Percent // %
	Caret   // ^
	Inc     // ++
	Dec     // --

	Bang   // !
	AndAnd // &&
	OrOr   // ||

	Eq    // ==
	NotEq // !=
	Lt    // <
	LtEq  // <=
	Gt    // >
	GtEq  // >=

	// Symbols
	Comma     // ,
	Semicolon // ;

	LParen // (
	RParen // )
	LBrace // {
	RBrace // }
)

type Position struct {
	Line   int
	Column int
}

type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
}

var kindNames = [...]string{
	Illegal:   "Illegal",
	EOF:       "EOF",
	Newline:   "Newline",
	Ident:     "Ident",
	Number:    "Number",
	String:    "String",
	Prev:      "Prev",
	Func:      "Func",
	Proc:      "Proc",
	Return:    "Return",
	Print:     "Print",
	Printf:    "Printf",
	Sprintf:   "Sprintf",
	Read:      "Read",
	Getline:   "Getline",
	If:        "If",
	Else:      "Else",
	While:     "While",
	For:       "For",
	Break:     "Break",
	Continue:  "Continue",
	Assign:    "Assign",
	AddAssign: "AddAssign",
	SubAssign: "SubAssign",
	MulAssign: "MulAssign",
	DivAssign: "DivAssign",
	ModAssign: "ModAssign",
	Plus:      "Plus",
	Minus:     "Minus",
	Star:      "Star",
	Slash:     "Slash",
	Percent:   "Percent",
	Caret:     "Caret",
	Inc:       "Inc",
	Dec:       "Dec",
	Bang:      "Bang",
	AndAnd:    "AndAnd",
	OrOr:      "OrOr",
	Eq:        "Eq",
	NotEq:     "NotEq",
	Lt:        "Lt",
	LtEq:      "LtEq",
	Gt:        "Gt",
	GtEq:      "GtEq",
	Comma:     "Comma",
	Semicolon: "Semicolon",
	LParen:    "LParen",
	RParen:    "RParen",
	LBrace:    "LBrace",
	RBrace:    "RBrace",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keyword pairs a reserved word with its token kind.
type Keyword struct {
	Name string
	Kind Kind
}

// Keywords lists the reserved words in registration order. They are not
// recognized by the lexer; the machine installs them in its name table
// and the parser resolves identifiers through it.
var Keywords = []Keyword{
	{"func", Func},
	{"proc", Proc},
	{"return", Return},
	{"print", Print},
	{"printf", Printf},
	{"sprintf", Sprintf},
	{"read", Read},
	{"getline", Getline},
	{"if", If},
	{"else", Else},
	{"while", While},
	{"for", For},
	{"break", Break},
	{"continue", Continue},
}

// IsAssignOp reports whether k is = or one of the compound assignments.
func (k Kind) IsAssignOp() bool {
	return k >= Assign && k <= ModAssign
}
