package lexer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"hoc/internal/token"
)

// Lexer tokenizes program text read from an io.RuneScanner. It never reads
// past the end of the token it returns, so the same scanner can be handed
// to read and getline while a program is running.
type Lexer struct {
	src io.RuneScanner

	line int
	col  int
	prev int // column before the last newline, for unread

	errors []string
}

func New(src io.RuneScanner) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
	}
}

// FromString is a convenience for tests and tools.
func FromString(input string) *Lexer {
	return New(strings.NewReader(input))
}

// Line returns the line the lexer is currently positioned on.
func (l *Lexer) Line() int {
	return l.line
}

func (l *Lexer) NextToken() token.Token {
	l.skipBlanksAndComments()

	pos := token.Position{Line: l.line, Column: l.col + 1}
	ch := l.readChar()

	if ch == 0 {
		return token.Token{Kind: token.EOF, Pos: pos}
	}

	if ch == '\n' {
		return token.Token{Kind: token.Newline, Lexeme: "\n", Pos: pos}
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peekChar())) {
		lit, ok := l.readNumber(ch)
		if !ok {
			l.errorf(pos, fmt.Sprintf("malformed number %q", lit))
			return token.Token{Kind: token.Illegal, Lexeme: lit, Pos: pos}
		}
		return token.Token{Kind: token.Number, Lexeme: lit, Pos: pos}
	}

	if isLetter(ch) {
		lit := l.readIdentifier(ch)
		kind := token.Ident
		if lit == "_" {
			kind = token.Prev
		}
		return token.Token{Kind: kind, Lexeme: lit, Pos: pos}
	}

	if ch == '"' {
		lit, ok := l.readString(pos)
		if !ok {
			return token.Token{Kind: token.Illegal, Lexeme: lit, Pos: pos}
		}
		return token.Token{Kind: token.String, Lexeme: lit, Pos: pos}
	}

	var kind token.Kind
	var lexeme string

	switch ch {
	case ';':
		kind, lexeme = token.Semicolon, ";"
	case ',':
		kind, lexeme = token.Comma, ","
	case '(':
		kind, lexeme = token.LParen, "("
	case ')':
		kind, lexeme = token.RParen, ")"
	case '{':
		kind, lexeme = token.LBrace, "{"
	case '}':
		kind, lexeme = token.RBrace, "}"
	case '^':
		kind, lexeme = token.Caret, "^"
	case '+':
		switch {
		case l.match('+'):
			kind, lexeme = token.Inc, "++"
		case l.match('='):
			kind, lexeme = token.AddAssign, "+="
		default:
			kind, lexeme = token.Plus, "+"
		}
	case '-':
		switch {
		case l.match('-'):
			kind, lexeme = token.Dec, "--"
		case l.match('='):
			kind, lexeme = token.SubAssign, "-="
		default:
			kind, lexeme = token.Minus, "-"
		}
	case '*':
		if l.match('=') {
			kind, lexeme = token.MulAssign, "*="
		} else {
			kind, lexeme = token.Star, "*"
		}
	case '/':
		if l.match('=') {
			kind, lexeme = token.DivAssign, "/="
		} else {
			kind, lexeme = token.Slash, "/"
		}
	case '%':
		if l.match('=') {
			kind, lexeme = token.ModAssign, "%="
		} else {
			kind, lexeme = token.Percent, "%"
		}
	case '!':
		if l.match('=') {
			kind, lexeme = token.NotEq, "!="
		} else {
			kind, lexeme = token.Bang, "!"
		}
	case '=':
		if l.match('=') {
			kind, lexeme = token.Eq, "=="
		} else {
			kind, lexeme = token.Assign, "="
		}
	case '<':
		if l.match('=') {
			kind, lexeme = token.LtEq, "<="
		} else {
			kind, lexeme = token.Lt, "<"
		}
	case '>':
		if l.match('=') {
			kind, lexeme = token.GtEq, ">="
		} else {
			kind, lexeme = token.Gt, ">"
		}
	case '&':
		if l.match('&') {
			kind, lexeme = token.AndAnd, "&&"
		} else {
			kind, lexeme = token.Illegal, "&"
		}
	case '|':
		if l.match('|') {
			kind, lexeme = token.OrOr, "||"
		} else {
			kind, lexeme = token.Illegal, "|"
		}
	default:
		kind, lexeme = token.Illegal, string(ch)
	}

	if kind == token.Illegal {
		l.errorf(pos, fmt.Sprintf("unexpected character %q", lexeme))
	}

	return token.Token{Kind: kind, Lexeme: lexeme, Pos: pos}
}

// Helpers

// readChar consumes one rune. It returns 0 at end of input; a read error
// other than io.EOF is recorded and also ends the input.
func (l *Lexer) readChar() rune {
	r, _, err := l.src.ReadRune()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			l.errors = append(l.errors, fmt.Sprintf("read error: %v", err))
		}
		return 0
	}
	if r == '\n' {
		l.line++
		l.prev = l.col
		l.col = 0
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) unreadChar(r rune) {
	if r == 0 {
		return
	}
	if err := l.src.UnreadRune(); err != nil {
		return
	}
	if r == '\n' {
		l.line--
		l.col = l.prev
	} else {
		l.col--
	}
}

func (l *Lexer) peekChar() rune {
	r := l.readChar()
	l.unreadChar(r)
	return r
}

func (l *Lexer) match(want rune) bool {
	r := l.readChar()
	if r == want {
		return true
	}
	l.unreadChar(r)
	return false
}

// skipBlanksAndComments stops in front of a newline, which is a token.
func (l *Lexer) skipBlanksAndComments() {
	for {
		r := l.readChar()
		switch {
		case r == '\n' || r == 0:
			l.unreadChar(r)
			return
		case r == '#':
			for {
				r = l.readChar()
				if r == '\n' || r == 0 {
					l.unreadChar(r)
					return
				}
			}
		case unicode.IsSpace(r):
		default:
			l.unreadChar(r)
			return
		}
	}
}

func (l *Lexer) readIdentifier(first rune) string {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		r := l.readChar()
		if !isLetter(r) && !isDigit(r) {
			l.unreadChar(r)
			break
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (l *Lexer) readNumber(first rune) (string, bool) {
	var sb strings.Builder
	sb.WriteRune(first)
	seenDot := first == '.'

	r := l.readChar()
	for isDigit(r) || (r == '.' && !seenDot) {
		if r == '.' {
			seenDot = true
		}
		sb.WriteRune(r)
		r = l.readChar()
	}
	if r != 'e' && r != 'E' {
		l.unreadChar(r)
		return sb.String(), true
	}

	sb.WriteRune(r)
	r = l.readChar()
	if r == '+' || r == '-' {
		sb.WriteRune(r)
		r = l.readChar()
	}
	if !isDigit(r) {
		l.unreadChar(r)
		return sb.String(), false
	}
	for isDigit(r) {
		sb.WriteRune(r)
		r = l.readChar()
	}
	l.unreadChar(r)
	return sb.String(), true
}

func (l *Lexer) readString(start token.Position) (string, bool) {
	var sb strings.Builder
	for {
		r := l.readChar()
		switch r {
		case 0, '\n':
			l.unreadChar(r)
			l.errorf(start, "unterminated string literal")
			return sb.String(), false
		case '"':
			return sb.String(), true
		case '\\':
			esc := l.readChar()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\n':
				// escaped newline continues the literal
			case 0:
				l.errorf(start, "unterminated string literal")
				return sb.String(), false
			default:
				sb.WriteByte('\\')
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *Lexer) errorf(pos token.Position, msg string) {
	l.errors = append(l.errors, formatError(pos, msg))
}

func formatError(pos token.Position, msg string) string {
	return fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg)
}

// Errors returns the diagnostics collected so far.
func (l *Lexer) Errors() []string {
	return l.errors
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
