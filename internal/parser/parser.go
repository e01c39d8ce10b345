// Package parser compiles hoc source into the machine's code buffer one
// top-level statement or definition at a time. There is no syntax tree:
// code is emitted as the input is recognized and jump cells are patched
// once the ranges they point at are complete.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"hoc/internal/ir"
	"hoc/internal/lexer"
	"hoc/internal/symbol"
	"hoc/internal/token"
)

var (
	ErrSyntax              = errors.New("syntax error")
	ErrBreakOutsideLoop    = errors.New("break outside a loop")
	ErrContinueOutsideLoop = errors.New("continue outside a loop")
	ErrReturnOutsideDefn   = errors.New("return outside a function or procedure")
	ErrNotAVariable        = errors.New("not a variable")
	ErrDuplicateParam      = errors.New("duplicate parameter")
)

// SyntaxError reports a problem found while compiling a statement. The
// statement is discarded.
type SyntaxError struct {
	Err    error
	Line   int
	Detail string
}

func (e *SyntaxError) Message() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message())
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// UnitKind says what a compiled unit is.
type UnitKind int

const (
	// UnitStatement code sits at the buffer base and must be executed.
	UnitStatement UnitKind = iota
	// UnitDefinition code has been committed; there is nothing to run.
	UnitDefinition
)

// Unit describes one compiled top-level statement or definition.
type Unit struct {
	Kind  UnitKind
	Name  *symbol.Name // UnitDefinition
	Start int
	Line  int
}

type Parser struct {
	l     *lexer.Lexer
	names *symbol.Table
	code  *ir.Code

	tok  token.Token
	have bool // tok holds a token not yet consumed

	loops  int          // enclosing while/for statements
	blocks int          // enclosing braces
	defn   *symbol.Name // definition being compiled

	assignEnd int // code address just past the last assignment
}

func New(l *lexer.Lexer, names *symbol.Table, code *ir.Code) *Parser {
	return &Parser{l: l, names: names, code: code, assignEnd: -1}
}

// cur returns the current token, reading it only when first needed so the
// lexer never runs ahead of the statement being compiled.
func (p *Parser) cur() token.Token {
	if !p.have {
		p.tok = p.l.NextToken()
		p.have = true
		p.code.SetLine(p.tok.Pos.Line)
	}
	return p.tok
}

func (p *Parser) nextToken() {
	p.cur()
	p.have = false
}

// kind classifies the current token, resolving identifiers that name
// keywords through the name table.
func (p *Parser) kind() token.Kind {
	t := p.cur()
	if t.Kind == token.Ident {
		if n := p.names.Lookup(t.Lexeme); n != nil && n.Role == symbol.RoleKeyword {
			return n.Token
		}
	}
	return t.Kind
}

func (p *Parser) errorf(err error, format string, args ...interface{}) error {
	line := p.tok.Pos.Line
	if line == 0 {
		line = p.l.Line()
	}
	return &SyntaxError{Err: err, Line: line, Detail: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected() error {
	t := p.cur()
	if t.Kind == token.Illegal {
		if errs := p.l.Errors(); len(errs) > 0 {
			return p.errorf(ErrSyntax, "%s", errs[len(errs)-1])
		}
	}
	switch t.Kind {
	case token.EOF:
		return p.errorf(ErrSyntax, "unexpected end of input")
	case token.Newline:
		return p.errorf(ErrSyntax, "unexpected end of line")
	}
	return p.errorf(ErrSyntax, "near %q", t.Lexeme)
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if p.kind() != kind {
		return p.cur(), p.unexpected()
	}
	tok := p.cur()
	p.nextToken()
	return tok, nil
}

func (p *Parser) skipNewlines() {
	for p.kind() == token.Newline {
		p.nextToken()
	}
}

// ---------- Top-level ----------

// Next compiles the next top-level statement or definition. It returns
// io.EOF when the input is exhausted. After an error the caller should
// call Recover before asking for the next unit.
func (p *Parser) Next() (Unit, error) {
	p.loops, p.blocks = 0, 0
	p.defn = nil
	p.assignEnd = -1

	for k := p.kind(); k == token.Newline || k == token.Semicolon; k = p.kind() {
		p.nextToken()
	}
	if p.kind() == token.EOF {
		return Unit{}, io.EOF
	}

	unit := Unit{Start: p.code.Here(), Line: p.cur().Pos.Line}
	var err error
	switch p.kind() {
	case token.Func, token.Proc:
		unit.Kind = UnitDefinition
		unit.Name, err = p.parseDefinition()
	default:
		unit.Kind = UnitStatement
		err = p.parseTopStatement()
	}
	if err == nil {
		err = p.endOfUnit()
	}
	if err == nil {
		err = p.code.Err()
	}
	if err != nil {
		if unit.Name != nil {
			p.names.Undeclare(unit.Name)
		}
		return unit, err
	}
	if unit.Kind == UnitDefinition {
		p.code.Commit()
	}
	return unit, nil
}

func (p *Parser) endOfUnit() error {
	switch p.kind() {
	case token.Newline, token.Semicolon:
		p.nextToken()
		return nil
	case token.EOF:
		return nil
	}
	return p.unexpected()
}

// Recover skips the rest of the line after an error.
func (p *Parser) Recover() {
	for {
		switch p.kind() {
		case token.EOF:
			return
		case token.Newline:
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseTopStatement() error {
	if isExprStart(p.kind()) && !p.isProcCall() {
		assign, err := p.parseExprStmt()
		if err != nil {
			return err
		}
		if assign {
			p.code.EmitOp(ir.OpPop)
		} else {
			p.code.EmitOp(ir.OpPrintTop)
		}
	} else if err := p.parseStatement(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)
	return nil
}

// parseDefinition compiles func NAME(params) stmt. The name takes its
// role before the body so the body may call itself.
func (p *Parser) parseDefinition() (*symbol.Name, error) {
	role := symbol.RoleFunction
	if p.kind() == token.Proc {
		role = symbol.RoleProcedure
	}
	p.nextToken()

	nameTok := p.cur()
	if nameTok.Kind != token.Ident {
		return nil, p.unexpected()
	}
	p.nextToken()
	n := p.names.Intern(nameTok.Lexeme)
	if n.Role != symbol.RoleUndefined {
		return nil, p.errorf(symbol.ErrNameAlreadyUsed, "%s is a %s", n.Ident, n.Role)
	}

	params, err := p.parseParams(n)
	if err != nil {
		return nil, err
	}
	if err := p.names.Declare(n, role, params); err != nil {
		return nil, p.errorf(err, "")
	}
	p.names.Define(n, p.code.Here())
	p.defn = n

	p.skipNewlines()
	if err := p.parseStatement(); err != nil {
		return n, err
	}
	p.code.EmitOp(ir.OpProcRet)
	p.code.EmitOp(ir.OpStop)
	return n, nil
}

func (p *Parser) parseParams(fn *symbol.Name) ([]*symbol.Name, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []*symbol.Name
	if p.kind() == token.RParen {
		p.nextToken()
		return params, nil
	}
	for {
		t := p.cur()
		if t.Kind != token.Ident {
			return nil, p.unexpected()
		}
		pn := p.names.Intern(t.Lexeme)
		if !pn.IsVariable() || pn == fn {
			return nil, p.errorf(symbol.ErrNameAlreadyUsed, "parameter %s", pn.Ident)
		}
		for _, q := range params {
			if q == pn {
				return nil, p.errorf(ErrDuplicateParam, "%s", pn.Ident)
			}
		}
		params = append(params, pn)
		p.nextToken()

		if p.kind() == token.Comma {
			p.nextToken()
			continue
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return params, nil
	}
}

func (p *Parser) isProcCall() bool {
	t := p.cur()
	if t.Kind != token.Ident {
		return false
	}
	n := p.names.Lookup(t.Lexeme)
	return n != nil && n.Role == symbol.RoleProcedure
}

func isExprStart(k token.Kind) bool {
	switch k {
	case token.Ident, token.Number, token.String, token.Prev, token.LParen,
		token.Minus, token.Plus, token.Bang, token.Inc, token.Dec,
		token.Read, token.Getline, token.Sprintf:
		return true
	}
	return false
}

// parseExprStmt compiles an expression and reports whether it was an
// assignment, whose value is not printed at top level.
func (p *Parser) parseExprStmt() (bool, error) {
	if err := p.parseExpr(); err != nil {
		return false, err
	}
	return p.assignEnd == p.code.Here(), nil
}

// ---------- Statements ----------

func (p *Parser) parseStatement() error {
	switch p.kind() {
	case token.LBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.For:
		return p.parseFor()
	case token.Break:
		if p.loops == 0 {
			return p.errorf(ErrBreakOutsideLoop, "")
		}
		p.nextToken()
		p.code.EmitOp(ir.OpBreak)
		return nil
	case token.Continue:
		if p.loops == 0 {
			return p.errorf(ErrContinueOutsideLoop, "")
		}
		p.nextToken()
		p.code.EmitOp(ir.OpContinue)
		return nil
	case token.Return:
		return p.parseReturn()
	case token.Print:
		p.nextToken()
		argc, err := p.parseExprList()
		if err != nil {
			return err
		}
		p.code.EmitOp(ir.OpPrint)
		p.code.EmitArgCount(argc)
		return nil
	case token.Printf:
		p.nextToken()
		argc, err := p.parseFormatArgs()
		if err != nil {
			return err
		}
		p.code.EmitOp(ir.OpPrintf)
		p.code.EmitArgCount(argc)
		return nil
	case token.Semicolon, token.Newline, token.RBrace, token.EOF:
		// empty statement
		return nil
	}

	if p.isProcCall() {
		n := p.names.Lookup(p.cur().Lexeme)
		p.nextToken()
		return p.parseCall(n)
	}
	if !isExprStart(p.kind()) {
		return p.unexpected()
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpPop)
	return nil
}

// parseBlock compiles { stmt ... }. Statements are separated by newlines
// or semicolons.
func (p *Parser) parseBlock() error {
	p.nextToken()
	p.blocks++
	defer func() { p.blocks-- }()
	for {
		for k := p.kind(); k == token.Newline || k == token.Semicolon; k = p.kind() {
			p.nextToken()
		}
		switch p.kind() {
		case token.RBrace:
			p.nextToken()
			return nil
		case token.EOF:
			return p.unexpected()
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
}

// parseIf compiles
//
//	if: then, else, next, cond stop, then stop, [else stop]
func (p *Parser) parseIf() error {
	p.nextToken()
	p.code.EmitOp(ir.OpIf)
	thenJump := p.code.Reserve()
	elseJump := p.code.Reserve()
	nextJump := p.code.Reserve()

	if err := p.parseCond(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)

	p.skipNewlines()
	if err := p.patch(thenJump); err != nil {
		return err
	}
	if err := p.parseStatement(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)

	// Outside braces the lexer must not read past the end of the
	// statement, so else is only looked for across newlines in a block.
	if p.blocks > 0 {
		p.skipNewlines()
	}
	if p.kind() == token.Else {
		p.nextToken()
		p.skipNewlines()
		if err := p.patch(elseJump); err != nil {
			return err
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
		p.code.EmitOp(ir.OpStop)
	}
	return p.patch(nextJump)
}

// parseWhile compiles
//
//	while: body, next, cond stop, body stop
func (p *Parser) parseWhile() error {
	p.nextToken()
	p.code.EmitOp(ir.OpWhile)
	bodyJump := p.code.Reserve()
	nextJump := p.code.Reserve()

	if err := p.parseCond(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)

	p.skipNewlines()
	if err := p.parseLoopBody(bodyJump); err != nil {
		return err
	}
	return p.patch(nextJump)
}

// parseFor compiles
//
//	for: cond, post, body, next, init stop, [cond stop], [post stop], body stop
//
// An omitted condition is always true.
func (p *Parser) parseFor() error {
	p.nextToken()
	p.code.EmitOp(ir.OpFor)
	condJump := p.code.Reserve()
	postJump := p.code.Reserve()
	bodyJump := p.code.Reserve()
	nextJump := p.code.Reserve()

	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if p.kind() != token.Semicolon {
		if err := p.parseExpr(); err != nil {
			return err
		}
	}
	p.code.EmitOp(ir.OpStop)
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	if p.kind() != token.Semicolon {
		if err := p.patch(condJump); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.code.EmitOp(ir.OpStop)
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	if p.kind() != token.RParen {
		if err := p.patch(postJump); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.code.EmitOp(ir.OpStop)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}

	p.skipNewlines()
	if err := p.parseLoopBody(bodyJump); err != nil {
		return err
	}
	return p.patch(nextJump)
}

func (p *Parser) parseLoopBody(bodyJump int) error {
	if err := p.patch(bodyJump); err != nil {
		return err
	}
	p.loops++
	err := p.parseStatement()
	p.loops--
	if err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)
	return nil
}

func (p *Parser) parseCond() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	_, err := p.expect(token.RParen)
	return err
}

func (p *Parser) parseReturn() error {
	if p.defn == nil {
		return p.errorf(ErrReturnOutsideDefn, "")
	}
	p.nextToken()
	switch p.kind() {
	case token.Newline, token.Semicolon, token.RBrace, token.Else, token.EOF:
		p.code.EmitOp(ir.OpProcRet)
		return nil
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpFuncRet)
	return nil
}

func (p *Parser) patch(addr int) error {
	if err := p.code.Patch(addr, p.code.Here()); err != nil {
		return p.errorf(err, "")
	}
	return nil
}

// parseExprList compiles expr {, expr} and returns the count.
func (p *Parser) parseExprList() (int, error) {
	argc := 0
	for {
		if err := p.parseExpr(); err != nil {
			return 0, err
		}
		argc++
		if p.kind() != token.Comma {
			return argc, nil
		}
		p.nextToken()
	}
}

// parseFormatArgs accepts printf's arguments with or without
// surrounding parentheses.
func (p *Parser) parseFormatArgs() (int, error) {
	if p.kind() != token.LParen {
		return p.parseExprList()
	}
	return p.parseArgs()
}

// parseArgs compiles ( [expr {, expr}] ).
func (p *Parser) parseArgs() (int, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return 0, err
	}
	if p.kind() == token.RParen {
		p.nextToken()
		return 0, nil
	}
	argc, err := p.parseExprList()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return 0, err
	}
	return argc, nil
}

func (p *Parser) parseCall(n *symbol.Name) error {
	argc, err := p.parseArgs()
	if err != nil {
		return err
	}
	p.code.EmitOp(ir.OpCall)
	p.code.EmitName(n)
	p.code.EmitArgCount(argc)
	return nil
}

// ---------- Expressions ----------

var assignOps = map[token.Kind]ir.OpCode{
	token.Assign:    ir.OpAssign,
	token.AddAssign: ir.OpAddEq,
	token.SubAssign: ir.OpSubEq,
	token.MulAssign: ir.OpMulEq,
	token.DivAssign: ir.OpDivEq,
	token.ModAssign: ir.OpModEq,
}

var binaryOps = map[token.Kind]ir.OpCode{
	token.Eq:      ir.OpEq,
	token.NotEq:   ir.OpNe,
	token.Lt:      ir.OpLt,
	token.LtEq:    ir.OpLe,
	token.Gt:      ir.OpGt,
	token.GtEq:    ir.OpGe,
	token.Plus:    ir.OpAdd,
	token.Minus:   ir.OpSub,
	token.Star:    ir.OpMul,
	token.Slash:   ir.OpDiv,
	token.Percent: ir.OpMod,
}

func (p *Parser) parseExpr() error {
	return p.parseOr()
}

func (p *Parser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for p.kind() == token.OrOr {
		p.nextToken()
		if err := p.parseShortCircuit(ir.OpOr, p.parseAnd); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseAnd() error {
	if err := p.parseEquality(); err != nil {
		return err
	}
	for p.kind() == token.AndAnd {
		p.nextToken()
		if err := p.parseShortCircuit(ir.OpAnd, p.parseEquality); err != nil {
			return err
		}
	}
	return nil
}

// parseShortCircuit compiles the right operand of && or || into its own
// range:
//
//	op: right, next, right stop
func (p *Parser) parseShortCircuit(op ir.OpCode, operand func() error) error {
	p.code.EmitOp(op)
	rightJump := p.code.Reserve()
	nextJump := p.code.Reserve()
	if err := p.patch(rightJump); err != nil {
		return err
	}
	p.skipNewlines()
	if err := operand(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpStop)
	return p.patch(nextJump)
}

func (p *Parser) parseEquality() error {
	return p.parseBinary(p.parseRelational, token.Eq, token.NotEq)
}

func (p *Parser) parseRelational() error {
	return p.parseBinary(p.parseAdditive, token.Lt, token.LtEq, token.Gt, token.GtEq)
}

func (p *Parser) parseAdditive() error {
	return p.parseBinary(p.parseMultiplicative, token.Plus, token.Minus)
}

func (p *Parser) parseMultiplicative() error {
	return p.parseBinary(p.parseUnary, token.Star, token.Slash, token.Percent)
}

// parseBinary compiles a left-associative chain of operators at one
// precedence level.
func (p *Parser) parseBinary(operand func() error, kinds ...token.Kind) error {
	if err := operand(); err != nil {
		return err
	}
	for {
		k := p.kind()
		found := false
		for _, want := range kinds {
			if k == want {
				found = true
				break
			}
		}
		if !found {
			return nil
		}
		p.nextToken()
		if err := operand(); err != nil {
			return err
		}
		p.code.EmitOp(binaryOps[k])
	}
}

func (p *Parser) parseUnary() error {
	switch p.kind() {
	case token.Minus:
		p.nextToken()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.code.EmitOp(ir.OpNegate)
		return nil
	case token.Bang:
		p.nextToken()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.code.EmitOp(ir.OpNot)
		return nil
	case token.Plus:
		p.nextToken()
		return p.parseUnary()
	}
	return p.parsePower()
}

// parsePower compiles a ^ b, which is right-associative and binds tighter
// than unary minus.
func (p *Parser) parsePower() error {
	if err := p.parsePrimary(); err != nil {
		return err
	}
	if p.kind() != token.Caret {
		return nil
	}
	p.nextToken()
	if err := p.parseUnary(); err != nil {
		return err
	}
	p.code.EmitOp(ir.OpPower)
	return nil
}

func (p *Parser) parsePrimary() error {
	tok := p.cur()
	switch p.kind() {
	case token.Number:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return p.errorf(ErrSyntax, "bad number %q", tok.Lexeme)
		}
		p.code.EmitOp(ir.OpConstPush)
		p.code.EmitNumber(f)
		return nil

	case token.String:
		p.nextToken()
		p.code.EmitOp(ir.OpStrPush)
		p.code.EmitString(tok.Lexeme)
		return nil

	case token.Prev:
		p.nextToken()
		p.code.EmitOp(ir.OpPrevPush)
		return nil

	case token.LParen:
		p.nextToken()
		if err := p.parseExpr(); err != nil {
			return err
		}
		_, err := p.expect(token.RParen)
		return err

	case token.Inc, token.Dec:
		op := ir.OpPreInc
		if tok.Kind == token.Dec {
			op = ir.OpPreDec
		}
		p.nextToken()
		n, err := p.variable()
		if err != nil {
			return err
		}
		p.code.EmitOp(op)
		p.code.EmitName(n)
		return nil

	case token.Read, token.Getline:
		op := ir.OpReadNum
		if p.kind() == token.Getline {
			op = ir.OpReadLine
		}
		p.nextToken()
		if _, err := p.expect(token.LParen); err != nil {
			return err
		}
		n, err := p.variable()
		if err != nil {
			return err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
		p.code.EmitOp(op)
		p.code.EmitName(n)
		return nil

	case token.Sprintf:
		p.nextToken()
		argc, err := p.parseArgs()
		if err != nil {
			return err
		}
		p.code.EmitOp(ir.OpSprintf)
		p.code.EmitArgCount(argc)
		return nil

	case token.Ident:
		return p.parseName()
	}
	return p.unexpected()
}

// variable consumes a name that can hold a value.
func (p *Parser) variable() (*symbol.Name, error) {
	tok := p.cur()
	if tok.Kind != token.Ident {
		return nil, p.unexpected()
	}
	n := p.names.Intern(tok.Lexeme)
	if !n.IsVariable() {
		return nil, p.errorf(ErrNotAVariable, "%s is a %s", n.Ident, n.Role)
	}
	p.nextToken()
	return n, nil
}

// parseName compiles a builtin call, a function call, an assignment, a
// postfix increment or a variable reference.
func (p *Parser) parseName() error {
	n := p.names.Intern(p.cur().Lexeme)
	switch n.Role {
	case symbol.RoleBuiltin:
		p.nextToken()
		argc := 0
		if p.kind() == token.LParen {
			var err error
			if argc, err = p.parseArgs(); err != nil {
				return err
			}
		}
		p.code.EmitOp(ir.OpBltin)
		p.code.EmitName(n)
		p.code.EmitArgCount(argc)
		return nil

	case symbol.RoleFunction:
		p.nextToken()
		return p.parseCall(n)

	case symbol.RoleProcedure:
		return p.errorf(ErrSyntax, "procedure %s used in an expression", n.Ident)

	case symbol.RoleKeyword:
		return p.unexpected()
	}

	p.nextToken()
	k := p.kind()
	if op, ok := assignOps[k]; ok {
		p.nextToken()
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.code.EmitOp(op)
		p.code.EmitName(n)
		p.assignEnd = p.code.Here()
		return nil
	}
	switch k {
	case token.Inc:
		p.nextToken()
		p.code.EmitOp(ir.OpPostInc)
	case token.Dec:
		p.nextToken()
		p.code.EmitOp(ir.OpPostDec)
	default:
		p.code.EmitOp(ir.OpEval)
	}
	p.code.EmitName(n)
	return nil
}
