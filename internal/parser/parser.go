// Package parser recursive-descent parses a C subset straight into a
// fully typed AST.
//
// There is no separate type-checking pass: every node constructor below
// (newAdd, newSub, the relational/equality helpers, deref, addr-of,
// member access) consults its operands' already-resolved types the
// moment it builds the node. A subtree is never handed back untyped for
// a later visitor to fill in.
package parser

import (
	"github.com/SARDONYX-sard/compiler-lesson/internal/ast"
	"github.com/SARDONYX-sard/compiler-lesson/internal/diagnostic"
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

// Parser holds the token cursor and the single-pass binding state used
// while recognizing a translation unit.
type Parser struct {
	tok  *lexer.Token
	sink *diagnostic.Sink

	globalScope *ast.Scope
	scope       *ast.Scope

	globals []*ast.Var
	locals  []*ast.Var

	stringCount int
}

// New builds a Parser over an already-tokenized stream. sink receives
// all syntax and type errors as fatal diagnostics.
func New(tokens *lexer.Token, sink *diagnostic.Sink) *Parser {
	root := ast.NewScope()
	return &Parser{
		tok:         tokens,
		sink:        sink,
		globalScope: root,
		scope:       root,
	}
}

// Parse recognizes a full translation unit: a sequence of top-level
// function definitions and global variable declarations.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	for !p.atEOF() {
		if p.isFunction() {
			prog.Functions = append(prog.Functions, p.function())
		} else {
			p.globalVar()
		}
	}
	prog.Globals = p.globals
	return prog
}

// ----------------------------------------------------------------------------
// Token cursor
// ----------------------------------------------------------------------------

func (p *Parser) atEOF() bool {
	return p.tok.Kind == lexer.TokEOF
}

func (p *Parser) advance() *lexer.Token {
	t := p.tok
	if p.tok.Next != nil {
		p.tok = p.tok.Next
	}
	return t
}

func (p *Parser) isPunct(s string) bool {
	return p.tok.Kind == lexer.TokPunct && p.tok.Lexeme == s
}

func (p *Parser) isKeyword(s string) bool {
	return p.tok.Kind == lexer.TokKeyword && p.tok.Lexeme == s
}

// consume advances past s (punctuator or keyword) and reports whether it
// matched.
func (p *Parser) consume(s string) bool {
	if p.tok.Lexeme == s && (p.tok.Kind == lexer.TokPunct || p.tok.Kind == lexer.TokKeyword) {
		p.advance()
		return true
	}
	return false
}

// expect requires s to be the current token's text and advances past it,
// or raises a fatal diagnostic.
func (p *Parser) expect(s string) {
	if !p.consume(s) {
		p.sink.Fatal(p.tok.Offset, "expected %q, got %q", s, p.tok.Lexeme)
	}
}

func (p *Parser) expectIdent() string {
	if p.tok.Kind != lexer.TokIdent {
		p.sink.Fatal(p.tok.Offset, "expected an identifier")
	}
	name := p.tok.Lexeme
	p.advance()
	return name
}

func (p *Parser) expectNumber() int64 {
	if p.tok.Kind != lexer.TokNum {
		p.sink.Fatal(p.tok.Offset, "expected a number")
	}
	v := p.tok.Val
	p.advance()
	return v
}

// ----------------------------------------------------------------------------
// Scope and symbol management
// ----------------------------------------------------------------------------

func (p *Parser) enterScope() {
	p.scope = p.scope.Enter()
}

func (p *Parser) leaveScope() {
	p.scope = p.scope.Leave()
}

func (p *Parser) declareLocal(name string, ty *types.Type) *ast.Var {
	v := &ast.Var{Name: name, Type: ty, IsLocal: true}
	p.locals = append(p.locals, v)
	p.scope.Declare(name, v)
	return v
}

func (p *Parser) declareGlobal(name string, ty *types.Type) *ast.Var {
	v := &ast.Var{Name: name, Type: ty}
	p.globals = append(p.globals, v)
	p.globalScope.Declare(name, v)
	return v
}

func (p *Parser) declareString(contents []byte, ty *types.Type) *ast.Var {
	name := ".L.data." + itoa(p.stringCount)
	p.stringCount++
	v := &ast.Var{Name: name, Type: ty, Contents: contents}
	p.globals = append(p.globals, v)
	return v
}

func (p *Parser) lookup(name string) *ast.Var {
	return p.scope.Lookup(name)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// isFunction looks ahead past a basetype and identifier to see whether a
// "(" follows, distinguishing a function definition from a global
// variable declaration without consuming tokens.
func (p *Parser) isFunction() bool {
	save := p.tok
	defer func() { p.tok = save }()

	if !p.isTypeStart() {
		return false
	}
	p.basetype()
	if p.tok.Kind != lexer.TokIdent {
		return false
	}
	p.advance()
	return p.isPunct("(")
}

func (p *Parser) isTypeStart() bool {
	return p.isKeyword("char") || p.isKeyword("int") || p.isKeyword("struct")
}

// basetype = ("char" | "int" | struct-decl) "*"*
func (p *Parser) basetype() *types.Type {
	var ty *types.Type
	switch {
	case p.consume("char"):
		ty = types.Char
	case p.consume("int"):
		ty = types.Int
	case p.isKeyword("struct"):
		ty = p.structDecl()
	default:
		p.sink.Fatal(p.tok.Offset, "expected a type, got %q", p.tok.Lexeme)
	}
	for p.consume("*") {
		ty = types.PointerTo(ty)
	}
	return ty
}

// struct-decl = "struct" "{" struct-member* "}"
func (p *Parser) structDecl() *types.Type {
	p.expect("struct")
	p.expect("{")
	var members []types.Member
	for !p.consume("}") {
		base := p.basetype()
		name := p.expectIdent()
		memberType := p.typeSuffix(base)
		p.expect(";")
		members = append(members, types.Member{Name: name, Type: memberType})
	}
	return types.NewStruct(members)
}

// typeSuffix = "[" num "]" type-suffix | ε
func (p *Parser) typeSuffix(base *types.Type) *types.Type {
	if !p.consume("[") {
		return base
	}
	n := int(p.expectNumber())
	p.expect("]")
	inner := p.typeSuffix(base)
	return types.ArrayOf(inner, n)
}

// ----------------------------------------------------------------------------
// Top-level declarations
// ----------------------------------------------------------------------------

// function = basetype ident "(" params? ")" "{" stmt* "}"
func (p *Parser) function() *ast.Function {
	returnType := p.basetype()
	name := p.expectIdent()

	p.enterScope()
	p.locals = nil

	p.expect("(")
	var params []*ast.Var
	for !p.consume(")") {
		if len(params) > 0 {
			p.expect(",")
		}
		paramType := p.basetype()
		paramName := p.expectIdent()
		paramType = p.typeSuffix(paramType)
		params = append(params, p.declareLocal(paramName, paramType))
	}

	body := p.block()

	fn := &ast.Function{
		Name:       name,
		Params:     params,
		Locals:     p.locals,
		Body:       body,
		ReturnType: returnType,
	}
	p.leaveScope()
	return fn
}

// global-var = basetype ident type-suffix ";"
func (p *Parser) globalVar() {
	base := p.basetype()
	name := p.expectIdent()
	ty := p.typeSuffix(base)
	p.expect(";")
	p.declareGlobal(name, ty)
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// stmt = "return" expr ";"
//      | "if" "(" expr ")" stmt ("else" stmt)?
//      | "while" "(" expr ")" stmt
//      | "for" "(" expr-stmt? ";" expr? ";" expr-stmt? ")" stmt
//      | "{" stmt* "}"
//      | declaration
//      | expr-stmt ";"
func (p *Parser) stmt() *ast.Node {
	switch {
	case p.isKeyword("return"):
		tok := p.advance()
		n := ast.NewUnary(ast.NodeReturn, p.expr(), tok)
		p.expect(";")
		return n

	case p.isKeyword("if"):
		tok := p.advance()
		p.expect("(")
		cond := p.expr()
		p.expect(")")
		then := p.stmt()
		node := &ast.Node{Kind: ast.NodeIf, Tok: tok, Cond: cond, Then: then}
		if p.consume("else") {
			node.Els = p.stmt()
		}
		return node

	case p.isKeyword("while"):
		tok := p.advance()
		p.expect("(")
		cond := p.expr()
		p.expect(")")
		then := p.stmt()
		return &ast.Node{Kind: ast.NodeFor, Tok: tok, Cond: cond, Then: then}

	case p.isKeyword("for"):
		tok := p.advance()
		p.expect("(")
		node := &ast.Node{Kind: ast.NodeFor, Tok: tok}
		if !p.consume(";") {
			node.Init = p.exprStmt()
			p.expect(";")
		}
		if !p.isPunct(";") {
			node.Cond = p.expr()
		}
		p.expect(";")
		if !p.isPunct(")") {
			node.Inc = p.exprStmt()
		}
		p.expect(")")
		node.Then = p.stmt()
		return node

	case p.isPunct("{"):
		return p.block()

	case p.isTypeStart():
		return p.declaration()

	default:
		n := p.exprStmt()
		p.expect(";")
		return n
	}
}

// block = "{" stmt* "}", returning a chain of statements linked by Next.
func (p *Parser) block() *ast.Node {
	tok := p.tok
	p.expect("{")
	p.enterScope()

	head := &ast.Node{}
	cur := head
	for !p.consume("}") {
		cur.Next = p.stmt()
		cur = cur.Next
	}

	p.leaveScope()
	return &ast.Node{Kind: ast.NodeBlock, Tok: tok, Body: head.Next}
}

// declaration = basetype ident type-suffix ("=" expr)? ("," ident type-suffix ("=" expr)?)* ";"
//
// Each declarator lowers to an ExprStmt assignment (or a no-op for an
// uninitialized declarator); declarators are linked together by Next the
// same way block statements are.
func (p *Parser) declaration() *ast.Node {
	base := p.basetype()

	head := &ast.Node{}
	cur := head
	first := true
	for !p.isPunct(";") {
		if !first {
			p.expect(",")
		}
		first = false

		tok := p.tok
		name := p.expectIdent()
		ty := p.typeSuffix(base)
		v := p.declareLocal(name, ty)

		if p.consume("=") {
			lhs := ast.NewVarNode(v, tok)
			rhs := p.assign()
			assign := newAssign(lhs, rhs, tok)
			cur.Next = &ast.Node{Kind: ast.NodeExprStmt, Tok: tok, Lhs: assign}
		} else {
			// No initializer: the declarator still occupies a slot in
			// the statement chain, it just generates nothing.
			cur.Next = &ast.Node{Kind: ast.NodeNop, Tok: tok}
		}
		cur = cur.Next
	}
	p.expect(";")
	return &ast.Node{Kind: ast.NodeBlock, Body: head.Next}
}

// exprStmt wraps an expression as a statement (used standalone and for
// the init/inc clauses of a for-loop).
func (p *Parser) exprStmt() *ast.Node {
	tok := p.tok
	return &ast.Node{Kind: ast.NodeExprStmt, Tok: tok, Lhs: p.expr()}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// expr = assign
func (p *Parser) expr() *ast.Node {
	return p.assign()
}

// assign = equality ("=" assign)?
func (p *Parser) assign() *ast.Node {
	node := p.equality()
	if tok := p.tok; p.consume("=") {
		node = newAssign(node, p.assign(), tok)
	}
	return node
}

func newAssign(lhs, rhs *ast.Node, tok *lexer.Token) *ast.Node {
	n := ast.NewBinary(ast.NodeAssign, lhs, rhs, tok)
	n.Type = lhs.Type
	return n
}

// equality = relational ("==" relational | "!=" relational)*
func (p *Parser) equality() *ast.Node {
	node := p.relational()
	for {
		tok := p.tok
		switch {
		case p.consume("=="):
			node = intBinary(ast.NodeEq, node, p.relational(), tok)
		case p.consume("!="):
			node = intBinary(ast.NodeNe, node, p.relational(), tok)
		default:
			return node
		}
	}
}

// intBinary builds a binary node whose result is always Int: the
// comparisons, the arithmetic operators restricted to the all-integer
// case, and equality.
func intBinary(kind ast.NodeKind, lhs, rhs *ast.Node, tok *lexer.Token) *ast.Node {
	n := ast.NewBinary(kind, lhs, rhs, tok)
	n.Type = types.Int
	return n
}

// relational = add ("<" add | "<=" add | ">" add | ">=" add)*
//
// ">" and ">=" are not distinct node kinds: "a > b" is normalized to
// "b < a" and "a >= b" to "b <= a" at parse time, so the rest of the
// compiler only ever sees Lt and Le.
func (p *Parser) relational() *ast.Node {
	node := p.add()
	for {
		tok := p.tok
		switch {
		case p.consume("<"):
			node = intBinary(ast.NodeLt, node, p.add(), tok)
		case p.consume("<="):
			node = intBinary(ast.NodeLe, node, p.add(), tok)
		case p.consume(">"):
			node = intBinary(ast.NodeLt, p.add(), node, tok)
		case p.consume(">="):
			node = intBinary(ast.NodeLe, p.add(), node, tok)
		default:
			return node
		}
	}
}

// add = mul ("+" mul | "-" mul)*
func (p *Parser) add() *ast.Node {
	node := p.mul()
	for {
		tok := p.tok
		switch {
		case p.consume("+"):
			node = p.newAdd(node, p.mul(), tok)
		case p.consume("-"):
			node = p.newSub(node, p.mul(), tok)
		default:
			return node
		}
	}
}

// newAdd builds the typed node for "+". Adding an integer to a pointer
// or array moves it by that many ELEMENTS: the node kind itself records
// this (PtrAdd, pointer as Lhs, unscaled element count as Rhs) and
// codegen scales by the pointee size when it lowers the node, rather
// than the parser emitting a synthetic multiply here.
func (p *Parser) newAdd(lhs, rhs *ast.Node, tok *lexer.Token) *ast.Node {
	switch {
	case lhs.Type.IsInteger() && rhs.Type.IsInteger():
		return intBinary(ast.NodeAdd, lhs, rhs, tok)
	case lhs.Type.HasBase() && rhs.Type.IsInteger():
		n := ast.NewBinary(ast.NodePtrAdd, lhs, rhs, tok)
		n.Type = lhs.Type
		return n
	case lhs.Type.IsInteger() && rhs.Type.HasBase():
		return p.newAdd(rhs, lhs, tok)
	default:
		p.sink.Fatal(tok.Offset, "invalid operands for +")
		panic("unreachable")
	}
}

// newSub mirrors newAdd, plus the pointer-minus-pointer case: PtrDiff
// holds the raw pointer difference; codegen divides it by the pointee
// size to yield an element count.
func (p *Parser) newSub(lhs, rhs *ast.Node, tok *lexer.Token) *ast.Node {
	switch {
	case lhs.Type.IsInteger() && rhs.Type.IsInteger():
		return intBinary(ast.NodeSub, lhs, rhs, tok)
	case lhs.Type.HasBase() && rhs.Type.IsInteger():
		n := ast.NewBinary(ast.NodePtrSub, lhs, rhs, tok)
		n.Type = lhs.Type
		return n
	case lhs.Type.HasBase() && rhs.Type.HasBase():
		n := ast.NewBinary(ast.NodePtrDiff, lhs, rhs, tok)
		n.Type = types.Int
		return n
	default:
		p.sink.Fatal(tok.Offset, "invalid operands for -")
		panic("unreachable")
	}
}

// mul = unary ("*" unary | "/" unary)*
func (p *Parser) mul() *ast.Node {
	node := p.unary()
	for {
		tok := p.tok
		switch {
		case p.consume("*"):
			node = intBinary(ast.NodeMul, node, p.unary(), tok)
		case p.consume("/"):
			node = intBinary(ast.NodeDiv, node, p.unary(), tok)
		default:
			return node
		}
	}
}

// unary = "+" unary | "-" unary | "*" unary | "&" unary | postfix
func (p *Parser) unary() *ast.Node {
	tok := p.tok
	switch {
	case p.consume("+"):
		return p.unary()
	case p.consume("-"):
		operand := p.unary()
		n := ast.NewUnary(ast.NodeNeg, operand, tok)
		n.Type = operand.Type
		return n
	case p.consume("*"):
		operand := p.unary()
		if !operand.Type.HasBase() {
			p.sink.Fatal(tok.Offset, "invalid pointer dereference")
		}
		n := ast.NewUnary(ast.NodeDeref, operand, tok)
		n.Type = operand.Type.Base
		return n
	case p.consume("&"):
		operand := p.unary()
		n := ast.NewUnary(ast.NodeAddr, operand, tok)
		if operand.Type.Kind == types.KindArray {
			n.Type = types.PointerTo(operand.Type.Base)
		} else {
			n.Type = types.PointerTo(operand.Type)
		}
		return n
	default:
		return p.postfix()
	}
}

// postfix = primary ("[" expr "]" | "." ident)*
func (p *Parser) postfix() *ast.Node {
	node := p.primary()
	for {
		tok := p.tok
		switch {
		case p.consume("["):
			idx := p.expr()
			p.expect("]")
			sum := p.newAdd(node, idx, tok)
			node = ast.NewUnary(ast.NodeDeref, sum, tok)
			node.Type = sum.Type.Base
		case p.consume("."):
			name := p.expectIdent()
			if node.Type.Kind != types.KindStruct {
				p.sink.Fatal(tok.Offset, "not a struct")
			}
			member := node.Type.GetMember(name)
			if member == nil {
				p.sink.Fatal(tok.Offset, "no member named %q", name)
			}
			node = &ast.Node{Kind: ast.NodeMember, Tok: tok, Lhs: node, MemberName: name, Member: member, Type: member.Type}
		default:
			return node
		}
	}
}

// primary = "(" "{" stmt-expr-tail
//         | "(" expr ")"
//         | "sizeof" unary
//         | ident func-args?
//         | str
//         | num
func (p *Parser) primary() *ast.Node {
	tok := p.tok

	if p.consume("(") {
		if p.isPunct("{") {
			return p.stmtExpr(tok)
		}
		node := p.expr()
		p.expect(")")
		return node
	}

	if p.consume("sizeof") {
		operand := p.unary()
		return ast.NewNum(int64(operand.Type.Size()), tok)
	}

	if tok.Kind == lexer.TokIdent {
		p.advance()
		if p.isPunct("(") {
			return p.funcall(tok)
		}
		v := p.lookup(tok.Lexeme)
		if v == nil {
			p.sink.Fatal(tok.Offset, "undeclared identifier %q", tok.Lexeme)
		}
		return ast.NewVarNode(v, tok)
	}

	if tok.Kind == lexer.TokStr {
		p.advance()
		ty := types.ArrayOf(types.Char, tok.StrLen)
		v := p.declareString(tok.Str, ty)
		return ast.NewVarNode(v, tok)
	}

	return ast.NewNum(p.expectNumber(), tok)
}

// stmtExpr is the GNU statement-expression extension: "({ stmt* expr; })"
// evaluates to the value of its last expression statement.
func (p *Parser) stmtExpr(tok *lexer.Token) *ast.Node {
	p.expect("{")
	p.enterScope()

	head := &ast.Node{}
	cur := head
	for !p.consume("}") {
		cur.Next = p.stmt()
		cur = cur.Next
	}
	p.expect(")")
	p.leaveScope()

	var last *ast.Node
	for s := head.Next; s != nil; s = s.Next {
		last = s
	}
	if last == nil || last.Kind != ast.NodeExprStmt {
		p.sink.Fatal(tok.Offset, "stmt expr returning void is not supported")
	}

	n := &ast.Node{Kind: ast.NodeStmtExpr, Tok: tok, Body: head.Next, Type: last.Lhs.Type}
	return n
}

// funcall = ident "(" (assign ("," assign)*)? ")"
func (p *Parser) funcall(tok *lexer.Token) *ast.Node {
	p.expect("(")
	head := &ast.Node{}
	cur := head
	for !p.consume(")") {
		if head != cur {
			p.expect(",")
		}
		cur.Next = p.assign()
		cur = cur.Next
	}
	return &ast.Node{Kind: ast.NodeFuncall, Tok: tok, FuncName: tok.Lexeme, Body: head.Next, Type: types.Int}
}
