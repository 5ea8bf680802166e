// Package ast defines the syntax tree and the single-pass binding state
// (scopes, locals, globals, string literals) that the parser builds and
// types as it goes.
//
// There is no separate bind or type-check pass: a Scope is consulted the
// moment an identifier is parsed, and a Node is stamped with its Type the
// moment it is constructed. The tree that comes out of the parser is
// already fully resolved.
//
// A *Var is shared, not copied: the scope chain, the owning Function's
// Locals or the Program's Globals, and every NodeVar that names it all
// point at the same value. Nothing is freed piecemeal; the whole tree
// lives as long as the Program that holds it.
package ast

import (
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

// Var is a declared variable: a local (stack slot), a global (data
// section), or a string literal (anonymous global with contents).
type Var struct {
	Name     string
	Type     *types.Type
	IsLocal  bool
	Offset   int    // stack offset for locals, assigned by codegen before it emits the function
	Contents []byte // non-nil for globals backed by literal data (string literals)
}

// ScopeEntry binds a name to the Var it resolves to within a Scope.
type ScopeEntry struct {
	Name string
	Var  *Var
}

// Scope is one link in the lexical scope chain. Enter pushes a new
// link; Leave pops back to the parent link. Lookup walks outward from
// the innermost scope to the outermost, so inner declarations shadow
// outer ones.
type Scope struct {
	Parent  *Scope
	Entries []ScopeEntry
}

// NewScope allocates the outermost (global) scope.
func NewScope() *Scope {
	return &Scope{}
}

// Enter pushes a new child scope, returning it as the new current scope.
func (s *Scope) Enter() *Scope {
	return &Scope{Parent: s}
}

// Leave pops back to the parent scope. Any bindings made in s are
// discarded along with s itself.
func (s *Scope) Leave() *Scope {
	return s.Parent
}

// Declare binds name to v in the current scope. A redeclaration in the
// SAME scope overwrites the earlier entry; shadowing an outer scope's
// binding is not a redeclaration and is always allowed.
func (s *Scope) Declare(name string, v *Var) {
	for i := range s.Entries {
		if s.Entries[i].Name == name {
			s.Entries[i].Var = v
			return
		}
	}
	s.Entries = append(s.Entries, ScopeEntry{Name: name, Var: v})
}

// Lookup searches s and its ancestors for name, innermost first.
func (s *Scope) Lookup(name string) *Var {
	for sc := s; sc != nil; sc = sc.Parent {
		for i := range sc.Entries {
			if sc.Entries[i].Name == name {
				return sc.Entries[i].Var
			}
		}
	}
	return nil
}

// NodeKind discriminates the variant a Node holds.
type NodeKind uint8

const (
	NodeAdd NodeKind = iota
	NodeSub
	NodeMul
	NodeDiv
	NodeNeg
	NodeEq
	NodeNe
	NodeLt
	NodeLe
	NodeAssign
	NodeAddr    // &x
	NodeDeref   // *x
	NodePtrAdd  // ptr + int, unscaled: Lhs is the pointer, Rhs the element count
	NodePtrSub  // ptr - int, unscaled
	NodePtrDiff // ptr - ptr, in elements (codegen divides the byte difference by the pointee size)
	NodeReturn
	NodeIf
	NodeFor // also used for while (Init/Inc nil)
	NodeBlock
	NodeExprStmt
	NodeNop // no-op statement: an uninitialized declarator still occupies a slot in its block's statement chain
	NodeStmtExpr // (stmt expr) GNU-style block-as-expression
	NodeFuncall
	NodeNum
	NodeVar
	NodeMember // struct field access: Lhs.Name
)

// Node is one point in the syntax tree. Fields are populated per Kind;
// unused fields for a given Kind stay at their zero value.
type Node struct {
	Kind NodeKind
	Tok  *lexer.Token // token this node originates from, for diagnostics
	Type *types.Type  // resolved type, set by the parser at construction time

	Lhs *Node
	Rhs *Node

	// NodeIf / NodeFor
	Cond *Node
	Then *Node
	Els  *Node
	Init *Node
	Inc  *Node

	// NodeBlock / NodeStmtExpr body, and NodeFuncall argument list
	Body *Node
	Next *Node // links sibling statements/arguments together

	Val int64 // NodeNum

	Var *Var // NodeVar

	// NodeMember
	MemberName string
	Member     *types.Member

	// NodeFuncall
	FuncName string
}

// NewBinary builds an untyped binary node of the given kind. Callers set
// Type themselves before use (the parser's typing helpers, such as
// newAdd/newSub, do so right after this call).
func NewBinary(kind NodeKind, lhs, rhs *Node, tok *lexer.Token) *Node {
	return &Node{Kind: kind, Lhs: lhs, Rhs: rhs, Tok: tok}
}

// NewUnary builds an untyped unary node.
func NewUnary(kind NodeKind, lhs *Node, tok *lexer.Token) *Node {
	return &Node{Kind: kind, Lhs: lhs, Tok: tok}
}

// NewNum builds a typed integer literal node.
func NewNum(val int64, tok *lexer.Token) *Node {
	return &Node{Kind: NodeNum, Val: val, Type: types.Int, Tok: tok}
}

// NewVarNode builds a typed reference to a declared variable.
func NewVarNode(v *Var, tok *lexer.Token) *Node {
	return &Node{Kind: NodeVar, Var: v, Type: v.Type, Tok: tok}
}

// Function is a parsed function definition: its declared parameters,
// locals (including parameters, in declaration order), and body.
type Function struct {
	Name       string
	Params     []*Var
	Locals     []*Var
	Body       *Node // NodeBlock
	StackSize  int
	ReturnType *types.Type
}

// Program is the root of a parsed translation unit.
type Program struct {
	Globals   []*Var
	Functions []*Function
}
