package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARDONYX-sard/compiler-lesson/internal/ast"
	"github.com/SARDONYX-sard/compiler-lesson/internal/diagnostic"
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

// parseSource tokenizes and parses source, failing the test (via the
// diagnostic recover boundary) on the first fatal error.
func parseSource(t *testing.T, source string) *ast.Program {
	t.Helper()
	sink := diagnostic.NewSink(source)
	var prog *ast.Program
	var err error
	func() {
		defer diagnostic.Recover(&err)
		tokens := lexer.Tokenize(source, sink)
		prog = New(tokens, sink).Parse()
	}()
	require.NoError(t, err)
	return prog
}

// expectParseError asserts that source triggers a fatal diagnostic whose
// message contains substring.
func expectParseError(t *testing.T, source, substring string) {
	t.Helper()
	t.Run(source, func(t *testing.T) {
		sink := diagnostic.NewSink(source)
		var err error
		func() {
			defer diagnostic.Recover(&err)
			tokens := lexer.Tokenize(source, sink)
			New(tokens, sink).Parse()
		}()
		require.Error(t, err)
		assert.Contains(t, err.Error(), substring)
	})
}

func TestParseMainReturningConstant(t *testing.T) {
	prog := parseSource(t, "int main() { return 1+2*3; }")
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.Same(t, types.Int, fn.ReturnType)

	require.NotNil(t, fn.Body)
	stmts := fn.Body.Body
	require.NotNil(t, stmts)
	assert.Equal(t, ast.NodeReturn, stmts.Kind)

	add := stmts.Lhs
	require.Equal(t, ast.NodeAdd, add.Kind)
	assert.Equal(t, int64(1), add.Lhs.Val)
	mul := add.Rhs
	assert.Equal(t, ast.NodeMul, mul.Kind)
	assert.Equal(t, int64(2), mul.Lhs.Val)
	assert.Equal(t, int64(3), mul.Rhs.Val)
}

func TestParseArrayIndexingDesugarsToDeref(t *testing.T) {
	prog := parseSource(t, "int main() { int a[3]; a[1] = 5; return a[1]; }")
	fn := prog.Functions[0]

	var localA *ast.Var
	for _, v := range fn.Locals {
		if v.Name == "a" {
			localA = v
		}
	}
	require.NotNil(t, localA)
	assert.Equal(t, 24, localA.Type.Size())

	// second statement: a[1] = 5, desugared to *(a+1) = 5
	assign := fn.Body.Body.Next.Lhs
	require.Equal(t, ast.NodeAssign, assign.Kind)
	require.Equal(t, ast.NodeDeref, assign.Lhs.Kind)
	add := assign.Lhs.Lhs
	// array-to-pointer decay yields PtrAdd with the unscaled index as
	// Rhs; codegen scales by the element size (8 for int) at emission.
	require.Equal(t, ast.NodePtrAdd, add.Kind)
	assert.Equal(t, int64(1), add.Rhs.Val)
}

func TestParseStructMemberAccess(t *testing.T) {
	src := `
	int main() {
		struct { int x; char y; } s;
		s.x = 3;
		return s.y;
	}`
	prog := parseSource(t, src)
	fn := prog.Functions[0]

	assignStmt := fn.Body.Body.Next.Lhs
	member := assignStmt.Lhs
	require.Equal(t, ast.NodeMember, member.Kind)
	assert.Equal(t, "x", member.MemberName)
	assert.Equal(t, 0, member.Member.Offset)

	ret := fn.Body.Body.Next.Next
	require.Equal(t, ast.NodeReturn, ret.Kind)
	yMember := ret.Lhs
	assert.Equal(t, "y", yMember.MemberName)
	assert.Equal(t, 8, yMember.Member.Offset)
}

func TestParseForLoop(t *testing.T) {
	src := "int main() { int i; int sum; sum=0; for (i=0; i<10; i=i+1) sum=sum+i; return sum; }"
	prog := parseSource(t, src)
	fn := prog.Functions[0]

	var forNode *ast.Node
	for n := fn.Body.Body; n != nil; n = n.Next {
		if n.Kind == ast.NodeFor {
			forNode = n
			break
		}
	}
	require.NotNil(t, forNode)
	require.NotNil(t, forNode.Init)
	require.NotNil(t, forNode.Cond)
	require.NotNil(t, forNode.Inc)
	assert.Equal(t, ast.NodeLt, forNode.Cond.Kind)
}

func TestParseGlobalStringLiteralAndSizeof(t *testing.T) {
	src := `
	int main() {
		return sizeof("hello");
	}`
	prog := parseSource(t, src)
	fn := prog.Functions[0]
	ret := fn.Body.Body
	require.Equal(t, ast.NodeReturn, ret.Kind)
	require.Equal(t, ast.NodeNum, ret.Lhs.Kind)
	assert.Equal(t, int64(6), ret.Lhs.Val) // "hello" + NUL
}

func TestParseGlobalVariableResolution(t *testing.T) {
	src := "int g; int main() { g = 42; return g; }"
	prog := parseSource(t, src)
	require.Len(t, prog.Globals, 1)
	assert.Equal(t, "g", prog.Globals[0].Name)
	assert.False(t, prog.Globals[0].IsLocal)

	fn := prog.Functions[0]
	ret := fn.Body.Body.Next
	assert.Equal(t, ast.NodeReturn, ret.Kind)
	assert.Same(t, prog.Globals[0], ret.Lhs.Var)
}

func TestRelationalNormalization(t *testing.T) {
	prog := parseSource(t, "int main() { return 1 > 2; }")
	ret := prog.Functions[0].Body.Body
	cmp := ret.Lhs
	require.Equal(t, ast.NodeLt, cmp.Kind)
	// "1 > 2" normalizes to "2 < 1"
	assert.Equal(t, int64(2), cmp.Lhs.Val)
	assert.Equal(t, int64(1), cmp.Rhs.Val)
}

func TestAddressOfHasPointerType(t *testing.T) {
	src := "int main() { int x; int *p; p = &x; return *(p+0); }"
	prog := parseSource(t, src)
	fn := prog.Functions[0]
	// &x has pointer type
	assignP := fn.Body.Body.Next.Next.Lhs
	require.Equal(t, ast.NodeAssign, assignP.Kind)
	assert.Equal(t, types.KindPtr, assignP.Rhs.Type.Kind)
}

func TestPointerArithmeticNodeKinds(t *testing.T) {
	src := "int main() { int a[3]; int *p; int *q; p = &a[0]; q = &a[2]; return (q-p) + (p-1); }"
	prog := parseSource(t, src)
	fn := prog.Functions[0]

	ret := fn.Body.Body.Next.Next.Next.Next.Next
	require.Equal(t, ast.NodeReturn, ret.Kind)
	// (q-p) + (p-1): int plus pointer, so the outer node is a PtrAdd with
	// its operands swapped: the PtrSub (a pointer) is Lhs, the PtrDiff Rhs.
	outer := ret.Lhs
	require.Equal(t, ast.NodePtrAdd, outer.Kind)

	ptrDiff := outer.Rhs
	require.Equal(t, ast.NodePtrDiff, ptrDiff.Kind)
	assert.Same(t, types.Int, ptrDiff.Type)

	ptrSub := outer.Lhs
	require.Equal(t, ast.NodePtrSub, ptrSub.Kind)
	assert.True(t, ptrSub.Lhs.Type.HasBase())
	assert.Equal(t, int64(1), ptrSub.Rhs.Val)
}

func TestParseErrorUndeclaredIdentifier(t *testing.T) {
	expectParseError(t, "int main() { return x; }", "undeclared identifier")
}

func TestParseErrorInvalidDereference(t *testing.T) {
	expectParseError(t, "int main() { int x; return *x; }", "invalid pointer dereference")
}

func TestParseErrorUnknownMember(t *testing.T) {
	expectParseError(t, "int main() { struct { int x; } s; return s.z; }", `no member named "z"`)
}
