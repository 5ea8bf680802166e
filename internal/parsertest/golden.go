// Package parsertest provides txtar-fixture-driven golden tests for the
// parser: a fixture bundles a C source file and the expected
// s-expression rendering of its typed AST in one archive, so a reviewer
// can see input and expected output side by side in a single diff.
package parsertest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/SARDONYX-sard/compiler-lesson/internal/ast"
	"github.com/SARDONYX-sard/compiler-lesson/internal/diagnostic"
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/parser"
)

// Case is one parsed golden fixture.
type Case struct {
	Name   string
	Source string
	Want   string
}

// LoadDir reads every *.txtar file in dir, each expected to carry an
// "input.c" file and a "want.txt" file.
func LoadDir(t *testing.T, dir string) []Case {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var cases []Case
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txtar") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		archive, err := txtar.ParseFile(path)
		require.NoError(t, err)

		var c Case
		c.Name = strings.TrimSuffix(e.Name(), ".txtar")
		for _, f := range archive.Files {
			switch f.Name {
			case "input.c":
				c.Source = string(f.Data)
			case "want.txt":
				c.Want = string(f.Data)
			}
		}
		require.NotEmpty(t, c.Source, "%s: missing input.c", path)
		cases = append(cases, c)
	}
	return cases
}

// Parse tokenizes and parses source, failing the test on the first
// fatal diagnostic.
func Parse(t *testing.T, source string) *ast.Program {
	t.Helper()
	sink := diagnostic.NewSink(source)
	var prog *ast.Program
	var err error
	func() {
		defer diagnostic.Recover(&err)
		tokens := lexer.Tokenize(source, sink)
		prog = parser.New(tokens, sink).Parse()
	}()
	require.NoError(t, err)
	return prog
}

// Sexpr renders prog as an s-expression: one "(global name type)" line
// per global first, then one top-level form per function, with its
// statement tree indented underneath.
func Sexpr(prog *ast.Program) string {
	var sb strings.Builder
	for _, g := range prog.Globals {
		fmt.Fprintf(&sb, "(global %s %s)\n", g.Name, g.Type.String())
	}
	for _, fn := range prog.Functions {
		fmt.Fprintf(&sb, "(function %s %s\n", fn.Name, fn.ReturnType.String())
		writeNode(&sb, fn.Body, 1)
		sb.WriteString(")\n")
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *ast.Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s(%s", indent, kindName(n.Kind))
	switch n.Kind {
	case ast.NodeNum:
		fmt.Fprintf(sb, " %d", n.Val)
	case ast.NodeVar:
		fmt.Fprintf(sb, " %s", n.Var.Name)
	case ast.NodeMember:
		fmt.Fprintf(sb, " .%s", n.MemberName)
	case ast.NodeFuncall:
		fmt.Fprintf(sb, " %s", n.FuncName)
	}
	sb.WriteString("\n")
	for _, child := range []*ast.Node{n.Lhs, n.Rhs, n.Cond, n.Then, n.Els, n.Init, n.Inc, n.Body} {
		writeNode(sb, child, depth+1)
	}
	fmt.Fprintf(sb, "%s)\n", indent)
	writeNode(sb, n.Next, depth)
}

func kindName(k ast.NodeKind) string {
	switch k {
	case ast.NodeAdd:
		return "add"
	case ast.NodeSub:
		return "sub"
	case ast.NodeMul:
		return "mul"
	case ast.NodeDiv:
		return "div"
	case ast.NodePtrAdd:
		return "ptr-add"
	case ast.NodePtrSub:
		return "ptr-sub"
	case ast.NodePtrDiff:
		return "ptr-diff"
	case ast.NodeNeg:
		return "neg"
	case ast.NodeEq:
		return "eq"
	case ast.NodeNe:
		return "ne"
	case ast.NodeLt:
		return "lt"
	case ast.NodeLe:
		return "le"
	case ast.NodeAssign:
		return "assign"
	case ast.NodeAddr:
		return "addr"
	case ast.NodeDeref:
		return "deref"
	case ast.NodeReturn:
		return "return"
	case ast.NodeIf:
		return "if"
	case ast.NodeFor:
		return "for"
	case ast.NodeBlock:
		return "block"
	case ast.NodeExprStmt:
		return "expr-stmt"
	case ast.NodeStmtExpr:
		return "stmt-expr"
	case ast.NodeFuncall:
		return "funcall"
	case ast.NodeNum:
		return "num"
	case ast.NodeVar:
		return "var"
	case ast.NodeMember:
		return "member"
	case ast.NodeNop:
		return "nop"
	default:
		return "?"
	}
}
