// Package codegen emits x86-64 AT&T-syntax assembly for a typed
// *ast.Program.
//
// It is a stack machine in the chibicc mold: every expression leaves its
// result in %rax, and anything that needs to survive a nested
// evaluation is pushed/popped rather than kept in a register allocator.
// This is deliberately the simplest code that makes the end-to-end
// scenarios runnable — there is no instruction selection, no register
// allocation (intermediate values live in %rax, with %rdi as the only
// second-operand register, and on the stack), and no floating point.
package codegen

import (
	"fmt"
	"strings"

	"github.com/SARDONYX-sard/compiler-lesson/internal/ast"
	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

// argRegisters holds the System V AMD64 integer argument registers, in
// order, for up to 6 arguments.
var argRegisters = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// Generator accumulates emitted assembly text for one translation unit.
type Generator struct {
	out      strings.Builder
	labelSeq int
	curFunc  string
}

// New creates an empty Generator.
func New() *Generator {
	return &Generator{}
}

// Generate lays out every global, assigns stack offsets to every
// function's locals, and emits the full .s text for prog.
func Generate(prog *ast.Program) string {
	g := New()
	for _, fn := range prog.Functions {
		g.assignLvarOffsets(fn)
	}
	g.emitData(prog.Globals)
	g.emitText(prog.Functions)
	return g.out.String()
}

func (g *Generator) emitf(format string, args ...interface{}) {
	fmt.Fprintf(&g.out, format, args...)
}

// assignLvarOffsets lays out a function's locals on the stack in
// declaration order, each at the next 8-byte-aligned slot below the
// previous one, and records the total frame size (itself rounded up to
// 16 bytes to keep %rsp aligned across calls).
func (g *Generator) assignLvarOffsets(fn *ast.Function) {
	offset := 0
	for _, v := range fn.Locals {
		offset += v.Type.Size()
		offset = align(offset, 8)
		v.Offset = -offset
	}
	fn.StackSize = align(offset, 16)
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// ----------------------------------------------------------------------------
// Data section
// ----------------------------------------------------------------------------

func (g *Generator) emitData(globals []*ast.Var) {
	if len(globals) == 0 {
		return
	}
	g.emitf(".data\n")
	for _, v := range globals {
		g.emitf("%s:\n", v.Name)
		if v.Contents != nil {
			for _, b := range v.Contents {
				g.emitf("  .byte %d\n", b)
			}
			continue
		}
		g.emitf("  .zero %d\n", v.Type.Size())
	}
}

// ----------------------------------------------------------------------------
// Text section
// ----------------------------------------------------------------------------

func (g *Generator) emitText(functions []*ast.Function) {
	if len(functions) == 0 {
		return
	}
	g.emitf(".text\n")
	for _, fn := range functions {
		g.curFunc = fn.Name
		g.emitf(".globl %s\n", fn.Name)
		g.emitf("%s:\n", fn.Name)

		g.emitf("  push %%rbp\n")
		g.emitf("  mov %%rsp, %%rbp\n")
		g.emitf("  sub $%d, %%rsp\n", fn.StackSize)

		for i, p := range fn.Params {
			if i < len(argRegisters) {
				g.storeParam(p, argRegisters[i])
			}
		}

		for n := fn.Body.Body; n != nil; n = n.Next {
			g.genStmt(n)
		}

		g.emitf(".L.return.%s:\n", fn.Name)
		g.emitf("  mov %%rbp, %%rsp\n")
		g.emitf("  pop %%rbp\n")
		g.emitf("  ret\n")
	}
}

func (g *Generator) storeParam(v *ast.Var, reg string) {
	switch v.Type.Size() {
	case 1:
		g.emitf("  mov %s, %d(%%rbp)\n", byteReg(reg), v.Offset)
	default:
		g.emitf("  mov %s, %d(%%rbp)\n", reg, v.Offset)
	}
}

func byteReg(reg string) string {
	switch reg {
	case "%rdi":
		return "%dil"
	case "%rsi":
		return "%sil"
	case "%rdx":
		return "%dl"
	case "%rcx":
		return "%cl"
	case "%r8":
		return "%r8b"
	case "%r9":
		return "%r9b"
	default:
		return reg
	}
}

func (g *Generator) newLabel() int {
	g.labelSeq++
	return g.labelSeq
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (g *Generator) genStmt(n *ast.Node) {
	switch n.Kind {
	case ast.NodeExprStmt:
		if n.Lhs != nil {
			g.genExpr(n.Lhs)
		}

	case ast.NodeReturn:
		g.genExpr(n.Lhs)
		g.emitf("  jmp .L.return.%s\n", g.curFunc)

	case ast.NodeBlock:
		for s := n.Body; s != nil; s = s.Next {
			g.genStmt(s)
		}

	case ast.NodeNop:
		// Uninitialized declaration: nothing to emit.

	case ast.NodeIf:
		seq := g.newLabel()
		g.genExpr(n.Cond)
		g.emitf("  cmp $0, %%rax\n")
		if n.Els != nil {
			g.emitf("  je .L.else.%d\n", seq)
			g.genStmt(n.Then)
			g.emitf("  jmp .L.end.%d\n", seq)
			g.emitf(".L.else.%d:\n", seq)
			g.genStmt(n.Els)
		} else {
			g.emitf("  je .L.end.%d\n", seq)
			g.genStmt(n.Then)
		}
		g.emitf(".L.end.%d:\n", seq)

	case ast.NodeFor:
		seq := g.newLabel()
		if n.Init != nil {
			g.genStmt(n.Init)
		}
		g.emitf(".L.begin.%d:\n", seq)
		if n.Cond != nil {
			g.genExpr(n.Cond)
			g.emitf("  cmp $0, %%rax\n")
			g.emitf("  je .L.end.%d\n", seq)
		}
		g.genStmt(n.Then)
		if n.Inc != nil {
			g.genStmt(n.Inc)
		}
		g.emitf("  jmp .L.begin.%d\n", seq)
		g.emitf(".L.end.%d:\n", seq)

	default:
		panic(fmt.Sprintf("codegen: %v is not a statement", n.Kind))
	}
}

// ----------------------------------------------------------------------------
// Addresses
// ----------------------------------------------------------------------------

// genAddr leaves the address of an lvalue in %rax.
func (g *Generator) genAddr(n *ast.Node) {
	switch n.Kind {
	case ast.NodeVar:
		if n.Var.IsLocal {
			g.emitf("  lea %d(%%rbp), %%rax\n", n.Var.Offset)
		} else {
			g.emitf("  lea %s(%%rip), %%rax\n", n.Var.Name)
		}
	case ast.NodeDeref:
		g.genExpr(n.Lhs)
	case ast.NodeMember:
		g.genAddr(n.Lhs)
		g.emitf("  add $%d, %%rax\n", n.Member.Offset)
	default:
		panic(fmt.Sprintf("codegen: %v is not an lvalue", n.Kind))
	}
}

func (g *Generator) load(ty *types.Type) {
	if ty.Kind == types.KindArray || ty.Kind == types.KindStruct {
		// An array or struct value IS its address; nothing to load.
		return
	}
	if ty.Size() == 1 {
		g.emitf("  movsbq (%%rax), %%rax\n")
	} else {
		g.emitf("  mov (%%rax), %%rax\n")
	}
}

func (g *Generator) store(ty *types.Type) {
	g.emitf("  pop %%rdi\n")
	if ty.Size() == 1 {
		g.emitf("  mov %%al, (%%rdi)\n")
	} else {
		g.emitf("  mov %%rax, (%%rdi)\n")
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// genExpr leaves n's value in %rax.
func (g *Generator) genExpr(n *ast.Node) {
	switch n.Kind {
	case ast.NodeNum:
		g.emitf("  mov $%d, %%rax\n", n.Val)
		return

	case ast.NodeNeg:
		g.genExpr(n.Lhs)
		g.emitf("  neg %%rax\n")
		return

	case ast.NodeVar, ast.NodeMember:
		g.genAddr(n)
		g.load(n.Type)
		return

	case ast.NodeDeref:
		g.genExpr(n.Lhs)
		g.load(n.Type)
		return

	case ast.NodeAddr:
		g.genAddr(n.Lhs)
		return

	case ast.NodeAssign:
		g.genAddr(n.Lhs)
		g.emitf("  push %%rax\n")
		g.genExpr(n.Rhs)
		g.store(n.Type)
		return

	case ast.NodeStmtExpr:
		for s := n.Body; s != nil; s = s.Next {
			g.genStmt(s)
		}
		return

	case ast.NodeFuncall:
		var argc int
		for a := n.Body; a != nil; a = a.Next {
			g.genExpr(a)
			g.emitf("  push %%rax\n")
			argc++
		}
		for i := argc - 1; i >= 0; i-- {
			g.emitf("  pop %s\n", argRegisters[i])
		}
		g.emitf("  mov $0, %%al\n")
		g.emitf("  call %s\n", n.FuncName)
		return
	}

	g.genExpr(n.Rhs)
	g.emitf("  push %%rax\n")
	g.genExpr(n.Lhs)
	g.emitf("  pop %%rdi\n")

	switch n.Kind {
	case ast.NodeAdd:
		g.emitf("  add %%rdi, %%rax\n")
	case ast.NodeSub:
		g.emitf("  sub %%rdi, %%rax\n")
	case ast.NodeMul:
		g.emitf("  imul %%rdi, %%rax\n")
	case ast.NodeDiv:
		g.emitf("  cqo\n")
		g.emitf("  idiv %%rdi\n")
	case ast.NodePtrAdd:
		g.emitf("  imul $%d, %%rdi\n", n.Lhs.Type.Base.Size())
		g.emitf("  add %%rdi, %%rax\n")
	case ast.NodePtrSub:
		g.emitf("  imul $%d, %%rdi\n", n.Lhs.Type.Base.Size())
		g.emitf("  sub %%rdi, %%rax\n")
	case ast.NodePtrDiff:
		g.emitf("  sub %%rdi, %%rax\n")
		g.emitf("  cqo\n")
		g.emitf("  mov $%d, %%rdi\n", n.Lhs.Type.Base.Size())
		g.emitf("  idiv %%rdi\n")
	case ast.NodeEq:
		g.emitf("  cmp %%rdi, %%rax\n")
		g.emitf("  sete %%al\n")
		g.emitf("  movzb %%al, %%rax\n")
	case ast.NodeNe:
		g.emitf("  cmp %%rdi, %%rax\n")
		g.emitf("  setne %%al\n")
		g.emitf("  movzb %%al, %%rax\n")
	case ast.NodeLt:
		g.emitf("  cmp %%rdi, %%rax\n")
		g.emitf("  setl %%al\n")
		g.emitf("  movzb %%al, %%rax\n")
	case ast.NodeLe:
		g.emitf("  cmp %%rdi, %%rax\n")
		g.emitf("  setle %%al\n")
		g.emitf("  movzb %%al, %%rax\n")
	default:
		panic(fmt.Sprintf("codegen: %v is not an expression", n.Kind))
	}
}
