package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARDONYX-sard/compiler-lesson/internal/diagnostic"
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/parser"
)

func compile(t *testing.T, source string) string {
	t.Helper()
	sink := diagnostic.NewSink(source)
	var asm string
	var err error
	func() {
		defer diagnostic.Recover(&err)
		tokens := lexer.Tokenize(source, sink)
		prog := parser.New(tokens, sink).Parse()
		asm = Generate(prog)
	}()
	require.NoError(t, err)
	return asm
}

func TestGenerateEmitsFunctionLabel(t *testing.T) {
	asm := compile(t, "int main() { return 1+2*3; }")
	assert.Contains(t, asm, ".globl main")
	assert.Contains(t, asm, "main:")
	assert.Contains(t, asm, "ret")
}

func TestGenerateEmitsDataForGlobals(t *testing.T) {
	asm := compile(t, "int g; int main() { g = 1; return g; }")
	assert.Contains(t, asm, ".data")
	assert.Contains(t, asm, "g:")
	assert.Contains(t, asm, ".zero 8")
}

func TestGenerateEmitsStringBytes(t *testing.T) {
	asm := compile(t, `int main() { return sizeof("hi"); }`)
	assert.Contains(t, asm, ".byte 104") // 'h'
	assert.Contains(t, asm, ".byte 105") // 'i'
	assert.Contains(t, asm, ".byte 0")
}

func TestAssignLvarOffsetsAreDistinctAndAligned(t *testing.T) {
	asm := compile(t, "int main() { int a; char b; int c; return a+b+c; }")
	assert.Contains(t, asm, "sub $")
	// a: 8 bytes at -8; b: 1 byte rounded to the next 8-byte slot, -16;
	// c: 8 bytes at -24; frame 24 rounded up to 16 is 32.
	assert.Contains(t, asm, "lea -8(%rbp), %rax")
	assert.Contains(t, asm, "lea -16(%rbp), %rax")
	assert.Contains(t, asm, "lea -24(%rbp), %rax")
	assert.Contains(t, asm, "sub $32, %rsp")
}

func TestGenerateScalesPointerArithmeticByElementSize(t *testing.T) {
	asm := compile(t, "int main() { int a[3]; return a[1]; }")
	// array indexing lowers to a PtrAdd; codegen scales the unscaled
	// index by the element size (8 for int) with an imul, not the
	// parser emitting a synthetic multiply node.
	assert.Contains(t, asm, "imul $8, %rdi")
}
