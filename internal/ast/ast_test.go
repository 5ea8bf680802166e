package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

func TestScopeDeclareAndLookup(t *testing.T) {
	root := NewScope()
	x := &Var{Name: "x", Type: types.Int, IsLocal: true}
	root.Declare("x", x)

	assert.Same(t, x, root.Lookup("x"))
	assert.Nil(t, root.Lookup("y"))
}

func TestScopeShadowing(t *testing.T) {
	root := NewScope()
	outer := &Var{Name: "x", Type: types.Int, IsLocal: true}
	root.Declare("x", outer)

	inner := root.Enter()
	shadow := &Var{Name: "x", Type: types.Char, IsLocal: true}
	inner.Declare("x", shadow)

	assert.Same(t, shadow, inner.Lookup("x"))

	back := inner.Leave()
	require.Same(t, root, back)
	assert.Same(t, outer, back.Lookup("x"))
}

func TestScopeRedeclareSameScopeOverwrites(t *testing.T) {
	root := NewScope()
	first := &Var{Name: "x", Type: types.Int, IsLocal: true}
	second := &Var{Name: "x", Type: types.Char, IsLocal: true}
	root.Declare("x", first)
	root.Declare("x", second)

	assert.Same(t, second, root.Lookup("x"))
	assert.Len(t, root.Entries, 1)
}

func TestNewNumAndVarNode(t *testing.T) {
	n := NewNum(42, nil)
	assert.Equal(t, NodeNum, n.Kind)
	assert.Same(t, types.Int, n.Type)
	assert.Equal(t, int64(42), n.Val)

	v := &Var{Name: "a", Type: types.PointerTo(types.Int), IsLocal: true}
	vn := NewVarNode(v, nil)
	assert.Equal(t, NodeVar, vn.Kind)
	assert.Same(t, v.Type, vn.Type)
	assert.Same(t, v, vn.Var)
}

func TestProgramAccumulates(t *testing.T) {
	prog := &Program{}
	g := &Var{Name: "g", Type: types.Int}
	prog.Globals = append(prog.Globals, g)
	fn := &Function{Name: "main", ReturnType: types.Int}
	prog.Functions = append(prog.Functions, fn)

	require.Len(t, prog.Globals, 1)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, "main", prog.Functions[0].Name)
}
