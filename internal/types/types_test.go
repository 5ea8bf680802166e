package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarSizes(t *testing.T) {
	assert.Equal(t, 1, Char.Size())
	assert.Equal(t, 8, Int.Size())
	assert.True(t, Char.IsInteger())
	assert.True(t, Int.IsInteger())
}

func TestPointerAndArray(t *testing.T) {
	p := PointerTo(Int)
	assert.Equal(t, 8, p.Size())
	assert.False(t, p.IsInteger())
	assert.True(t, p.HasBase())
	assert.Same(t, Int, p.Base)

	a := ArrayOf(Int, 3)
	assert.Equal(t, 24, a.Size())
	assert.True(t, a.HasBase())
	assert.False(t, a.IsInteger())

	nested := ArrayOf(PointerTo(Char), 4)
	assert.Equal(t, 32, nested.Size())
}

func TestStructLayoutNoPadding(t *testing.T) {
	// struct { int x; char y; }
	s := NewStruct([]Member{
		{Name: "x", Type: Int},
		{Name: "y", Type: Char},
	})
	require.Len(t, s.Members, 2)
	assert.Equal(t, 0, s.Members[0].Offset)
	assert.Equal(t, 8, s.Members[1].Offset)
	assert.Equal(t, 9, s.Size())

	m := s.GetMember("y")
	require.NotNil(t, m)
	assert.Equal(t, 8, m.Offset)
	assert.Nil(t, s.GetMember("z"))
}

func TestStructLayoutMonotonic(t *testing.T) {
	s := NewStruct([]Member{
		{Name: "a", Type: Char},
		{Name: "b", Type: Char},
		{Name: "c", Type: Int},
		{Name: "d", Type: ArrayOf(Char, 3)},
	})
	prev := -1
	sum := 0
	for _, m := range s.Members {
		assert.Greater(t, m.Offset, prev)
		prev = m.Offset
		sum += m.Type.Size()
	}
	assert.Equal(t, sum, s.Size())
}

func TestStringRendering(t *testing.T) {
	assert.Equal(t, "int", Int.String())
	assert.Equal(t, "char*", PointerTo(Char).String())
	assert.Equal(t, "int[3]", ArrayOf(Int, 3).String())
}
