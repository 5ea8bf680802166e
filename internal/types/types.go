// Package types implements the small, closed type universe of the
// C-subset compiler: char, int, pointer-to, array-of, and struct.
//
// Types are pure and immutable once built — PointerTo and ArrayOf are
// constructors, not mutators, and the two scalar singletons (Char, Int)
// are shared values, not allocated per use. Struct is the one variant
// whose layout is computed: NewStruct assigns member offsets and the
// size as it builds the type, so Size and GetMember work at once.
package types

import "fmt"

// Kind discriminates the variant a Type holds.
type Kind uint8

const (
	KindChar Kind = iota
	KindInt
	KindPtr
	KindArray
	KindStruct
)

// Type is a tagged variant over the five type shapes the language
// supports. Base is only meaningful for KindPtr and KindArray; Len only
// for KindArray; Members/size only for KindStruct.
type Type struct {
	Kind    Kind
	Base    *Type
	Len     int
	Members []Member
	size    int
}

// Member is one field of a struct, laid out at a fixed byte Offset.
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// Char is the 1-byte integer type.
var Char = &Type{Kind: KindChar, size: 1}

// Int is this compiler's integer type. It is 8 bytes, not 4 — a
// deliberate departure from C's usual int so that int and pointer
// arithmetic share a register width; sizeof and struct layout in this
// compiler both depend on that width, so it is not "corrected" to 4.
var Int = &Type{Kind: KindInt, size: 8}

// PointerTo constructs a pointer-to-base type. Pointers are always 8
// bytes, independent of what they point to.
func PointerTo(base *Type) *Type {
	return &Type{Kind: KindPtr, Base: base, size: 8}
}

// ArrayOf constructs a length-n array of base. Its size is the base
// size times the element count; there is no padding between elements.
func ArrayOf(base *Type, n int) *Type {
	return &Type{Kind: KindArray, Base: base, Len: n, size: base.Size() * n}
}

// NewStruct builds a struct type from members in declaration order and
// computes their offsets immediately (no deferred layout step is
// exposed to callers — a Struct is only ever handed back fully laid
// out).
func NewStruct(members []Member) *Type {
	t := &Type{Kind: KindStruct, Members: members}
	t.computeLayout()
	return t
}

// computeLayout assigns each member a byte offset in declaration order,
// starting at 0, with no inter-member or trailing padding. The struct's
// size is the end offset of its last member (0 for an empty struct).
func (t *Type) computeLayout() {
	offset := 0
	for i := range t.Members {
		t.Members[i].Offset = offset
		offset += t.Members[i].Type.Size()
	}
	t.size = offset
}

// Size returns the type's size in bytes.
func (t *Type) Size() int {
	return t.size
}

// IsInteger reports whether t is char or int — the only types integer
// arithmetic operates on directly.
func (t *Type) IsInteger() bool {
	return t.Kind == KindChar || t.Kind == KindInt
}

// HasBase reports whether t has a base type (pointer or array). Both
// participate in pointer arithmetic and decay the same way.
func (t *Type) HasBase() bool {
	return t.Kind == KindPtr || t.Kind == KindArray
}

// GetMember returns the member named name, or nil if there is none.
func (t *Type) GetMember(name string) *Member {
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i]
		}
	}
	return nil
}

// String renders the type the way a diagnostic message would reference
// it, e.g. "int", "char*", "int[3]", "struct{...}".
func (t *Type) String() string {
	switch t.Kind {
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindPtr:
		return t.Base.String() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Base.String(), t.Len)
	case KindStruct:
		return "struct{...}"
	default:
		return "?"
	}
}
