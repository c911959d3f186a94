// Package ir is a small SSA intermediate representation that prints as
// textual LLVM IR. The code generator builds modules with it, the
// backend hands the printed text to the LLVM tools, and the interp
// subpackage executes it directly in tests.
package ir

import (
	"fmt"
	"strings"
)

// Type is an IR type
type Type interface {
	String() string
	isType()
}

// IntType is an integer of arbitrary bit width
type IntType struct {
	Bits int
}

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }
func (t *IntType) isType()        {}

// PointerType is the opaque pointer type
type PointerType struct{}

func (t *PointerType) String() string { return "ptr" }
func (t *PointerType) isType()        {}

// VoidType is the return type of functions without results
type VoidType struct{}

func (t *VoidType) String() string { return "void" }
func (t *VoidType) isType()        {}

// StructType is a literal struct type, used for multi-value returns
type StructType struct {
	Fields []Type
}

func (t *StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
func (t *StructType) isType() {}

// ArrayType is a fixed-length array
type ArrayType struct {
	Len  int
	Elem Type
}

func (t *ArrayType) String() string { return fmt.Sprintf("[%d x %s]", t.Len, t.Elem) }
func (t *ArrayType) isType()        {}

var (
	I1   = &IntType{Bits: 1}
	I8   = &IntType{Bits: 8}
	I32  = &IntType{Bits: 32}
	I64  = &IntType{Bits: 64}
	I256 = &IntType{Bits: 256}
	I512 = &IntType{Bits: 512}
	Ptr  = &PointerType{}
	Void = &VoidType{}

	// Bytes32 is a 32-byte big-endian word held by value
	Bytes32 = &ArrayType{Len: 32, Elem: I8}
)

// Int returns the integer type with the given width
func Int(bits int) *IntType {
	switch bits {
	case 1:
		return I1
	case 8:
		return I8
	case 32:
		return I32
	case 64:
		return I64
	case 256:
		return I256
	case 512:
		return I512
	}
	return &IntType{Bits: bits}
}

// Struct returns a literal struct type
func Struct(fields ...Type) *StructType {
	return &StructType{Fields: fields}
}

// Equal reports whether two types are structurally identical
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// IsInt reports whether t is an integer type
func IsInt(t Type) bool {
	_, ok := t.(*IntType)
	return ok
}

// PointerSize is the size of a pointer on wasm32
const PointerSize = 4

// SizeOf returns the in-memory size in bytes. Integers occupy their
// width rounded up to whole bytes, structs are packed.
func SizeOf(t Type) int {
	switch t := t.(type) {
	case *IntType:
		return (t.Bits + 7) / 8
	case *PointerType:
		return PointerSize
	case *ArrayType:
		return t.Len * SizeOf(t.Elem)
	case *StructType:
		n := 0
		for _, f := range t.Fields {
			n += SizeOf(f)
		}
		return n
	}
	return 0
}
