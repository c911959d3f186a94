// Package wasm reads, patches and assembles WebAssembly binaries. The
// linker uses it to fix up wasm-ld output; tests use the Builder to make
// small modules without a toolchain.
package wasm

import (
	"errors"
	"fmt"
)

// WASM binary format constants
var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6D} // \0asm
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Section IDs
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Value types
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// External kinds, shared by imports and exports
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Opcodes used in init expressions and test bodies
const (
	OpUnreachable byte = 0x00
	OpEnd         byte = 0x0B
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpGlobalGet   byte = 0x23
	OpI32Store    byte = 0x36
	OpI32Const    byte = 0x41
	OpI64Const    byte = 0x42
)

var errTruncated = errors.New("wasm: unexpected end of input")

// encodeLEB128U encodes an unsigned integer as unsigned LEB128.
func encodeLEB128U(value uint64) []byte {
	if value == 0 {
		return []byte{0}
	}
	var result []byte
	for value > 0 {
		b := byte(value & 0x7F)
		value >>= 7
		if value > 0 {
			b |= 0x80
		}
		result = append(result, b)
	}
	return result
}

// encodeLEB128S encodes a signed integer as signed LEB128.
func encodeLEB128S(value int64) []byte {
	var result []byte
	more := true
	for more {
		b := byte(value & 0x7F)
		value >>= 7
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		result = append(result, b)
	}
	return result
}

// decodeLEB128U reads an unsigned LEB128 and returns it with the
// number of bytes consumed.
func decodeLEB128U(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, c := range b {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("wasm: LEB128 value overflows 64 bits")
		}
		result |= uint64(c&0x7F) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errTruncated
}

// decodeLEB128S reads a signed LEB128.
func decodeLEB128S(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	for i, c := range b {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("wasm: LEB128 value overflows 64 bits")
		}
		result |= int64(c&0x7F) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i + 1, nil
		}
	}
	return 0, 0, errTruncated
}

// encodeString encodes a string with its length prefix.
func encodeString(s string) []byte {
	result := encodeLEB128U(uint64(len(s)))
	result = append(result, []byte(s)...)
	return result
}

// encodeSection encodes a section with its ID and length prefix.
func encodeSection(id byte, contents []byte) []byte {
	result := []byte{id}
	result = append(result, encodeLEB128U(uint64(len(contents)))...)
	result = append(result, contents...)
	return result
}

// encodeVector encodes a vector of items with a count prefix.
func encodeVector(count int, items []byte) []byte {
	result := encodeLEB128U(uint64(count))
	result = append(result, items...)
	return result
}

// I32Const returns the instruction pushing v
func I32Const(v int32) []byte {
	return append([]byte{OpI32Const}, encodeLEB128S(int64(v))...)
}

// I64Const returns the instruction pushing v
func I64Const(v int64) []byte {
	return append([]byte{OpI64Const}, encodeLEB128S(v)...)
}

// Call returns the instruction calling function index fn
func Call(fn int) []byte {
	return append([]byte{OpCall}, encodeLEB128U(uint64(fn))...)
}
