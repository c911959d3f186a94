package wasm

import (
	"bytes"
	"fmt"
)

// Section is a top-level section of a binary
type Section struct {
	ID byte
	// Start and End bound the section contents within the binary
	Start, End int
	// Header is where the section id byte sits
	Header int
}

// Import is an imported item
type Import struct {
	Module string
	Name   string
	Kind   byte
}

// Export is an exported item
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// reader decodes a byte slice front to back
type reader struct {
	b   []byte
	pos int
}

func (r *reader) eof() bool { return r.pos >= len(r.b) }

func (r *reader) readByte() (byte, error) {
	if r.eof() {
		return 0, errTruncated
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := decodeLEB128U(r.b[r.pos:])
	if err != nil {
		return 0, err
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("wasm: value %d overflows u32 at %d", v, r.pos)
	}
	r.pos += n
	return uint32(v), nil
}

func (r *reader) s64() (int64, error) {
	v, n, err := decodeLEB128S(r.b[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if uint64(r.pos)+uint64(n) > uint64(len(r.b)) {
		return "", errTruncated
	}
	s := string(r.b[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) limits() error {
	flags, err := r.readByte()
	if err != nil {
		return err
	}
	if _, err := r.u32(); err != nil {
		return err
	}
	if flags&1 != 0 {
		_, err = r.u32()
	}
	return err
}

// Sections splits a binary into its sections
func Sections(bin []byte) ([]Section, error) {
	if len(bin) < 8 || !bytes.Equal(bin[:4], magic) {
		return nil, fmt.Errorf("wasm: not a wasm binary")
	}
	if !bytes.Equal(bin[4:8], version) {
		return nil, fmt.Errorf("wasm: unsupported version % x", bin[4:8])
	}
	r := &reader{b: bin, pos: 8}
	var out []Section
	for !r.eof() {
		header := r.pos
		id, _ := r.readByte()
		size, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("wasm: section at %d: %w", header, err)
		}
		start := r.pos
		end := start + int(size)
		if end > len(bin) {
			return nil, fmt.Errorf("wasm: section %d at %d: %w", id, header, errTruncated)
		}
		out = append(out, Section{ID: id, Start: start, End: end, Header: header})
		r.pos = end
	}
	return out, nil
}

func find(bin []byte, id byte) (*Section, error) {
	secs, err := Sections(bin)
	if err != nil {
		return nil, err
	}
	for i := range secs {
		if secs[i].ID == id {
			return &secs[i], nil
		}
	}
	return nil, nil
}

// Imports lists the imports of a binary
func Imports(bin []byte) ([]Import, error) {
	sec, err := find(bin, SectionImport)
	if err != nil || sec == nil {
		return nil, err
	}
	r := &reader{b: bin[:sec.End], pos: sec.Start}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		var imp Import
		if imp.Module, err = r.name(); err != nil {
			return nil, err
		}
		if imp.Name, err = r.name(); err != nil {
			return nil, err
		}
		if imp.Kind, err = r.readByte(); err != nil {
			return nil, err
		}
		switch imp.Kind {
		case KindFunc:
			_, err = r.u32()
		case KindTable:
			if _, err = r.readByte(); err == nil {
				err = r.limits()
			}
		case KindMemory:
			err = r.limits()
		case KindGlobal:
			if _, err = r.readByte(); err == nil {
				_, err = r.readByte()
			}
		default:
			err = fmt.Errorf("wasm: unknown import kind %#x", imp.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("wasm: import %s.%s: %w", imp.Module, imp.Name, err)
		}
		out = append(out, imp)
	}
	return out, nil
}

// Exports lists the exports of a binary
func Exports(bin []byte) ([]Export, error) {
	sec, err := find(bin, SectionExport)
	if err != nil || sec == nil {
		return nil, err
	}
	r := &reader{b: bin[:sec.End], pos: sec.Start}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		var exp Export
		if exp.Name, err = r.name(); err != nil {
			return nil, err
		}
		if exp.Kind, err = r.readByte(); err != nil {
			return nil, err
		}
		if exp.Index, err = r.u32(); err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

// ExportsFunc reports whether bin exports a function called name
func ExportsFunc(bin []byte, name string) (bool, error) {
	exps, err := Exports(bin)
	if err != nil {
		return false, err
	}
	for _, e := range exps {
		if e.Name == name && e.Kind == KindFunc {
			return true, nil
		}
	}
	return false, nil
}

// FirstGlobal returns the constant the first defined global starts at
func FirstGlobal(bin []byte) (int32, error) {
	_, v, _, err := firstGlobal(bin)
	return v, err
}

// SetFirstGlobal rewrites the i32.const initializer of the first
// defined global, which wasm-ld makes the mutable stack pointer.
func SetFirstGlobal(bin []byte, v int32) ([]byte, error) {
	sec, _, initEnd, err := firstGlobal(bin)
	if err != nil {
		return nil, err
	}
	// count, type and mutability are kept; the init expression is replaced
	r := &reader{b: bin[:sec.End], pos: sec.Start}
	r.u32()
	r.readByte()
	r.readByte()
	var contents []byte
	contents = append(contents, bin[sec.Start:r.pos]...)
	contents = append(contents, I32Const(v)...)
	contents = append(contents, bin[initEnd:sec.End]...)

	out := make([]byte, 0, len(bin)+8)
	out = append(out, bin[:sec.Header]...)
	out = append(out, encodeSection(SectionGlobal, contents)...)
	out = append(out, bin[sec.End:]...)
	return out, nil
}

// firstGlobal locates the first global's i32.const initializer and
// returns its value and where the constant ends. The global must be a
// mutable i32.
func firstGlobal(bin []byte) (*Section, int32, int, error) {
	sec, err := find(bin, SectionGlobal)
	if err != nil {
		return nil, 0, 0, err
	}
	if sec == nil {
		return nil, 0, 0, fmt.Errorf("wasm: module has no global section")
	}
	r := &reader{b: bin[:sec.End], pos: sec.Start}
	count, err := r.u32()
	if err != nil {
		return nil, 0, 0, err
	}
	if count == 0 {
		return nil, 0, 0, fmt.Errorf("wasm: global section is empty")
	}
	typ, err := r.readByte()
	if err != nil {
		return nil, 0, 0, err
	}
	if typ != I32 {
		return nil, 0, 0, fmt.Errorf("wasm: first global has type %#x, want i32", typ)
	}
	mut, err := r.readByte()
	if err != nil {
		return nil, 0, 0, err
	}
	if mut != 1 {
		return nil, 0, 0, fmt.Errorf("wasm: first global is immutable, want the stack pointer")
	}
	op, err := r.readByte()
	if err != nil {
		return nil, 0, 0, err
	}
	if op != OpI32Const {
		return nil, 0, 0, fmt.Errorf("wasm: first global is not initialized by i32.const")
	}
	v, err := r.s64()
	if err != nil {
		return nil, 0, 0, err
	}
	return sec, int32(v), r.pos, nil
}
