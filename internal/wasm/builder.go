package wasm

// FuncType is a function signature
type FuncType struct {
	Params  []byte
	Results []byte
}

func (t FuncType) key() string {
	return string(t.Params) + "|" + string(t.Results)
}

type funcImport struct {
	module, name string
	typ          int
}

type function struct {
	typ    int
	locals []byte
	body   []byte
}

type global struct {
	typ     byte
	mutable bool
	init    []byte
}

type export struct {
	name  string
	kind  byte
	index int
}

type dataSeg struct {
	offset int32
	data   []byte
}

// Builder assembles a module. Imported functions take the first
// function indices, so add imports before functions.
type Builder struct {
	types     []FuncType
	typeCache map[string]int
	imports   []funcImport
	funcs     []function
	globals   []global
	exports   []export
	data      []dataSeg
	memPages  uint32
	hasMemory bool
}

// NewBuilder returns an empty module builder
func NewBuilder() *Builder {
	return &Builder{typeCache: make(map[string]int)}
}

// typeIndex returns the type section index for a given signature, adding it if new.
func (b *Builder) typeIndex(t FuncType) int {
	if idx, ok := b.typeCache[t.key()]; ok {
		return idx
	}
	idx := len(b.types)
	b.types = append(b.types, t)
	b.typeCache[t.key()] = idx
	return idx
}

// Import adds an imported function and returns its index
func (b *Builder) Import(module, name string, t FuncType) int {
	b.imports = append(b.imports, funcImport{module: module, name: name, typ: b.typeIndex(t)})
	return len(b.imports) - 1
}

// Func adds a function with the given body (without the final end)
// and returns its index.
func (b *Builder) Func(t FuncType, locals []byte, body ...[]byte) int {
	var code []byte
	for _, part := range body {
		code = append(code, part...)
	}
	b.funcs = append(b.funcs, function{typ: b.typeIndex(t), locals: locals, body: code})
	return len(b.imports) + len(b.funcs) - 1
}

// Memory declares the module's memory with an initial page count
func (b *Builder) Memory(pages uint32) {
	b.hasMemory = true
	b.memPages = pages
}

// Global adds an i32 or i64 global initialized to a constant
func (b *Builder) Global(typ byte, mutable bool, init int64) int {
	var expr []byte
	if typ == I64 {
		expr = I64Const(init)
	} else {
		expr = I32Const(int32(init))
	}
	b.globals = append(b.globals, global{typ: typ, mutable: mutable, init: expr})
	return len(b.globals) - 1
}

// Export exports an item by kind and index
func (b *Builder) Export(name string, kind byte, index int) {
	b.exports = append(b.exports, export{name: name, kind: kind, index: index})
}

// Data places bytes in memory at offset
func (b *Builder) Data(offset int32, data []byte) {
	b.data = append(b.data, dataSeg{offset: offset, data: data})
}

// Bytes produces the complete WASM binary.
func (b *Builder) Bytes() []byte {
	var out []byte
	out = append(out, magic...)
	out = append(out, version...)
	if len(b.types) > 0 {
		out = append(out, b.emitTypeSection()...)
	}
	if len(b.imports) > 0 {
		out = append(out, b.emitImportSection()...)
	}
	if len(b.funcs) > 0 {
		out = append(out, b.emitFunctionSection()...)
	}
	if b.hasMemory {
		out = append(out, b.emitMemorySection()...)
	}
	if len(b.globals) > 0 {
		out = append(out, b.emitGlobalSection()...)
	}
	if len(b.exports) > 0 {
		out = append(out, b.emitExportSection()...)
	}
	if len(b.funcs) > 0 {
		out = append(out, b.emitCodeSection()...)
	}
	if len(b.data) > 0 {
		out = append(out, b.emitDataSection()...)
	}
	return out
}

func (b *Builder) emitTypeSection() []byte {
	var contents []byte
	for _, sig := range b.types {
		contents = append(contents, 0x60)
		contents = append(contents, encodeLEB128U(uint64(len(sig.Params)))...)
		contents = append(contents, sig.Params...)
		contents = append(contents, encodeLEB128U(uint64(len(sig.Results)))...)
		contents = append(contents, sig.Results...)
	}
	return encodeSection(SectionType, encodeVector(len(b.types), contents))
}

func (b *Builder) emitImportSection() []byte {
	var contents []byte
	for _, imp := range b.imports {
		contents = append(contents, encodeString(imp.module)...)
		contents = append(contents, encodeString(imp.name)...)
		contents = append(contents, KindFunc)
		contents = append(contents, encodeLEB128U(uint64(imp.typ))...)
	}
	return encodeSection(SectionImport, encodeVector(len(b.imports), contents))
}

func (b *Builder) emitFunctionSection() []byte {
	var contents []byte
	for _, fn := range b.funcs {
		contents = append(contents, encodeLEB128U(uint64(fn.typ))...)
	}
	return encodeSection(SectionFunction, encodeVector(len(b.funcs), contents))
}

func (b *Builder) emitMemorySection() []byte {
	contents := []byte{0x00} // no max
	contents = append(contents, encodeLEB128U(uint64(b.memPages))...)
	return encodeSection(SectionMemory, encodeVector(1, contents))
}

func (b *Builder) emitGlobalSection() []byte {
	var contents []byte
	for _, g := range b.globals {
		contents = append(contents, g.typ)
		if g.mutable {
			contents = append(contents, 0x01)
		} else {
			contents = append(contents, 0x00)
		}
		contents = append(contents, g.init...)
		contents = append(contents, OpEnd)
	}
	return encodeSection(SectionGlobal, encodeVector(len(b.globals), contents))
}

func (b *Builder) emitExportSection() []byte {
	var contents []byte
	for _, exp := range b.exports {
		contents = append(contents, encodeString(exp.name)...)
		contents = append(contents, exp.kind)
		contents = append(contents, encodeLEB128U(uint64(exp.index))...)
	}
	return encodeSection(SectionExport, encodeVector(len(b.exports), contents))
}

func (b *Builder) emitCodeSection() []byte {
	var contents []byte
	for _, fn := range b.funcs {
		var code []byte
		// one local group per declared local
		code = append(code, encodeLEB128U(uint64(len(fn.locals)))...)
		for _, l := range fn.locals {
			code = append(code, 0x01, l)
		}
		code = append(code, fn.body...)
		code = append(code, OpEnd)
		contents = append(contents, encodeLEB128U(uint64(len(code)))...)
		contents = append(contents, code...)
	}
	return encodeSection(SectionCode, encodeVector(len(b.funcs), contents))
}

func (b *Builder) emitDataSection() []byte {
	var contents []byte
	for _, seg := range b.data {
		contents = append(contents, 0x00) // active segment, memory 0
		contents = append(contents, I32Const(seg.offset)...)
		contents = append(contents, OpEnd)
		contents = append(contents, encodeLEB128U(uint64(len(seg.data)))...)
		contents = append(contents, seg.data...)
	}
	return encodeSection(SectionData, encodeVector(len(b.data), contents))
}
