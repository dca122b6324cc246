// Package wasmbuild assembles small core WebAssembly modules in memory.
// It is used to build guest fixtures without an external toolchain.
package wasmbuild

import (
	"encoding/binary"
	"math"
)

// Value types
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// Section ids
const (
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionCode   = 10
	sectionData   = 11
)

// Export kinds
const (
	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03
)

// Opcodes
const (
	OpUnreachable = 0x00
	OpIf          = 0x04
	OpElse        = 0x05
	OpEnd         = 0x0B
	OpCall        = 0x10
	OpDrop        = 0x1A
	OpLocalGet    = 0x20
	OpLocalSet    = 0x21
	OpLocalTee    = 0x22
	OpGlobalGet   = 0x23
	OpGlobalSet   = 0x24
	OpI32Load     = 0x28
	OpF64Load     = 0x2B
	OpI32Load8U   = 0x2D
	OpI32Store    = 0x36
	OpF64Store    = 0x39
	OpI32Const    = 0x41
	OpF64Const    = 0x44
	OpI32Add      = 0x6A
	OpI32Mul      = 0x6C
	OpI32And      = 0x71
	OpF64Add      = 0xA0
)

type funcType struct {
	params  []byte
	results []byte
}

type function struct {
	typeIdx uint32
	locals  []byte
	body    []byte
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type global struct {
	valType byte
	mutable bool
	init    int32
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Module collects the parts of a module. Imports must be added before any
// function so that function indices are stable.
type Module struct {
	types    []funcType
	imports  []importFunc
	funcs    []function
	globals  []global
	exports  []export
	data     []segment
	memPages uint32
	hasMem   bool
}

// New returns an empty module.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []byte) uint32 {
	for i, t := range m.types {
		if string(t.params) == string(params) && string(t.results) == string(results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbuild: imports must precede functions")
	}
	m.imports = append(m.imports, importFunc{
		module:  module,
		name:    name,
		typeIdx: m.typeIndex(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func adds a function. A non-empty name exports it. locals lists the
// types of extra locals after the parameters; body must not include the
// final end opcode.
func (m *Module) Func(name string, params, results, locals []byte, body ...[]byte) uint32 {
	var code []byte
	for _, part := range body {
		code = append(code, part...)
	}
	m.funcs = append(m.funcs, function{
		typeIdx: m.typeIndex(params, results),
		locals:  locals,
		body:    code,
	})
	idx := uint32(len(m.imports) + len(m.funcs) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	}
	return idx
}

// Export exports function idx under another name.
func (m *Module) Export(name string, idx uint32) {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
}

// Memory declares linear memory with the given minimum page count and
// exports it as "memory".
func (m *Module) Memory(pages uint32) {
	m.memPages = pages
	m.hasMem = true
	m.exports = append(m.exports, export{name: "memory", kind: kindMemory})
}

// Global adds an i32 global initialized to init. A non-empty name exports it.
func (m *Module) Global(name string, mutable bool, init int32) uint32 {
	m.globals = append(m.globals, global{valType: I32, mutable: mutable, init: init})
	idx := uint32(len(m.globals) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindGlobal, idx: idx})
	}
	return idx
}

// Data places bytes at offset in memory 0 at instantiation.
func (m *Module) Data(offset uint32, data []byte) {
	m.data = append(m.data, segment{offset: offset, data: data})
}

// Bytes encodes the module in the binary format.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	sec := &buffer{}
	sec.u32(uint32(len(m.types)))
	for _, t := range m.types {
		sec.put(0x60)
		sec.vec(t.params)
		sec.vec(t.results)
	}
	out = appendSection(out, sectionType, sec)

	if len(m.imports) > 0 {
		sec = &buffer{}
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.put(kindFunc)
			sec.u32(imp.typeIdx)
		}
		out = appendSection(out, sectionImport, sec)
	}

	sec = &buffer{}
	sec.u32(uint32(len(m.funcs)))
	for _, f := range m.funcs {
		sec.u32(f.typeIdx)
	}
	out = appendSection(out, sectionFunc, sec)

	if m.hasMem {
		sec = &buffer{}
		sec.u32(1)
		sec.put(0x00)
		sec.u32(m.memPages)
		out = appendSection(out, sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec = &buffer{}
		sec.u32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.put(g.valType)
			if g.mutable {
				sec.put(0x01)
			} else {
				sec.put(0x00)
			}
			sec.put(OpI32Const)
			sec.i32(g.init)
			sec.put(OpEnd)
		}
		out = appendSection(out, sectionGlobal, sec)
	}

	sec = &buffer{}
	sec.u32(uint32(len(m.exports)))
	for _, e := range m.exports {
		sec.name(e.name)
		sec.put(e.kind)
		sec.u32(e.idx)
	}
	out = appendSection(out, sectionExport, sec)

	sec = &buffer{}
	sec.u32(uint32(len(m.funcs)))
	for _, f := range m.funcs {
		body := &buffer{}
		body.u32(uint32(len(f.locals)))
		for _, l := range f.locals {
			body.u32(1)
			body.put(l)
		}
		body.write(f.body)
		body.put(OpEnd)
		sec.u32(uint32(len(body.b)))
		sec.write(body.b)
	}
	out = appendSection(out, sectionCode, sec)

	if len(m.data) > 0 {
		sec = &buffer{}
		sec.u32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.put(0x00)
			sec.put(OpI32Const)
			sec.i32(int32(d.offset))
			sec.put(OpEnd)
			sec.u32(uint32(len(d.data)))
			sec.write(d.data)
		}
		out = appendSection(out, sectionData, sec)
	}

	return out
}

func appendSection(out []byte, id byte, content *buffer) []byte {
	hdr := &buffer{}
	hdr.put(id)
	hdr.u32(uint32(len(content.b)))
	out = append(out, hdr.b...)
	return append(out, content.b...)
}

type buffer struct {
	b []byte
}

func (b *buffer) put(v byte) { b.b = append(b.b, v) }
func (b *buffer) write(v []byte) { b.b = append(b.b, v...) }

func (b *buffer) vec(v []byte) {
	b.u32(uint32(len(v)))
	b.write(v)
}

func (b *buffer) name(s string) {
	b.u32(uint32(len(s)))
	b.write([]byte(s))
}

func (b *buffer) u32(v uint32) { b.b = AppendU32(b.b, v) }
func (b *buffer) i32(v int32) { b.b = AppendI32(b.b, v) }

// AppendU32 appends the unsigned LEB128 encoding of v.
func AppendU32(dst []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			return dst
		}
	}
}

// AppendI32 appends the signed LEB128 encoding of v.
func AppendI32(dst []byte, v int32) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}

// Instruction helpers. Each returns the encoded instruction.

func I32Const(v int32) []byte { return AppendI32([]byte{OpI32Const}, v) }

func F64Const(v float64) []byte {
	out := []byte{OpF64Const, 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}

func LocalGet(i uint32) []byte { return AppendU32([]byte{OpLocalGet}, i) }
func LocalSet(i uint32) []byte { return AppendU32([]byte{OpLocalSet}, i) }
func LocalTee(i uint32) []byte { return AppendU32([]byte{OpLocalTee}, i) }
func GlobalGet(i uint32) []byte { return AppendU32([]byte{OpGlobalGet}, i) }
func GlobalSet(i uint32) []byte { return AppendU32([]byte{OpGlobalSet}, i) }
func Call(i uint32) []byte { return AppendU32([]byte{OpCall}, i) }

// Memory access with natural alignment.
func I32Load(offset uint32) []byte { return memarg(OpI32Load, 2, offset) }
func I32Load8U(offset uint32) []byte { return memarg(OpI32Load8U, 0, offset) }
func F64Load(offset uint32) []byte { return memarg(OpF64Load, 3, offset) }
func I32Store(offset uint32) []byte { return memarg(OpI32Store, 2, offset) }
func F64Store(offset uint32) []byte { return memarg(OpF64Store, 3, offset) }

func memarg(op byte, align, offset uint32) []byte {
	return AppendU32(AppendU32([]byte{op}, align), offset)
}

// IfResult opens an if block producing one value of type t.
func IfResult(t byte) []byte { return []byte{OpIf, t} }

// Op wraps bare opcodes.
func Op(ops ...byte) []byte { return ops }

// Types builds a value type list.
func Types(ts ...byte) []byte { return ts }
