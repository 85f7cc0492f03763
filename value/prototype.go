package value

import "github.com/duskvm/duskvm/gc"

// upvalDesc records where a prototype's Nth upvalue is captured from: an
// enclosing frame's local slot (Local true) or the parent closure's own
// upvalue at Index (Local false), mirroring lj_obj.h's UVInfo split.
type upvalDesc struct {
	Name  string
	Local bool
	Index int
}

// Prototype is a compiled function template: its constant pool
// (anything GC-managed; numeric/string immediates live elsewhere),
// upvalue descriptors, debug-only local-variable names, and the list of
// JIT traces recorded against it, mirroring GCproto in lj_obj.h.
type Prototype struct {
	gc.Header
	Chunk   string
	Consts  []Value // GC constants only: child prototypes, template strings
	Upvals  []upvalDesc
	Locals  []string // debug info, parallel to bytecode live ranges
	Traces  []gc.Object
}

// NewPrototype allocates a prototype for chunk (source name), with the
// given GC-constant pool and upvalue descriptors.
func NewPrototype(chunk string, consts []Value, upvals []upvalDesc) *Prototype {
	return &Prototype{
		Header: gc.NewHeader(gc.KindPrototype),
		Chunk:  chunk,
		Consts: consts,
		Upvals: upvals,
	}
}

// GCHeader implements gc.Object.
func (p *Prototype) GCHeader() *gc.Header { return &p.Header }

// GCSize implements gc.Sized.
func (p *Prototype) GCSize() uintptr {
	return 48 + uintptr(len(p.Consts))*32 + uintptr(len(p.Traces))*8
}

// AddTrace records a JIT trace compiled against this prototype.
func (p *Prototype) AddTrace(t gc.Object) { p.Traces = append(p.Traces, t) }

// Traverse marks every GC constant and every recorded trace, mirroring
// gc_traverse_proto. Upvalue/local debug descriptors carry no GC
// references (they're names and slot indices), so they need no marking.
func (p *Prototype) Traverse(m gc.Marker) {
	for _, v := range p.Consts {
		m.MarkValue(v.GC)
	}
	for _, t := range p.Traces {
		if t != nil {
			m.MarkObject(t)
		}
	}
}
