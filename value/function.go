package value

import "github.com/duskvm/duskvm/gc"

// NativeFunc is a function implemented in Go rather than compiled
// bytecode, invoked with its own upvalue slots already resolved to
// values (no Prototype, no open-upvalue machinery).
type NativeFunc func(upvalues []Value, args []Value) ([]Value, error)

// Function is the managed closure type: either a Lua closure (Proto !=
// nil, Upvalues holds *Upvalue objects to let upvalue sharing/closing
// work) or a native closure (Native != nil, Upvalues holds plain
// Values captured at creation time) — mirrors the GCfuncL/GCfuncC union
// in lj_obj.h.
type Function struct {
	gc.Header
	Env gc.Object

	Proto    *Prototype
	Upvalues []*Upvalue

	Native     NativeFunc
	NativeUpvs []Value
}

// NewLuaClosure allocates a closure over a compiled prototype.
func NewLuaClosure(proto *Prototype, upvalues []*Upvalue, env gc.Object) *Function {
	return &Function{
		Header:   gc.NewHeader(gc.KindFunction),
		Env:      env,
		Proto:    proto,
		Upvalues: upvalues,
	}
}

// NewNativeClosure allocates a closure over a Go function.
func NewNativeClosure(fn NativeFunc, upvalues []Value, env gc.Object) *Function {
	return &Function{
		Header:     gc.NewHeader(gc.KindFunction),
		Env:        env,
		Native:     fn,
		NativeUpvs: upvalues,
	}
}

// GCHeader implements gc.Object.
func (f *Function) GCHeader() *gc.Header { return &f.Header }

// IsNative reports whether this is a Go-native closure.
func (f *Function) IsNative() bool { return f.Native != nil }

// GCSize implements gc.Sized.
func (f *Function) GCSize() uintptr {
	if f.IsNative() {
		return 32 + uintptr(len(f.NativeUpvs))*16
	}
	return 24 + uintptr(len(f.Upvalues))*8
}

// Traverse marks the environment and, for a Lua closure, the prototype
// and every upvalue object; for a native closure, the captured values
// directly — mirrors gc_traverse_func.
func (f *Function) Traverse(m gc.Marker) {
	if f.Env != nil {
		m.MarkObject(f.Env)
	}
	if f.IsNative() {
		for _, v := range f.NativeUpvs {
			m.MarkValue(v.GC)
		}
		return
	}
	if f.Proto != nil {
		m.MarkObject(f.Proto)
	}
	for _, uv := range f.Upvalues {
		if uv != nil {
			m.MarkObject(uv)
		}
	}
}
