package gc

// Object is implemented by every managed heap value (string, upvalue,
// thread, prototype, function, table, userdata, cdata, trace). GCHeader
// exposes the embedded Header so the collector can read/flip color bits
// and walk the intrusive lists without knowing the concrete type.
type Object interface {
	GCHeader() *Header
}

// Value mirrors a TValue slot as far as the collector needs to see it:
// whether it references a GC object at all, and if so, which one. The
// collector never inspects numbers, booleans or nil payloads, so those
// are opaque to it — package value is free to store them however it
// likes.
type Value struct {
	obj Object
}

// GCValue wraps a GC object reference as a Value.
func GCValue(o Object) Value { return Value{obj: o} }

// NilValue is a Value with no GC reference (nil/bool/number in the
// managed language).
var NilValue = Value{}

// Object returns the referenced object and whether there is one.
func (v Value) Object() (Object, bool) { return v.obj, v.obj != nil }

// IsGC reports whether v references a GC object.
func (v Value) IsGC() bool { return v.obj != nil }

// Marker is passed to a Traverser's traversal method so it can mark the
// values/objects it holds without the collector exposing its internals
// (gray list, current white, dead state) to package value.
type Marker interface {
	// MarkValue marks v's referenced object if it is white. A no-op if
	// v carries no GC reference.
	MarkValue(v Value)
	// MarkObject marks o directly if it is white. Used for metatable/
	// environment references that arrive as a bare Object.
	MarkObject(o Object)
	// PushWeak queues a table onto the weak worklist, for a
	// TableTraverser that just discovered a non-empty __mode. Mirrors
	// gc_traverse_tab pushing itself onto g->gc.weak.
	PushWeak(o Object)
}

// TableTraverser is implemented by managed tables. Traverse marks the
// table's metatable, array part and (mode-dependent) hash part, mirroring
// gc_traverse_tab, and pushes a weak table onto the weak list itself
// via Marker.PushWeak. It returns the weak-mode flags that were in
// effect so the caller can keep a weak table gray instead of
// blackening it.
type TableTraverser interface {
	Object
	Traverse(m Marker) (weak Color)
}

// FuncTraverser is implemented by managed functions (closures). Traverse
// marks the environment and, for Lua closures, the prototype and upvalue
// objects; for native closures, the upvalues' referenced values directly.
type FuncTraverser interface {
	Object
	Traverse(m Marker)
}

// ProtoTraverser is implemented by managed prototypes.
type ProtoTraverser interface {
	Object
	Traverse(m Marker)
}

// ThreadTraverser is implemented by managed threads (coroutines). Threads
// are never black: traversal always re-queues the thread onto grayagain.
type ThreadTraverser interface {
	Object
	Traverse(m Marker)
}

// UserdataLike is implemented by managed userdata. Userdata is never gray:
// Mark blackens it immediately and marks its metatable/env via this
// interface instead of queuing it.
type UserdataLike interface {
	Object
	Metatable() Object
	Env() Object
}

// UpvalueLike is implemented by managed upvalues. Mark marks the
// referenced value and, if the upvalue is closed, blackens it
// immediately (a closed upvalue, like userdata, is never gray).
type UpvalueLike interface {
	Object
	Referenced() Value
	Closed() bool
}
